package domain

// Comparable defines the interface for records that can be compared for
// similarity. Both Post and Opportunity implement it, so deduplication
// and clustering share one scorer.
type Comparable interface {
	// GetID returns the unique identifier of the record.
	GetID() string

	// GetTitle returns the record's title text.
	GetTitle() string

	// GetText returns the record's long-form text.
	GetText() string

	// GetBusinessType returns the business type label, or "" when the
	// record carries none.
	GetBusinessType() string

	// GetVertical returns the industry vertical label, or "" when the
	// record carries none.
	GetVertical() string
}

func (p Post) GetID() string    { return p.ID }
func (p Post) GetTitle() string { return p.Title }
func (p Post) GetText() string  { return p.Body }

// Posts carry no categorical labels; the scorer falls back to text only.
func (p Post) GetBusinessType() string { return "" }
func (p Post) GetVertical() string     { return "" }

func (o Opportunity) GetID() string           { return o.ID }
func (o Opportunity) GetTitle() string        { return o.Title }
func (o Opportunity) GetText() string         { return o.Description }
func (o Opportunity) GetBusinessType() string { return string(o.BusinessType) }
func (o Opportunity) GetVertical() string     { return string(o.Vertical) }
