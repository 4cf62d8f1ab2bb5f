package domain

import "strings"

// BusinessType is a closed enumeration of business model labels.
// Free-form tags from the analyzer are normalized into this set so
// similarity scoring stays deterministic.
type BusinessType string

const (
	BusinessSaaS        BusinessType = "saas"
	BusinessMarketplace BusinessType = "marketplace"
	BusinessService     BusinessType = "service"
	BusinessContent     BusinessType = "content"
	BusinessTool        BusinessType = "tool"
	BusinessOther       BusinessType = "other"
)

var businessTypes = map[BusinessType]struct{}{
	BusinessSaaS:        {},
	BusinessMarketplace: {},
	BusinessService:     {},
	BusinessContent:     {},
	BusinessTool:        {},
	BusinessOther:       {},
}

// ParseBusinessType normalizes a raw label into the closed set.
// Unknown or empty labels map to BusinessOther.
func ParseBusinessType(raw string) BusinessType {
	bt := BusinessType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := businessTypes[bt]; ok {
		return bt
	}

	return BusinessOther
}

// Valid reports whether the business type belongs to the closed set.
func (b BusinessType) Valid() bool {
	_, ok := businessTypes[b]
	return ok
}

// Vertical is a closed enumeration of industry vertical labels.
type Vertical string

const (
	VerticalProductivity Vertical = "productivity"
	VerticalFinance      Vertical = "finance"
	VerticalHealth       Vertical = "health"
	VerticalEducation    Vertical = "education"
	VerticalDevTools     Vertical = "devtools"
	VerticalEcommerce    Vertical = "ecommerce"
	VerticalSocial       Vertical = "social"
	VerticalOther        Vertical = "other"
)

var verticals = map[Vertical]struct{}{
	VerticalProductivity: {},
	VerticalFinance:      {},
	VerticalHealth:       {},
	VerticalEducation:    {},
	VerticalDevTools:     {},
	VerticalEcommerce:    {},
	VerticalSocial:       {},
	VerticalOther:        {},
}

// ParseVertical normalizes a raw label into the closed set.
// Unknown or empty labels map to VerticalOther.
func ParseVertical(raw string) Vertical {
	v := Vertical(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := verticals[v]; ok {
		return v
	}

	return VerticalOther
}

// Valid reports whether the vertical belongs to the closed set.
func (v Vertical) Valid() bool {
	_, ok := verticals[v]
	return ok
}
