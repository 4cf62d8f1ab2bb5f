package domain

import "time"

// Post represents a raw scraped Reddit submission.
type Post struct {
	ID              string
	ExternalID      string
	Title           string
	Body            string
	Subreddit       string
	Author          string
	Score           int
	NumComments     int
	CreatedAt       time.Time
	ProcessedAt     *time.Time
	ProcessingError string
}

// IsPending reports whether the post has not been analyzed yet.
func (p Post) IsPending() bool {
	return p.ProcessedAt == nil && p.ProcessingError == ""
}

// IsFailed reports whether analysis of the post failed.
// A failed post never carries a processing timestamp.
func (p Post) IsFailed() bool {
	return p.ProcessingError != ""
}

// ScoreBreakdown holds the named sub-scores of an opportunity.
// Each score is in the range [0, 10].
type ScoreBreakdown struct {
	Speed       float64
	Convenience float64
	Trust       float64
	Price       float64
}

// ViabilityThreshold is the overall score at or above which an
// opportunity is considered viable.
const ViabilityThreshold = 6.0

// Opportunity represents a derived business-idea record produced from
// one or more posts.
type Opportunity struct {
	ID               string
	Title            string
	Description      string
	ProposedSolution string
	Scores           ScoreBreakdown
	OverallScore     float64
	Viable           bool
	BusinessType     BusinessType
	Vertical         Vertical
	Niche            string
	CreatedAt        time.Time
}

// Source links one opportunity to one contributing post.
type Source struct {
	OpportunityID string
	PostID        string
}

// PostRef is a lightweight view of a contributing post used in cluster
// reports.
type PostRef struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	Title      string    `json:"title"`
	Subreddit  string    `json:"subreddit"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Cluster is a computed group of similar opportunities representing one
// underlying demand signal. Clusters are rebuilt from opportunities and
// sources; their aggregates are never mutated independently.
type Cluster struct {
	ID            string
	Title         string
	Description   string
	Members       []Opportunity
	SourceCount   int
	AvgScore      float64
	TrendingScore float64
	FirstSeen     time.Time
	LastSeen      time.Time
	Subreddits    []string
	TopPosts      []PostRef
}

// OpportunityCount returns the number of member opportunities.
func (c Cluster) OpportunityCount() int {
	return len(c.Members)
}

// UsageEvent is one AI call's cost and token footprint.
type UsageEvent struct {
	Timestamp        time.Time
	Model            string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
}

// Date returns the UTC calendar date the event falls on.
func (e UsageEvent) Date() time.Time {
	return e.Timestamp.UTC().Truncate(24 * time.Hour)
}

// DailyUsage is a per-date rollup of usage events. Totals for a date
// always equal the sum of the events recorded for that date.
type DailyUsage struct {
	Date             time.Time
	PromptTokens     int64
	CompletionTokens int64
	RequestCount     int64
	CostUSD          float64
}
