package cluster

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/demandradar/engine/internal/core/domain"
	ierr "github.com/demandradar/engine/internal/core/errors"
)

// maxTopPosts caps the contributing-post list on each reported cluster.
const maxTopPosts = 5

// ClusterReport is the dashboard-facing view of one cluster.
type ClusterReport struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Category         string           `json:"category"`
	SourceCount      int              `json:"sourceCount"`
	OpportunityCount int              `json:"opportunityCount"`
	AvgScore         float64          `json:"avgScore"`
	ViabilityRate    int              `json:"viabilityRate"`
	Subreddits       []string         `json:"subreddits"`
	TrendingScore    int              `json:"trendingScore"`
	FirstSeen        time.Time        `json:"firstSeen"`
	LastSeen         time.Time        `json:"lastSeen"`
	TopPosts         []domain.PostRef `json:"topPosts"`
}

// Summary describes the result set a report was drawn from.
type Summary struct {
	TotalClusters int `json:"totalClusters"`
	TotalSources  int `json:"totalSources"`
	Limit         int `json:"limit"`
}

// TopIdeas is the ranked result of TopRequestedIdeas.
type TopIdeas struct {
	Clusters []ClusterReport `json:"clusters"`
	Summary  Summary         `json:"summary"`
}

// TopRequestedIdeas returns up to limit clusters with at least
// minSources distinct sources, ranked by trending score descending.
// Ties break by source count descending, then earliest first-seen:
// oldest sustained demand outranks newer spikes at equal trend.
func (e *Engine) TopRequestedIdeas(ctx context.Context, limit, minSources int) (TopIdeas, error) {
	if limit < 0 {
		return TopIdeas{}, fmt.Errorf("%w: %d", ierr.ErrInvalidLimit, limit)
	}

	if minSources < 0 {
		return TopIdeas{}, fmt.Errorf("%w: %d", ierr.ErrInvalidMinSources, minSources)
	}

	snapshot, err := e.ClusterSimilarOpportunities(ctx, false)
	if err != nil {
		return TopIdeas{}, err
	}

	eligible := make([]domain.Cluster, 0, len(snapshot.Clusters))

	for _, c := range snapshot.Clusters {
		if c.SourceCount >= minSources {
			eligible = append(eligible, c)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].TrendingScore != eligible[j].TrendingScore {
			return eligible[i].TrendingScore > eligible[j].TrendingScore
		}

		if eligible[i].SourceCount != eligible[j].SourceCount {
			return eligible[i].SourceCount > eligible[j].SourceCount
		}

		if !eligible[i].FirstSeen.Equal(eligible[j].FirstSeen) {
			return eligible[i].FirstSeen.Before(eligible[j].FirstSeen)
		}

		return eligible[i].ID < eligible[j].ID
	})

	applied := limit
	if applied > len(eligible) {
		applied = len(eligible)
	}

	reports := make([]ClusterReport, 0, applied)
	for _, c := range eligible[:applied] {
		reports = append(reports, buildReport(c))
	}

	return TopIdeas{
		Clusters: reports,
		Summary: Summary{
			TotalClusters: len(snapshot.Clusters),
			TotalSources:  snapshot.TotalSources,
			Limit:         applied,
		},
	}, nil
}

func buildReport(c domain.Cluster) ClusterReport {
	viable := 0

	var niche string

	for _, m := range c.Members {
		if m.Viable {
			viable++
		}

		if niche == "" {
			niche = m.Niche
		}
	}

	// A Caser is stateful and not safe for concurrent use, so one is
	// constructed per report rather than shared.
	caser := cases.Title(language.English)

	return ClusterReport{
		ID:               c.ID,
		Title:            c.Title,
		Description:      c.Description,
		Category:         caser.String(niche),
		SourceCount:      c.SourceCount,
		OpportunityCount: c.OpportunityCount(),
		AvgScore:         math.Round(c.AvgScore*10) / 10,
		ViabilityRate:    int(math.Round(float64(viable) / float64(len(c.Members)) * 100)),
		Subreddits:       c.Subreddits,
		TrendingScore:    int(math.Round(c.TrendingScore)),
		FirstSeen:        c.FirstSeen,
		LastSeen:         c.LastSeen,
		TopPosts:         c.TopPosts,
	}
}
