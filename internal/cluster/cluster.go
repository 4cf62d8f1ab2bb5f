// Package cluster partitions de-duplicated opportunities into demand
// clusters and ranks them by trending score.
//
// Clustering is greedy and seed-based: opportunities are processed in
// creation order, each unclustered one seeds a new cluster and absorbs
// every remaining unclustered opportunity similar enough to the seed.
// Deterministic for a fixed input order and threshold, not globally
// optimal; responsiveness wins over perfect partitioning here.
package cluster

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/demandradar/engine/internal/core/domain"
	"github.com/demandradar/engine/internal/similarity"
)

// Safety cap to avoid O(n²) explosion on a runaway corpus.
const maxClusterInput = 2000

// Trending score weights. All positive, so the score is monotone
// non-decreasing in recent sources, total sources, and average score:
// a newly added matching source can only raise a cluster's trend.
const (
	recentSourceWeight = 10.0
	totalSourceWeight  = 3.0
	avgScoreWeight     = 1.0
)

// Repository is the read contract for clustering. Every recompute is a
// fresh read so forced runs never see stale source counts.
type Repository interface {
	ListOpportunities(ctx context.Context) ([]domain.Opportunity, error)
	ListSources(ctx context.Context) ([]domain.Source, error)
	ListPosts(ctx context.Context) ([]domain.Post, error)
}

// Config holds the clustering policy knobs.
type Config struct {
	// Threshold is the seed similarity at or above which an opportunity
	// joins a cluster.
	Threshold float64

	// RecentWindow bounds how far back a source still counts as recent
	// for the trending score.
	RecentWindow time.Duration
}

// Snapshot is one complete clustering result. Snapshots are immutable;
// a recompute produces a new one with a higher generation. Truncated is
// the number of opportunities dropped by the input cap; zero means the
// partition covers the whole corpus.
type Snapshot struct {
	Generation   uint64
	ComputedAt   time.Time
	Clusters     []domain.Cluster
	TotalSources int
	Truncated    int
}

// Engine computes and caches demand clusters.
type Engine struct {
	database Repository
	cfg      Config
	logger   *zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	snapshot *Snapshot
}

// New creates a clustering engine.
func New(database Repository, cfg Config, logger *zerolog.Logger) *Engine {
	return &Engine{
		database: database,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// ClusterSimilarOpportunities returns the current partition of all
// opportunities into clusters. Without force it returns the last
// computed snapshot when one exists; with force (or on first call) it
// recomputes from a fresh read of opportunities, sources, and posts.
func (e *Engine) ClusterSimilarOpportunities(ctx context.Context, force bool) (*Snapshot, error) {
	e.mu.Lock()
	cached := e.snapshot
	e.mu.Unlock()

	if !force && cached != nil {
		return cached, nil
	}

	snapshot, err := e.recompute(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	snapshot.Generation = 1
	if e.snapshot != nil {
		snapshot.Generation = e.snapshot.Generation + 1
	}
	e.snapshot = snapshot
	e.mu.Unlock()

	return snapshot, nil
}

func (e *Engine) recompute(ctx context.Context) (*Snapshot, error) {
	opportunities, err := e.database.ListOpportunities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}

	sources, err := e.database.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	posts, err := e.database.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	// Stable order: creation time ascending, ties by id. The greedy pass
	// below is deterministic only because of this.
	sort.Slice(opportunities, func(i, j int) bool {
		if !opportunities[i].CreatedAt.Equal(opportunities[j].CreatedAt) {
			return opportunities[i].CreatedAt.Before(opportunities[j].CreatedAt)
		}

		return opportunities[i].ID < opportunities[j].ID
	})

	truncated := 0

	if len(opportunities) > maxClusterInput {
		truncated = len(opportunities) - maxClusterInput

		e.logger.Warn().Int("count", len(opportunities)).Int("truncated", truncated).
			Msg("too many opportunities to cluster, truncating")

		opportunities = opportunities[:maxClusterInput]
	}

	postByID := make(map[string]domain.Post, len(posts))
	for _, p := range posts {
		postByID[p.ID] = p
	}

	postsByOpp := make(map[string][]string, len(opportunities))
	distinctPosts := make(map[string]struct{})

	for _, s := range sources {
		postsByOpp[s.OpportunityID] = append(postsByOpp[s.OpportunityID], s.PostID)
		distinctPosts[s.PostID] = struct{}{}
	}

	assigned := make(map[string]bool, len(opportunities))

	var clusters []domain.Cluster

	for i, seed := range opportunities {
		if assigned[seed.ID] {
			continue
		}

		assigned[seed.ID] = true
		members := []domain.Opportunity{seed}

		for j := i + 1; j < len(opportunities); j++ {
			candidate := opportunities[j]
			if assigned[candidate.ID] {
				continue
			}

			if similarity.Score(seed, candidate) >= e.cfg.Threshold {
				members = append(members, candidate)
				assigned[candidate.ID] = true
			}
		}

		clusters = append(clusters, e.buildCluster(members, postsByOpp, postByID))
	}

	snapshot := &Snapshot{
		ComputedAt:   e.now(),
		Clusters:     clusters,
		TotalSources: len(distinctPosts),
		Truncated:    truncated,
	}

	e.logger.Info().
		Int("opportunities", len(opportunities)).
		Int("clusters", len(clusters)).
		Int("distinct_sources", snapshot.TotalSources).
		Msg("clustering recomputed")

	return snapshot, nil
}

// buildCluster computes the aggregates for one member set. Aggregates
// are always derived from current members and their sources, never
// carried over from a previous run.
func (e *Engine) buildCluster(members []domain.Opportunity, postsByOpp map[string][]string, postByID map[string]domain.Post) domain.Cluster {
	representative := pickRepresentative(members)

	clusterPosts := make(map[string]domain.Post)
	subreddits := make(map[string]struct{})

	var scoreSum float64

	for _, m := range members {
		scoreSum += m.OverallScore

		for _, postID := range postsByOpp[m.ID] {
			p, ok := postByID[postID]
			if !ok {
				continue
			}

			clusterPosts[p.ID] = p

			if p.Subreddit != "" {
				subreddits[p.Subreddit] = struct{}{}
			}
		}
	}

	c := domain.Cluster{
		ID:          representative.ID,
		Title:       representative.Title,
		Description: representative.Description,
		Members:     members,
		SourceCount: len(clusterPosts),
		AvgScore:    scoreSum / float64(len(members)),
	}

	var recent int

	cutoff := e.now().Add(-e.cfg.RecentWindow)

	for _, p := range clusterPosts {
		if c.FirstSeen.IsZero() || p.CreatedAt.Before(c.FirstSeen) {
			c.FirstSeen = p.CreatedAt
		}

		if p.CreatedAt.After(c.LastSeen) {
			c.LastSeen = p.CreatedAt
		}

		if p.CreatedAt.After(cutoff) {
			recent++
		}

		c.TopPosts = append(c.TopPosts, domain.PostRef{
			ID:         p.ID,
			ExternalID: p.ExternalID,
			Title:      p.Title,
			Subreddit:  p.Subreddit,
			Score:      p.Score,
			CreatedAt:  p.CreatedAt,
		})
	}

	// Clusters whose members have no surviving sources fall back to the
	// members' own timestamps.
	if c.FirstSeen.IsZero() {
		for _, m := range members {
			if c.FirstSeen.IsZero() || m.CreatedAt.Before(c.FirstSeen) {
				c.FirstSeen = m.CreatedAt
			}

			if m.CreatedAt.After(c.LastSeen) {
				c.LastSeen = m.CreatedAt
			}
		}
	}

	sort.Slice(c.TopPosts, func(i, j int) bool {
		if c.TopPosts[i].Score != c.TopPosts[j].Score {
			return c.TopPosts[i].Score > c.TopPosts[j].Score
		}

		return c.TopPosts[i].ID < c.TopPosts[j].ID
	})

	if len(c.TopPosts) > maxTopPosts {
		c.TopPosts = c.TopPosts[:maxTopPosts]
	}

	c.Subreddits = make([]string, 0, len(subreddits))
	for s := range subreddits {
		c.Subreddits = append(c.Subreddits, s)
	}

	sort.Strings(c.Subreddits)

	c.TrendingScore = recentSourceWeight*float64(recent) +
		totalSourceWeight*float64(c.SourceCount) +
		avgScoreWeight*c.AvgScore

	return c
}

// pickRepresentative selects the member whose title and description
// label the cluster: highest overall score, ties broken by longer
// description, then lowest id.
func pickRepresentative(members []domain.Opportunity) domain.Opportunity {
	best := members[0]

	for _, m := range members[1:] {
		switch {
		case m.OverallScore > best.OverallScore:
			best = m
		case m.OverallScore == best.OverallScore && len(m.Description) > len(best.Description):
			best = m
		case m.OverallScore == best.OverallScore && len(m.Description) == len(best.Description) && m.ID < best.ID:
			best = m
		}
	}

	return best
}
