// Package dedup finds and collapses near-duplicate posts and
// opportunities left behind by repeated scraping passes.
//
// Cleanup is idempotent: canonical selection is deterministic from the
// data alone, so re-running against an already-merged corpus deletes
// nothing. Source links are always re-pointed before any record is
// deleted; a group whose merge fails is skipped and reported, never left
// half-merged.
package dedup

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/demandradar/engine/internal/core/domain"
	"github.com/demandradar/engine/internal/similarity"
)

// Log key constants for deduplication.
const (
	logKeyCanonicalID = "canonical_id"
	logKeyDuplicates  = "duplicates"
)

// Repository is the persistence contract the engine needs. Merge
// operations re-point source links to the canonical record and delete
// the duplicates in one atomic step.
type Repository interface {
	ListPosts(ctx context.Context) ([]domain.Post, error)
	ListOpportunities(ctx context.Context) ([]domain.Opportunity, error)
	ListSources(ctx context.Context) ([]domain.Source, error)
	MergePosts(ctx context.Context, canonicalID string, duplicateIDs []string) error
	MergeOpportunities(ctx context.Context, canonicalID string, duplicateIDs []string) error
}

// Group is one set of duplicates with its deterministically selected
// canonical record (earliest creation time, ties broken by lowest id).
type Group struct {
	CanonicalID  string   `json:"canonicalId"`
	DuplicateIDs []string `json:"duplicateIds"`
}

// GroupError records a group whose merge failed. The cleanup pass
// continues with the remaining groups.
type GroupError struct {
	CanonicalID string `json:"canonicalId"`
	Error       string `json:"error"`
}

// Report summarizes one cleanup pass.
type Report struct {
	DeletedPosts         int          `json:"deletedPosts"`
	DeletedOpportunities int          `json:"deletedOpportunities"`
	Errors               []GroupError `json:"errors,omitempty"`
}

// Engine detects and merges duplicate posts and opportunities.
type Engine struct {
	database  Repository
	threshold float64
	logger    *zerolog.Logger
}

// New creates a deduplication engine. threshold is the pairwise
// similarity at or above which two opportunities are duplicate
// candidates.
func New(database Repository, threshold float64, logger *zerolog.Logger) *Engine {
	return &Engine{
		database:  database,
		threshold: threshold,
		logger:    logger,
	}
}

// FindDuplicatePosts groups posts sharing the same external id. The
// uniqueness invariant should make this impossible; double-scrapes are
// grouped defensively instead of trusted away.
func (e *Engine) FindDuplicatePosts(ctx context.Context) ([]Group, error) {
	posts, err := e.database.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	byExternalID := make(map[string][]domain.Post)
	for _, p := range posts {
		byExternalID[p.ExternalID] = append(byExternalID[p.ExternalID], p)
	}

	var groups []Group

	for _, members := range byExternalID {
		if len(members) < 2 {
			continue
		}

		groups = append(groups, makePostGroup(members))
	}

	sortGroups(groups)

	return groups, nil
}

// FindDuplicateOpportunities groups opportunities whose pairwise
// similarity meets the threshold AND whose contributing post sets
// overlap or whose subreddits intersect. The dual condition keeps
// genuinely independent ideas with generic wording apart.
func (e *Engine) FindDuplicateOpportunities(ctx context.Context) ([]Group, error) {
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

	sortOpportunities(opportunities)

	postSubreddit := make(map[string]string, len(posts))
	for _, p := range posts {
		postSubreddit[p.ID] = p.Subreddit
	}

	postsByOpp := make(map[string]map[string]struct{})
	subredditsByOpp := make(map[string]map[string]struct{})

	for _, s := range sources {
		if postsByOpp[s.OpportunityID] == nil {
			postsByOpp[s.OpportunityID] = make(map[string]struct{})
			subredditsByOpp[s.OpportunityID] = make(map[string]struct{})
		}

		postsByOpp[s.OpportunityID][s.PostID] = struct{}{}

		if sub := postSubreddit[s.PostID]; sub != "" {
			subredditsByOpp[s.OpportunityID][sub] = struct{}{}
		}
	}

	ids := make([]string, 0, len(opportunities))
	for _, o := range opportunities {
		ids = append(ids, o.ID)
	}

	uf := newUnionFind(ids)

	for i := 0; i < len(opportunities); i++ {
		for j := i + 1; j < len(opportunities); j++ {
			a, b := opportunities[i], opportunities[j]

			if similarity.Score(a, b) < e.threshold {
				continue
			}

			if !setsOverlap(postsByOpp[a.ID], postsByOpp[b.ID]) &&
				!setsOverlap(subredditsByOpp[a.ID], subredditsByOpp[b.ID]) {
				continue
			}

			uf.union(a.ID, b.ID)
		}
	}

	oppByID := make(map[string]domain.Opportunity, len(opportunities))
	for _, o := range opportunities {
		oppByID[o.ID] = o
	}

	var groups []Group

	for _, members := range uf.components() {
		group := make([]domain.Opportunity, 0, len(members))
		for _, id := range members {
			group = append(group, oppByID[id])
		}

		groups = append(groups, makeOpportunityGroup(group))
	}

	sortGroups(groups)

	return groups, nil
}

// Cleanup merges every duplicate group and deletes the non-canonical
// records. Post groups are merged first so that opportunities derived
// from a double-scraped post share a source and collapse in the same
// pass. A failing group is logged and reported; the pass continues.
func (e *Engine) Cleanup(ctx context.Context) (Report, error) {
	var report Report

	postGroups, err := e.FindDuplicatePosts(ctx)
	if err != nil {
		return report, fmt.Errorf("find duplicate posts: %w", err)
	}

	for _, g := range postGroups {
		if err := e.database.MergePosts(ctx, g.CanonicalID, g.DuplicateIDs); err != nil {
			e.logger.Error().Err(err).
				Str(logKeyCanonicalID, g.CanonicalID).
				Strs(logKeyDuplicates, g.DuplicateIDs).
				Msg("post group merge failed")

			report.Errors = append(report.Errors, GroupError{CanonicalID: g.CanonicalID, Error: err.Error()})

			continue
		}

		report.DeletedPosts += len(g.DuplicateIDs)
	}

	// Fresh read: post merges above may have re-pointed sources, which
	// is what makes re-analyzed opportunities overlap.
	oppGroups, err := e.FindDuplicateOpportunities(ctx)
	if err != nil {
		return report, fmt.Errorf("find duplicate opportunities: %w", err)
	}

	for _, g := range oppGroups {
		if err := e.database.MergeOpportunities(ctx, g.CanonicalID, g.DuplicateIDs); err != nil {
			e.logger.Error().Err(err).
				Str(logKeyCanonicalID, g.CanonicalID).
				Strs(logKeyDuplicates, g.DuplicateIDs).
				Msg("opportunity group merge failed")

			report.Errors = append(report.Errors, GroupError{CanonicalID: g.CanonicalID, Error: err.Error()})

			continue
		}

		report.DeletedOpportunities += len(g.DuplicateIDs)
	}

	e.logger.Info().
		Int("deleted_posts", report.DeletedPosts).
		Int("deleted_opportunities", report.DeletedOpportunities).
		Int("failed_groups", len(report.Errors)).
		Msg("deduplication pass finished")

	return report, nil
}

func makePostGroup(members []domain.Post) Group {
	sort.Slice(members, func(i, j int) bool {
		if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		}

		return members[i].ID < members[j].ID
	})

	g := Group{CanonicalID: members[0].ID}
	for _, m := range members[1:] {
		g.DuplicateIDs = append(g.DuplicateIDs, m.ID)
	}

	return g
}

func makeOpportunityGroup(members []domain.Opportunity) Group {
	sort.Slice(members, func(i, j int) bool {
		if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		}

		return members[i].ID < members[j].ID
	})

	g := Group{CanonicalID: members[0].ID}
	for _, m := range members[1:] {
		g.DuplicateIDs = append(g.DuplicateIDs, m.ID)
	}

	return g
}

func sortOpportunities(opportunities []domain.Opportunity) {
	sort.Slice(opportunities, func(i, j int) bool {
		if !opportunities[i].CreatedAt.Equal(opportunities[j].CreatedAt) {
			return opportunities[i].CreatedAt.Before(opportunities[j].CreatedAt)
		}

		return opportunities[i].ID < opportunities[j].ID
	})
}

func sortGroups(groups []Group) {
	for i := range groups {
		sort.Strings(groups[i].DuplicateIDs)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].CanonicalID < groups[j].CanonicalID
	})
}

func setsOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}

	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}

	return false
}
