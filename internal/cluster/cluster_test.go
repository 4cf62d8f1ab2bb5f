package cluster

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandradar/engine/internal/core/domain"
	ierr "github.com/demandradar/engine/internal/core/errors"
)

type fakeRepo struct {
	opps    []domain.Opportunity
	sources []domain.Source
	posts   []domain.Post
}

func (f *fakeRepo) ListOpportunities(context.Context) ([]domain.Opportunity, error) {
	return append([]domain.Opportunity(nil), f.opps...), nil
}

func (f *fakeRepo) ListSources(context.Context) ([]domain.Source, error) {
	return append([]domain.Source(nil), f.sources...), nil
}

func (f *fakeRepo) ListPosts(context.Context) ([]domain.Post, error) {
	return append([]domain.Post(nil), f.posts...), nil
}

var testNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func newTestEngine(repo *fakeRepo) *Engine {
	logger := zerolog.Nop()
	e := New(repo, Config{Threshold: 0.75, RecentWindow: 7 * 24 * time.Hour}, &logger)
	e.now = func() time.Time { return testNow }

	return e
}

func meetingNotesOpp(id, description string, createdAt time.Time) domain.Opportunity {
	return domain.Opportunity{
		ID:           id,
		Title:        "AI meeting notes",
		Description:  description,
		OverallScore: 7,
		Viable:       true,
		BusinessType: domain.BusinessSaaS,
		Vertical:     domain.VerticalProductivity,
		Niche:        "meeting automation",
		CreatedAt:    createdAt,
	}
}

func TestClusterSimilarOpportunities_ThreeSubredditScenario(t *testing.T) {
	base := testNow.Add(-48 * time.Hour)

	repo := &fakeRepo{
		opps: []domain.Opportunity{
			meetingNotesOpp("o1", "automatically summarize standup meetings into action items", base),
			meetingNotesOpp("o2", "automatically summarize standup meetings into action points", base.Add(time.Hour)),
			meetingNotesOpp("o3", "automatically summarize standup meetings into action items for teams", base.Add(2*time.Hour)),
		},
		sources: []domain.Source{
			{OpportunityID: "o1", PostID: "p1"},
			{OpportunityID: "o2", PostID: "p2"},
			{OpportunityID: "o3", PostID: "p3"},
		},
		posts: []domain.Post{
			{ID: "p1", Subreddit: "productivity", CreatedAt: base},
			{ID: "p2", Subreddit: "startups", CreatedAt: base.Add(time.Hour)},
			{ID: "p3", Subreddit: "SaaS", CreatedAt: base.Add(2 * time.Hour)},
		},
	}

	snapshot, err := newTestEngine(repo).ClusterSimilarOpportunities(context.Background(), true)
	require.NoError(t, err)

	require.Len(t, snapshot.Clusters, 1)
	c := snapshot.Clusters[0]
	assert.Equal(t, 3, c.SourceCount)
	assert.Equal(t, 3, c.OpportunityCount())
	assert.Equal(t, []string{"SaaS", "productivity", "startups"}, c.Subreddits)
	assert.Equal(t, 7.0, c.AvgScore)
}

func TestClusterSimilarOpportunities_Partition(t *testing.T) {
	base := testNow.Add(-72 * time.Hour)

	repo := &fakeRepo{
		opps: []domain.Opportunity{
			meetingNotesOpp("o1", "automatically summarize standup meetings into action items", base),
			meetingNotesOpp("o2", "automatically summarize standup meetings into action points", base.Add(time.Hour)),
			{
				ID:           "o3",
				Title:        "Crypto tax helper",
				Description:  "generate capital gains reports from exchange exports",
				OverallScore: 5,
				BusinessType: domain.BusinessTool,
				Vertical:     domain.VerticalFinance,
				CreatedAt:    base.Add(2 * time.Hour),
			},
		},
		sources: []domain.Source{
			{OpportunityID: "o1", PostID: "p1"},
			{OpportunityID: "o2", PostID: "p1"},
			{OpportunityID: "o3", PostID: "p2"},
		},
		posts: []domain.Post{
			{ID: "p1", Subreddit: "productivity", CreatedAt: base},
			{ID: "p2", Subreddit: "CryptoTax", CreatedAt: base},
		},
	}

	snapshot, err := newTestEngine(repo).ClusterSimilarOpportunities(context.Background(), true)
	require.NoError(t, err)

	seen := make(map[string]int)
	sourceSum := 0

	for _, c := range snapshot.Clusters {
		sourceSum += c.SourceCount
		for _, m := range c.Members {
			seen[m.ID]++
		}
	}

	// Every opportunity in exactly one cluster.
	require.Len(t, seen, len(repo.opps))
	for id, n := range seen {
		assert.Equal(t, 1, n, "opportunity %s clustered %d times", id, n)
	}

	assert.LessOrEqual(t, sourceSum, snapshot.TotalSources)
	assert.Equal(t, 2, snapshot.TotalSources)
}

func TestClusterSimilarOpportunities_CachedUntilForced(t *testing.T) {
	base := testNow.Add(-24 * time.Hour)
	repo := &fakeRepo{
		opps:    []domain.Opportunity{meetingNotesOpp("o1", "summarize standups", base)},
		sources: []domain.Source{{OpportunityID: "o1", PostID: "p1"}},
		posts:   []domain.Post{{ID: "p1", Subreddit: "startups", CreatedAt: base}},
	}

	engine := newTestEngine(repo)

	first, err := engine.ClusterSimilarOpportunities(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Generation)

	// New data arrives; an unforced call still returns the snapshot.
	repo.opps = append(repo.opps, meetingNotesOpp("o2", "summarize standups", base.Add(time.Hour)))

	cached, err := engine.ClusterSimilarOpportunities(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, first, cached)

	forced, err := engine.ClusterSimilarOpportunities(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), forced.Generation)
	assert.Equal(t, 2, forced.Clusters[0].OpportunityCount())
}

func TestTrendingScore_MonotoneInRecentSources(t *testing.T) {
	base := testNow.Add(-24 * time.Hour)

	repo := &fakeRepo{
		opps:    []domain.Opportunity{meetingNotesOpp("o1", "summarize standups automatically", base)},
		sources: []domain.Source{{OpportunityID: "o1", PostID: "p1"}},
		posts:   []domain.Post{{ID: "p1", Subreddit: "startups", CreatedAt: base}},
	}

	engine := newTestEngine(repo)

	before, err := engine.ClusterSimilarOpportunities(context.Background(), true)
	require.NoError(t, err)

	// A new matching source arrives.
	repo.sources = append(repo.sources, domain.Source{OpportunityID: "o1", PostID: "p2"})
	repo.posts = append(repo.posts, domain.Post{ID: "p2", Subreddit: "SaaS", CreatedAt: testNow.Add(-time.Hour)})

	after, err := engine.ClusterSimilarOpportunities(context.Background(), true)
	require.NoError(t, err)

	assert.Greater(t, after.Clusters[0].TrendingScore, before.Clusters[0].TrendingScore)
}

func distinctOpp(i int, createdAt time.Time) domain.Opportunity {
	topics := []string{
		"invoice reconciliation for freelancers accounting exports",
		"pet sitting marketplace vetted walkers booking",
		"language tutoring matching conversational practice partners",
		"garden planning seasonal planting reminders almanac",
		"resume tailoring keyword optimization job postings",
	}

	return domain.Opportunity{
		ID:           fmt.Sprintf("o%d", i),
		Title:        fmt.Sprintf("idea %d", i),
		Description:  topics[i],
		OverallScore: 5,
		CreatedAt:    createdAt,
	}
}

func TestTopRequestedIdeas_LimitAndOrder(t *testing.T) {
	base := testNow.Add(-30 * 24 * time.Hour)
	repo := &fakeRepo{}

	// Five unrelated opportunities; cluster i gets i+1 sources, so
	// trending strictly increases with i.
	for i := 0; i < 5; i++ {
		repo.opps = append(repo.opps, distinctOpp(i, base.Add(time.Duration(i)*time.Hour)))

		for j := 0; j <= i; j++ {
			postID := fmt.Sprintf("p%d_%d", i, j)
			repo.sources = append(repo.sources, domain.Source{OpportunityID: fmt.Sprintf("o%d", i), PostID: postID})
			repo.posts = append(repo.posts, domain.Post{ID: postID, Subreddit: "startups", CreatedAt: base})
		}
	}

	engine := newTestEngine(repo)

	top, err := engine.TopRequestedIdeas(context.Background(), 2, 0)
	require.NoError(t, err)

	require.Len(t, top.Clusters, 2)
	assert.Equal(t, 5, top.Clusters[0].SourceCount)
	assert.Equal(t, 4, top.Clusters[1].SourceCount)
	assert.GreaterOrEqual(t, top.Clusters[0].TrendingScore, top.Clusters[1].TrendingScore)
	assert.Equal(t, 5, top.Summary.TotalClusters)
	assert.Equal(t, 15, top.Summary.TotalSources)
	assert.Equal(t, 2, top.Summary.Limit)
}

func TestTopRequestedIdeas_MinSourcesFilter(t *testing.T) {
	base := testNow.Add(-10 * 24 * time.Hour)
	repo := &fakeRepo{}

	for i := 0; i < 3; i++ {
		repo.opps = append(repo.opps, distinctOpp(i, base))

		for j := 0; j <= i; j++ {
			postID := fmt.Sprintf("p%d_%d", i, j)
			repo.sources = append(repo.sources, domain.Source{OpportunityID: fmt.Sprintf("o%d", i), PostID: postID})
			repo.posts = append(repo.posts, domain.Post{ID: postID, Subreddit: "startups", CreatedAt: base})
		}
	}

	top, err := newTestEngine(repo).TopRequestedIdeas(context.Background(), 10, 2)
	require.NoError(t, err)

	require.Len(t, top.Clusters, 2)
	for _, c := range top.Clusters {
		assert.GreaterOrEqual(t, c.SourceCount, 2)
	}

	// Limit actually applied is what was returned, not what was asked.
	assert.Equal(t, 2, top.Summary.Limit)
}

func TestTopRequestedIdeas_InvalidParams(t *testing.T) {
	engine := newTestEngine(&fakeRepo{})

	_, err := engine.TopRequestedIdeas(context.Background(), -1, 0)
	assert.ErrorIs(t, err, ierr.ErrInvalidLimit)

	_, err = engine.TopRequestedIdeas(context.Background(), 1, -2)
	assert.ErrorIs(t, err, ierr.ErrInvalidMinSources)
}

func TestTopRequestedIdeas_ConcurrentRequests(t *testing.T) {
	base := testNow.Add(-24 * time.Hour)
	repo := &fakeRepo{
		opps: []domain.Opportunity{
			meetingNotesOpp("o1", "automatically summarize standup meetings into action items", base),
			meetingNotesOpp("o2", "automatically summarize standup meetings into action points", base.Add(time.Hour)),
		},
		sources: []domain.Source{
			{OpportunityID: "o1", PostID: "p1"},
			{OpportunityID: "o2", PostID: "p2"},
		},
		posts: []domain.Post{
			{ID: "p1", Subreddit: "productivity", CreatedAt: base},
			{ID: "p2", Subreddit: "startups", CreatedAt: base.Add(time.Hour)},
		},
	}

	engine := newTestEngine(repo)

	const requests = 8

	results := make(chan TopIdeas, requests)
	errs := make(chan error, requests)

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			top, err := engine.TopRequestedIdeas(context.Background(), 5, 0)
			if err != nil {
				errs <- err
				return
			}

			results <- top
		}()
	}

	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent report failed: %v", err)
	}

	for top := range results {
		require.Len(t, top.Clusters, 1)
		assert.Equal(t, "Meeting Automation", top.Clusters[0].Category)
	}
}

func TestClusterSimilarOpportunities_TruncationSurfaced(t *testing.T) {
	base := testNow.Add(-30 * 24 * time.Hour)
	repo := &fakeRepo{}

	for i := 0; i < maxClusterInput+1; i++ {
		repo.opps = append(repo.opps, meetingNotesOpp(
			fmt.Sprintf("o%05d", i),
			"automatically summarize standup meetings into action items",
			base.Add(time.Duration(i)*time.Second),
		))
	}

	snapshot, err := newTestEngine(repo).ClusterSimilarOpportunities(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 1, snapshot.Truncated)

	clustered := 0
	for _, c := range snapshot.Clusters {
		clustered += c.OpportunityCount()
	}

	assert.Equal(t, maxClusterInput, clustered)
}

func TestTopRequestedIdeas_ReportRounding(t *testing.T) {
	base := testNow.Add(-24 * time.Hour)
	repo := &fakeRepo{
		opps: []domain.Opportunity{
			{
				ID: "o1", Title: "AI meeting notes", Description: "summarize standup meetings automatically",
				OverallScore: 7.25, Viable: true, Niche: "meeting automation", CreatedAt: base,
			},
			{
				ID: "o2", Title: "AI meeting notes", Description: "summarize standup meetings automatically",
				OverallScore: 6.5, Viable: false, CreatedAt: base.Add(time.Minute),
			},
		},
		sources: []domain.Source{
			{OpportunityID: "o1", PostID: "p1"},
			{OpportunityID: "o2", PostID: "p1"},
		},
		posts: []domain.Post{{ID: "p1", Subreddit: "productivity", Score: 42, CreatedAt: base}},
	}

	top, err := newTestEngine(repo).TopRequestedIdeas(context.Background(), 1, 0)
	require.NoError(t, err)

	require.Len(t, top.Clusters, 1)
	c := top.Clusters[0]
	assert.Equal(t, 6.9, c.AvgScore) // mean 6.875 rounded to 1 decimal
	assert.Equal(t, 50, c.ViabilityRate)
	assert.Equal(t, "Meeting Automation", c.Category)
	require.Len(t, c.TopPosts, 1)
	assert.Equal(t, 42, c.TopPosts[0].Score)
}
