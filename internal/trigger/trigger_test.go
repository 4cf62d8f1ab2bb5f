package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandradar/engine/internal/cluster"
	"github.com/demandradar/engine/internal/dedup"
)

type fakeDeduper struct {
	report dedup.Report
	err    error
}

func (f *fakeDeduper) Cleanup(context.Context) (dedup.Report, error) {
	return f.report, f.err
}

type fakeClusterer struct {
	snapshot *cluster.Snapshot
	ideas    cluster.TopIdeas
	err      error

	gotLimit      int
	gotMinSources int
	gotForce      bool
}

func (f *fakeClusterer) ClusterSimilarOpportunities(_ context.Context, force bool) (*cluster.Snapshot, error) {
	f.gotForce = force
	return f.snapshot, f.err
}

func (f *fakeClusterer) TopRequestedIdeas(_ context.Context, limit, minSources int) (cluster.TopIdeas, error) {
	f.gotLimit = limit
	f.gotMinSources = minSources

	return f.ideas, f.err
}

func newHandler(d *fakeDeduper, c *fakeClusterer) *Handler {
	logger := zerolog.Nop()
	return New(d, c, &logger)
}

func TestRunDeduplication(t *testing.T) {
	h := newHandler(&fakeDeduper{report: dedup.Report{DeletedPosts: 2}}, &fakeClusterer{})

	result := h.RunDeduplication(context.Background())
	require.True(t, result.Success)
	assert.Equal(t, dedup.Report{DeletedPosts: 2}, result.Data)
}

func TestRunDeduplication_FatalReadFailure(t *testing.T) {
	h := newHandler(&fakeDeduper{err: errors.New("cannot enumerate posts")}, &fakeClusterer{})

	result := h.RunDeduplication(context.Background())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "cannot enumerate posts")
}

func TestRunClustering_SummaryPayload(t *testing.T) {
	computed := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := &fakeClusterer{snapshot: &cluster.Snapshot{
		Generation:   3,
		ComputedAt:   computed,
		TotalSources: 7,
	}}

	h := newHandler(&fakeDeduper{}, c)

	result := h.RunClustering(context.Background(), true)
	require.True(t, result.Success)
	assert.True(t, c.gotForce)

	summary, okType := result.Data.(ClusteringSummary)
	require.True(t, okType)
	assert.Equal(t, uint64(3), summary.Generation)
	assert.Equal(t, computed, summary.ComputedAt)
	assert.Equal(t, 7, summary.TotalSources)
}

func TestGetClusterReport_Validation(t *testing.T) {
	c := &fakeClusterer{}
	h := newHandler(&fakeDeduper{}, c)

	result := h.GetClusterReport(context.Background(), -1, 0)
	assert.False(t, result.Success)

	result = h.GetClusterReport(context.Background(), 5, -1)
	assert.False(t, result.Success)

	// The engine is never invoked for rejected parameters.
	assert.Zero(t, c.gotLimit)
}

func TestGetClusterReport_DefaultLimit(t *testing.T) {
	c := &fakeClusterer{}
	h := newHandler(&fakeDeduper{}, c)

	result := h.GetClusterReport(context.Background(), 0, 2)
	require.True(t, result.Success)
	assert.Equal(t, DefaultReportLimit, c.gotLimit)
	assert.Equal(t, 2, c.gotMinSources)
}

func TestHTTP_Report(t *testing.T) {
	mux := http.NewServeMux()
	newHandler(&fakeDeduper{}, &fakeClusterer{}).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report?limit=3&min_sources=1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
}

func TestHTTP_ReportRejectsBadParams(t *testing.T) {
	mux := http.NewServeMux()
	newHandler(&fakeDeduper{}, &fakeClusterer{}).Register(mux)

	for _, target := range []string{"/report?limit=abc", "/report?limit=-1", "/report?min_sources=-2"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHTTP_RunDedupRequiresPost(t *testing.T) {
	mux := http.NewServeMux()
	newHandler(&fakeDeduper{}, &fakeClusterer{}).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run/dedup", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTP_InternalFailureIs500(t *testing.T) {
	mux := http.NewServeMux()
	newHandler(&fakeDeduper{err: errors.New("db down")}, &fakeClusterer{}).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run/dedup", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "db down")
}
