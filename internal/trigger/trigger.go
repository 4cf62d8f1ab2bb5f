// Package trigger is the boundary invoked by schedulers and admin
// actions. Every entry point validates its parameters first and returns
// a JSON-serializable Result; internal failures become a Result with
// success=false, nothing propagates past this layer.
package trigger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/demandradar/engine/internal/cluster"
	ierr "github.com/demandradar/engine/internal/core/errors"
	"github.com/demandradar/engine/internal/dedup"
)

// DefaultReportLimit applies when a caller passes limit 0.
const DefaultReportLimit = 10

// Deduper runs one idempotent cleanup pass.
type Deduper interface {
	Cleanup(ctx context.Context) (dedup.Report, error)
}

// Clusterer recomputes or returns the current partition and ranks it.
type Clusterer interface {
	ClusterSimilarOpportunities(ctx context.Context, force bool) (*cluster.Snapshot, error)
	TopRequestedIdeas(ctx context.Context, limit, minSources int) (cluster.TopIdeas, error)
}

// ClusteringSummary is the payload returned by RunClustering.
type ClusteringSummary struct {
	Generation   uint64    `json:"generation"`
	ComputedAt   time.Time `json:"computedAt"`
	ClusterCount int       `json:"clusterCount"`
	TotalSources int       `json:"totalSources"`
	Truncated    int       `json:"truncated,omitempty"`
}

// Result is the uniform envelope returned to the trigger collaborator.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(data any) Result {
	return Result{Success: true, Data: data}
}

func fail(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Handler exposes the three engine entry points.
type Handler struct {
	deduper   Deduper
	clusterer Clusterer
	logger    *zerolog.Logger
}

// New creates a trigger handler.
func New(deduper Deduper, clusterer Clusterer, logger *zerolog.Logger) *Handler {
	return &Handler{
		deduper:   deduper,
		clusterer: clusterer,
		logger:    logger,
	}
}

// RunDeduplication executes one cleanup pass. Per-group failures are
// part of the report payload; only a failure to enumerate the corpus at
// all surfaces as success=false.
func (h *Handler) RunDeduplication(ctx context.Context) Result {
	report, err := h.deduper.Cleanup(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("deduplication run failed")
		return fail(err)
	}

	return ok(report)
}

// RunClustering recomputes the partition when forced or when no cached
// result exists.
func (h *Handler) RunClustering(ctx context.Context, force bool) Result {
	snapshot, err := h.clusterer.ClusterSimilarOpportunities(ctx, force)
	if err != nil {
		h.logger.Error().Err(err).Msg("clustering run failed")
		return fail(err)
	}

	return ok(ClusteringSummary{
		Generation:   snapshot.Generation,
		ComputedAt:   snapshot.ComputedAt,
		ClusterCount: len(snapshot.Clusters),
		TotalSources: snapshot.TotalSources,
		Truncated:    snapshot.Truncated,
	})
}

// GetClusterReport returns the ranked cluster report. A zero limit maps
// to DefaultReportLimit; negative parameters are rejected before the
// engine is invoked.
func (h *Handler) GetClusterReport(ctx context.Context, limit, minSources int) Result {
	if limit < 0 {
		return fail(ierr.ErrInvalidLimit)
	}

	if minSources < 0 {
		return fail(ierr.ErrInvalidMinSources)
	}

	if limit == 0 {
		limit = DefaultReportLimit
	}

	ideas, err := h.clusterer.TopRequestedIdeas(ctx, limit, minSources)
	if err != nil {
		h.logger.Error().Err(err).Msg("cluster report failed")
		return fail(err)
	}

	return ok(ideas)
}
