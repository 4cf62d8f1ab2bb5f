// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Dedup mode: one idempotent duplicate cleanup pass
//   - Cluster mode: one clustering recompute
//   - Worker mode: periodic dedup-then-cluster passes under an advisory lock
//   - Serve mode: health, metrics, and HTTP trigger endpoints
//
// Each mode can be run independently or combined based on deployment needs.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/demandradar/engine/internal/cluster"
	"github.com/demandradar/engine/internal/dedup"
	"github.com/demandradar/engine/internal/observability"
	"github.com/demandradar/engine/internal/platform/config"
	metrics "github.com/demandradar/engine/internal/platform/observability"
	"github.com/demandradar/engine/internal/platform/worker"
	db "github.com/demandradar/engine/internal/storage"
	"github.com/demandradar/engine/internal/trigger"
	"github.com/demandradar/engine/internal/usage"
)

// workerPassLockID guards the periodic dedup+cluster pass so a
// scheduled run and a manual one do not interleave writes.
const workerPassLockID = int64(58211)

// metricsRefreshInterval paces the periodic cluster gauge refresh in
// worker mode, keeping gauges current between full passes.
const metricsRefreshInterval = 5 * time.Minute

const (
	statusOK    = "ok"
	statusError = "error"
)

// App holds the application dependencies and provides methods to run
// different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger

	deduper   *dedup.Engine
	clusterer *cluster.Engine
	tracker   *usage.Tracker
	handler   *trigger.Handler
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	deduper := dedup.New(database, cfg.DuplicateThreshold, logger)
	clusterer := cluster.New(database, cluster.Config{
		Threshold:    cfg.ClusterThreshold,
		RecentWindow: cfg.TrendingRecentWindow,
	}, logger)

	return &App{
		cfg:       cfg,
		database:  database,
		logger:    logger,
		deduper:   deduper,
		clusterer: clusterer,
		tracker:   usage.New(database, logger),
		handler:   trigger.New(deduper, clusterer, logger),
	}
}

// Tracker returns the usage tracker, for callers recording AI spend.
func (a *App) Tracker() *usage.Tracker {
	return a.tracker
}

// StartHealthServer starts the health check, metrics, and trigger server.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.database, a.handler, a.cfg.HealthPort, a.logger).Start(ctx)
}

// RunDedup executes one deduplication pass and prints the result to
// stdout as JSON.
func (a *App) RunDedup(ctx context.Context) error {
	result := a.runDedupPass(ctx)

	return printResult(result)
}

// RunCluster executes one clustering pass and prints the result to
// stdout as JSON.
func (a *App) RunCluster(ctx context.Context, force bool) error {
	result := a.runClusterPass(ctx, force)

	return printResult(result)
}

// RunReport prints the ranked cluster report to stdout as JSON.
func (a *App) RunReport(ctx context.Context, limit, minSources int) error {
	if limit == 0 {
		limit = a.cfg.ReportLimit
	}

	return printResult(a.handler.GetClusterReport(ctx, limit, minSources))
}

// RunWorker runs periodic dedup-then-cluster passes until the context
// is canceled.
func (a *App) RunWorker(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:         "engine",
		PollInterval: a.cfg.WorkerPollInterval,
		Process:      a.workerPass,
		PeriodicTasks: []worker.PeriodicTask{
			{
				Name:     "metrics-refresh",
				Interval: metricsRefreshInterval,
				Run:      a.refreshClusterMetrics,
			},
		},
		Logger: a.logger,
	})
}

// refreshClusterMetrics re-observes the cluster gauges from the cached
// snapshot so they stay current even when no pass has run recently.
func (a *App) refreshClusterMetrics(ctx context.Context) {
	snapshot, err := a.clusterer.ClusterSimilarOpportunities(ctx, false)
	if err != nil {
		a.logger.Error().Err(err).Msg("cluster metrics refresh failed")
		return
	}

	metrics.ClusterCount.Set(float64(len(snapshot.Clusters)))
	metrics.ClusterSources.Set(float64(snapshot.TotalSources))
}

// workerPass runs one dedup-then-cluster pass under the advisory lock.
// A pass that loses the lock race is skipped, not an error: the holder
// is doing the same work.
func (a *App) workerPass(ctx context.Context) error {
	lock, err := a.database.TryAcquireAdvisoryLock(ctx, workerPassLockID)
	if err != nil {
		return fmt.Errorf("acquire worker lock: %w", err)
	}

	if lock == nil {
		a.logger.Debug().Msg("another pass holds the worker lock, skipping")
		return nil
	}

	defer func() {
		if err := lock.Release(ctx); err != nil {
			a.logger.Error().Err(err).Msg("release worker lock")
		}
	}()

	if result := a.runDedupPass(ctx); !result.Success {
		return fmt.Errorf("dedup pass: %s", result.Error)
	}

	if result := a.runClusterPass(ctx, true); !result.Success {
		return fmt.Errorf("cluster pass: %s", result.Error)
	}

	return nil
}

func (a *App) runDedupPass(ctx context.Context) trigger.Result {
	start := time.Now()
	result := a.handler.RunDeduplication(ctx)

	metrics.RunDurationSeconds.WithLabelValues("dedup").Observe(time.Since(start).Seconds())

	if !result.Success {
		metrics.DedupRuns.WithLabelValues(statusError).Inc()
		return result
	}

	metrics.DedupRuns.WithLabelValues(statusOK).Inc()

	if report, ok := result.Data.(dedup.Report); ok {
		metrics.DedupDeletedPosts.Add(float64(report.DeletedPosts))
		metrics.DedupDeletedOpportunities.Add(float64(report.DeletedOpportunities))
		metrics.DedupGroupErrors.Add(float64(len(report.Errors)))
	}

	return result
}

func (a *App) runClusterPass(ctx context.Context, force bool) trigger.Result {
	start := time.Now()
	result := a.handler.RunClustering(ctx, force)

	metrics.RunDurationSeconds.WithLabelValues("cluster").Observe(time.Since(start).Seconds())

	if !result.Success {
		metrics.ClusterRuns.WithLabelValues(statusError).Inc()
		return result
	}

	metrics.ClusterRuns.WithLabelValues(statusOK).Inc()

	if summary, ok := result.Data.(trigger.ClusteringSummary); ok {
		metrics.ClusterCount.Set(float64(summary.ClusterCount))
		metrics.ClusterSources.Set(float64(summary.TotalSources))
	}

	return result
}

func printResult(result trigger.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}
