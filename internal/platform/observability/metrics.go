package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DedupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_dedup_runs_total",
		Help: "The total number of deduplication passes by outcome",
	}, []string{"status"})

	DedupDeletedPosts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_dedup_deleted_posts_total",
		Help: "The total number of duplicate posts deleted",
	})

	DedupDeletedOpportunities = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_dedup_deleted_opportunities_total",
		Help: "The total number of duplicate opportunities deleted",
	})

	DedupGroupErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_dedup_group_errors_total",
		Help: "The total number of duplicate groups whose merge failed",
	})

	ClusterRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_cluster_runs_total",
		Help: "The total number of clustering recomputes by outcome",
	}, []string{"status"})

	ClusterCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engine_cluster_count",
		Help: "Number of clusters in the latest partition",
	})

	ClusterSources = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engine_cluster_distinct_sources",
		Help: "Distinct source posts across the latest partition",
	})

	RunDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_run_duration_seconds",
		Help:    "Duration of engine passes",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"operation"})
)
