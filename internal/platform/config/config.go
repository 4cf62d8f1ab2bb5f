// Package config loads engine configuration from the environment.
// A local .env file is honored when present.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. Similarity thresholds are
// policy values observed from usage, exposed here rather than buried as
// literals.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	// Deduplication: pairwise similarity at or above which two
	// opportunities are duplicate candidates.
	DuplicateThreshold float64 `env:"DUPLICATE_THRESHOLD" envDefault:"0.92"`

	// Clustering: seed similarity at or above which an opportunity
	// joins a cluster.
	ClusterThreshold float64 `env:"CLUSTER_THRESHOLD" envDefault:"0.75"`

	// TrendingRecentWindow bounds how far back a source still counts
	// as recent for the trending score.
	TrendingRecentWindow time.Duration `env:"TRENDING_RECENT_WINDOW" envDefault:"168h"`

	// ReportLimit is the default cluster report size.
	ReportLimit int `env:"REPORT_LIMIT" envDefault:"10"`

	// Worker mode.
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"30m"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`

	// Connection pool.
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DuplicateThreshold < 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("DUPLICATE_THRESHOLD must be in [0, 1], got %v", c.DuplicateThreshold)
	}

	if c.ClusterThreshold < 0 || c.ClusterThreshold > 1 {
		return fmt.Errorf("CLUSTER_THRESHOLD must be in [0, 1], got %v", c.ClusterThreshold)
	}

	if c.ReportLimit < 0 {
		return fmt.Errorf("REPORT_LIMIT must not be negative, got %d", c.ReportLimit)
	}

	return nil
}
