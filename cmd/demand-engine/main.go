package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/demandradar/engine/internal/app"
	"github.com/demandradar/engine/internal/platform/config"
	db "github.com/demandradar/engine/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "Service mode (dedup, cluster, report, worker, serve)")
	force := flag.Bool("force", false, "Force a full recompute (cluster mode)")
	limit := flag.Int("limit", 0, "Report size (report mode, 0 uses the configured default)")
	minSources := flag.Int("min-sources", 0, "Minimum distinct sources per reported cluster (report mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolOpts := db.PoolOptions{
		MaxConns:          cfg.DBMaxConnections,
		MinConns:          cfg.DBMinConnections,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	}

	database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	if err := runMode(ctx, application, *mode, *force, *limit, *minSources); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string, force bool, limit, minSources int) error {
	switch mode {
	case "dedup":
		return application.RunDedup(ctx)
	case "cluster":
		return application.RunCluster(ctx, force)
	case "report":
		return application.RunReport(ctx, limit, minSources)
	case "worker":
		// Worker mode also serves health and metrics.
		go func() {
			if err := application.StartHealthServer(ctx); err != nil {
				log.Printf("health server error: %v", err)
			}
		}()

		return application.RunWorker(ctx)
	case "serve":
		return application.StartHealthServer(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[dedup|cluster|report|worker|serve]", os.Args[0])

		return nil
	}
}
