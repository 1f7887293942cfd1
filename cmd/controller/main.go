// Package main is the entry point for the tuneplane controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"tuneplane/internal/config"
	"tuneplane/internal/controller"
	"tuneplane/internal/controller/handlers"
	"tuneplane/internal/dispatch"
	"tuneplane/internal/logger"
	"tuneplane/internal/observability"
	"tuneplane/internal/store"
	"tuneplane/internal/store/postgres"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}
	log := logger.New(level)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Archive is optional: without a database the registry is
	// in-memory only and experiments do not survive a restart.
	var archive store.Archive
	var pinger handlers.Pinger
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()

		if *migrateFlag {
			log.Info("running database migrations")
			if err := postgres.Migrate(pg.DB()); err != nil {
				log.Error("migration failed", "error", err)
				os.Exit(1)
			}
			log.Info("migrations completed")
		}
		archive = pg
		pinger = pg
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "tuneplane-controller", cfg.OTELEndpoint)
	if err != nil {
		log.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics("tuneplane-controller")
	if err != nil {
		log.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Warn("failed to shutdown metrics", "error", err)
		}
	}()

	dispatcher := dispatch.New(log, archive)

	// Observable gauges read the registry only when scraped.
	meter := otel.Meter("tuneplane-controller")
	_, err = meter.Int64ObservableGauge("tuneplane.experiments.active",
		metric.WithDescription("Number of registered experiments"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			experiments, _ := dispatcher.Stats()
			obs.Observe(experiments)
			return nil
		}),
	)
	if err != nil {
		log.Warn("failed to register experiments gauge", "error", err)
	}
	_, err = meter.Int64ObservableGauge("tuneplane.candidates.working",
		metric.WithDescription("Candidates currently claimed by workers"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			_, working := dispatcher.Stats()
			obs.Observe(working)
			return nil
		}),
	)
	if err != nil {
		log.Warn("failed to register working gauge", "error", err)
	}

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, dispatcher, controller.Options{
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
		APIKeyHash: cfg.APIKeyHash,
		Metrics:    metricsHandler,
		Pinger:     pinger,
	})

	go func() {
		log.Info("controller starting", "addr", addr)
		if err := srv.Run(ctx); err != nil {
			log.Error("server stopped", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down controller")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server exited properly")
}
