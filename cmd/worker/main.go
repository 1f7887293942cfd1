// Package main is the entry point for the tuneplane worker.
// The worker pulls candidates from the controller, runs the objective
// and reports values back. It owns concurrency, timeouts and runtime
// management.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"tuneplane/internal/config"
	"tuneplane/internal/logger"
	"tuneplane/internal/observability"
	"tuneplane/internal/worker"
	"tuneplane/internal/worker/runtime"
)

func main() {
	// Parse flags
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
	if cfg.ExperimentID == "" {
		log.Error("experiment_id is required for the worker")
		os.Exit(1)
	}
	if len(cfg.ObjectiveCommand) == 0 {
		log.Error("objective_command is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "tuneplane-worker", cfg.OTELEndpoint)
	if err != nil {
		log.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("failed to shutdown tracer", "error", err)
		}
	}()

	// Select runtime based on configuration
	var rt runtime.Runtime
	switch cfg.WorkerRuntime {
	case "docker":
		dockerRT, err := runtime.NewDockerRuntime()
		if err != nil {
			log.Error("failed to create Docker runtime", "error", err)
			os.Exit(1)
		}
		rt = dockerRT
		log.Info("using docker runtime", "image", cfg.ObjectiveImage)
	default:
		execRT := runtime.NewExecRuntime("")
		rt = execRT
		log.Info("using exec runtime", "workdir", execRT.WorkDir)
	}

	var clientOpts []worker.ClientOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, worker.WithAPIKey(cfg.APIKey))
	}

	agent := worker.New(
		worker.NewClient(cfg.ControllerURL, cfg.ExperimentID, clientOpts...),
		rt,
		worker.AgentConfig{
			ID:           uuid.NewString(),
			ExperimentID: cfg.ExperimentID,
			Concurrency:  cfg.WorkerConcurrency,
			PollBackoff:  cfg.WorkerPollBackoff,
			MaxBackoff:   cfg.WorkerMaxBackoff,
			EvalTimeout:  cfg.EvaluationTimeout,
			Image:        cfg.ObjectiveImage,
			Command:      cfg.ObjectiveCommand,
		},
		log,
	)

	go agent.Run(ctx)

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics("tuneplane-worker")
	if err != nil {
		log.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Warn("failed to shutdown metrics", "error", err)
		}
	}()

	// Dedicated metrics server so the pull loop stays plain HTTP client only.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		log.Info("worker metrics listening", "addr", ":6162")
		if err := http.ListenAndServe(":6162", mux); err != nil {
			log.Warn("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker")
	cancel()

	<-agent.Done()
}
