// Package config handles configuration loading for the controller and
// the worker: an optional YAML file overlaid by TUNEPLANE_* environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// HTTP server port for the controller.
	HTTPPort int

	// DatabaseURL enables the PostgreSQL archive when set. Empty
	// means in-memory only.
	DatabaseURL string

	// OTELEndpoint is the OTLP trace collector address. Empty
	// disables trace export.
	OTELEndpoint string

	// RateLimit is requests/second allowed per client; 0 disables
	// limiting. RateBurst is the bucket size.
	RateLimit float64
	RateBurst int

	// APIKeyHash is the SHA-256 digest of the API key guarding the
	// experiment routes. Empty disables authentication.
	APIKeyHash string

	// Worker-specific configuration. APIKey is the raw key the worker
	// presents to the controller.
	ControllerURL     string
	ExperimentID      string
	APIKey            string
	WorkerConcurrency int
	WorkerPollBackoff time.Duration
	WorkerMaxBackoff  time.Duration
	EvaluationTimeout time.Duration
	WorkerRuntime     string        // "exec" or "docker"
	ObjectiveImage    string        // docker runtime only
	ObjectiveCommand  []string
}

// Load reads configuration from an optional YAML file and the
// environment. Environment variables use the TUNEPLANE_ prefix with
// underscores, e.g. TUNEPLANE_HTTP_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", 6160)
	v.SetDefault("database_url", "")
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("rate_limit", 0.0)
	v.SetDefault("rate_burst", 20)
	v.SetDefault("api_key_hash", "")
	v.SetDefault("controller_url", "http://localhost:6160")
	v.SetDefault("experiment_id", "")
	v.SetDefault("api_key", "")
	v.SetDefault("worker_concurrency", 1)
	v.SetDefault("worker_poll_backoff", "1s")
	v.SetDefault("worker_max_backoff", "30s")
	v.SetDefault("evaluation_timeout", "30m")
	v.SetDefault("worker_runtime", "exec")
	v.SetDefault("objective_image", "")
	v.SetDefault("objective_command", []string{})

	v.SetEnvPrefix("TUNEPLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTPPort:          v.GetInt("http_port"),
		DatabaseURL:       v.GetString("database_url"),
		OTELEndpoint:      v.GetString("otel_endpoint"),
		RateLimit:         v.GetFloat64("rate_limit"),
		RateBurst:         v.GetInt("rate_burst"),
		APIKeyHash:        v.GetString("api_key_hash"),
		ControllerURL:     strings.TrimRight(v.GetString("controller_url"), "/"),
		ExperimentID:      v.GetString("experiment_id"),
		APIKey:            v.GetString("api_key"),
		WorkerConcurrency: v.GetInt("worker_concurrency"),
		WorkerPollBackoff: v.GetDuration("worker_poll_backoff"),
		WorkerMaxBackoff:  v.GetDuration("worker_max_backoff"),
		EvaluationTimeout: v.GetDuration("evaluation_timeout"),
		WorkerRuntime:     v.GetString("worker_runtime"),
		ObjectiveImage:    v.GetString("objective_image"),
		ObjectiveCommand:  v.GetStringSlice("objective_command"),
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid http_port %d", cfg.HTTPPort)
	}
	if cfg.WorkerConcurrency <= 0 {
		return nil, fmt.Errorf("invalid worker_concurrency %d", cfg.WorkerConcurrency)
	}
	switch cfg.WorkerRuntime {
	case "exec", "docker":
	default:
		return nil, fmt.Errorf("invalid worker_runtime %q (want exec or docker)", cfg.WorkerRuntime)
	}

	return cfg, nil
}
