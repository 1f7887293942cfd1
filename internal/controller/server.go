// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"net/http"
	"time"

	"tuneplane/internal/controller/handlers"
	"tuneplane/internal/controller/middleware"
)

// Options carries the server's wiring beyond the dispatcher itself.
type Options struct {
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// APIKeyHash is the SHA-256 digest of the API key guarding the
	// experiment routes. Empty disables authentication.
	APIKeyHash string

	// Metrics serves GET /metrics when non-nil.
	Metrics http.Handler

	// Pinger backs the readiness probe; nil means always ready.
	Pinger handlers.Pinger
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(addr string, d handlers.Dispatcher, opts Options) *Server {
	h := handlers.New(d, opts.Pinger)
	limitMW := middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst).Middleware()
	authMW := func(next http.Handler) http.Handler { return next }
	if opts.APIKeyHash != "" {
		authMW = middleware.RequireAPIKey(opts.APIKeyHash)
	}

	mux := http.NewServeMux()

	// Client apis
	mux.Handle("POST /experiments", authMW(limitMW(http.HandlerFunc(h.InitExperiment))))
	mux.Handle("GET /experiments", authMW(limitMW(http.HandlerFunc(h.ListExperiments))))
	mux.Handle("GET /experiments/{id}/candidates", authMW(limitMW(http.HandlerFunc(h.AllCandidates))))

	// Worker endpoints.
	// Claiming and reporting are exempt from the rate limit so busy
	// workers are never starved of candidates.
	mux.Handle("POST /experiments/{id}/candidates/next", authMW(http.HandlerFunc(h.NextCandidate)))
	mux.Handle("POST /experiments/{id}/candidates/{cid}/result", authMW(http.HandlerFunc(h.ReportResult)))

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	root := middleware.RequestID(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      root,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
