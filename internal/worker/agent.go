// Package worker contains the worker-specific logic for objective
// evaluation. The agent pulls candidates from the controller, runs the
// objective through a runtime and reports the value back.
package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tuneplane/internal/worker/runtime"
	"tuneplane/pkg/api"
)

// ControllerClient is the slice of the controller API the agent needs.
type ControllerClient interface {
	NextCandidate(ctx context.Context, workerInfo json.RawMessage) (api.CandidateResponse, error)
	Report(ctx context.Context, candidateID string, req api.ReportRequest) (api.CandidateResponse, error)
}

// AgentConfig holds configuration for the worker agent.
type AgentConfig struct {
	ID           string
	ExperimentID string
	Concurrency  int
	PollBackoff  time.Duration // Initial backoff after a failed claim (default: 1s)
	MaxBackoff   time.Duration // Maximum backoff (default: 30s)
	EvalTimeout  time.Duration // Per-evaluation timeout (default: 30m)

	// Image and Command describe the objective. Image is only used by
	// the Docker runtime.
	Image   string
	Command []string
}

// Agent is the worker agent that runs the pull-loop for evaluations.
type Agent struct {
	client     ControllerClient
	runtime    runtime.Runtime
	config     AgentConfig
	log        *slog.Logger
	workerInfo json.RawMessage
	done       chan struct{}
}

// New creates a new worker agent.
func New(client ControllerClient, rt runtime.Runtime, config AgentConfig, log *slog.Logger) *Agent {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollBackoff <= 0 {
		config.PollBackoff = 1 * time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.EvalTimeout <= 0 {
		config.EvalTimeout = 30 * time.Minute
	}

	hostname, _ := os.Hostname()
	info, _ := json.Marshal(map[string]string{
		"worker_id": config.ID,
		"hostname":  hostname,
	})

	return &Agent{
		client:     client,
		runtime:    rt,
		config:     config,
		log:        log,
		workerInfo: info,
		done:       make(chan struct{}),
	}
}

// Run starts the main pull-loop. It blocks until the context is
// cancelled; in-flight evaluations are allowed to finish and report.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info("agent starting",
		"worker_id", a.config.ID,
		"experiment_id", a.config.ExperimentID,
		"concurrency", a.config.Concurrency)

	// Semaphore to limit concurrency
	sem := make(chan struct{}, a.config.Concurrency)
	var wg sync.WaitGroup

	// Current backoff duration (increases on claim errors, resets on success)
	currentBackoff := a.config.PollBackoff

	for {
		select {
		case <-ctx.Done():
			a.log.Info("context cancelled, waiting for running evaluations to finish")
			wg.Wait()
			close(a.done)
			return ctx.Err()

		case sem <- struct{}{}:
			cand, err := a.client.NextCandidate(ctx, a.workerInfo)
			if err != nil {
				<-sem
				if ctx.Err() != nil {
					continue
				}
				a.log.Warn("failed to claim candidate", "error", err, "backoff", currentBackoff)

				select {
				case <-ctx.Done():
				case <-time.After(currentBackoff):
				}
				currentBackoff = min(currentBackoff*2, a.config.MaxBackoff)
				continue
			}
			currentBackoff = a.config.PollBackoff

			wg.Add(1)
			go func(cand api.CandidateResponse) {
				defer wg.Done()
				defer func() { <-sem }()
				a.evaluate(ctx, cand)
			}(cand)
		}
	}
}

// Done returns a channel that is closed when the agent has fully stopped.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// evaluate runs the objective for one candidate and reports the result.
func (a *Agent) evaluate(ctx context.Context, cand api.CandidateResponse) {
	tracer := otel.Tracer("worker-agent")
	spanCtx, span := tracer.Start(ctx, "evaluate_candidate",
		trace.WithAttributes(
			attribute.String("candidate.id", cand.ID),
			attribute.String("experiment.id", a.config.ExperimentID),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	a.log.Info("evaluating candidate", "candidate_id", cand.ID, "params", cand.Params)
	started := time.Now()

	// The evaluation survives SIGTERM so claimed candidates are always
	// reported rather than left working forever.
	execCtx, cancel := context.WithTimeout(context.WithoutCancel(spanCtx), a.config.EvalTimeout)
	defer cancel()

	handle, err := a.runtime.Start(execCtx, runtime.StartOptions{
		Image:   a.config.Image,
		Command: a.config.Command,
		Env:     a.candidateEnv(cand),
	})
	if err != nil {
		span.RecordError(err)
		a.log.Error("failed to start runtime", "candidate_id", cand.ID, "error", err)
		a.reportFailed(execCtx, cand, started)
		return
	}

	lastLine := make(chan string, 1)
	go func() {
		lastLine <- a.scanOutput(execCtx, cand.ID, handle)
	}()

	result, err := handle.Wait(execCtx)
	value := <-lastLine

	if err != nil {
		span.RecordError(err)
		if execCtx.Err() == context.DeadlineExceeded {
			a.log.Error("evaluation timed out", "candidate_id", cand.ID, "timeout", a.config.EvalTimeout)
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			handle.Stop(stopCtx)
		} else {
			a.log.Error("runtime wait error", "candidate_id", cand.ID, "error", err)
		}
		a.reportFailed(context.Background(), cand, started)
		return
	}

	span.SetAttributes(attribute.Int("exit_code", result.ExitCode))

	if result.ExitCode != 0 {
		a.log.Warn("evaluation failed", "candidate_id", cand.ID, "exit_code", result.ExitCode)
		a.reportFailed(execCtx, cand, started)
		return
	}

	objective, err := strconv.ParseFloat(value, 64)
	if err != nil {
		a.log.Error("objective did not print a numeric value",
			"candidate_id", cand.ID, "last_line", value)
		a.reportFailed(execCtx, cand, started)
		return
	}

	span.SetAttributes(attribute.Float64("objective.value", objective))
	a.log.Info("evaluation finished",
		"candidate_id", cand.ID, "result", objective, "elapsed", time.Since(started))

	cost := time.Since(started).Seconds()
	_, err = a.client.Report(execCtx, cand.ID, api.ReportRequest{
		Status:     api.ReportStatusFinished,
		Result:     &objective,
		Cost:       &cost,
		WorkerInfo: a.workerInfo,
	})
	if err != nil {
		a.log.Error("failed to report result", "candidate_id", cand.ID, "error", err)
	}
}

func (a *Agent) reportFailed(ctx context.Context, cand api.CandidateResponse, started time.Time) {
	cost := time.Since(started).Seconds()
	_, err := a.client.Report(ctx, cand.ID, api.ReportRequest{
		Status:     api.ReportStatusFailed,
		Cost:       &cost,
		WorkerInfo: a.workerInfo,
	})
	if err != nil {
		a.log.Error("failed to report failure", "candidate_id", cand.ID, "error", err)
	}
}

// scanOutput drains the evaluation's stdout and returns the last
// non-empty line, which carries the objective value.
func (a *Agent) scanOutput(ctx context.Context, candidateID string, handle runtime.Handle) string {
	rc, err := handle.StreamLogs(ctx)
	if err != nil {
		a.log.Error("failed to get log stream", "candidate_id", candidateID, "error", err)
		return ""
	}
	defer rc.Close()

	var last string
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	return last
}

// candidateEnv exposes the candidate to the objective process. Every
// parameter is available both individually and as one JSON document.
func (a *Agent) candidateEnv(cand api.CandidateResponse) map[string]string {
	env := map[string]string{
		runtime.EnvCandidateID:    cand.ID,
		"TUNEPLANE_EXPERIMENT_ID": a.config.ExperimentID,
	}
	if params, err := json.Marshal(cand.Params); err == nil {
		env["TUNEPLANE_PARAMS"] = string(params)
	}
	for name, value := range cand.Params {
		env["TUNEPLANE_PARAM_"+strings.ToUpper(name)] = paramString(value)
	}
	return env
}

func paramString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
