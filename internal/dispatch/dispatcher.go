// Package dispatch contains the request-facing façade between workers
// and experiments: it looks up the experiment, drives its candidate
// pool and optimizer, and archives transitions.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"tuneplane/internal/experiment"
	"tuneplane/internal/optimizer"
	"tuneplane/internal/space"
	"tuneplane/internal/store"
)

// InitSpec describes a new experiment. ID is optional; a fresh one is
// generated when empty.
type InitSpec struct {
	ID           string
	Name         string
	Minimization bool
	Space        *space.Space
	Kind         optimizer.Kind
	Optimizer    optimizer.Config
}

// Dispatcher mediates between callers and experiments. Per-experiment
// operations contend only on that experiment's own lock, so separate
// experiments dispatch independently.
type Dispatcher struct {
	registry *experiment.Registry
	archive  store.Archive // nil disables archiving
	log      *slog.Logger

	dispatched metric.Int64Counter
	reported   metric.Int64Counter
}

// New creates a dispatcher over an empty registry.
func New(log *slog.Logger, archive store.Archive) *Dispatcher {
	meter := otel.Meter("tuneplane-dispatcher")
	dispatched, _ := meter.Int64Counter("tuneplane.candidates.dispatched",
		metric.WithDescription("Candidates handed to workers"))
	reported, _ := meter.Int64Counter("tuneplane.candidates.reported",
		metric.WithDescription("Worker reports applied, by status"))

	return &Dispatcher{
		registry:   experiment.NewRegistry(),
		archive:    archive,
		log:        log,
		dispatched: dispatched,
		reported:   reported,
	}
}

// InitExperiment registers a new experiment and archives its
// definition. A caller-supplied id that already exists is rejected.
func (d *Dispatcher) InitExperiment(ctx context.Context, spec InitSpec) (string, error) {
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}

	strategy, err := optimizer.New(spec.Kind, spec.Optimizer)
	if err != nil {
		return "", err
	}

	exp := experiment.New(id, spec.Name, spec.Minimization, spec.Space, strategy)
	if err := d.registry.Add(exp); err != nil {
		return "", err
	}

	d.log.Info("experiment initialized",
		"experiment_id", id, "name", spec.Name,
		"optimizer", string(spec.Kind), "minimization", spec.Minimization)

	d.archiveExperiment(ctx, exp)
	return id, nil
}

// ExperimentIDs lists all known experiment identifiers.
func (d *Dispatcher) ExperimentIDs() []string {
	return d.registry.IDs()
}

// AllCandidates returns a consistent snapshot of one experiment's
// buckets and its best finished candidate.
func (d *Dispatcher) AllCandidates(ctx context.Context, experimentID string) (experiment.Snapshot, *experiment.Candidate, error) {
	exp, err := d.registry.Get(experimentID)
	if err != nil {
		return experiment.Snapshot{}, nil, err
	}
	snap := exp.Snapshot()
	if best, ok := exp.Best(); ok {
		return snap, &best, nil
	}
	return snap, nil, nil
}

// NextCandidate claims a candidate for a worker: the oldest pending
// one if any, otherwise a freshly proposed one. Atomic per experiment.
func (d *Dispatcher) NextCandidate(ctx context.Context, experimentID string, workerInfo json.RawMessage) (experiment.Candidate, error) {
	ctx, span := d.startSpan(ctx, "next_candidate", experimentID)
	defer span.End()

	exp, err := d.registry.Get(experimentID)
	if err != nil {
		return experiment.Candidate{}, err
	}

	cand, err := exp.NextCandidate(workerInfo)
	if err != nil {
		span.RecordError(err)
		return experiment.Candidate{}, err
	}

	span.SetAttributes(attribute.String("candidate.id", cand.ID.String()))
	d.dispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("experiment_id", experimentID)))
	d.log.Debug("candidate dispatched", "experiment_id", experimentID, "candidate_id", cand.ID)

	d.archiveCandidate(ctx, experimentID, cand)
	return cand, nil
}

// Report applies a worker's verdict on a working candidate, after
// validating that the candidate belongs to the experiment and is in
// the working state.
func (d *Dispatcher) Report(ctx context.Context, experimentID string, candidateID uuid.UUID, rep experiment.Report) (experiment.Candidate, error) {
	ctx, span := d.startSpan(ctx, "report_candidate", experimentID)
	defer span.End()

	exp, err := d.registry.Get(experimentID)
	if err != nil {
		return experiment.Candidate{}, err
	}

	cand, err := exp.Record(candidateID, rep)
	if err != nil {
		span.RecordError(err)
		return experiment.Candidate{}, err
	}

	d.reported.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment_id", experimentID),
		attribute.String("status", string(cand.State))))
	d.log.Info("candidate reported",
		"experiment_id", experimentID, "candidate_id", candidateID, "state", string(cand.State))

	d.archiveCandidate(ctx, experimentID, cand)
	return cand, nil
}

// Stats returns registry-wide gauges for metrics scraping.
func (d *Dispatcher) Stats() (experiments, working int64) {
	exps := d.registry.Experiments()
	experiments = int64(len(exps))
	for _, exp := range exps {
		working += int64(len(exp.Snapshot().Working))
	}
	return experiments, working
}

func (d *Dispatcher) startSpan(ctx context.Context, name, experimentID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("tuneplane-dispatcher")
	return tracer.Start(ctx, name,
		trace.WithAttributes(attribute.String("experiment.id", experimentID)))
}

// archiveExperiment persists an experiment definition. Archive errors
// are logged and swallowed: the in-memory registry is authoritative.
func (d *Dispatcher) archiveExperiment(ctx context.Context, exp *experiment.Experiment) {
	if d.archive == nil {
		return
	}
	defs, err := json.Marshal(exp.Space().Wire())
	if err != nil {
		d.log.Error("failed to encode param defs for archive", "experiment_id", exp.ID, "error", err)
		return
	}
	rec := &store.ExperimentRecord{
		ID:           exp.ID,
		Name:         exp.Name,
		Optimizer:    string(exp.StrategyKind()),
		Minimization: exp.Minimization,
		ParamDefs:    defs,
		CreatedAt:    exp.CreatedAt,
	}
	if err := d.archive.SaveExperiment(ctx, rec); err != nil {
		d.log.Error("failed to archive experiment", "experiment_id", exp.ID, "error", err)
	}
}

func (d *Dispatcher) archiveCandidate(ctx context.Context, experimentID string, cand experiment.Candidate) {
	if d.archive == nil {
		return
	}
	params, err := json.Marshal(cand.Params)
	if err != nil {
		d.log.Error("failed to encode candidate params for archive", "candidate_id", cand.ID, "error", err)
		return
	}
	rec := &store.CandidateRecord{
		ID:           cand.ID.String(),
		ExperimentID: experimentID,
		Params:       params,
		Cost:         cand.Cost,
		Result:       cand.Result,
		State:        string(cand.State),
		GeneratedAt:  cand.GeneratedAt,
		LastUpdateAt: cand.LastUpdateAt,
		WorkerInfo:   cand.WorkerInfo,
	}
	if err := d.archive.SaveCandidate(ctx, rec); err != nil {
		d.log.Error("failed to archive candidate", "candidate_id", cand.ID, "error", err)
	}
}
