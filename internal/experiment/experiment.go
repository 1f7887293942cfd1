package experiment

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"tuneplane/internal/optimizer"
	"tuneplane/internal/space"
)

// Experiment binds one search problem: its parameter space, candidate
// pool, optimizer strategy and orientation. The experiment's mutex is
// the unit of mutual exclusion for dispatch: generate-and-claim and
// reporting are serialized per experiment, while separate experiments
// proceed fully independently.
type Experiment struct {
	ID           string
	Name         string
	Minimization bool
	CreatedAt    time.Time

	space    *space.Space
	pool     *Pool
	strategy optimizer.Strategy

	mu sync.Mutex

	// rng backs the uniform fallback when the strategy misbehaves.
	rng *rand.Rand
}

// Report is a worker's verdict on a working candidate.
type Report struct {
	Status     State // StateFinished, StateFailed, or StatePending for a release
	Result     *float64
	Cost       *float64
	WorkerInfo json.RawMessage
}

// New creates an experiment. The strategy is fixed for the experiment
// lifetime.
func New(id, name string, minimization bool, sp *space.Space, strategy optimizer.Strategy) *Experiment {
	return &Experiment{
		ID:           id,
		Name:         name,
		Minimization: minimization,
		CreatedAt:    time.Now().UTC(),
		space:        sp,
		pool:         NewPool(),
		strategy:     strategy,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Space returns the experiment's parameter space.
func (e *Experiment) Space() *space.Space { return e.space }

// StrategyKind returns the fixed optimizer kind.
func (e *Experiment) StrategyKind() optimizer.Kind { return e.strategy.Kind() }

// NextCandidate returns a working candidate for a caller: it claims
// the oldest pending candidate if one exists, otherwise asks the
// strategy to propose one from the evaluation history, inserts it, and
// claims it. The whole sequence is atomic with respect to other
// callers on this experiment.
func (e *Experiment) NextCandidate(workerInfo json.RawMessage) (Candidate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.pool.NextPending(); ok {
		return e.pool.Claim(id, workerInfo)
	}

	params := e.propose()
	cand := newCandidate(params)
	if err := e.pool.Insert(cand); err != nil {
		return Candidate{}, fmt.Errorf("inserting generated candidate: %w", err)
	}
	return e.pool.Claim(cand.ID, workerInfo)
}

// propose asks the strategy for the next configuration, degrading to a
// uniform sample on any strategy failure or invalid proposal. A
// candidate request must never fail over a model problem.
func (e *Experiment) propose() map[string]any {
	finished, failed := e.pool.History()
	history := optimizer.History{
		Finished:     finished,
		Failed:       failed,
		Minimization: e.Minimization,
	}

	params, err := e.strategy.Propose(history, e.space)
	if err != nil || e.space.Validate(params) != nil {
		return e.space.Sample(e.rng)
	}
	return params
}

// Record applies a worker report to a working candidate.
func (e *Experiment) Record(candidateID uuid.UUID, r Report) (Candidate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch r.Status {
	case StateFinished:
		if r.Result == nil {
			return Candidate{}, ErrResultRequired
		}
		return e.pool.Finish(candidateID, *r.Result, r.Cost, r.WorkerInfo)
	case StateFailed:
		return e.pool.Fail(candidateID, r.Cost, r.WorkerInfo)
	case StatePending:
		return e.pool.Release(candidateID, r.WorkerInfo)
	default:
		return Candidate{}, fmt.Errorf("invalid report status %q", r.Status)
	}
}

// Candidate returns a copy of one candidate by id.
func (e *Experiment) Candidate(id uuid.UUID) (Candidate, error) {
	return e.pool.Get(id)
}

// Snapshot returns the pool's bucketed view.
func (e *Experiment) Snapshot() Snapshot {
	return e.pool.Snapshot()
}

// Best returns the best finished candidate under the experiment's
// orientation, or false when nothing has finished.
func (e *Experiment) Best() (Candidate, bool) {
	snap := e.pool.Snapshot()
	var best *Candidate
	for i := range snap.Finished {
		c := &snap.Finished[i]
		if c.Result == nil {
			continue
		}
		if best == nil || e.better(*c.Result, *best.Result) {
			best = c
		}
	}
	if best == nil {
		return Candidate{}, false
	}
	return *best, true
}

func (e *Experiment) better(a, b float64) bool {
	if e.Minimization {
		return a < b
	}
	return a > b
}
