package experiment

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tuneplane/internal/optimizer"
)

// Pool owns all candidates of one experiment and enforces the
// lifecycle state machine. Buckets are disjoint: a candidate id lives
// in exactly one of pending, working, finished, failed.
//
// Pool methods are individually safe for concurrent use; the
// generate-then-claim sequence is serialized one level up by the
// owning Experiment.
type Pool struct {
	mu         sync.Mutex
	candidates map[uuid.UUID]*Candidate

	// order preserves insertion order for deterministic snapshots.
	order []uuid.UUID

	// pendingQueue is the FIFO claim order. Release re-queues at the
	// back.
	pendingQueue []uuid.UUID
}

// Snapshot is a consistent point-in-time view of all buckets.
type Snapshot struct {
	Pending  []Candidate
	Working  []Candidate
	Finished []Candidate
	Failed   []Candidate
}

// NewPool creates an empty candidate pool.
func NewPool() *Pool {
	return &Pool{candidates: make(map[uuid.UUID]*Candidate)}
}

// Insert adds a newly generated candidate as pending. The candidate id
// must not already exist in the pool.
func (p *Pool) Insert(c *Candidate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.candidates[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCandidate, c.ID)
	}
	c.State = StatePending
	p.candidates[c.ID] = c
	p.order = append(p.order, c.ID)
	p.pendingQueue = append(p.pendingQueue, c.ID)
	return nil
}

// NextPending returns the id of the oldest pending candidate without
// removing it. The second return value is false when no candidate is
// pending.
func (p *Pool) NextPending() (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pendingQueue) == 0 {
		return uuid.Nil, false
	}
	return p.pendingQueue[0], true
}

// Claim atomically moves a candidate from pending to working and
// stores the claimer's worker info. This is the exclusivity boundary:
// for a given id, exactly one concurrent Claim succeeds.
func (p *Pool) Claim(id uuid.UUID, workerInfo json.RawMessage) (Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.candidates[id]
	if !ok {
		return Candidate{}, fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}
	if c.State != StatePending {
		return Candidate{}, fmt.Errorf("%w: %s is %s", ErrNotPending, id, c.State)
	}

	p.removeFromPendingQueue(id)
	c.State = StateWorking
	if workerInfo != nil {
		c.WorkerInfo = workerInfo
	}
	c.LastUpdateAt = time.Now().UTC()
	return c.clone(), nil
}

// Finish moves a working candidate to finished and records its result.
func (p *Pool) Finish(id uuid.UUID, result float64, cost *float64, workerInfo json.RawMessage) (Candidate, error) {
	return p.complete(id, StateFinished, &result, cost, workerInfo)
}

// Fail moves a working candidate to failed. No result is recorded.
func (p *Pool) Fail(id uuid.UUID, cost *float64, workerInfo json.RawMessage) (Candidate, error) {
	return p.complete(id, StateFailed, nil, cost, workerInfo)
}

func (p *Pool) complete(id uuid.UUID, target State, result, cost *float64, workerInfo json.RawMessage) (Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.candidates[id]
	if !ok {
		return Candidate{}, fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}
	if c.State != StateWorking {
		return Candidate{}, fmt.Errorf("%w: %s is %s", ErrNotWorking, id, c.State)
	}

	c.State = target
	c.Result = result
	if cost != nil {
		c.Cost = cost
	}
	if workerInfo != nil {
		c.WorkerInfo = workerInfo
	}
	c.LastUpdateAt = time.Now().UTC()
	return c.clone(), nil
}

// Release moves a working candidate back to pending without losing its
// identity. Used when a worker hands a candidate back.
func (p *Pool) Release(id uuid.UUID, workerInfo json.RawMessage) (Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.candidates[id]
	if !ok {
		return Candidate{}, fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}
	if c.State != StateWorking {
		return Candidate{}, fmt.Errorf("%w: %s is %s", ErrNotWorking, id, c.State)
	}

	c.State = StatePending
	if workerInfo != nil {
		c.WorkerInfo = workerInfo
	}
	c.LastUpdateAt = time.Now().UTC()
	p.pendingQueue = append(p.pendingQueue, id)
	return c.clone(), nil
}

// Get returns a copy of a candidate by id.
func (p *Pool) Get(id uuid.UUID) (Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.candidates[id]
	if !ok {
		return Candidate{}, fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}
	return c.clone(), nil
}

// Snapshot returns a consistent, deep-copied view of all buckets in
// insertion order.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s Snapshot
	for _, id := range p.order {
		c := p.candidates[id]
		switch c.State {
		case StatePending:
			s.Pending = append(s.Pending, c.clone())
		case StateWorking:
			s.Working = append(s.Working, c.clone())
		case StateFinished:
			s.Finished = append(s.Finished, c.clone())
		case StateFailed:
			s.Failed = append(s.Failed, c.clone())
		}
	}
	return s
}

// History builds the evaluation history the optimizer strategies
// consume: finished observations plus the parameter sets of failed
// evaluations.
func (p *Pool) History() ([]optimizer.Observation, []map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var finished []optimizer.Observation
	var failed []map[string]any
	for _, id := range p.order {
		c := p.candidates[id]
		switch c.State {
		case StateFinished:
			if c.Result == nil {
				continue
			}
			cp := c.clone()
			finished = append(finished, optimizer.Observation{Params: cp.Params, Result: *cp.Result})
		case StateFailed:
			cp := c.clone()
			failed = append(failed, cp.Params)
		}
	}
	return finished, failed
}

// removeFromPendingQueue drops one occurrence of id; callers hold p.mu.
func (p *Pool) removeFromPendingQueue(id uuid.UUID) {
	for i, queued := range p.pendingQueue {
		if queued == id {
			p.pendingQueue = append(p.pendingQueue[:i], p.pendingQueue[i+1:]...)
			return
		}
	}
}
