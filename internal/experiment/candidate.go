// Package experiment holds the candidate lifecycle state machine, the
// per-experiment candidate pool, and the process-wide experiment
// registry.
package experiment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a candidate. A candidate is in
// exactly one state at any instant.
type State string

const (
	StatePending  State = "pending"
	StateWorking  State = "working"
	StateFinished State = "finished"
	StateFailed   State = "failed"
)

// Candidate is one proposed parameter configuration plus its
// evaluation metadata. The pool owns every candidate after insertion;
// callers only ever see copies.
type Candidate struct {
	ID     uuid.UUID
	Params map[string]any

	// Cost is an optional, caller-interpreted expense of the
	// evaluation (wall time, money). Never read by the core.
	Cost *float64

	// Result is the objective value, set exactly once when the
	// candidate finishes.
	Result *float64

	State        State
	GeneratedAt  time.Time
	LastUpdateAt time.Time

	// WorkerInfo is an opaque payload owned by the evaluating worker,
	// echoed back unchanged.
	WorkerInfo json.RawMessage
}

func newCandidate(params map[string]any) *Candidate {
	now := time.Now().UTC()
	owned := make(map[string]any, len(params))
	for k, v := range params {
		owned[k] = v
	}
	return &Candidate{
		ID:           uuid.New(),
		Params:       owned,
		State:        StatePending,
		GeneratedAt:  now,
		LastUpdateAt: now,
	}
}

// clone returns a deep copy safe to hand outside the pool.
func (c *Candidate) clone() Candidate {
	out := *c
	out.Params = make(map[string]any, len(c.Params))
	for k, v := range c.Params {
		out.Params[k] = v
	}
	if c.Cost != nil {
		cost := *c.Cost
		out.Cost = &cost
	}
	if c.Result != nil {
		result := *c.Result
		out.Result = &result
	}
	if c.WorkerInfo != nil {
		out.WorkerInfo = make(json.RawMessage, len(c.WorkerInfo))
		copy(out.WorkerInfo, c.WorkerInfo)
	}
	return out
}
