// Package store contains the persistence layer for tuneplane. The
// in-memory registry stays authoritative; the store is a write-behind
// archive of experiments and candidate transitions.
package store

import (
	"encoding/json"
	"time"
)

// ExperimentRecord is the archived form of an experiment definition.
type ExperimentRecord struct {
	ID           string
	Name         string
	Optimizer    string
	Minimization bool
	ParamDefs    json.RawMessage
	CreatedAt    time.Time
}

// CandidateRecord is the archived form of one candidate. Records are
// upserted on every state transition, so the row always reflects the
// latest state.
type CandidateRecord struct {
	ID           string
	ExperimentID string
	Params       json.RawMessage
	Cost         *float64
	Result       *float64
	State        string
	GeneratedAt  time.Time
	LastUpdateAt time.Time
	WorkerInfo   json.RawMessage
}
