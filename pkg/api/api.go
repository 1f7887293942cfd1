// Package api contains shared JSON request/response structs.
// This package is shared between the CLI, the worker agent and the controller.
package api

import (
	"encoding/json"
	"time"
)

// ParamDef wire types. The Type field selects the variant; any other
// value is rejected by the controller.
const (
	ParamDefTypeMinMaxNumeric = "MinMaxNumericParamDef"
	ParamDefTypeNominal       = "NominalParamDef"
)

// ParamDef is the wire representation of one search dimension.
type ParamDef struct {
	Type       string   `json:"type"`
	LowerBound *float64 `json:"lower_bound,omitempty"`
	UpperBound *float64 `json:"upper_bound,omitempty"`
	Values     []string `json:"values,omitempty"`
}

// Optimizer kinds accepted by InitExperimentRequest.
const (
	OptimizerRandomSearch         = "RandomSearch"
	OptimizerSequentialModelBased = "SequentialModelBased"
)

// InitExperimentRequest is the request body for creating a new experiment.
// ExperimentID is optional; the controller generates one when empty.
type InitExperimentRequest struct {
	Name         string              `json:"name"`
	Optimizer    string              `json:"optimizer"`
	ParamDefs    map[string]ParamDef `json:"param_defs"`
	Minimization bool                `json:"minimization"`
	ExperimentID string              `json:"experiment_id,omitempty"`
	// OptimizerParams tunes the model-based search (seed, warm-up size,
	// acquisition function). Unknown fields are ignored.
	OptimizerParams *OptimizerParams `json:"optimizer_params,omitempty"`
}

// OptimizerParams carries optional tuning knobs for an optimizer.
type OptimizerParams struct {
	Seed           *int64   `json:"seed,omitempty"`
	WarmupSamples  *int     `json:"warmup_samples,omitempty"`
	AcqCandidates  *int     `json:"acq_candidates,omitempty"`
	Acquisition    string   `json:"acquisition,omitempty"`
	TreatFailed    string   `json:"treat_failed,omitempty"`
	TreatFailedArg *float64 `json:"treat_failed_arg,omitempty"`
}

// InitExperimentResponse is the response body after creating an experiment.
type InitExperimentResponse struct {
	ExperimentID string `json:"experiment_id"`
}

// ListExperimentsResponse lists all known experiment ids.
type ListExperimentsResponse struct {
	ExperimentIDs []string `json:"experiment_ids"`
}

// Candidate lifecycle states as they appear on the wire.
const (
	CandidateStatePending  = "pending"
	CandidateStateWorking  = "working"
	CandidateStateFinished = "finished"
	CandidateStateFailed   = "failed"
)

// CandidateResponse represents a candidate in API responses.
// WorkerInfo is an opaque payload owned by the caller; the controller
// echoes it back unchanged.
type CandidateResponse struct {
	ID           string          `json:"id"`
	Params       map[string]any  `json:"params"`
	Cost         *float64        `json:"cost,omitempty"`
	Result       *float64        `json:"result,omitempty"`
	State        string          `json:"state"`
	GeneratedAt  time.Time       `json:"generated_at"`
	LastUpdateAt time.Time       `json:"last_update_at"`
	WorkerInfo   json.RawMessage `json:"worker_info,omitempty"`
}

// NextCandidateRequest is the (optional) request body when claiming the
// next candidate. WorkerInfo is stored on the claimed candidate.
type NextCandidateRequest struct {
	WorkerInfo json.RawMessage `json:"worker_info,omitempty"`
}

// Report statuses accepted by ReportRequest.
const (
	ReportStatusFinished = "finished"
	ReportStatusFailed   = "failed"
	ReportStatusPaused   = "paused"
)

// ReportRequest is the payload sent by a worker when an evaluation
// finishes, fails, or is handed back (paused).
// Result must be set when Status is "finished".
type ReportRequest struct {
	Status     string          `json:"status"`
	Result     *float64        `json:"result,omitempty"`
	Cost       *float64        `json:"cost,omitempty"`
	WorkerInfo json.RawMessage `json:"worker_info,omitempty"`
}

// AllCandidatesResponse is the bucketed snapshot of one experiment's pool.
type AllCandidatesResponse struct {
	Pending  []CandidateResponse `json:"pending"`
	Working  []CandidateResponse `json:"working"`
	Finished []CandidateResponse `json:"finished"`
	Failed   []CandidateResponse `json:"failed"`
	Best     *CandidateResponse  `json:"best,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
