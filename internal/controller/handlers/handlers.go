// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"tuneplane/internal/dispatch"
	"tuneplane/internal/experiment"
	"tuneplane/internal/space"
	"tuneplane/pkg/api"
)

// Dispatcher is the slice of the dispatch layer the handlers need.
// Declared here so tests can substitute a mock.
type Dispatcher interface {
	InitExperiment(ctx context.Context, spec dispatch.InitSpec) (string, error)
	ExperimentIDs() []string
	AllCandidates(ctx context.Context, experimentID string) (experiment.Snapshot, *experiment.Candidate, error)
	NextCandidate(ctx context.Context, experimentID string, workerInfo json.RawMessage) (experiment.Candidate, error)
	Report(ctx context.Context, experimentID string, candidateID uuid.UUID, rep experiment.Report) (experiment.Candidate, error)
}

// Pinger reports whether a backing store is reachable. Nil means there
// is no store to check and readiness always succeeds.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	dispatch Dispatcher
	pinger   Pinger
}

// New creates a new Handlers instance. pinger may be nil.
func New(d Dispatcher, pinger Pinger) *Handlers {
	return &Handlers{dispatch: d, pinger: pinger}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// dispatchError maps dispatch-layer errors onto HTTP statuses.
func (h *Handlers) dispatchError(w http.ResponseWriter, err error) {
	var invalid *space.InvalidParameterError
	switch {
	case errors.Is(err, experiment.ErrExperimentNotFound),
		errors.Is(err, experiment.ErrCandidateNotFound):
		h.httpError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, experiment.ErrDuplicateExperiment),
		errors.Is(err, experiment.ErrNotPending),
		errors.Is(err, experiment.ErrNotWorking):
		h.httpError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, experiment.ErrResultRequired),
		errors.As(err, &invalid):
		h.httpError(w, err.Error(), http.StatusBadRequest)
	default:
		h.httpError(w, "Internal error", http.StatusInternalServerError)
	}
}

// candidateResponse converts a candidate into its wire representation.
func candidateResponse(c experiment.Candidate) api.CandidateResponse {
	return api.CandidateResponse{
		ID:           c.ID.String(),
		Params:       c.Params,
		Cost:         c.Cost,
		Result:       c.Result,
		State:        string(c.State),
		GeneratedAt:  c.GeneratedAt,
		LastUpdateAt: c.LastUpdateAt,
		WorkerInfo:   c.WorkerInfo,
	}
}

func candidateResponses(cs []experiment.Candidate) []api.CandidateResponse {
	out := make([]api.CandidateResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, candidateResponse(c))
	}
	return out
}
