package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"tuneplane/internal/experiment"
	"tuneplane/pkg/api"
)

// AllCandidates handles GET /experiments/{id}/candidates.
// It returns a consistent snapshot of the experiment's pool, bucketed
// by state, plus the best finished candidate so far.
func (h *Handlers) AllCandidates(w http.ResponseWriter, r *http.Request) {
	snap, best, err := h.dispatch.AllCandidates(r.Context(), r.PathValue("id"))
	if err != nil {
		h.dispatchError(w, err)
		return
	}

	resp := api.AllCandidatesResponse{
		Pending:  candidateResponses(snap.Pending),
		Working:  candidateResponses(snap.Working),
		Finished: candidateResponses(snap.Finished),
		Failed:   candidateResponses(snap.Failed),
	}
	if best != nil {
		b := candidateResponse(*best)
		resp.Best = &b
	}
	h.respondJson(w, http.StatusOK, resp)
}

// NextCandidate handles POST /experiments/{id}/candidates/next.
// The worker claims the oldest pending candidate or, when none is
// waiting, a freshly proposed one. The body is optional.
func (h *Handlers) NextCandidate(w http.ResponseWriter, r *http.Request) {
	var req api.NextCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cand, err := h.dispatch.NextCandidate(r.Context(), r.PathValue("id"), req.WorkerInfo)
	if err != nil {
		h.dispatchError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, candidateResponse(cand))
}

// ReportResult handles POST /experiments/{id}/candidates/{cid}/result.
// The worker reports the outcome of an evaluation: finished with a
// result, failed, or paused to hand the candidate back.
func (h *Handlers) ReportResult(w http.ResponseWriter, r *http.Request) {
	candidateID, err := uuid.Parse(r.PathValue("cid"))
	if err != nil {
		h.httpError(w, "Invalid candidate id", http.StatusBadRequest)
		return
	}

	var req api.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var status experiment.State
	switch req.Status {
	case api.ReportStatusFinished:
		status = experiment.StateFinished
	case api.ReportStatusFailed:
		status = experiment.StateFailed
	case api.ReportStatusPaused:
		status = experiment.StatePending
	default:
		h.httpError(w, "Status must be finished, failed or paused", http.StatusBadRequest)
		return
	}

	cand, err := h.dispatch.Report(r.Context(), r.PathValue("id"), candidateID, experiment.Report{
		Status:     status,
		Result:     req.Result,
		Cost:       req.Cost,
		WorkerInfo: req.WorkerInfo,
	})
	if err != nil {
		h.dispatchError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, candidateResponse(cand))
}
