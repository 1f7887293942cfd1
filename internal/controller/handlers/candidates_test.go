package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"tuneplane/internal/experiment"
	"tuneplane/pkg/api"
)

// newPathRequest builds a request routed through a mux so that
// r.PathValue works like in production.
func routed(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /experiments/{id}/candidates", h.AllCandidates)
	mux.HandleFunc("POST /experiments/{id}/candidates/next", h.NextCandidate)
	mux.HandleFunc("POST /experiments/{id}/candidates/{cid}/result", h.ReportResult)
	return mux
}

func TestAllCandidates(t *testing.T) {
	best := testCandidate(experiment.StateFinished)
	best.Result = float64Ptr(0.42)

	mock := &mockDispatcher{
		allSnapResp: experiment.Snapshot{
			Pending:  []experiment.Candidate{testCandidate(experiment.StatePending)},
			Finished: []experiment.Candidate{best},
		},
		allBestResp: &best,
	}
	h := New(mock, nil)

	req := httptest.NewRequest(http.MethodGet, "/experiments/exp-1/candidates", nil)
	rr := httptest.NewRecorder()
	routed(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}

	var resp api.AllCandidatesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.Pending) != 1 || len(resp.Finished) != 1 || len(resp.Working) != 0 {
		t.Errorf("unexpected buckets: %+v", resp)
	}
	if resp.Best == nil || resp.Best.ID != best.ID.String() {
		t.Errorf("expected best candidate %s, got %+v", best.ID, resp.Best)
	}
}

func TestAllCandidates_UnknownExperiment(t *testing.T) {
	mock := &mockDispatcher{allErr: experiment.ErrExperimentNotFound}
	h := New(mock, nil)

	req := httptest.NewRequest(http.MethodGet, "/experiments/nope/candidates", nil)
	rr := httptest.NewRecorder()
	routed(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestNextCandidate(t *testing.T) {
	cand := testCandidate(experiment.StateWorking)

	tests := []struct {
		name           string
		body           string
		mockSetup      func(*mockDispatcher)
		expectedStatus int
	}{
		{
			name:           "Success With Worker Info",
			body:           `{"worker_info": {"host": "node-3"}}`,
			mockSetup:      func(m *mockDispatcher) { m.nextResp = cand },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Success Empty Body",
			body:           "",
			mockSetup:      func(m *mockDispatcher) { m.nextResp = cand },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Invalid JSON",
			body:           `{`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Unknown Experiment",
			body:           "",
			mockSetup:      func(m *mockDispatcher) { m.nextErr = experiment.ErrExperimentNotFound },
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockDispatcher{}
			if tt.mockSetup != nil {
				tt.mockSetup(mock)
			}
			h := New(mock, nil)

			req := httptest.NewRequest(http.MethodPost, "/experiments/exp-1/candidates/next", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			routed(h).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v (body %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
		})
	}
}

func TestNextCandidate_ForwardsWorkerInfo(t *testing.T) {
	mock := &mockDispatcher{nextResp: testCandidate(experiment.StateWorking)}
	h := New(mock, nil)

	req := httptest.NewRequest(http.MethodPost, "/experiments/exp-1/candidates/next",
		strings.NewReader(`{"worker_info": {"host": "node-3"}}`))
	rr := httptest.NewRecorder()
	routed(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if string(mock.capturedWorkerInfo) != `{"host": "node-3"}` {
		t.Errorf("worker info not forwarded: %s", mock.capturedWorkerInfo)
	}
}

func TestReportResult(t *testing.T) {
	finished := testCandidate(experiment.StateFinished)
	cid := finished.ID

	tests := []struct {
		name           string
		candidateID    string
		body           string
		mockSetup      func(*mockDispatcher)
		expectedStatus int
	}{
		{
			name:           "Finished",
			candidateID:    cid.String(),
			body:           `{"status": "finished", "result": 0.42, "cost": 12.5}`,
			mockSetup:      func(m *mockDispatcher) { m.reportResp = finished },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Failed",
			candidateID:    cid.String(),
			body:           `{"status": "failed"}`,
			mockSetup:      func(m *mockDispatcher) { m.reportResp = testCandidate(experiment.StateFailed) },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Paused",
			candidateID:    cid.String(),
			body:           `{"status": "paused"}`,
			mockSetup:      func(m *mockDispatcher) { m.reportResp = testCandidate(experiment.StatePending) },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Invalid Candidate ID",
			candidateID:    "not-a-uuid",
			body:           `{"status": "finished", "result": 1}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid Status",
			candidateID:    cid.String(),
			body:           `{"status": "done"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing Result",
			candidateID:    cid.String(),
			body:           `{"status": "finished"}`,
			mockSetup:      func(m *mockDispatcher) { m.reportErr = experiment.ErrResultRequired },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Not Working",
			candidateID:    cid.String(),
			body:           `{"status": "finished", "result": 1}`,
			mockSetup:      func(m *mockDispatcher) { m.reportErr = experiment.ErrNotWorking },
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Unknown Candidate",
			candidateID:    uuid.NewString(),
			body:           `{"status": "finished", "result": 1}`,
			mockSetup:      func(m *mockDispatcher) { m.reportErr = experiment.ErrCandidateNotFound },
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockDispatcher{}
			if tt.mockSetup != nil {
				tt.mockSetup(mock)
			}
			h := New(mock, nil)

			url := "/experiments/exp-1/candidates/" + tt.candidateID + "/result"
			req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			routed(h).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v (body %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
		})
	}
}

func TestReportResult_TranslatesStatus(t *testing.T) {
	finished := testCandidate(experiment.StateFinished)
	mock := &mockDispatcher{reportResp: finished}
	h := New(mock, nil)

	url := "/experiments/exp-1/candidates/" + finished.ID.String() + "/result"
	req := httptest.NewRequest(http.MethodPost, url,
		strings.NewReader(`{"status": "paused", "worker_info": {"host": "node-3"}}`))
	rr := httptest.NewRecorder()
	routed(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if mock.capturedCandidate != finished.ID {
		t.Errorf("candidate id not forwarded: %s", mock.capturedCandidate)
	}
	if mock.capturedReport.Status != experiment.StatePending {
		t.Errorf("paused should translate to pending, got %q", mock.capturedReport.Status)
	}
}
