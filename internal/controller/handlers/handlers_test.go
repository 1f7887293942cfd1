package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"tuneplane/internal/dispatch"
	"tuneplane/internal/experiment"
)

// Mock dispatcher
type mockDispatcher struct {
	// Hooks
	initResp      string
	initErr       error
	idsResp       []string
	allSnapResp   experiment.Snapshot
	allBestResp   *experiment.Candidate
	allErr        error
	nextResp      experiment.Candidate
	nextErr       error
	reportResp    experiment.Candidate
	reportErr     error
	pingErr       error

	// Spies (to verify arguments passed by handlers)
	capturedSpec       dispatch.InitSpec
	capturedWorkerInfo json.RawMessage
	capturedReport     experiment.Report
	capturedCandidate  uuid.UUID
}

func (m *mockDispatcher) InitExperiment(ctx context.Context, spec dispatch.InitSpec) (string, error) {
	m.capturedSpec = spec
	if m.initErr != nil {
		return "", m.initErr
	}
	return m.initResp, nil
}

func (m *mockDispatcher) ExperimentIDs() []string {
	return m.idsResp
}

func (m *mockDispatcher) AllCandidates(ctx context.Context, experimentID string) (experiment.Snapshot, *experiment.Candidate, error) {
	if m.allErr != nil {
		return experiment.Snapshot{}, nil, m.allErr
	}
	return m.allSnapResp, m.allBestResp, nil
}

func (m *mockDispatcher) NextCandidate(ctx context.Context, experimentID string, workerInfo json.RawMessage) (experiment.Candidate, error) {
	m.capturedWorkerInfo = workerInfo
	if m.nextErr != nil {
		return experiment.Candidate{}, m.nextErr
	}
	return m.nextResp, nil
}

func (m *mockDispatcher) Report(ctx context.Context, experimentID string, candidateID uuid.UUID, rep experiment.Report) (experiment.Candidate, error) {
	m.capturedCandidate = candidateID
	m.capturedReport = rep
	if m.reportErr != nil {
		return experiment.Candidate{}, m.reportErr
	}
	return m.reportResp, nil
}

func (m *mockDispatcher) Ping(ctx context.Context) error {
	return m.pingErr
}

func testCandidate(state experiment.State) experiment.Candidate {
	now := time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)
	return experiment.Candidate{
		ID:           uuid.New(),
		Params:       map[string]any{"x": 1.5},
		State:        state,
		GeneratedAt:  now,
		LastUpdateAt: now,
	}
}

func float64Ptr(v float64) *float64 { return &v }
