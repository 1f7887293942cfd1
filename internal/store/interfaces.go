package store

import "context"

// Archive persists experiments and candidate transitions. A nil or
// absent archive is valid: archiving is best-effort and must never
// fail a dispatch request.
type Archive interface {
	// SaveExperiment records an experiment definition. Saving an
	// already-archived experiment is a no-op.
	SaveExperiment(ctx context.Context, rec *ExperimentRecord) error

	// SaveCandidate upserts a candidate's latest state.
	SaveCandidate(ctx context.Context, rec *CandidateRecord) error
}
