package postgres

import (
	"context"
	"fmt"

	"tuneplane/internal/store"
)

// SaveExperiment archives an experiment definition. Definitions are
// immutable, so a conflicting id is left untouched.
func (s *Store) SaveExperiment(ctx context.Context, rec *store.ExperimentRecord) error {
	query := `
		INSERT INTO experiments (id, name, optimizer, minimization, param_defs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Optimizer, rec.Minimization, rec.ParamDefs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to archive experiment %s: %w", rec.ID, err)
	}
	return nil
}

// SaveCandidate upserts a candidate's latest state so the archived row
// follows the in-memory lifecycle.
func (s *Store) SaveCandidate(ctx context.Context, rec *store.CandidateRecord) error {
	query := `
		INSERT INTO candidates
			(id, experiment_id, params, cost, result, state, generated_at, last_update_at, worker_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			cost = EXCLUDED.cost,
			result = EXCLUDED.result,
			state = EXCLUDED.state,
			last_update_at = EXCLUDED.last_update_at,
			worker_info = EXCLUDED.worker_info
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.ExperimentID, rec.Params, rec.Cost, rec.Result,
		rec.State, rec.GeneratedAt, rec.LastUpdateAt, rec.WorkerInfo)
	if err != nil {
		return fmt.Errorf("failed to archive candidate %s: %w", rec.ID, err)
	}
	return nil
}
