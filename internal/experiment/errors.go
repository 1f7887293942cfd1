package experiment

import "errors"

// Sentinel errors for the experiment registry and the candidate
// lifecycle state machine. Handlers map these to HTTP statuses with
// errors.Is.
var (
	// ErrExperimentNotFound is returned for an unknown experiment id.
	ErrExperimentNotFound = errors.New("experiment not found")

	// ErrDuplicateExperiment is returned when initializing with an id
	// that already exists in the registry.
	ErrDuplicateExperiment = errors.New("experiment id already exists")

	// ErrCandidateNotFound is returned for an unknown candidate id.
	ErrCandidateNotFound = errors.New("candidate not found")

	// ErrDuplicateCandidate is returned when inserting a candidate
	// whose id is already present in the pool.
	ErrDuplicateCandidate = errors.New("candidate id already exists")

	// ErrNotPending is returned when claiming a candidate that is not
	// in the pending bucket. Exactly one concurrent claim succeeds;
	// the rest observe this error.
	ErrNotPending = errors.New("candidate is not pending")

	// ErrNotWorking is returned when reporting on a candidate that is
	// not in the working bucket.
	ErrNotWorking = errors.New("candidate is not working")

	// ErrResultRequired is returned when a finished report carries no
	// result value.
	ErrResultRequired = errors.New("result is required for a finished report")
)
