// Package optimizer contains the pluggable candidate-generation
// strategies: pure random search and a sequential model-based search
// built on a Gaussian-process surrogate.
package optimizer

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"tuneplane/internal/space"
)

// ErrUnknownOptimizer is returned when an init request names an
// optimizer kind that does not exist.
var ErrUnknownOptimizer = errors.New("unknown optimizer kind")

// Kind selects a strategy implementation. Resolved once at experiment
// creation; never swapped afterwards.
type Kind string

const (
	KindRandomSearch         Kind = "RandomSearch"
	KindSequentialModelBased Kind = "SequentialModelBased"
)

// ParseKind validates an optimizer name from the wire.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindRandomSearch:
		return KindRandomSearch, nil
	case KindSequentialModelBased:
		return KindSequentialModelBased, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOptimizer, s)
	}
}

// Observation is one finished evaluation: the parameters tried and the
// objective value they produced.
type Observation struct {
	Params map[string]any
	Result float64
}

// History is the read-only evaluation history a strategy proposes
// from. Strategies must not mutate it.
type History struct {
	// Finished holds all successfully evaluated candidates.
	Finished []Observation

	// Failed holds the parameter sets of failed evaluations. They are
	// excluded from fitting unless the treat-failed policy folds them
	// in as penalty observations.
	Failed []map[string]any

	// Minimization orients "better": true means lower results win.
	Minimization bool
}

// Strategy proposes the next parameter configuration to evaluate.
//
// Contract: the returned params always satisfy sp.Validate; the
// history is never mutated; behavior is deterministic for a fixed seed
// and history; internal model failures degrade to uniform sampling
// instead of returning an error.
type Strategy interface {
	Kind() Kind
	Propose(h History, sp *space.Space) (map[string]any, error)
}

// Treat-failed policies, following the original optimizer's options.
const (
	// TreatFailedIgnore drops failed evaluations from fitting.
	TreatFailedIgnore = "ignore"

	// TreatFailedFixedValue replaces failed results with a fixed
	// penalty value.
	TreatFailedFixedValue = "fixed_value"

	// TreatFailedWorstMult replaces failed results with
	// (worst-best)*arg + worst, pushing them beyond the worst
	// observed result.
	TreatFailedWorstMult = "worst_mult"
)

// Config tunes a strategy. Zero values fall back to defaults.
type Config struct {
	// Seed for the strategy's random source. Zero means time-seeded
	// (non-deterministic).
	Seed int64

	// WarmupSamples is the number of finished observations required
	// before the surrogate model is consulted.
	WarmupSamples int

	// AcqCandidates is the number of random multi-start points scored
	// by the acquisition function per proposal.
	AcqCandidates int

	// Acquisition selects the acquisition function: "ucb" (default),
	// "ei" or "pi".
	Acquisition string

	// Beta is the UCB exploration weight.
	Beta float64

	// Xi is the minimum-improvement margin for EI and PI.
	Xi float64

	// Sigma is the RBF kernel width over the warped unit hypercube.
	Sigma float64

	// TreatFailed selects the failed-candidate policy; TreatFailedArg
	// is its numeric argument (penalty value or worst multiplier).
	TreatFailed    string
	TreatFailedArg float64
}

// DefaultConfig returns the standard strategy configuration.
func DefaultConfig() Config {
	return Config{
		WarmupSamples: 10,
		AcqCandidates: 50,
		Acquisition:   "ucb",
		Beta:          2.0,
		Xi:            0.01,
		Sigma:         1.0,
		TreatFailed:   TreatFailedIgnore,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WarmupSamples <= 0 {
		c.WarmupSamples = d.WarmupSamples
	}
	if c.AcqCandidates <= 0 {
		c.AcqCandidates = d.AcqCandidates
	}
	if c.Acquisition == "" {
		c.Acquisition = d.Acquisition
	}
	if c.Beta == 0 {
		c.Beta = d.Beta
	}
	if c.Xi == 0 {
		c.Xi = d.Xi
	}
	if c.Sigma <= 0 {
		c.Sigma = d.Sigma
	}
	if c.TreatFailed == "" {
		c.TreatFailed = d.TreatFailed
	}
	return c
}

// New builds a strategy of the given kind.
func New(kind Kind, cfg Config) (Strategy, error) {
	cfg = cfg.withDefaults()
	switch kind {
	case KindRandomSearch:
		return NewRandomSearch(cfg.Seed), nil
	case KindSequentialModelBased:
		return NewSequentialModelBased(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOptimizer, kind)
	}
}

// newRand builds the strategy random source. Seed zero falls back to
// the current time.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
