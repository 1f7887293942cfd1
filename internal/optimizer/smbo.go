package optimizer

import (
	"math"
	"math/rand"

	"tuneplane/internal/space"
)

// SequentialModelBased is a Bayesian-optimization style strategy. Each
// proposal refits a Gaussian-process surrogate over the finished
// observations (warped into the unit hypercube), scores a batch of
// random multi-start points with an acquisition function, and returns
// the most promising one. With fewer observations than the warm-up
// threshold, or whenever fitting degenerates, it falls back to uniform
// sampling.
type SequentialModelBased struct {
	cfg Config
	rng *rand.Rand
	acq acquisitionFunc
}

// NewSequentialModelBased builds the strategy, validating the
// acquisition function name.
func NewSequentialModelBased(cfg Config) (*SequentialModelBased, error) {
	cfg = cfg.withDefaults()
	acq, err := parseAcquisition(cfg.Acquisition)
	if err != nil {
		return nil, err
	}
	return &SequentialModelBased{cfg: cfg, rng: newRand(cfg.Seed), acq: acq}, nil
}

func (s *SequentialModelBased) Kind() Kind { return KindSequentialModelBased }

// Propose selects the next configuration to evaluate. It never fails a
// request over a model problem: every degenerate path returns a
// uniform sample instead.
func (s *SequentialModelBased) Propose(h History, sp *space.Space) (map[string]any, error) {
	obs := s.observations(h)
	if len(obs) < s.cfg.WarmupSamples {
		return sp.Sample(s.rng), nil
	}

	// Orient internally toward minimization: negate results for
	// maximization problems.
	sign := 1.0
	if !h.Minimization {
		sign = -1.0
	}

	model := newSurrogate(s.cfg.Sigma)
	best := math.Inf(1)
	for _, o := range obs {
		warped, err := sp.WarpIn(o.Params)
		if err != nil {
			// History contains a point this space cannot express;
			// don't trust the model.
			return sp.Sample(s.rng), nil
		}
		y := sign * o.Result
		model.add(warped, y)
		if y < best {
			best = y
		}
	}

	params := acqParams{best: best, beta: s.cfg.Beta, xi: s.cfg.Xi}

	var bestParams map[string]any
	bestScore := math.Inf(1)
	for i := 0; i < s.cfg.AcqCandidates; i++ {
		cand := sp.Sample(s.rng)
		warped, err := sp.WarpIn(cand)
		if err != nil {
			continue
		}
		mean, variance := model.predict(warped)
		score := s.acq(mean, variance, params)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		if score < bestScore {
			bestScore = score
			bestParams = cand
		}
	}

	if bestParams == nil {
		// Every score was degenerate (e.g. zero variance everywhere).
		return sp.Sample(s.rng), nil
	}
	return bestParams, nil
}

// observations applies the treat-failed policy to build the fitting
// set. Failed evaluations either stay out entirely or enter with a
// penalty result.
func (s *SequentialModelBased) observations(h History) []Observation {
	if len(h.Failed) == 0 || s.cfg.TreatFailed == TreatFailedIgnore {
		return h.Finished
	}

	penalty, ok := s.penalty(h)
	if !ok {
		return h.Finished
	}

	obs := make([]Observation, 0, len(h.Finished)+len(h.Failed))
	obs = append(obs, h.Finished...)
	for _, params := range h.Failed {
		obs = append(obs, Observation{Params: params, Result: penalty})
	}
	return obs
}

// penalty computes the synthetic result assigned to failed
// evaluations under the configured policy.
func (s *SequentialModelBased) penalty(h History) (float64, bool) {
	switch s.cfg.TreatFailed {
	case TreatFailedFixedValue:
		if s.cfg.TreatFailedArg != 0 {
			return s.cfg.TreatFailedArg, true
		}
		if h.Minimization {
			return 1e6, true
		}
		return 1e-6, true

	case TreatFailedWorstMult:
		if len(h.Finished) == 0 {
			return 0, false
		}
		mult := s.cfg.TreatFailedArg
		if mult == 0 {
			mult = 10
		}
		best, worst := h.Finished[0].Result, h.Finished[0].Result
		for _, o := range h.Finished[1:] {
			if h.Minimization == (o.Result < best) {
				best = o.Result
			}
			if h.Minimization == (o.Result > worst) {
				worst = o.Result
			}
		}
		return (worst-best)*mult + worst, true

	default:
		return 0, false
	}
}
