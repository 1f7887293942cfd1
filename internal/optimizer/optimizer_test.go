package optimizer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuneplane/internal/space"
	"tuneplane/pkg/api"
)

func float64Ptr(v float64) *float64 { return &v }

func testSpace(t *testing.T) *space.Space {
	t.Helper()
	sp, err := space.Parse(map[string]api.ParamDef{
		"x": {Type: api.ParamDefTypeMinMaxNumeric, LowerBound: float64Ptr(0), UpperBound: float64Ptr(1)},
		"k": {Type: api.ParamDefTypeNominal, Values: []string{"a", "b"}},
	})
	require.NoError(t, err)
	return sp
}

// history builds n finished observations where the objective is x
// itself, so lower x is better under minimization.
func historyOf(t *testing.T, sp *space.Space, n int, minimization bool) History {
	t.Helper()
	rng := rand.New(rand.NewSource(99))
	h := History{Minimization: minimization}
	for i := 0; i < n; i++ {
		params := sp.Sample(rng)
		h.Finished = append(h.Finished, Observation{Params: params, Result: params["x"].(float64)})
	}
	return h
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("RandomSearch")
	require.NoError(t, err)
	assert.Equal(t, KindRandomSearch, kind)

	kind, err = ParseKind("SequentialModelBased")
	require.NoError(t, err)
	assert.Equal(t, KindSequentialModelBased, kind)

	_, err = ParseKind("SimulatedAnnealing")
	assert.ErrorIs(t, err, ErrUnknownOptimizer)
}

func TestRandomSearchProposesValidParams(t *testing.T) {
	sp := testSpace(t)
	s := NewRandomSearch(1)

	for i := 0; i < 100; i++ {
		params, err := s.Propose(History{}, sp)
		require.NoError(t, err)
		assert.NoError(t, sp.Validate(params))
	}
}

func TestRandomSearchDeterministicForSeed(t *testing.T) {
	sp := testSpace(t)

	a, err := NewRandomSearch(42).Propose(History{}, sp)
	require.NoError(t, err)
	b, err := NewRandomSearch(42).Propose(History{}, sp)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSMBOWarmupFallsBackToSampling(t *testing.T) {
	sp := testSpace(t)
	s, err := NewSequentialModelBased(Config{Seed: 7, WarmupSamples: 10})
	require.NoError(t, err)

	// Below the warm-up threshold the proposal is a plain sample from
	// the same random stream.
	want := testSpace(t).Sample(rand.New(rand.NewSource(7)))
	got, err := s.Propose(historyOf(t, sp, 3, true), sp)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSMBOProposesValidParamsAfterWarmup(t *testing.T) {
	sp := testSpace(t)
	h := historyOf(t, sp, 25, true)

	for _, acq := range []string{"ucb", "ei", "pi"} {
		s, err := NewSequentialModelBased(Config{Seed: 11, WarmupSamples: 10, Acquisition: acq})
		require.NoError(t, err, acq)

		for i := 0; i < 20; i++ {
			params, err := s.Propose(h, sp)
			require.NoError(t, err, acq)
			assert.NoError(t, sp.Validate(params), acq)
		}
	}
}

func TestSMBODeterministicForSeedAndHistory(t *testing.T) {
	sp := testSpace(t)
	h := historyOf(t, sp, 25, true)

	propose := func() map[string]any {
		s, err := NewSequentialModelBased(Config{Seed: 5, WarmupSamples: 10})
		require.NoError(t, err)
		params, err := s.Propose(h, sp)
		require.NoError(t, err)
		return params
	}

	assert.Equal(t, propose(), propose())
}

func TestSMBODoesNotMutateHistory(t *testing.T) {
	sp := testSpace(t)
	h := historyOf(t, sp, 15, true)
	h.Failed = []map[string]any{{"x": 0.5, "k": "a"}}

	before := len(h.Finished)
	s, err := NewSequentialModelBased(Config{Seed: 3, WarmupSamples: 10, TreatFailed: TreatFailedWorstMult})
	require.NoError(t, err)
	_, err = s.Propose(h, sp)
	require.NoError(t, err)

	assert.Len(t, h.Finished, before, "Propose must not grow the finished history")
	assert.Len(t, h.Failed, 1)
}

func TestSMBODegenerateHistoryFallsBack(t *testing.T) {
	sp := testSpace(t)

	// All observations at the identical point with the identical
	// result: the surrogate has no gradient to exploit, yet a proposal
	// must still come back valid.
	h := History{Minimization: true}
	point := map[string]any{"x": 0.5, "k": "a"}
	for i := 0; i < 20; i++ {
		h.Finished = append(h.Finished, Observation{Params: point, Result: 1.0})
	}

	s, err := NewSequentialModelBased(Config{Seed: 13, WarmupSamples: 10})
	require.NoError(t, err)
	params, err := s.Propose(h, sp)
	require.NoError(t, err)
	assert.NoError(t, sp.Validate(params))
}

func TestTreatFailedPenalties(t *testing.T) {
	h := History{
		Minimization: true,
		Finished: []Observation{
			{Params: map[string]any{"x": 0.1, "k": "a"}, Result: 2.0},
			{Params: map[string]any{"x": 0.9, "k": "b"}, Result: 10.0},
		},
		Failed: []map[string]any{{"x": 0.5, "k": "a"}},
	}

	tests := []struct {
		name   string
		cfg    Config
		expect float64
	}{
		{
			name:   "Fixed value default",
			cfg:    Config{TreatFailed: TreatFailedFixedValue},
			expect: 1e6,
		},
		{
			name:   "Fixed value explicit",
			cfg:    Config{TreatFailed: TreatFailedFixedValue, TreatFailedArg: 500},
			expect: 500,
		},
		{
			name: "Worst mult",
			cfg:  Config{TreatFailed: TreatFailedWorstMult, TreatFailedArg: 2},
			// (worst-best)*2 + worst = (10-2)*2 + 10
			expect: 26,
		},
		{
			name: "Worst mult default multiplier",
			cfg:  Config{TreatFailed: TreatFailedWorstMult},
			// (worst-best)*10 + worst = (10-2)*10 + 10
			expect: 90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSequentialModelBased(tt.cfg)
			require.NoError(t, err)
			obs := s.observations(h)
			require.Len(t, obs, 3)
			assert.Equal(t, tt.expect, obs[2].Result)
		})
	}

	t.Run("Ignore", func(t *testing.T) {
		s, err := NewSequentialModelBased(Config{TreatFailed: TreatFailedIgnore})
		require.NoError(t, err)
		assert.Len(t, s.observations(h), 2)
	})
}

func TestSurrogatePredict(t *testing.T) {
	m := newSurrogate(1.0)

	// No observations: flat prior.
	mean, variance := m.predict([]float64{0.5})
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 1.0, variance)

	m.add([]float64{0.0}, 2.0)

	// At the observed point the kernel weight is 1.
	mean, variance = m.predict([]float64{0.0})
	assert.InDelta(t, 2.0, mean, 1e-9)
	assert.InDelta(t, 0.0, variance, 1e-9)

	// Far away the mean decays toward zero and uncertainty grows.
	mean, variance = m.predict([]float64{100.0})
	assert.InDelta(t, 0.0, mean, 1e-9)
	assert.InDelta(t, 1.0, variance, 1e-9)

	assert.Equal(t, 1, m.size())
}

func TestAcquisitionFunctions(t *testing.T) {
	p := acqParams{best: 1.0, beta: 2.0, xi: 0.01}

	// UCB prefers low mean and high uncertainty.
	assert.Less(t, ucb(0.5, 0.5, p), ucb(0.5, 0.1, p))
	assert.Less(t, ucb(0.2, 0.1, p), ucb(0.8, 0.1, p))

	// CDF/PDF sanity.
	assert.InDelta(t, 0.5, normalCDF(0), 1e-9)
	assert.InDelta(t, 1.0, normalCDF(10), 1e-6)
	assert.InDelta(t, 1/math.Sqrt(2*math.Pi), normalPDF(0), 1e-9)

	// EI and PI produce finite scores with positive variance.
	for _, f := range []acquisitionFunc{expectedImprovement, probabilityOfImprovement} {
		score := f(0.5, 0.2, p)
		assert.False(t, math.IsNaN(score) || math.IsInf(score, 0))
	}
}

func TestNewUnknownAcquisition(t *testing.T) {
	_, err := NewSequentialModelBased(Config{Acquisition: "thompson-ish"})
	assert.Error(t, err)
}
