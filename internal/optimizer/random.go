package optimizer

import (
	"math/rand"

	"tuneplane/internal/space"
)

// RandomSearch proposes uniform samples from the parameter space,
// ignoring history entirely.
type RandomSearch struct {
	rng *rand.Rand
}

// NewRandomSearch creates a random-search strategy. Seed zero means
// time-seeded.
func NewRandomSearch(seed int64) *RandomSearch {
	return &RandomSearch{rng: newRand(seed)}
}

func (r *RandomSearch) Kind() Kind { return KindRandomSearch }

// Propose draws one uniform configuration.
func (r *RandomSearch) Propose(_ History, sp *space.Space) (map[string]any, error) {
	return sp.Sample(r.rng), nil
}
