package optimizer

import "math"

// surrogate is a Gaussian-process regression model over warped
// parameter points, used to predict the objective at untested
// configurations. It is a kernel smoother: the predicted mean is a
// kernel-weighted average of the observed values, the variance a
// kernel-mass complement. Cheap to refit and free of matrix
// inversions, at the cost of being an approximation of a full GP.
//
// The owning strategy serializes access; surrogate itself is not
// concurrency-safe.
type surrogate struct {
	x     [][]float64
	y     []float64
	sigma float64
}

func newSurrogate(sigma float64) *surrogate {
	return &surrogate{sigma: sigma}
}

// add records one observation. The point is copied.
func (s *surrogate) add(x []float64, y float64) {
	owned := make([]float64, len(x))
	copy(owned, x)
	s.x = append(s.x, owned)
	s.y = append(s.y, y)
}

// kernel is the RBF similarity exp(-|a-b|^2 / (2 sigma^2)); 1 for
// identical points, approaching 0 with distance.
func (s *surrogate) kernel(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Exp(-sum / (2 * s.sigma * s.sigma))
}

// predict estimates the objective mean and its uncertainty at x.
// Returns (0, 1) when no observations exist.
func (s *surrogate) predict(x []float64) (mean, variance float64) {
	n := len(s.x)
	if n == 0 {
		return 0, 1
	}

	k := make([]float64, n)
	for i := range s.x {
		k[i] = s.kernel(x, s.x[i])
	}

	var sum float64
	for i := range s.x {
		sum += k[i] * s.y[i]
	}
	mean = sum / float64(n)

	variance = 1.0
	for i := range k {
		for j := range k {
			variance -= k[i] * k[j] / float64(n)
		}
	}
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

// size is the number of recorded observations.
func (s *surrogate) size() int { return len(s.x) }
