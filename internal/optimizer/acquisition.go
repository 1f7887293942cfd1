package optimizer

import (
	"fmt"
	"math"
)

// acqParams carries the shared inputs of the acquisition functions.
// best is the best (lowest, after orientation) observed value.
type acqParams struct {
	best float64
	beta float64
	xi   float64
}

// acquisitionFunc scores a candidate point from its surrogate
// prediction. Lower scores are more promising; the proposer picks the
// argmin over its random multi-start points.
type acquisitionFunc func(mean, variance float64, p acqParams) float64

// ucb is the Upper Confidence Bound for minimization: the predicted
// mean discounted by beta standard deviations of uncertainty.
func ucb(mean, variance float64, p acqParams) float64 {
	return mean - p.beta*math.Sqrt(variance)
}

// probabilityOfImprovement scores the chance that a point beats the
// best observed value by at least xi.
func probabilityOfImprovement(mean, variance float64, p acqParams) float64 {
	z := (mean - p.best - p.xi) / math.Sqrt(variance)
	return normalCDF(z)
}

// expectedImprovement weighs the probability of improvement by its
// expected magnitude.
func expectedImprovement(mean, variance float64, p acqParams) float64 {
	sigma := math.Sqrt(variance)
	z := (mean - p.best - p.xi) / sigma
	return (mean-p.best-p.xi)*normalCDF(z) + sigma*normalPDF(z)
}

func parseAcquisition(name string) (acquisitionFunc, error) {
	switch name {
	case "ucb":
		return ucb, nil
	case "pi":
		return probabilityOfImprovement, nil
	case "ei":
		return expectedImprovement, nil
	default:
		return nil, fmt.Errorf("unknown acquisition function %q", name)
	}
}

// normalCDF is the standard normal cumulative distribution function.
func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// normalPDF is the standard normal probability density function.
func normalPDF(x float64) float64 {
	return math.Exp(-x*x/2.0) / math.Sqrt(2.0*math.Pi)
}
