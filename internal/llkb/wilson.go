package llkb

import "math"

// wilsonZ is the two-sided 95% normal quantile. Confidence values are
// asserted exactly in tests, so the constant stays named and fixed rather
// than configurable.
const wilsonZ = 1.96

// WilsonLowerBound returns the lower bound of the Wilson score interval for
// a Bernoulli success rate, given success and failure counts. It is robust at
// small sample sizes where the raw ratio overstates certainty: one success
// out of one scores ~0.21, not 1.0.
//
// The bound is non-decreasing in successes (failures fixed) and
// non-increasing in failures (successes fixed). Zero observations score 0.
func WilsonLowerBound(successes, failures int) float64 {
	n := float64(successes + failures)
	if n == 0 {
		return 0
	}

	phat := float64(successes) / n
	z2 := wilsonZ * wilsonZ

	numerator := phat + z2/(2*n) - wilsonZ*math.Sqrt((phat*(1-phat)+z2/(4*n))/n)
	bound := numerator / (1 + z2/n)

	if bound < 0 {
		return 0
	}
	if bound > 1 {
		return 1
	}
	return bound
}
