package model

import "math"

// logPoissonPMF returns log P(K=k) for a Poisson(lambda) variable,
// using math.Lgamma for log(k!) the way a numerics-heavy Go codebase
// avoids overflowing an explicit factorial (spec.md §4.3 prior-count
// term).
func logPoissonPMF(k int, lambda float64) float64 {
	if lambda <= 0 {
		if k == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	logFactorial, _ := math.Lgamma(float64(k) + 1)
	return float64(k)*math.Log(lambda) - lambda - logFactorial
}

// expClamped is math.Exp guarded against overflow for large positive
// x, which accept() never actually needs (logAlpha>=0 short-circuits
// first) but keeps the call total regardless of caller discipline.
func expClamped(x float64) float64 {
	if x > 0 {
		return 1
	}
	return math.Exp(x)
}
