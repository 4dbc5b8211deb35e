package curvefit

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// rSquared computes the weighted coefficient of determination for values
// and their fitted estimates. Weights may be nil. The result is clamped
// below at 0; degenerate input reports 0.
func rSquared(values, estimates, weights []float64) float64 {
	if len(values) == 0 || len(values) != len(estimates) || (weights != nil && len(weights) != len(values)) {
		return 0
	}
	if weights != nil {
		// Negative weights have no meaning for inverse variances.
		clean := make([]float64, len(weights))
		wsum := 0.0
		for i, w := range weights {
			clean[i] = math.Max(w, 0)
			wsum += clean[i]
		}
		if !(wsum > 0) {
			return 0
		}
		weights = clean
	}
	mean := stat.Mean(values, weights)

	rss, tss := 0.0, 0.0
	for i, y := range values {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		res := y - estimates[i]
		disp := y - mean
		rss += w * res * res
		tss += w * disp * disp
	}
	if !(tss > 0) || math.IsNaN(rss) || math.IsInf(rss, 0) || math.IsInf(tss, 0) {
		return 0
	}
	return math.Max(0, 1-rss/tss)
}
