package curvefit

import (
	"errors"
	"fmt"
	"math"
)

const (
	// minimizerTolerance is the absolute bracket width at which the 1-D
	// minimizer stops.
	minimizerTolerance     = 1e-3
	minimizerMaxIterations = 100
)

// ErrNoBracket is returned when the seed does not lie below both ends of
// the search interval.
var ErrNoBracket = errors.New("curvefit: seed does not bracket a minimum")

var invPhi = (math.Sqrt(5) - 1) / 2

// goldenSectionMinimize narrows [lo, hi] around a minimum of f. The seed
// must satisfy f(seed) < f(lo) and f(seed) < f(hi), which guarantees an
// interior minimum. Iteration stops when the bracket is narrower than tol or
// after maxIter rounds.
func goldenSectionMinimize(f func(float64) float64, seed, lo, hi, tol float64, maxIter int) (float64, error) {
	if !(lo < hi) {
		return 0, fmt.Errorf("%w: empty interval [%g, %g]", ErrNoBracket, lo, hi)
	}
	if seed <= lo || seed >= hi {
		return 0, fmt.Errorf("%w: seed %g outside (%g, %g)", ErrNoBracket, seed, lo, hi)
	}
	fs, flo, fhi := f(seed), f(lo), f(hi)
	if !(fs < flo && fs < fhi) {
		return 0, fmt.Errorf("%w: f(%g)=%g, f(%g)=%g, f(%g)=%g", ErrNoBracket, seed, fs, lo, flo, hi, fhi)
	}

	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)
	for iter := 0; iter < maxIter && b-a > tol; iter++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}
	x := (a + b) / 2
	if math.IsNaN(x) || math.IsNaN(f(x)) {
		return 0, fmt.Errorf("%w: minimizer produced NaN", ErrNumerical)
	}
	return x, nil
}
