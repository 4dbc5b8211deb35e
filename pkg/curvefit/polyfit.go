package curvefit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// quadraticDegree is the degree used for CurveQuadratic.
const quadraticDegree = 2

// Polynomial holds coefficients in ascending powers: c0 + c1 x + c2 x^2 ...
type Polynomial []float64

// Eval uses Horner's rule.
func (p Polynomial) Eval(x float64) float64 {
	v := 0.0
	for i := len(p) - 1; i >= 0; i-- {
		v = v*x + p[i]
	}
	return v
}

// Degree returns len(p)-1.
func (p Polynomial) Degree() int { return len(p) - 1 }

// PolynomialFit solves the weighted linear least-squares problem for a
// polynomial of the given degree. weights may be nil for an unweighted fit.
func PolynomialFit(xs, ys, weights []float64, degree int) (Polynomial, error) {
	if degree < 0 {
		return nil, fmt.Errorf("polynomial degree must be >= 0, got %d", degree)
	}
	if len(xs) != len(ys) || (weights != nil && len(weights) != len(xs)) {
		return nil, ErrLengthMismatch
	}
	cols := degree + 1
	if len(xs) < cols {
		return nil, fmt.Errorf("%w: %d points for degree %d", ErrTooFewPoints, len(xs), degree)
	}

	// Weighted Vandermonde matrix and right-hand side.
	design := mat.NewDense(len(xs), cols, nil)
	rhs := mat.NewVecDense(len(xs), nil)
	for i, x := range xs {
		sw := 1.0
		if weights != nil {
			sw = math.Sqrt(math.Max(weights[i], 0))
		}
		for j, pw := 0, 1.0; j < cols; j, pw = j+1, pw*x {
			design.Set(i, j, sw*pw)
		}
		rhs.SetVec(i, sw*ys[i])
	}

	coeffs := mat.NewVecDense(cols, nil)
	if err := solveNormalEquations(design, rhs, coeffs); err != nil {
		var qr mat.QR
		qr.Factorize(design)
		if err := qr.SolveVecTo(coeffs, false, rhs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}
	}
	out := make(Polynomial, cols)
	copy(out, coeffs.RawVector().Data)
	if !allFinite(out) {
		return nil, fmt.Errorf("%w: polynomial coefficients not finite", ErrNumerical)
	}
	return out, nil
}

// solveNormalEquations solves (X'X) c = X'y by Cholesky.
func solveNormalEquations(design *mat.Dense, rhs, dst *mat.VecDense) error {
	_, cols := design.Dims()
	var normal mat.SymDense
	normal.SymOuterK(1, design.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&normal); !ok {
		return ErrSingular
	}
	xty := mat.NewVecDense(cols, nil)
	xty.MulVec(design.T(), rhs)
	return chol.SolveVecTo(dst, xty)
}

// MinimumInRange locates the minimum of p inside [lo, hi], seeded at
// expected. It fails when expected does not bracket a minimum.
func (p Polynomial) MinimumInRange(expected, lo, hi float64) (Extremum, error) {
	x, err := goldenSectionMinimize(p.Eval, expected, lo, hi, minimizerTolerance, minimizerMaxIterations)
	if err != nil {
		return Extremum{}, err
	}
	return Extremum{Position: x, Value: p.Eval(x)}, nil
}

// MaximumInRange is MinimumInRange on -p.
func (p Polynomial) MaximumInRange(expected, lo, hi float64) (Extremum, error) {
	neg := func(x float64) float64 { return -p.Eval(x) }
	x, err := goldenSectionMinimize(neg, expected, lo, hi, minimizerTolerance, minimizerMaxIterations)
	if err != nil {
		return Extremum{}, err
	}
	return Extremum{Position: x, Value: p.Eval(x)}, nil
}
