package curvefit

import "fmt"

// vertexExtremum reads the vertex straight off hyperbola or parabola
// coefficients and checks it is a usable focus position.
func vertexExtremum(t CurveType, p []float64, minPos, maxPos float64, dir OptimisationDirection) (Extremum, error) {
	if !ValidCoefficients(t, p) {
		return Extremum{}, fmt.Errorf("%w: %d coefficients for %s", ErrInvalidCoefficient, len(p), t)
	}

	var position, value, b float64
	switch t {
	case CurveHyperbola:
		position, value, b = p[2], p[1]+p[3], p[1]
	case CurveParabola:
		position, value, b = p[2], p[0], p[1]
	default:
		return Extremum{}, fmt.Errorf("%w: %s has no closed-form vertex", ErrUnsupportedCurve, t)
	}

	if position < minPos || position > maxPos {
		return Extremum{}, fmt.Errorf("vertex %g outside focuser range [%g, %g]", position, minPos, maxPos)
	}
	if value <= 0 {
		return Extremum{}, fmt.Errorf("vertex value %g is not positive", value)
	}
	if dir == Minimise && b <= 0 {
		return Extremum{}, fmt.Errorf("curve opens downwards (b=%g) but a minimum was requested", b)
	}
	if dir == Maximise && b >= 0 {
		return Extremum{}, fmt.Errorf("curve opens upwards (b=%g) but a maximum was requested", b)
	}
	return Extremum{Position: position, Value: value}, nil
}

// polynomialExtremum searches the quadratic numerically inside the range.
func polynomialExtremum(p []float64, expected, minPos, maxPos float64, dir OptimisationDirection) (Extremum, error) {
	if !ValidCoefficients(CurveQuadratic, p) {
		return Extremum{}, fmt.Errorf("%w: %d coefficients for %s", ErrInvalidCoefficient, len(p), CurveQuadratic)
	}
	poly := Polynomial(p)
	if dir == Maximise {
		return poly.MaximumInRange(expected, minPos, maxPos)
	}
	return poly.MinimumInRange(expected, minPos, maxPos)
}
