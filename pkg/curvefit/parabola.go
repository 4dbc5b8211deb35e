package curvefit

const parabolaParams = 3

// Parabola is f(x) = a + b*(x-c)^2 with p = {a, b, c}; the vertex is (c, a).
type Parabola struct{}

func (Parabola) Type() CurveType { return CurveParabola }
func (Parabola) NumParams() int  { return parabolaParams }

func (Parabola) Eval(x, _ float64, p []float64) float64 {
	dx := x - p[2]
	return p[0] + p[1]*dx*dx
}

func (pb Parabola) Residual(obs Observation, p []float64) float64 {
	return pb.Eval(obs.X, 0, p) - obs.Value
}

func (Parabola) JacobianRow(obs Observation, p, row []float64) {
	dx := obs.X - p[2]
	row[0] = 1
	row[1] = dx * dx
	row[2] = -2 * p[1] * dx
}

// Curvature: the only non-zero second derivatives are
// d2f/dbdc = -2(x-c) and d2f/dc2 = 2b.
func (Parabola) Curvature(obs Observation, p, v []float64) float64 {
	dx := obs.X - p[2]
	vb, vc := v[1], v[2]
	return -4*vb*vc*dx + 2*p[1]*vc*vc
}
