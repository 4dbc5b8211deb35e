package curvefit

import "math"

const hyperbolaParams = 4

// Hyperbola is f(x) = b*sqrt(1 + ((x-c)/a)^2) + d with p = {a, b, c, d}.
// The vertex sits at x = c with value b + d.
type Hyperbola struct{}

func (Hyperbola) Type() CurveType { return CurveHyperbola }
func (Hyperbola) NumParams() int  { return hyperbolaParams }

func (Hyperbola) Eval(x, _ float64, p []float64) float64 {
	a, b, c, d := p[0], p[1], p[2], p[3]
	u := (x - c) / a
	return b*math.Sqrt(1+u*u) + d
}

func (h Hyperbola) Residual(obs Observation, p []float64) float64 {
	return h.Eval(obs.X, 0, p) - obs.Value
}

func (Hyperbola) JacobianRow(obs Observation, p, row []float64) {
	a, b, c := p[0], p[1], p[2]
	u := (obs.X - c) / a
	s := math.Sqrt(1 + u*u)

	row[0] = -b * u * u / (a * s)
	row[1] = s
	row[2] = -b * u / (a * s)
	row[3] = 1
}

// Curvature uses u = (x-c)/a, g(u) = sqrt(1+u^2), g' = u/g, g'' = 1/g^3 and
// du/da = -u/a, du/dc = -1/a, d2u/da2 = 2u/a^2, d2u/dadc = 1/a^2.
func (Hyperbola) Curvature(obs Observation, p, v []float64) float64 {
	a, b, c := p[0], p[1], p[2]
	va, vb, vc := v[0], v[1], v[2]
	u := (obs.X - c) / a
	s := math.Sqrt(1 + u*u)
	s3 := s * s * s
	a2 := a * a

	faa := b * u * u / a2 * (1/s3 + 2/s)
	fac := b * u / a2 * (1/s3 + 1/s)
	fcc := b / (a2 * s3)
	fab := -u * u / (a * s)
	fbc := -u / (a * s)

	return va*va*faa + 2*va*vc*fac + vc*vc*fcc + 2*va*vb*fab + 2*vb*vc*fbc
}
