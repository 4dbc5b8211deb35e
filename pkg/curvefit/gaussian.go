package curvefit

import (
	"fmt"
	"math"
)

const gaussianParams = 7

// Gaussian coefficient indices.
const (
	gaussPeak = iota
	gaussX0
	gaussY0
	gaussA
	gaussB
	gaussC
	gaussBackground
)

// Gaussian is the elliptical 2-D profile
//
//	f(x,y) = b + a*exp(-(A(x-x0)^2 + 2B(x-x0)(y-y0) + C(y-y0)^2))
//
// with p = {a, x0, y0, A, B, C, b}.
type Gaussian struct{}

func (Gaussian) Type() CurveType { return CurveGaussian }
func (Gaussian) NumParams() int  { return gaussianParams }

func gaussExponent(x, y float64, p []float64) (dx, dy, e float64) {
	dx = x - p[gaussX0]
	dy = y - p[gaussY0]
	e = p[gaussA]*dx*dx + 2*p[gaussB]*dx*dy + p[gaussC]*dy*dy
	return dx, dy, e
}

func (Gaussian) Eval(x, y float64, p []float64) float64 {
	_, _, e := gaussExponent(x, y, p)
	return p[gaussBackground] + p[gaussPeak]*math.Exp(-e)
}

func (g Gaussian) Residual(obs Observation, p []float64) float64 {
	return g.Eval(obs.X, obs.Y, p) - obs.Value
}

func (Gaussian) JacobianRow(obs Observation, p, row []float64) {
	dx, dy, e := gaussExponent(obs.X, obs.Y, p)
	a := p[gaussPeak]
	A, B, C := p[gaussA], p[gaussB], p[gaussC]
	ex := math.Exp(-e)
	aex := a * ex

	row[gaussPeak] = ex
	row[gaussX0] = aex * (2*A*dx + 2*B*dy)
	row[gaussY0] = aex * (2*B*dx + 2*C*dy)
	row[gaussA] = -aex * dx * dx
	row[gaussB] = -2 * aex * dx * dy
	row[gaussC] = -aex * dy * dy
	row[gaussBackground] = 1
}

// Curvature expands D2(a*exp(-E))[v,v] = -2*va*e*Ev + a*e*(Ev^2 - Evv), where
// Ev and Evv are the first and second directional derivatives of the
// exponent E along v. The background term is linear and drops out.
func (Gaussian) Curvature(obs Observation, p, v []float64) float64 {
	dx, dy, e := gaussExponent(obs.X, obs.Y, p)
	a := p[gaussPeak]
	A, B, C := p[gaussA], p[gaussB], p[gaussC]
	ex := math.Exp(-e)

	va := v[gaussPeak]
	vx, vy := v[gaussX0], v[gaussY0]
	vA, vB, vC := v[gaussA], v[gaussB], v[gaussC]

	ev := -2*(A*dx+B*dy)*vx - 2*(B*dx+C*dy)*vy + dx*dx*vA + 2*dx*dy*vB + dy*dy*vC
	evv := 2*A*vx*vx + 4*B*vx*vy + 2*C*vy*vy -
		4*dx*vx*vA - 4*dy*vx*vB - 4*dx*vy*vB - 4*dy*vy*vC

	return -2*va*ex*ev + a*ex*(ev*ev-evv)
}

// validGaussian applies the post-fit sanity rules: positive peak, background
// and centroid.
func validGaussian(p []float64) bool {
	return len(p) == gaussianParams &&
		p[gaussPeak] > 0 && p[gaussBackground] > 0 &&
		p[gaussX0] > 0 && p[gaussY0] > 0
}

// thetaEpsilon decides when A and C are equal enough that the profile is
// treated as unrotated.
const thetaEpsilon = 1e-10

// gaussianStarParams converts fitted coefficients to star shape parameters.
func gaussianStarParams(p []float64) (StarParams, error) {
	if !validGaussian(p) {
		return StarParams{}, fmt.Errorf("%w: gaussian solution fails sign checks", ErrInvalidCoefficient)
	}
	A, B, C := p[gaussA], p[gaussB], p[gaussC]

	theta := 0.0
	if math.Abs(A-C) > thetaEpsilon {
		theta = 0.5 * math.Atan(2*B/(A-C))
	}
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	cos2, sin2, cs := cosT*cosT, sinT*sinT, cosT*sinT

	sigmaX2 := 0.5 / (A*cos2 + 2*B*cs + C*sin2)
	sigmaY2 := 0.5 / (A*sin2 - 2*B*cs + C*cos2)

	fwhmX := 2 * math.Sqrt(2*math.Ln2*sigmaX2)
	fwhmY := 2 * math.Sqrt(2*math.Ln2*sigmaY2)
	if math.IsNaN(fwhmX) || math.IsNaN(fwhmY) || math.IsInf(fwhmX, 0) || math.IsInf(fwhmY, 0) || fwhmX < 0 || fwhmY < 0 {
		return StarParams{}, fmt.Errorf("%w: FWHM from sigma^2 (%g, %g)", ErrNumerical, sigmaX2, sigmaY2)
	}

	return StarParams{
		Background: p[gaussBackground],
		Peak:       p[gaussPeak],
		CentroidX:  p[gaussX0],
		CentroidY:  p[gaussY0],
		Theta:      theta,
		FWHMx:      fwhmX,
		FWHMy:      fwhmY,
		FWHM:       (fwhmX + fwhmY) / 2,
	}, nil
}
