package curvefit

import "math"

// Observation is one point seen by the solver. One-dimensional models ignore
// Y; Value is the measured quantity the model is fitted to.
type Observation struct {
	X, Y   float64
	Value  float64
	Weight float64
}

// CurveModel is a parametric model with hand-derived first and second
// derivatives. Implementations are stateless.
type CurveModel interface {
	Type() CurveType
	NumParams() int
	// Eval returns the model value at (x, y).
	Eval(x, y float64, p []float64) float64
	// Residual returns f(obs) - obs.Value.
	Residual(obs Observation, p []float64) float64
	// JacobianRow fills row with df/dp_i at obs.
	JacobianRow(obs Observation, p, row []float64)
	// Curvature returns the second directional derivative v'·H·v of f at obs,
	// used by the geodesic acceleration step.
	Curvature(obs Observation, p, v []float64) float64
}

// ModelFor returns the nonlinear model for t. The quadratic polynomial has no
// iterative model and yields false.
func ModelFor(t CurveType) (CurveModel, bool) {
	switch t {
	case CurveHyperbola:
		return Hyperbola{}, true
	case CurveParabola:
		return Parabola{}, true
	case CurveGaussian:
		return Gaussian{}, true
	default:
		return nil, false
	}
}

func observations1D(d DataSet1D, useWeights bool) []Observation {
	obs := make([]Observation, len(d))
	for i, s := range d {
		w := 1.0
		if useWeights {
			w = s.Weight
		}
		obs[i] = Observation{X: s.X, Value: s.Y, Weight: w}
	}
	return obs
}

func observations3D(d DataSet3D, useWeights bool) []Observation {
	obs := make([]Observation, len(d))
	for i, s := range d {
		w := 1.0
		if useWeights {
			w = s.Weight
		}
		obs[i] = Observation{X: s.X, Y: s.Y, Value: s.Z, Weight: w}
	}
	return obs
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
