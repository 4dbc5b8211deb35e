package curvefit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// initialMu seeds the damping parameter relative to the scaled normal
	// matrix diagonal.
	initialMu = 1e-3
	// maxRejections is how many trial steps in a row may be refused before
	// the solve gives up with ErrNoProgress.
	maxRejections = 15
	maxMu         = 1e300
)

// lmResult describes a finished solve.
type lmResult struct {
	params     []float64
	iterations int
	reason     string
	cost       float64
}

// lmSolver is a trust-region Levenberg-Marquardt solver with geodesic
// acceleration. One instance handles one solve.
type lmSolver struct {
	model  CurveModel
	obs    []Observation
	sqrtW  []float64
	params solverParams
	ls     linearSolver

	n, p int
	jac  *mat.Dense
	row  []float64
}

func newLMSolver(model CurveModel, obs []Observation, params solverParams) *lmSolver {
	s := &lmSolver{
		model:  model,
		obs:    obs,
		sqrtW:  make([]float64, len(obs)),
		params: params,
		ls:     params.newSolver(),
		n:      len(obs),
		p:      model.NumParams(),
	}
	for i, o := range obs {
		if o.Weight > 0 {
			s.sqrtW[i] = math.Sqrt(o.Weight)
		}
	}
	s.jac = mat.NewDense(s.n, s.p, nil)
	s.row = make([]float64, s.p)
	return s
}

func (s *lmSolver) residuals(x, dst []float64) {
	for i, o := range s.obs {
		dst[i] = s.sqrtW[i] * s.model.Residual(o, x)
	}
}

func (s *lmSolver) jacobian(x []float64) {
	for i, o := range s.obs {
		s.model.JacobianRow(o, x, s.row)
		for j, v := range s.row {
			s.jac.Set(i, j, s.sqrtW[i]*v)
		}
	}
}

func (s *lmSolver) curvature(x, v, dst []float64) {
	for i, o := range s.obs {
		dst[i] = s.sqrtW[i] * s.model.Curvature(o, x, v)
	}
}

// gradient returns J'f.
func (s *lmSolver) gradient(f, dst []float64) {
	g := mat.NewVecDense(s.p, dst)
	g.MulVec(s.jac.T(), mat.NewVecDense(s.n, f))
}

// updateScaling applies More's rule: D_j is the running max of the Jacobian
// column norms, never zero.
func (s *lmSolver) updateScaling(diag []float64) {
	for j := 0; j < s.p; j++ {
		norm := mat.Norm(s.jac.ColView(j), 2)
		if norm > diag[j] {
			diag[j] = norm
		}
		if diag[j] == 0 {
			diag[j] = 1
		}
	}
}

func (s *lmSolver) jacobianFinite() bool {
	return allFinite(s.jac.RawMatrix().Data)
}

// solve runs the iteration from guess. Errors wrap ErrTooFewPoints,
// ErrMaxIterations, ErrSingular, ErrNoProgress or ErrNumerical; a stall
// before the first accepted step is additionally wrapped as a
// firstStepError.
func (s *lmSolver) solve(guess []float64) (lmResult, error) {
	if len(guess) != s.p {
		return lmResult{}, fmt.Errorf("%w: guess has %d values, %s needs %d",
			ErrInvalidCoefficient, len(guess), s.model.Type(), s.p)
	}
	if s.n < s.p {
		return lmResult{}, fmt.Errorf("%w: %d points for %d parameters", ErrTooFewPoints, s.n, s.p)
	}
	if !allFinite(guess) {
		return lmResult{}, ErrInvalidGuess
	}

	x := append([]float64(nil), guess...)
	f := make([]float64, s.n)
	s.residuals(x, f)
	if !allFinite(f) {
		return lmResult{}, numericFault("residuals not finite at initial guess %v", x)
	}
	s.jacobian(x)
	if !s.jacobianFinite() {
		return lmResult{}, numericFault("jacobian not finite at initial guess %v", x)
	}

	diag := make([]float64, s.p)
	s.updateScaling(diag)

	g := make([]float64, s.p)
	s.gradient(f, g)
	cost := 0.5 * floats.Dot(f, f)

	if reason, ok := s.converged(nil, x, f, g, cost); ok {
		return lmResult{params: x, reason: reason, cost: cost}, nil
	}

	var (
		mu    = initialMu
		nu    = 2.0
		v     = make([]float64, s.p)
		acc   = make([]float64, s.p)
		dx    = make([]float64, s.p)
		xNew  = make([]float64, s.p)
		fNew  = make([]float64, s.n)
		fvv   = make([]float64, s.n)
		jv    = make([]float64, s.n)
		jvVec = mat.NewVecDense(s.n, jv)
	)

	for iter := 0; iter < s.params.maxIter; iter++ {
		accepted := false
		var lastErr error
		for rejections := 0; !accepted; rejections++ {
			if rejections >= maxRejections || mu > maxMu {
				err := fmt.Errorf("%w after %d rejected steps (mu=%g)", ErrNoProgress, rejections, mu)
				if lastErr != nil && errors.Is(lastErr, ErrSingular) {
					err = fmt.Errorf("%w: %v", err, lastErr)
				}
				if iter == 0 {
					return lmResult{params: x, iterations: iter}, &firstStepError{err: err}
				}
				return lmResult{params: x, iterations: iter}, err
			}

			var costNew float64
			var ok bool
			costNew, ok, lastErr = s.trialStep(x, f, diag, mu, v, acc, dx, xNew, fNew, fvv)
			if ok {
				// Predicted reduction of the velocity step: 1/2 (|Jv|^2 + 2 mu |Dv|^2).
				jvVec.MulVec(s.jac, mat.NewVecDense(s.p, v))
				dv := 0.0
				for j := range v {
					dv += diag[j] * diag[j] * v[j] * v[j]
				}
				pred := 0.5 * (floats.Dot(jv, jv) + 2*mu*dv)
				rho := -1.0
				if pred > 0 {
					rho = (cost - costNew) / pred
				}
				if rho > 0 {
					accepted = true
					t := 2*rho - 1
					mu *= math.Max(1.0/3.0, 1-t*t*t)
					nu = 2
					break
				}
			}
			mu *= nu
			nu *= 2
		}

		copy(x, xNew)
		copy(f, fNew)
		s.jacobian(x)
		if !s.jacobianFinite() {
			return lmResult{params: x, iterations: iter + 1}, numericFault("jacobian not finite at %v", x)
		}
		s.updateScaling(diag)
		s.gradient(f, g)
		cost = 0.5 * floats.Dot(f, f)

		if reason, ok := s.converged(dx, x, f, g, cost); ok {
			return lmResult{params: x, iterations: iter + 1, reason: reason, cost: cost}, nil
		}
	}
	return lmResult{params: x, iterations: s.params.maxIter, cost: cost},
		fmt.Errorf("%w (%d iterations)", ErrMaxIterations, s.params.maxIter)
}

// trialStep computes the accelerated step at damping mu and evaluates the
// cost there. ok is false when the step must be rejected; err carries the
// reason for diagnostics.
func (s *lmSolver) trialStep(x, f, diag []float64, mu float64, v, acc, dx, xNew, fNew, fvv []float64) (float64, bool, error) {
	if err := s.ls.factor(s.jac, diag, mu); err != nil {
		return 0, false, err
	}
	if err := s.ls.solve(f, v); err != nil {
		return 0, false, err
	}
	vNorm := floats.Norm(v, 2)
	if vNorm == 0 || !allFinite(v) {
		return 0, false, fmt.Errorf("%w: zero or non-finite velocity", ErrSingular)
	}

	s.curvature(x, v, fvv)
	if !allFinite(fvv) {
		return 0, false, fmt.Errorf("%w: curvature not finite", ErrNumerical)
	}
	if err := s.ls.solve(fvv, acc); err != nil {
		return 0, false, err
	}
	if floats.Norm(acc, 2)/vNorm > s.params.avmax {
		return 0, false, nil
	}

	for j := range dx {
		dx[j] = v[j] + 0.5*acc[j]
		xNew[j] = x[j] + dx[j]
	}
	s.residuals(xNew, fNew)
	if !allFinite(fNew) {
		return 0, false, fmt.Errorf("%w: residuals not finite at trial point", ErrNumerical)
	}
	return 0.5 * floats.Dot(fNew, fNew), true, nil
}

// converged applies the step, gradient and residual tests. dx is nil before
// the first step.
func (s *lmSolver) converged(dx, x, f, g []float64, cost float64) (string, bool) {
	if dx != nil {
		small := true
		for j := range dx {
			if math.Abs(dx[j]) > s.params.xtol+s.params.xtol*math.Abs(x[j]) {
				small = false
				break
			}
		}
		if small {
			return "step below xtol", true
		}
	}

	gmax := 0.0
	for j := range g {
		if v := math.Abs(g[j] * math.Max(math.Abs(x[j]), 1)); v > gmax {
			gmax = v
		}
	}
	if gmax/math.Max(cost, 1) <= s.params.gtol {
		return "gradient below gtol", true
	}

	if floats.Norm(f, 2) <= s.params.ftol {
		return "residual below ftol", true
	}
	return "", false
}
