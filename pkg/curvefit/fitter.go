package curvefit

import (
	"errors"
	"log/slog"
	"math"

	"autofocus/pkg/logger"
)

// CurveFitter fits focus curves and star profiles and remembers the last
// good solution so the next fit of the same curve can start warm.
//
// A CurveFitter belongs to one focus run and is not safe for concurrent use.
type CurveFitter struct {
	curveType    CurveType
	data         DataSet1D
	data3D       DataSet3D
	useWeights   bool
	coefficients []float64

	// cache is the only state that carries across fits. It is cleared
	// whenever extremum extraction or coefficient validation fails.
	cache *CachedSolution

	cfg SolverConfig
	log *slog.Logger
}

// NewCurveFitter returns an empty fitter.
func NewCurveFitter(opts ...Option) *CurveFitter {
	f := &CurveFitter{
		curveType: CurveHyperbola,
		cfg:       DefaultSolverConfig(),
		log:       logger.Default,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CurveType returns the curve type of the last fit or restored state.
func (f *CurveFitter) CurveType() CurveType { return f.curveType }

// Coefficients returns a copy of the current coefficients, nil when the
// last fit failed.
func (f *CurveFitter) Coefficients() []float64 {
	if f.coefficients == nil {
		return nil
	}
	return append([]float64(nil), f.coefficients...)
}

// Cache returns a copy of the warm-start solution, or nil.
func (f *CurveFitter) Cache() *CachedSolution {
	if f.cache == nil {
		return nil
	}
	return &CachedSolution{
		CurveType:    f.cache.CurveType,
		Coefficients: append([]float64(nil), f.cache.Coefficients...),
	}
}

// Data returns the samples used by the last 1-D fit, outliers removed.
func (f *CurveFitter) Data() DataSet1D {
	return append(DataSet1D(nil), f.data...)
}

// UseWeights reports whether the last fit was weighted.
func (f *CurveFitter) UseWeights() bool { return f.useWeights }

// invalidate drops the warm-start cache so the next fit starts cold.
func (f *CurveFitter) invalidate(reason string, attrs ...any) {
	if f.cache != nil {
		f.log.Debug("clearing cached solution", append([]any{"reason", reason, "curve", f.cache.CurveType}, attrs...)...)
	}
	f.cache = nil
}

// Fit fits curveType to the focus samples and returns the coefficients, or
// nil on failure. Outlier-flagged samples are skipped. Weights are used only
// when useWeights is set.
func (f *CurveFitter) Fit(goal FittingGoal, xs, ys, weights []float64, outliers []bool,
	curveType CurveType, useWeights bool, dir OptimisationDirection) []float64 {
	d, err := NewDataSet1D(xs, ys, weights, outliers)
	if err != nil {
		f.log.Error("fit called with mismatched inputs", "err", err)
		f.coefficients = nil
		return nil
	}
	return f.FitDataSet(goal, d, curveType, useWeights, dir)
}

// FitDataSet is Fit on an already assembled data set.
func (f *CurveFitter) FitDataSet(goal FittingGoal, d DataSet1D, curveType CurveType,
	useWeights bool, dir OptimisationDirection) []float64 {
	f.curveType = curveType
	f.useWeights = useWeights
	f.data = d.Retained()
	f.data3D = nil
	f.coefficients = nil

	if !curveType.Valid() || curveType == CurveGaussian {
		f.log.Error("unsupported curve type for 1-D fit", "curve", curveType)
		return nil
	}
	if len(f.data) < curveType.NumCoefficients() {
		f.log.Debug("not enough points to fit", "curve", curveType, "points", len(f.data),
			"needed", curveType.NumCoefficients())
		return nil
	}

	if curveType == CurveQuadratic {
		return f.fitQuadratic()
	}

	model, _ := ModelFor(curveType)
	obs := observations1D(f.data, useWeights)
	guess := func(attempt int) ([]float64, bool, error) {
		return initialGuess(curveType, f.data, dir, f.cache, attempt)
	}
	return f.accept(curveType, f.solveWithRetries(goal, model, obs, guess))
}

func (f *CurveFitter) fitQuadratic() []float64 {
	xs := make([]float64, len(f.data))
	ys := make([]float64, len(f.data))
	var ws []float64
	if f.useWeights {
		ws = make([]float64, len(f.data))
	}
	for i, s := range f.data {
		xs[i], ys[i] = s.X, s.Y
		if ws != nil {
			ws[i] = s.Weight
		}
	}
	var poly Polynomial
	err := runGuarded(func() error {
		var fitErr error
		poly, fitErr = PolynomialFit(xs, ys, ws, quadraticDegree)
		return fitErr
	})
	if err != nil {
		f.log.Debug("quadratic fit failed", "err", err)
		return nil
	}
	return f.accept(CurveQuadratic, poly)
}

// Fit3D fits the 2-D Gaussian to a star cutout, seeded from the star
// summary. It returns the 7 coefficients or nil.
func (f *CurveFitter) Fit3D(goal FittingGoal, d DataSet3D, star StarParams, useWeights bool) []float64 {
	f.curveType = CurveGaussian
	f.useWeights = useWeights
	f.data = nil
	f.data3D = append(DataSet3D(nil), d...)
	f.coefficients = nil

	if len(d) < gaussianParams {
		f.log.Debug("not enough pixels to fit", "curve", CurveGaussian, "points", len(d))
		return nil
	}
	obs := observations3D(d, useWeights)
	guess := func(attempt int) ([]float64, bool, error) {
		factor := perturbation(attempt)
		if f.cache != nil && f.cache.CurveType == CurveGaussian && ValidCoefficients(CurveGaussian, f.cache.Coefficients) {
			return scaled(f.cache.Coefficients, factor), true, nil
		}
		return scaled(gaussianGuess(star), factor), false, nil
	}
	coeffs := f.solveWithRetries(goal, Gaussian{}, obs, guess)
	if coeffs != nil && !validGaussian(coeffs) {
		f.log.Warn("discarding gaussian solution that fails sign checks", "coefficients", coeffs)
		f.invalidate("invalid gaussian solution")
		return nil
	}
	return f.accept(CurveGaussian, coeffs)
}

// accept validates a solution and records it as current and cached.
func (f *CurveFitter) accept(t CurveType, coeffs []float64) []float64 {
	if coeffs == nil {
		return nil
	}
	if !ValidCoefficients(t, coeffs) || !allFinite(coeffs) {
		f.log.Warn("discarding invalid solution", "curve", t, "coefficients", coeffs)
		f.invalidate("invalid coefficients")
		return nil
	}
	f.coefficients = append([]float64(nil), coeffs...)
	f.cache = &CachedSolution{CurveType: t, Coefficients: append([]float64(nil), coeffs...)}
	return f.Coefficients()
}

// solveWithRetries runs up to MaxAttempts solves. A stall on the very first
// step always retries with the next perturbation; any other failure retries
// once, escalating GoalBest to GoalBestRetry, and otherwise gives up.
func (f *CurveFitter) solveWithRetries(goal FittingGoal, model CurveModel, obs []Observation,
	guess func(attempt int) ([]float64, bool, error)) []float64 {
	if goal == GoalBestRetry {
		goal = GoalBest
	}
	t := model.Type()
	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		start, warm, err := guess(attempt)
		if err != nil {
			f.log.Warn("no initial guess", "curve", t, "err", err)
			return nil
		}

		var res lmResult
		err = runGuarded(func() error {
			var solveErr error
			res, solveErr = newLMSolver(model, obs, f.cfg.paramsFor(goal)).solve(start)
			return solveErr
		})
		if err == nil {
			f.log.Debug("fit converged", "curve", t, "goal", goal, "attempt", attempt, "warm", warm,
				"iterations", res.iterations, "reason", res.reason, "cost", res.cost)
			return res.params
		}

		f.log.Debug("fit attempt failed", "curve", t, "goal", goal, "attempt", attempt, "warm", warm,
			"iterations", res.iterations, "err", err)
		switch {
		case isFirstStepStall(err):
			continue
		case goal == GoalBest:
			goal = GoalBestRetry
			continue
		case errors.Is(err, ErrTooFewPoints), errors.Is(err, ErrInvalidCoefficient):
			f.log.Error("fit rejected", "curve", t, "err", err)
			return nil
		default:
			f.log.Warn("fit failed", "curve", t, "goal", goal, "err", err)
			return nil
		}
	}
	f.log.Warn("fit failed after all attempts", "curve", t, "attempts", f.cfg.MaxAttempts)
	return nil
}

// FindMinMax returns the best-focus position and value of the current fit
// inside [minPosition, maxPosition]. expected seeds the numeric search for
// the quadratic polynomial. A failure clears the warm-start cache.
func (f *CurveFitter) FindMinMax(expected, minPosition, maxPosition float64, curveType CurveType,
	dir OptimisationDirection) (Extremum, bool) {
	if curveType != f.curveType || !ValidCoefficients(curveType, f.coefficients) {
		f.invalidate("no valid solution for curve", "requested", curveType, "fitted", f.curveType)
		return Extremum{}, false
	}

	var (
		ext Extremum
		err error
	)
	switch curveType {
	case CurveQuadratic:
		ext, err = polynomialExtremum(f.coefficients, expected, minPosition, maxPosition, dir)
	case CurveHyperbola, CurveParabola:
		ext, err = vertexExtremum(curveType, f.coefficients, minPosition, maxPosition, dir)
	default:
		f.log.Error("curve has no focus extremum", "curve", curveType)
		return Extremum{}, false
	}
	if err != nil {
		f.log.Debug("extremum rejected", "curve", curveType, "direction", dir, "err", err)
		f.invalidate("invalid extremum")
		return Extremum{}, false
	}
	return ext, true
}

// StarParams converts the current Gaussian solution into star shape
// parameters. A failure clears the warm-start cache.
func (f *CurveFitter) StarParams() (StarParams, bool) {
	if f.curveType != CurveGaussian || !ValidCoefficients(CurveGaussian, f.coefficients) {
		f.log.Error("star parameters requested without a gaussian solution", "curve", f.curveType)
		return StarParams{}, false
	}
	sp, err := gaussianStarParams(f.coefficients)
	if err != nil {
		f.log.Debug("gaussian solution rejected", "err", err)
		f.invalidate("invalid gaussian solution")
		return StarParams{}, false
	}
	return sp, true
}

// Eval evaluates the current 1-D curve at x; NaN without a solution.
func (f *CurveFitter) Eval(x float64) float64 {
	if f.curveType == CurveGaussian {
		return math.NaN()
	}
	return evalCurve(f.curveType, f.coefficients, x, 0)
}

// Eval3D evaluates the current Gaussian at (x, y); NaN without a solution.
func (f *CurveFitter) Eval3D(x, y float64) float64 {
	if f.curveType != CurveGaussian {
		return math.NaN()
	}
	return evalCurve(f.curveType, f.coefficients, x, y)
}

func evalCurve(t CurveType, coeffs []float64, x, y float64) float64 {
	if !ValidCoefficients(t, coeffs) {
		return math.NaN()
	}
	if t == CurveQuadratic {
		return Polynomial(coeffs).Eval(x)
	}
	model, _ := ModelFor(t)
	return model.Eval(x, y, coeffs)
}

// CurveDeltas returns |y - f(x)| for every sample of the last 1-D fit in
// sample order, or nil without a solution.
func (f *CurveFitter) CurveDeltas() []float64 {
	if f.curveType == CurveGaussian || !ValidCoefficients(f.curveType, f.coefficients) {
		return nil
	}
	deltas := make([]float64, len(f.data))
	for i, s := range f.data {
		deltas[i] = math.Abs(s.Y - f.Eval(s.X))
	}
	return deltas
}

// RSquared reports the goodness of the current fit in [0, 1].
func (f *CurveFitter) RSquared() float64 {
	if f.curveType == CurveGaussian {
		return CalculateRSquared3D(f.coefficients, f.data3D, f.useWeights)
	}
	return CalculateRSquared(f.curveType, f.coefficients, f.data, f.useWeights)
}

// CalculateRSquared computes R^2 of a 1-D curve over d. Outlier-flagged
// samples are ignored.
func CalculateRSquared(t CurveType, coeffs []float64, d DataSet1D, useWeights bool) float64 {
	if t == CurveGaussian || !ValidCoefficients(t, coeffs) {
		return 0
	}
	d = d.Retained()
	values := make([]float64, len(d))
	estimates := make([]float64, len(d))
	var weights []float64
	if useWeights {
		weights = make([]float64, len(d))
	}
	for i, s := range d {
		values[i] = s.Y
		estimates[i] = evalCurve(t, coeffs, s.X, 0)
		if weights != nil {
			weights[i] = s.Weight
		}
	}
	return rSquared(values, estimates, weights)
}

// CalculateRSquared3D computes R^2 of a Gaussian solution over d.
func CalculateRSquared3D(coeffs []float64, d DataSet3D, useWeights bool) float64 {
	if !ValidCoefficients(CurveGaussian, coeffs) {
		return 0
	}
	values := make([]float64, len(d))
	estimates := make([]float64, len(d))
	var weights []float64
	if useWeights {
		weights = make([]float64, len(d))
	}
	for i, s := range d {
		values[i] = s.Z
		estimates[i] = Gaussian{}.Eval(s.X, s.Y, coeffs)
		if weights != nil {
			weights[i] = s.Weight
		}
	}
	return rSquared(values, estimates, weights)
}
