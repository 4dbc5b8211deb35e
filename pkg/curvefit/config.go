package curvefit

import (
	"fmt"
	"math"
)

// SolverConfig holds the solver tuning. The zero value is not usable; start
// from DefaultSolverConfig.
type SolverConfig struct {
	// StandardTol is xtol and ftol for GoalStandard and GoalBestRetry.
	StandardTol float64
	// GradientTol is gtol for GoalStandard and GoalBestRetry.
	GradientTol float64
	// BestTolFactor divides all three tolerances for GoalBest.
	BestTolFactor float64
	// StandardMaxIterations bounds one GoalStandard solve.
	StandardMaxIterations int
	// BestMaxIterations bounds one GoalBest or GoalBestRetry solve.
	BestMaxIterations int
	// MaxAccelRatio is the largest accepted |acceleration|/|velocity|.
	MaxAccelRatio float64
	// RetryAccelRatio replaces MaxAccelRatio on GoalBestRetry.
	RetryAccelRatio float64
	// MaxAttempts bounds the retry loop in Fit.
	MaxAttempts int
}

// DefaultSolverConfig returns the stock tuning.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		StandardTol:           1e-5,
		GradientTol:           math.Cbrt(epsilon),
		BestTolFactor:         10,
		StandardMaxIterations: 500,
		BestMaxIterations:     1000,
		MaxAccelRatio:         0.75,
		RetryAccelRatio:       0.5,
		MaxAttempts:           5,
	}
}

// epsilon is the float64 machine epsilon.
const epsilon = 2.220446049250313e-16

// Validate checks the ranges the solver relies on.
func (c SolverConfig) Validate() error {
	if c.StandardTol <= 0 || c.GradientTol <= 0 {
		return fmt.Errorf("tolerances must be positive, got xtol=%g gtol=%g", c.StandardTol, c.GradientTol)
	}
	if c.BestTolFactor < 1 {
		return fmt.Errorf("best tolerance factor must be >= 1, got %g", c.BestTolFactor)
	}
	if c.StandardMaxIterations <= 0 || c.BestMaxIterations <= 0 {
		return fmt.Errorf("iteration limits must be positive, got %d/%d", c.StandardMaxIterations, c.BestMaxIterations)
	}
	if c.MaxAccelRatio <= 0 || c.RetryAccelRatio <= 0 {
		return fmt.Errorf("acceleration ratios must be positive, got %g/%g", c.MaxAccelRatio, c.RetryAccelRatio)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got %d", c.MaxAttempts)
	}
	return nil
}

// solverParams is the resolved tuning for a single solve.
type solverParams struct {
	xtol, gtol, ftol float64
	maxIter          int
	avmax            float64
	newSolver        func() linearSolver
}

func (c SolverConfig) paramsFor(goal FittingGoal) solverParams {
	p := solverParams{
		xtol:      c.StandardTol,
		gtol:      c.GradientTol,
		ftol:      c.StandardTol,
		maxIter:   c.StandardMaxIterations,
		avmax:     c.MaxAccelRatio,
		newSolver: func() linearSolver { return &choleskySolver{} },
	}
	switch goal {
	case GoalBest:
		p.xtol /= c.BestTolFactor
		p.gtol /= c.BestTolFactor
		p.ftol /= c.BestTolFactor
		p.maxIter = c.BestMaxIterations
	case GoalBestRetry:
		p.maxIter = c.BestMaxIterations
		p.avmax = c.RetryAccelRatio
		p.newSolver = func() linearSolver { return &svdSolver{} }
	}
	return p
}
