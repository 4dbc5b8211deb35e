// Package curvefit fits the curves an autofocus routine needs: a focus
// curve through (focuser position, star size) samples, and an elliptical
// Gaussian through the pixels of a single star.
//
// Four curve types are supported:
//
//	quadratic  y = p0 + p1*x + p2*x^2, linear least squares
//	hyperbola  y = b*sqrt(1 + ((x-c)/a)^2) + d
//	parabola   y = a + b*(x-c)^2
//	gaussian   z = b + a*exp(-(A(x-x0)^2 + 2B(x-x0)(y-y0) + C(y-y0)^2))
//
// The non-linear models are solved with Levenberg-Marquardt using geodesic
// acceleration. A FittingGoal selects the tolerances and iteration budget;
// failed or degenerate solves are retried from perturbed starting points
// and, for GoalBest, once more with an SVD-based solver.
//
// A CurveFitter keeps the last accepted solution and
// uses it as the starting point of the next fit. Its whole state can be
// written with Serialize and restored with NewCurveFitterFromString, so a
// focus run can resume in another process.
//
// Numeric failures inside a solve, such as non-finite residuals or a
// factorisation panic, end that attempt as a failed fit. Outside a solve
// the process-wide NumericPolicy applies: PolicyAbort panics and
// PolicyReport returns an ErrNumerical status.
package curvefit
