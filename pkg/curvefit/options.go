package curvefit

import "log/slog"

// Option configures a CurveFitter.
type Option func(*CurveFitter)

// WithLogger routes diagnostics to l instead of the package default.
func WithLogger(l *slog.Logger) Option {
	return func(f *CurveFitter) {
		if l != nil {
			f.log = l
		}
	}
}

// WithSolverConfig replaces the solver tuning. An invalid config is ignored
// and logged.
func WithSolverConfig(c SolverConfig) Option {
	return func(f *CurveFitter) {
		if err := c.Validate(); err != nil {
			f.log.Warn("ignoring invalid solver config", "err", err)
			return
		}
		f.cfg = c
	}
}
