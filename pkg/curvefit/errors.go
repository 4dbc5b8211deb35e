package curvefit

import "errors"

var (
	ErrLengthMismatch     = errors.New("curvefit: input slices differ in length")
	ErrUnsupportedCurve   = errors.New("curvefit: unsupported curve type")
	ErrTooFewPoints       = errors.New("curvefit: not enough points for the curve parameters")
	ErrMaxIterations      = errors.New("curvefit: iteration limit reached without convergence")
	ErrSingular           = errors.New("curvefit: singular or ill-conditioned system")
	ErrNoProgress         = errors.New("curvefit: no progress possible")
	ErrNumerical          = errors.New("curvefit: numerical failure")
	ErrInvalidGuess       = errors.New("curvefit: initial guess is not finite")
	ErrInvalidCoefficient = errors.New("curvefit: coefficient vector does not match curve type")
)

// firstStepError marks an ErrNoProgress raised before any step was accepted,
// which happens when the Jacobian is degenerate at the starting point.
type firstStepError struct {
	err error
}

func (e *firstStepError) Error() string { return e.err.Error() + " on first step" }
func (e *firstStepError) Unwrap() error { return e.err }

// isFirstStepStall reports whether err is a no-progress failure on the very
// first solver step.
func isFirstStepStall(err error) bool {
	var fs *firstStepError
	return errors.As(err, &fs) && errors.Is(fs.err, ErrNoProgress)
}
