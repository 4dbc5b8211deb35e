package curvefit

import (
	"fmt"
	"sync"
)

// NumericPolicy decides what happens when numeric code hits a failure such
// as non-finite residuals or a gonum factorisation panic.
type NumericPolicy int

const (
	// PolicyAbort lets the failure panic. This is the process default.
	PolicyAbort NumericPolicy = iota
	// PolicyReport turns the failure into an ErrNumerical status.
	PolicyReport
)

func (p NumericPolicy) String() string {
	if p == PolicyReport {
		return "report"
	}
	return "abort"
}

var numericPolicy = struct {
	mu     sync.Mutex
	base   NumericPolicy
	active int
}{base: PolicyAbort}

// SetNumericPolicy sets the policy in force outside of any solve and returns
// the previous one.
func SetNumericPolicy(p NumericPolicy) NumericPolicy {
	numericPolicy.mu.Lock()
	defer numericPolicy.mu.Unlock()
	prev := numericPolicy.base
	numericPolicy.base = p
	return prev
}

// CurrentNumericPolicy returns the policy in force right now.
func CurrentNumericPolicy() NumericPolicy {
	numericPolicy.mu.Lock()
	defer numericPolicy.mu.Unlock()
	if numericPolicy.active > 0 {
		return PolicyReport
	}
	return numericPolicy.base
}

// numericGuard holds the report policy for the lifetime of one solve. Guards
// nest: the previous policy comes back when the last guard is released.
type numericGuard struct {
	once sync.Once
}

func acquireNumericGuard() *numericGuard {
	numericPolicy.mu.Lock()
	numericPolicy.active++
	numericPolicy.mu.Unlock()
	return &numericGuard{}
}

func (g *numericGuard) release() {
	g.once.Do(func() {
		numericPolicy.mu.Lock()
		numericPolicy.active--
		numericPolicy.mu.Unlock()
	})
}

// runGuarded runs fn under the report policy. A panic inside fn becomes an
// ErrNumerical error; the guard is released on every path.
func runGuarded(fn func() error) (err error) {
	guard := acquireNumericGuard()
	defer guard.release()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrNumerical, r)
		}
	}()
	return fn()
}

// numericFault reports a numeric failure according to the current policy.
func numericFault(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrNumerical, fmt.Sprintf(format, args...))
	if CurrentNumericPolicy() == PolicyAbort {
		panic(err)
	}
	return err
}
