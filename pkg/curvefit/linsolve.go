package curvefit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// linearSolver solves the damped least-squares subproblem
//
//	min_x |J x + r|^2 + mu |D x|^2
//
// for several right-hand sides r once J, D and mu are fixed.
type linearSolver interface {
	factor(jac *mat.Dense, diag []float64, mu float64) error
	solve(rhs []float64, dst []float64) error
	name() string
}

// choleskySolver factors the normal matrix J'J + mu D'D.
type choleskySolver struct {
	jac  *mat.Dense
	chol mat.Cholesky
	jtr  *mat.VecDense
	out  *mat.VecDense
}

func (s *choleskySolver) name() string { return "cholesky" }

func (s *choleskySolver) factor(jac *mat.Dense, diag []float64, mu float64) error {
	_, p := jac.Dims()
	var normal mat.SymDense
	normal.SymOuterK(1, jac.T())
	for j := 0; j < p; j++ {
		normal.SetSym(j, j, normal.At(j, j)+mu*diag[j]*diag[j])
	}
	if ok := s.chol.Factorize(&normal); !ok {
		return fmt.Errorf("%w: normal matrix is not positive definite", ErrSingular)
	}
	s.jac = jac
	s.jtr = mat.NewVecDense(p, nil)
	s.out = mat.NewVecDense(p, nil)
	return nil
}

func (s *choleskySolver) solve(rhs []float64, dst []float64) error {
	s.jtr.MulVec(s.jac.T(), mat.NewVecDense(len(rhs), rhs))
	s.jtr.ScaleVec(-1, s.jtr)
	if err := s.chol.SolveVecTo(s.out, s.jtr); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	copy(dst, s.out.RawVector().Data)
	return nil
}

// svdSolver works on the augmented matrix [J; sqrt(mu) D] directly, which
// avoids squaring the condition number. Slower, used on retries.
type svdSolver struct {
	svd  mat.SVD
	rank int
	rows int
	p    int
	out  *mat.VecDense
}

// svdRcond drops singular values this far below the largest one.
const svdRcond = 1e-12

func (s *svdSolver) name() string { return "svd" }

func (s *svdSolver) factor(jac *mat.Dense, diag []float64, mu float64) error {
	n, p := jac.Dims()
	aug := mat.NewDense(n+p, p, nil)
	aug.Slice(0, n, 0, p).(*mat.Dense).Copy(jac)
	sqrtMu := math.Sqrt(mu)
	for j := 0; j < p; j++ {
		aug.Set(n+j, j, sqrtMu*diag[j])
	}
	if ok := s.svd.Factorize(aug, mat.SVDThin); !ok {
		return fmt.Errorf("%w: SVD did not converge", ErrSingular)
	}
	s.rank = s.svd.Rank(svdRcond)
	if s.rank == 0 {
		return fmt.Errorf("%w: augmented matrix has rank 0", ErrSingular)
	}
	s.rows = n + p
	s.p = p
	s.out = mat.NewVecDense(p, nil)
	return nil
}

func (s *svdSolver) solve(rhs []float64, dst []float64) error {
	b := mat.NewVecDense(s.rows, nil)
	for i, r := range rhs {
		b.SetVec(i, -r)
	}
	s.svd.SolveVecTo(s.out, b, s.rank)
	copy(dst, s.out.RawVector().Data)
	return nil
}
