package curvefit

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolynomialEval(t *testing.T) {
	t.Parallel()
	p := Polynomial{1, -2, 3}
	assert.Equal(t, 2, p.Degree())
	assert.Equal(t, 1.0, p.Eval(0))
	assert.Equal(t, 2.0, p.Eval(1))
	assert.Equal(t, 9.0, p.Eval(2))
	assert.Equal(t, 0.0, Polynomial(nil).Eval(4))
}

func TestPolynomialFitRecovery(t *testing.T) {
	t.Parallel()
	truth := Polynomial{4, -1.5, 0.25, 0.01}
	var xs, ys []float64
	for x := -5.0; x <= 5; x += 0.5 {
		xs = append(xs, x)
		ys = append(ys, truth.Eval(x))
	}

	for _, degree := range []int{2, 3, 4} {
		p, err := PolynomialFit(xs, ys, nil, degree)
		require.NoError(t, err)
		require.Len(t, p, degree+1)
		if degree >= 3 {
			for j, want := range truth {
				assert.InDelta(t, want, p[j], 1e-6, "degree %d coefficient %d", degree, j)
			}
		}
	}
}

func TestPolynomialFitWeights(t *testing.T) {
	t.Parallel()
	xs := []float64{0, 1, 2, 3}
	ys := []float64{0, 1, 4, 100}

	unweighted, err := PolynomialFit(xs, ys, nil, 2)
	require.NoError(t, err)
	weighted, err := PolynomialFit(xs, ys, []float64{1, 1, 1, 0}, 2)
	require.NoError(t, err)

	assert.InDelta(t, 0, weighted[0], 1e-9)
	assert.InDelta(t, 0, weighted[1], 1e-9)
	assert.InDelta(t, 1, weighted[2], 1e-9)
	assert.NotEqual(t, unweighted, weighted)
}

func TestPolynomialFitErrors(t *testing.T) {
	t.Parallel()
	_, err := PolynomialFit([]float64{1, 2}, []float64{1}, nil, 1)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = PolynomialFit([]float64{1, 2}, []float64{1, 2}, nil, 2)
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = PolynomialFit([]float64{1, 2}, []float64{1, 2}, nil, -1)
	assert.Error(t, err)
}

func TestPolynomialFitFallsBackToQR(t *testing.T) {
	t.Parallel()
	// Repeated x makes the normal matrix singular; QR still returns a
	// least-squares answer or reports ErrSingular, but never panics.
	xs := []float64{2, 2, 2, 2}
	ys := []float64{1, 2, 3, 4}
	err := runGuarded(func() error {
		_, err := PolynomialFit(xs, ys, nil, 2)
		return err
	})
	if err != nil {
		assert.True(t, errors.Is(err, ErrSingular) || errors.Is(err, ErrNumerical), err.Error())
	}
}

func TestGoldenSectionMinimize(t *testing.T) {
	t.Parallel()
	f := func(x float64) float64 { return (x-1.7)*(x-1.7) + 3 }

	x, err := goldenSectionMinimize(f, 1, -10, 10, minimizerTolerance, minimizerMaxIterations)
	require.NoError(t, err)
	assert.InDelta(t, 1.7, x, minimizerTolerance)

	cosMin, err := goldenSectionMinimize(math.Cos, 3, 2, 4.5, 1e-8, 200)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi, cosMin, 1e-6)
}

func TestGoldenSectionNeedsBracket(t *testing.T) {
	t.Parallel()
	f := func(x float64) float64 { return (x - 1.7) * (x - 1.7) }

	tests := map[string][3]float64{
		"seed above right end": {8, -10, 3},
		"seed on edge":         {-10, -10, 10},
		"seed outside":         {20, -10, 10},
		"empty interval":       {1, 5, 5},
		"monotone":             {4, 3, 10},
	}
	for name, c := range tests {
		_, err := goldenSectionMinimize(f, c[0], c[1], c[2], minimizerTolerance, minimizerMaxIterations)
		assert.ErrorIs(t, err, ErrNoBracket, name)
	}
}

func TestPolynomialExtremum(t *testing.T) {
	t.Parallel()
	up := Polynomial{10, -6, 1}
	ext, err := polynomialExtremum(up, 2, 0, 6, Minimise)
	require.NoError(t, err)
	assert.InDelta(t, 3, ext.Position, minimizerTolerance)

	down := Polynomial{-10, 6, -1}
	ext, err = polynomialExtremum(down, 3.5, 0, 6, Maximise)
	require.NoError(t, err)
	assert.InDelta(t, 3, ext.Position, minimizerTolerance)
	assert.InDelta(t, -1, ext.Value, 1e-6)

	_, err = polynomialExtremum(down, 3.5, 0, 6, Minimise)
	assert.ErrorIs(t, err, ErrNoBracket)

	_, err = polynomialExtremum(Polynomial{1, 2}, 3, 0, 6, Minimise)
	assert.ErrorIs(t, err, ErrInvalidCoefficient)
}
