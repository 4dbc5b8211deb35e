package curvefit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerturbationSequence(t *testing.T) {
	t.Parallel()
	want := []float64{1, 0.9, 1.2, 0.7, 1.4}
	for k, w := range want {
		assert.InDelta(t, w, perturbation(k), 1e-12, "attempt %d", k)
	}
}

func TestHyperbolaGuess(t *testing.T) {
	t.Parallel()
	d := DataSet1D{{X: 10, Y: 9}, {X: 20, Y: 4}, {X: 30, Y: 2}, {X: 40, Y: 4}, {X: 50, Y: 9}}

	g := hyperbolaGuess(d, Minimise)
	r := (2*9.0 - 2) / 2
	assert.InDelta(t, (10-30)/math.Sqrt(r*r-1), g[0], 1e-12)
	assert.Equal(t, 1.0, g[1])
	assert.Equal(t, 30.0, g[2])
	assert.Equal(t, 1.0, g[3])

	g = hyperbolaGuess(d, Maximise)
	r = (2*9.0 - 2) / 9
	assert.InDelta(t, (30-10)/math.Sqrt(r*r-1), g[0], 1e-12)
	assert.Equal(t, -9.0, g[1])
	assert.Equal(t, 10.0, g[2])
	assert.Equal(t, 18.0, g[3])
}

func TestHyperbolaGuessDegenerate(t *testing.T) {
	t.Parallel()
	flat := DataSet1D{{X: 10, Y: 3}, {X: 20, Y: 3}, {X: 40, Y: 3}, {X: 50, Y: 3}}
	g := hyperbolaGuess(flat, Minimise)
	assert.Equal(t, 20.0, g[0], "falls back to half the position span")
}

func TestParabolaGuess(t *testing.T) {
	t.Parallel()
	d := DataSet1D{{X: 1, Y: 5}, {X: 2, Y: 2}, {X: 3, Y: 1}, {X: 4, Y: 2}, {X: 5, Y: 5}}
	assert.Equal(t, []float64{1, 1, 3}, parabolaGuess(d, Minimise))
	assert.Equal(t, []float64{5, -1, 1}, parabolaGuess(d, Maximise))
}

func TestGaussianGuess(t *testing.T) {
	t.Parallel()
	g := gaussianGuess(StarParams{Background: -3, Peak: 500, CentroidX: 7, CentroidY: -1, HFR: 2, Theta: 0.3})
	sigma2 := math.Pow(2/math.Sqrt(2*math.Ln2), 2)
	require.Len(t, g, gaussianParams)
	assert.Equal(t, 500.0, g[gaussPeak])
	assert.Equal(t, 7.0, g[gaussX0])
	assert.Equal(t, 0.0, g[gaussY0])
	assert.Equal(t, 0.0, g[gaussBackground])
	assert.Equal(t, 0.0, g[gaussB])
	assert.InDelta(t, 1/(2*sigma2), g[gaussA], 1e-12)
	assert.Equal(t, g[gaussA], g[gaussC])
}

func TestInitialGuessWarmStart(t *testing.T) {
	t.Parallel()
	d := DataSet1D{{X: 1, Y: 5}, {X: 2, Y: 2}, {X: 3, Y: 1}, {X: 4, Y: 2}, {X: 5, Y: 5}}
	cache := &CachedSolution{CurveType: CurveParabola, Coefficients: []float64{2, 2, 2}}

	g, warm, err := initialGuess(CurveParabola, d, Minimise, cache, 2)
	require.NoError(t, err)
	assert.True(t, warm)
	assert.InDeltaSlice(t, []float64{2.4, 2.4, 2.4}, g, 1e-12)
	assert.Equal(t, []float64{2, 2, 2}, cache.Coefficients, "cache is not modified")

	g, warm, err = initialGuess(CurveHyperbola, d, Minimise, cache, 1)
	require.NoError(t, err)
	assert.False(t, warm, "a cache of another curve type is ignored")
	assert.Len(t, g, hyperbolaParams)

	g, warm, err = initialGuess(CurveParabola, d, Minimise, nil, 1)
	require.NoError(t, err)
	assert.False(t, warm)
	assert.InDeltaSlice(t, []float64{0.9, 0.9, 2.7}, g, 1e-12)

	_, _, err = initialGuess(CurveGaussian, d, Minimise, nil, 0)
	assert.ErrorIs(t, err, ErrUnsupportedCurve)

	_, _, err = initialGuess(CurveParabola, nil, Minimise, nil, 0)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}
