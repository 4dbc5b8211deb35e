package curvefit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRSquared(t *testing.T) {
	t.Parallel()
	values := []float64{1, 2, 3, 4}

	tests := []struct {
		name      string
		estimates []float64
		weights   []float64
		want      float64
	}{
		{"perfect", []float64{1, 2, 3, 4}, nil, 1},
		{"mean model", []float64{2.5, 2.5, 2.5, 2.5}, nil, 0},
		{"worse than mean clamps", []float64{4, 3, 2, 1}, nil, 0},
		{"partial", []float64{1, 2, 3, 3}, nil, 1 - 1.0/5},
		{"weights drop the bad point", []float64{1, 2, 3, 40}, []float64{1, 1, 1, 0}, 1},
		{"all weights zero", []float64{1, 2, 3, 4}, []float64{0, 0, 0, 0}, 0},
		{"negative weights ignored", []float64{1, 2, 3, 40}, []float64{1, 1, 1, -5}, 1},
		{"length mismatch", []float64{1, 2}, nil, 0},
		{"non-finite", []float64{1, 2, math.NaN(), 4}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, rSquared(values, tt.estimates, tt.weights), 1e-12)
		})
	}

	assert.Equal(t, 0.0, rSquared([]float64{2, 2, 2}, []float64{2, 2, 2}, nil), "no variance")
	assert.Equal(t, 0.0, rSquared(nil, nil, nil))
}

func TestCalculateRSquaredIgnoresOutliers(t *testing.T) {
	t.Parallel()
	d := DataSet1D{
		{X: 1, Y: 5, Weight: 1}, {X: 2, Y: 2, Weight: 1}, {X: 3, Y: 1, Weight: 1},
		{X: 4, Y: 2, Weight: 1}, {X: 5, Y: 5, Weight: 1}, {X: 6, Y: 90, Weight: 1, Outlier: true},
	}
	assert.InDelta(t, 1, CalculateRSquared(CurveParabola, []float64{1, 1, 3}, d, false), 1e-12)
	assert.InDelta(t, 1, CalculateRSquared(CurveQuadratic, []float64{10, -6, 1}, d, true), 1e-12)
	assert.Equal(t, 0.0, CalculateRSquared(CurveParabola, []float64{1, 1}, d, false))
	assert.Equal(t, 0.0, CalculateRSquared(CurveGaussian, make([]float64, gaussianParams), d, false))
	assert.Equal(t, 0.0, CalculateRSquared3D([]float64{1}, gaussianStar([]float64{1000, 10, 10, 0.1, 0, 0.1, 100}), false))
}
