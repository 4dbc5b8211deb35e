package starmetrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autofocus/pkg/curvefit"
	"autofocus/pkg/logger"
)

func measuredStar(t *testing.T) (Mat, *Star) {
	t.Helper()
	img := FromFloat64(syntheticStar(64, 64), 64, 64)
	t.Cleanup(func() { img.Close() })
	star, err := MeasureStar(img, Point2d{X: 31, Y: 31}, measureOpts(false))
	require.NoError(t, err)
	return img, star
}

func quietFitter() *curvefit.CurveFitter {
	return curvefit.NewCurveFitter(curvefit.WithLogger(logger.Nop()))
}

func TestStarSamples(t *testing.T) {
	img, star := measuredStar(t)
	samples := StarSamples(img, star)

	require.Len(t, samples, star.Box.Dx()*star.Box.Dy())
	assert.Equal(t, 1.0, samples[0].X)
	assert.Equal(t, 1.0, samples[0].Y)
	assert.InDelta(t, pixelAt(img, star.Box.Min.X, star.Box.Min.Y), samples[0].Z, 1e-12)

	last := samples[len(samples)-1]
	assert.Equal(t, float64(star.Box.Dx()), last.X)
	assert.Equal(t, float64(star.Box.Dy()), last.Y)
	for _, s := range samples {
		assert.Greater(t, s.Weight, 0.0)
	}

	sp := star.Params()
	assert.InDelta(t, star.Center.X-float64(star.Box.Min.X)+1, sp.CentroidX, 1e-12)
	assert.Greater(t, sp.CentroidY, 0.0)
	assert.Equal(t, star.HFR, sp.HFR)
}

func TestFitStarPSF(t *testing.T) {
	img, star := measuredStar(t)
	opts := DefaultPSFOptions()
	opts.PixelScale = 1.5

	psf, err := FitStarPSF(quietFitter(), img, star, opts)
	require.NoError(t, err)
	require.Same(t, psf, star.PSF)

	wantFWHM := starSigma * sigmaToFWHM
	assert.InDelta(t, wantFWHM, psf.FWHMPixels, 0.02)
	assert.InDelta(t, wantFWHM*1.5, psf.FWHMArcsecs, 0.03)
	assert.InDelta(t, (psf.FWHMx+psf.FWHMy)/2, psf.FWHMPixels, 1e-9)
	assert.InDelta(t, starSigma, psf.Sigma, 0.01)
	assert.InDelta(t, starPeak, psf.Peak, 1e-3)
	assert.InDelta(t, starSky, psf.Background, 1e-3)
	assert.InDelta(t, starX, star.Center.X+psf.OffsetX, 1e-3)
	assert.InDelta(t, starY, star.Center.Y+psf.OffsetY, 1e-3)
	assert.Less(t, psf.Eccentricity, 0.05)
	assert.GreaterOrEqual(t, psf.RSquared, 0.999)
	assert.Len(t, psf.Coefficients, curvefit.CurveGaussian.NumCoefficients())
}

func TestFitStarPSFGoodnessThreshold(t *testing.T) {
	img, star := measuredStar(t)
	opts := DefaultPSFOptions()
	opts.GoodnessThreshold = 1.01

	psf, err := FitStarPSF(quietFitter(), img, star, opts)
	assert.ErrorIs(t, err, ErrPoorFit)
	assert.Nil(t, psf)
	assert.Nil(t, star.PSF)
}

func TestNewPSFModel(t *testing.T) {
	sp := curvefit.StarParams{Peak: 1, Background: 0.1, FWHMx: 4, FWHMy: 3, FWHM: 3.5, Theta: 0.2}
	psf := NewPSFModel(sp, 0.5, -0.5, 0.99, 2, nil)

	assert.InDelta(t, 3.5, psf.FWHMPixels, 1e-12)
	assert.InDelta(t, 7, psf.FWHMArcsecs, 1e-12)
	assert.InDelta(t, 3.5/sigmaToFWHM, psf.Sigma, 1e-12)
	assert.InDelta(t, math.Sqrt(1-9.0/16), psf.Eccentricity, 1e-12)
	assert.InDelta(t, 4/sigmaToFWHM, psf.SigmaX, 1e-12)
	assert.Equal(t, 0.2, psf.ThetaRadians)
	assert.Contains(t, psf.String(), "RSquared=0.990000")
}

func TestNewPSFModelElongatedStar(t *testing.T) {
	tests := map[string]curvefit.StarParams{
		"fitted mean":    {FWHMx: 4, FWHMy: 6, FWHM: 5},
		"mean from axes": {FWHMx: 4, FWHMy: 6},
	}
	for name, sp := range tests {
		t.Run(name, func(t *testing.T) {
			psf := NewPSFModel(sp, 0, 0, 1, 1.5, nil)
			assert.InDelta(t, 5, psf.FWHMPixels, 1e-12)
			assert.InDelta(t, 7.5, psf.FWHMArcsecs, 1e-12)
		})
	}
}
