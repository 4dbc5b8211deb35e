/*
Extracted from HocusFocus plugin by George Hilios.
Original Copyright © 2021 George Hilios <ghilios+NINA@googlemail.com>
Licensed under Mozilla Public License 2.0.
Ported to Go.
*/

package starmetrics

import (
	"errors"
	"fmt"
	"math"

	"autofocus/pkg/curvefit"
)

var sigmaToFWHM = 2.0 * math.Sqrt(2.0*math.Log(2.0))

var (
	ErrPSFFit  = errors.New("gaussian PSF fit failed")
	ErrPoorFit = errors.New("PSF goodness of fit under threshold")
)

// PSFOptions controls FitStarPSF.
type PSFOptions struct {
	Goal              curvefit.FittingGoal
	UseWeights        bool
	GoodnessThreshold float64 // minimum R²
	PixelScale        float64 // arcsec per pixel; 0 leaves FWHMArcsecs at 0
}

func DefaultPSFOptions() PSFOptions {
	return PSFOptions{
		Goal:              curvefit.GoalStandard,
		GoodnessThreshold: 0.8,
		PixelScale:        1.0,
	}
}

// StarSamples returns the pixels of the star's box in sample coordinates
// (see Star.Params). Weights are inverse intensity, the Poisson variance.
func StarSamples(img Mat, star *Star) curvefit.DataSet3D {
	o := star.origin()
	samples := make(curvefit.DataSet3D, 0, star.Box.Dx()*star.Box.Dy())
	for y := star.Box.Min.Y; y < star.Box.Max.Y; y++ {
		for x := star.Box.Min.X; x < star.Box.Max.X; x++ {
			z := pixelAt(img, x, y)
			samples = append(samples, curvefit.Sample2D{
				X:      float64(x - o.X),
				Y:      float64(y - o.Y),
				Z:      z,
				Weight: 1 / math.Max(z, 1e-6),
			})
		}
	}
	return samples
}

// FitStarPSF fits a rotated 2-D Gaussian to the star and stores the model
// on star.PSF. The fitter warm-starts from its previous star, so reusing one
// fitter across a focus run of the same star saves iterations.
func FitStarPSF(fitter *curvefit.CurveFitter, img Mat, star *Star, opts PSFOptions) (*PSFModel, error) {
	samples := StarSamples(img, star)
	coeffs := fitter.Fit3D(opts.Goal, samples, star.Params(), opts.UseWeights)
	if coeffs == nil {
		return nil, fmt.Errorf("star at (%.1f, %.1f): %w", star.Center.X, star.Center.Y, ErrPSFFit)
	}
	sp, ok := fitter.StarParams()
	if !ok {
		return nil, fmt.Errorf("star at (%.1f, %.1f): %w: invalid shape", star.Center.X, star.Center.Y, ErrPSFFit)
	}

	rSquared := curvefit.CalculateRSquared3D(coeffs, samples, opts.UseWeights)
	if rSquared < opts.GoodnessThreshold {
		return nil, fmt.Errorf("star at (%.1f, %.1f): %w: R²=%.3f", star.Center.X, star.Center.Y, ErrPoorFit, rSquared)
	}

	o := star.origin()
	psf := NewPSFModel(sp,
		sp.CentroidX+float64(o.X)-star.Center.X,
		sp.CentroidY+float64(o.Y)-star.Center.Y,
		rSquared, opts.PixelScale, coeffs)
	star.PSF = psf
	return psf, nil
}
