/*
Extracted from HocusFocus plugin by George Hilios.
Original Copyright © 2021 George Hilios <ghilios+NINA@googlemail.com>
Licensed under Mozilla Public License 2.0.
Ported to Go.
*/

package starmetrics

import (
	"fmt"
	"image"
	"math"

	"autofocus/pkg/curvefit"
)

// Point2d represents a 2D point with float64 coordinates.
type Point2d struct {
	X, Y float64
}

// Star is one measured star.
type Star struct {
	Center     Point2d         // intensity-weighted centroid in image coordinates
	Box        image.Rectangle // measurement box, clipped to the image
	Background float64
	Noise      float64 // robust sigma of the background ring
	Peak       float64 // brightest pixel above background
	Flux       float64
	HFR        float64
	PixelCount int // pixels above the clipping threshold
	PSF        *PSFModel
}

func (s *Star) String() string {
	return fmt.Sprintf("{Center=(%f,%f), Box=%v, Background=%f, Noise=%f, Peak=%f, Flux=%f, HFR=%f, Pixels=%d, PSF=%v}",
		s.Center.X, s.Center.Y, s.Box, s.Background, s.Noise, s.Peak, s.Flux, s.HFR, s.PixelCount, s.PSF)
}

// origin is the point star samples are measured from: one pixel above and
// to the left of the box, so every sample coordinate is strictly positive.
func (s *Star) origin() image.Point {
	return s.Box.Min.Sub(image.Pt(1, 1))
}

// Params is the measurement in the form the Gaussian fit is seeded from,
// with the centroid in sample coordinates.
func (s *Star) Params() curvefit.StarParams {
	o := s.origin()
	return curvefit.StarParams{
		Background: s.Background,
		Peak:       s.Peak,
		CentroidX:  s.Center.X - float64(o.X),
		CentroidY:  s.Center.Y - float64(o.Y),
		HFR:        s.HFR,
	}
}

// PSFModel contains the result of PSF fitting.
type PSFModel struct {
	OffsetX      float64 // fitted centre minus the measured centroid
	OffsetY      float64
	Peak         float64
	Background   float64
	SigmaX       float64
	SigmaY       float64
	Sigma        float64
	FWHMx        float64
	FWHMy        float64
	ThetaRadians float64
	FWHMPixels   float64
	FWHMArcsecs  float64
	Eccentricity float64
	RSquared     float64
	Coefficients []float64
}

// NewPSFModel derives sigma and eccentricity from a fitted star shape. The
// reported FWHM is the mean of the two axis widths.
func NewPSFModel(sp curvefit.StarParams, offsetX, offsetY, rSquared, pixelScale float64, coeffs []float64) *PSFModel {
	a := math.Max(sp.FWHMx, sp.FWHMy)
	b := math.Min(sp.FWHMx, sp.FWHMy)
	eccentricity := 0.0
	if a > 0 {
		eccentricity = math.Sqrt(1 - b*b/(a*a))
	}
	sigmaX := sp.FWHMx / sigmaToFWHM
	sigmaY := sp.FWHMy / sigmaToFWHM
	fwhmPixels := sp.FWHM
	if fwhmPixels == 0 {
		fwhmPixels = (sp.FWHMx + sp.FWHMy) / 2
	}

	return &PSFModel{
		OffsetX:      offsetX,
		OffsetY:      offsetY,
		Peak:         sp.Peak,
		Background:   sp.Background,
		SigmaX:       sigmaX,
		SigmaY:       sigmaY,
		Sigma:        fwhmPixels / sigmaToFWHM,
		FWHMx:        sp.FWHMx,
		FWHMy:        sp.FWHMy,
		ThetaRadians: sp.Theta,
		Eccentricity: eccentricity,
		FWHMPixels:   fwhmPixels,
		FWHMArcsecs:  fwhmPixels * pixelScale,
		RSquared:     rSquared,
		Coefficients: append([]float64(nil), coeffs...),
	}
}

func (p *PSFModel) String() string {
	return fmt.Sprintf("{OffsetX=%f, OffsetY=%f, Peak=%f, Background=%f, SigmaX=%f, SigmaY=%f, FWHMx=%f, FWHMy=%f, Theta=%f, FWHMPixels=%f, FWHMArcsecs=%f, Eccentricity=%f, RSquared=%f}",
		p.OffsetX, p.OffsetY, p.Peak, p.Background, p.SigmaX, p.SigmaY, p.FWHMx, p.FWHMy, p.ThetaRadians, p.FWHMPixels, p.FWHMArcsecs, p.Eccentricity, p.RSquared)
}
