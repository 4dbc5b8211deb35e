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
	"image"
	"math"
	"slices"
)

var (
	ErrNoStar       = errors.New("no star above the background")
	ErrOutsideImage = errors.New("position outside the image")
	ErrNoBackground = errors.New("no pixels left for the background ring")
)

// madToSigma scales a median absolute deviation to a Gaussian sigma.
const madToSigma = 1.4826

// MeasureOptions controls MeasureStar.
type MeasureOptions struct {
	Radius                 int     // half-width of the measurement box
	BackgroundBoxExpansion int     // width of the background ring around the box
	StarClippingMultiplier float64 // pixels under background + k*noise are ignored
	HotpixelFiltering      bool    // 3x3 median before measuring
}

func DefaultMeasureOptions() MeasureOptions {
	return MeasureOptions{
		Radius:                 12,
		BackgroundBoxExpansion: 3,
		StarClippingMultiplier: 2.0,
		HotpixelFiltering:      true,
	}
}

// MeasureStar measures the star nearest center. The background is the
// median of a ring just outside the box; centroid, flux and HFR come from
// the background-subtracted pixels above the clipping threshold.
func MeasureStar(img Mat, center Point2d, opts MeasureOptions) (*Star, error) {
	if img.Empty() {
		return nil, fmt.Errorf("measure star: empty image")
	}
	if opts.Radius < 1 {
		return nil, fmt.Errorf("measure star: radius must be positive, got %d", opts.Radius)
	}
	full := bounds(img)
	cx, cy := int(math.Round(center.X)), int(math.Round(center.Y))
	if !image.Pt(cx, cy).In(full) {
		return nil, fmt.Errorf("measure star at (%.1f, %.1f): %w", center.X, center.Y, ErrOutsideImage)
	}

	box := image.Rect(cx-opts.Radius, cy-opts.Radius, cx+opts.Radius+1, cy+opts.Radius+1).Intersect(full)
	outer := box.Inset(-opts.BackgroundBoxExpansion).Intersect(full)
	ring := ringPixels(img, box, outer)
	if len(ring) == 0 {
		return nil, fmt.Errorf("measure star: %w", ErrNoBackground)
	}
	background, noise := medianSigma(ring)

	pixels := boxPixels(img, box, opts.HotpixelFiltering)
	threshold := background + opts.StarClippingMultiplier*noise

	var sx, sy, flux, peak float64
	count := 0
	for i, p := range pixels {
		if p <= threshold {
			continue
		}
		v := p - background
		x := float64(box.Min.X + i%box.Dx())
		y := float64(box.Min.Y + i/box.Dx())
		sx += v * x
		sy += v * y
		flux += v
		peak = math.Max(peak, v)
		count++
	}
	if count <= 1 || flux <= 0 {
		return nil, fmt.Errorf("measure star at (%.1f, %.1f): %w", center.X, center.Y, ErrNoStar)
	}
	centroid := Point2d{X: sx / flux, Y: sy / flux}

	var weightedDistance float64
	for i, p := range pixels {
		if p <= threshold {
			continue
		}
		dx := float64(box.Min.X+i%box.Dx()) - centroid.X
		dy := float64(box.Min.Y+i/box.Dx()) - centroid.Y
		weightedDistance += (p - background) * math.Hypot(dx, dy)
	}

	return &Star{
		Center:     centroid,
		Box:        box,
		Background: background,
		Noise:      noise,
		Peak:       peak,
		Flux:       flux,
		HFR:        weightedDistance / flux,
		PixelCount: count,
	}, nil
}

// ringPixels collects the pixels of outer that are not inside inner.
func ringPixels(img Mat, inner, outer image.Rectangle) []float64 {
	ring := make([]float64, 0, outer.Dx()*outer.Dy()-inner.Dx()*inner.Dy())
	for y := outer.Min.Y; y < outer.Max.Y; y++ {
		for x := outer.Min.X; x < outer.Max.X; x++ {
			if image.Pt(x, y).In(inner) {
				continue
			}
			ring = append(ring, pixelAt(img, x, y))
		}
	}
	return ring
}

// boxPixels copies box out of img in row-major order, median filtered when
// asked to.
func boxPixels(img Mat, box image.Rectangle, filter bool) []float64 {
	region := img.Region(box)
	cutout := region.Clone()
	region.Close()
	defer cutout.Close()

	if filter && box.Dx() >= 3 && box.Dy() >= 3 {
		filtered := NewMat()
		medianBlur(cutout, &filtered, 3)
		cutout.Close()
		cutout = filtered
	}

	data := cutout.DataFloat32()
	out := make([]float64, box.Dx()*box.Dy())
	for i := range out {
		out[i] = float64(data[i])
	}
	return out
}

// medianSigma returns the median and the MAD-based sigma of values. values
// is reordered.
func medianSigma(values []float64) (float64, float64) {
	median := medianOf(values)
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - median)
	}
	return median, madToSigma * medianOf(dev)
}

func medianOf(values []float64) float64 {
	slices.Sort(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
