package curvefit

import (
	"fmt"
	"math"
)

// perturbation returns the retry scale factor 1 + (-1)^k * k * 0.1:
// 1, 0.9, 1.2, 0.7, 1.4 for k = 0..4.
func perturbation(attempt int) float64 {
	sign := 1.0
	if attempt%2 == 1 {
		sign = -1
	}
	return 1 + sign*float64(attempt)*0.1
}

func scaled(coeffs []float64, factor float64) []float64 {
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = c * factor
	}
	return out
}

// extremes locates the samples with the smallest and largest value. Ties
// keep the first occurrence.
type extremes struct {
	xAtMin, yMin float64
	xAtMax, yMax float64
}

func findExtremes(d DataSet1D) extremes {
	e := extremes{xAtMin: d[0].X, yMin: d[0].Y, xAtMax: d[0].X, yMax: d[0].Y}
	for _, s := range d[1:] {
		if s.Y < e.yMin {
			e.yMin, e.xAtMin = s.Y, s.X
		}
		if s.Y > e.yMax {
			e.yMax, e.xAtMax = s.Y, s.X
		}
	}
	return e
}

func xSpan(d DataSet1D) float64 {
	lo, hi := d[0].X, d[0].X
	for _, s := range d[1:] {
		lo = math.Min(lo, s.X)
		hi = math.Max(hi, s.X)
	}
	return hi - lo
}

// hyperbolaGuess builds a cold-start guess from the data extremes. The
// vertex is put on the best sample and a is chosen so the curve passes
// through the worst one.
func hyperbolaGuess(d DataSet1D, dir OptimisationDirection) []float64 {
	e := findExtremes(d)
	var a, b, c, dd float64
	if dir == Maximise {
		c = e.xAtMax
		b = -e.yMax
		dd = 2 * e.yMax
		r := (2*e.yMax - e.yMin) / e.yMax
		a = (e.xAtMin - e.xAtMax) / math.Sqrt(r*r-1)
	} else {
		c = e.xAtMin
		b = e.yMin / 2
		dd = e.yMin / 2
		r := (2*e.yMax - e.yMin) / e.yMin
		a = (e.xAtMax - e.xAtMin) / math.Sqrt(r*r-1)
	}
	if a == 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		a = xSpan(d) / 2
	}
	return []float64{a, b, c, dd}
}

func parabolaGuess(d DataSet1D, dir OptimisationDirection) []float64 {
	e := findExtremes(d)
	if dir == Maximise {
		dx := e.xAtMin - e.xAtMax
		return []float64{e.yMax, (e.yMin - e.yMax) / (dx * dx), e.xAtMax}
	}
	dx := e.xAtMax - e.xAtMin
	return []float64{e.yMin, (e.yMax - e.yMin) / (dx * dx), e.xAtMin}
}

// gaussianGuess seeds the 2-D fit from the star summary. The initial profile
// is circular, so B = 0 and A = C.
func gaussianGuess(star StarParams) []float64 {
	sigma := star.HFR / math.Sqrt(2*math.Ln2)
	sigma2 := sigma * sigma
	cosT, sinT := math.Cos(star.Theta), math.Sin(star.Theta)
	ac := (cosT*cosT + sinT*sinT) / (2 * sigma2)

	p := make([]float64, gaussianParams)
	p[gaussPeak] = math.Max(star.Peak, 0)
	p[gaussX0] = math.Max(star.CentroidX, 0)
	p[gaussY0] = math.Max(star.CentroidY, 0)
	p[gaussA] = ac
	p[gaussB] = 0
	p[gaussC] = ac
	p[gaussBackground] = math.Max(star.Background, 0)
	return p
}

// initialGuess picks a warm start from cache when it matches the curve
// type, otherwise a cold start, and applies the retry perturbation.
func initialGuess(t CurveType, d DataSet1D, dir OptimisationDirection, cache *CachedSolution, attempt int) ([]float64, bool, error) {
	factor := perturbation(attempt)
	if cache != nil && cache.CurveType == t && ValidCoefficients(t, cache.Coefficients) {
		return scaled(cache.Coefficients, factor), true, nil
	}
	if len(d) == 0 {
		return nil, false, ErrTooFewPoints
	}
	var guess []float64
	switch t {
	case CurveHyperbola:
		guess = hyperbolaGuess(d, dir)
	case CurveParabola:
		guess = parabolaGuess(d, dir)
	default:
		return nil, false, fmt.Errorf("%w: %s has no 1-D guess", ErrUnsupportedCurve, t)
	}
	return scaled(guess, factor), false, nil
}
