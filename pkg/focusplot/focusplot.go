// Package focusplot draws a focus run and its fitted curve with gonum/plot.
package focusplot

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"autofocus/pkg/curvefit"
)

// curveResolution is the number of points the fitted curve is drawn with.
const curveResolution = 200

var ErrNoSamples = errors.New("no samples to plot")

var (
	sampleColor  = color.RGBA{R: 30, G: 110, B: 200, A: 255}
	outlierColor = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	curveColor   = color.RGBA{R: 220, G: 60, B: 40, A: 255}
	focusColor   = color.RGBA{R: 20, G: 150, B: 60, A: 255}
)

// NewPlot builds the plot: retained samples, outliers, the fitter's current
// 1-D curve when it has one, and the best-focus point when best is non-nil.
func NewPlot(fitter *curvefit.CurveFitter, samples curvefit.DataSet1D, best *curvefit.Extremum) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	p := plot.New()
	p.Title.Text = "Focus curve"
	p.X.Label.Text = "Focuser position"
	p.Y.Label.Text = "Value"

	var kept, outliers plotter.XYs
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		lo, hi = math.Min(lo, s.X), math.Max(hi, s.X)
		if s.Outlier {
			outliers = append(outliers, plotter.XY{X: s.X, Y: s.Y})
		} else {
			kept = append(kept, plotter.XY{X: s.X, Y: s.Y})
		}
	}

	if len(kept) > 0 {
		sc, err := plotter.NewScatter(kept)
		if err != nil {
			return nil, fmt.Errorf("samples: %w", err)
		}
		sc.GlyphStyle.Color = sampleColor
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("samples", sc)
	}
	if len(outliers) > 0 {
		sc, err := plotter.NewScatter(outliers)
		if err != nil {
			return nil, fmt.Errorf("outliers: %w", err)
		}
		sc.GlyphStyle.Color = outlierColor
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add("outliers", sc)
	}

	if pts := curvePoints(fitter, lo, hi); len(pts) > 1 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("curve: %w", err)
		}
		line.Color = curveColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fitter.CurveType().String(), line)
	}

	if best != nil {
		sc, err := plotter.NewScatter(plotter.XYs{{X: best.Position, Y: best.Value}})
		if err != nil {
			return nil, fmt.Errorf("best focus: %w", err)
		}
		sc.GlyphStyle.Color = focusColor
		sc.GlyphStyle.Shape = draw.RingGlyph{}
		sc.GlyphStyle.Radius = vg.Points(6)
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("best %.1f", best.Position), sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// curvePoints samples the fitted curve over the run, padded by 5% of the
// span on each side. Non-finite values are skipped.
func curvePoints(fitter *curvefit.CurveFitter, lo, hi float64) plotter.XYs {
	if fitter == nil || fitter.Coefficients() == nil || fitter.CurveType() == curvefit.CurveGaussian {
		return nil
	}
	pad := 0.05 * (hi - lo)
	lo, hi = lo-pad, hi+pad
	pts := make(plotter.XYs, 0, curveResolution)
	for i := 0; i < curveResolution; i++ {
		x := lo + (hi-lo)*float64(i)/float64(curveResolution-1)
		y := fitter.Eval(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

// Render saves the plot; the format follows the extension of path (.png,
// .svg, .pdf, ...).
func Render(fitter *curvefit.CurveFitter, samples curvefit.DataSet1D, best *curvefit.Extremum,
	path string, width, height vg.Length) error {
	p, err := NewPlot(fitter, samples, best)
	if err != nil {
		return err
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save focus plot: %w", err)
	}
	return nil
}
