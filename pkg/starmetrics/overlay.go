package starmetrics

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"autofocus/pkg/curvefit"
)

const (
	panelSize   = 192
	panelGap    = 8
	labelHeight = 40
)

// RenderStarFit writes a JPEG with the star cutout, the fitted model and
// the residual side by side.
func RenderStarFit(img Mat, star *Star, outputPath string) error {
	out, err := renderStarFitImage(img, star)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create overlay file: %w", err)
	}
	defer f.Close()

	return jpeg.Encode(f, out, &jpeg.Options{Quality: 90})
}

// RenderStarFitBytes is RenderStarFit returning the JPEG bytes.
func RenderStarFitBytes(img Mat, star *Star) ([]byte, error) {
	out, err := renderStarFitImage(img, star)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderStarFitImage(img Mat, star *Star) (*image.RGBA, error) {
	if star == nil || star.PSF == nil {
		return nil, fmt.Errorf("no PSF fit to render")
	}
	psf := star.PSF
	if !curvefit.ValidCoefficients(curvefit.CurveGaussian, psf.Coefficients) {
		return nil, fmt.Errorf("PSF has %d coefficients", len(psf.Coefficients))
	}

	region := img.Region(star.Box)
	cutout := region.Clone()
	region.Close()
	defer cutout.Close()

	w, h := star.Box.Dx(), star.Box.Dy()
	scale := float64(panelSize) / float64(max(w, h))
	totalW := 3*panelSize + 2*panelGap
	out := image.NewRGBA(image.Rect(0, 0, totalW, panelSize+labelHeight))
	for i := range out.Pix {
		out.Pix[i] = 0
		if i%4 == 3 {
			out.Pix[i] = 255
		}
	}

	lo, hi := psf.Background, psf.Background+psf.Peak
	stretch := func(v float64) uint8 {
		return uint8(255 * math.Min(math.Max((v-lo)/(hi-lo), 0), 1))
	}

	for v := 0; v < panelSize; v++ {
		fy := math.Min(math.Max((float64(v)+0.5)/scale-0.5, 0), float64(h-1))
		for u := 0; u < panelSize; u++ {
			fx := math.Min(math.Max((float64(u)+0.5)/scale-0.5, 0), float64(w-1))
			data := BilinearSamplePixelValue(cutout, fy, fx)
			// the cutout's (0,0) is sample (1,1)
			model := curvefit.Gaussian{}.Eval(fx+1, fy+1, psf.Coefficients)

			g := stretch(data)
			out.Set(u, v, color.RGBA{g, g, g, 255})
			g = stretch(model)
			out.Set(panelSize+panelGap+u, v, color.RGBA{g, g, g, 255})
			out.Set(2*(panelSize+panelGap)+u, v, residualColor((data-model)/(hi-lo)))
		}
	}

	cx := (star.Center.X + psf.OffsetX - float64(star.Box.Min.X) + 0.5) * scale
	cy := (star.Center.Y + psf.OffsetY - float64(star.Box.Min.Y) + 0.5) * scale
	ellipseColor := color.RGBA{255, 80, 80, 255}
	for _, x0 := range []int{0, panelSize + panelGap} {
		drawEllipse(out, float64(x0)+cx, cy, psf.FWHMx/2*scale, psf.FWHMy/2*scale, psf.ThetaRadians, ellipseColor)
		drawLine(out, x0+int(cx)-4, int(cy), x0+int(cx)+4, int(cy), ellipseColor)
		drawLine(out, x0+int(cx), int(cy)-4, x0+int(cx), int(cy)+4, ellipseColor)
	}

	face := basicfont.Face7x13
	textColor := color.RGBA{220, 220, 220, 255}
	for i, title := range []string{"data", "model", "residual"} {
		drawCenteredText(out, face, title, i*(panelSize+panelGap)+panelSize/2, 14, textColor)
	}
	summary := fmt.Sprintf("FWHM %.2fpx (%.2f\")  HFR %.2f  ecc %.2f  R2 %.3f",
		psf.FWHMPixels, psf.FWHMArcsecs, star.HFR, psf.Eccentricity, psf.RSquared)
	drawText(out, face, summary, 10, panelSize+24, textColor)

	return out, nil
}

// residualColor maps a normalized residual to blue (model too bright)
// through black to red (model too faint).
func residualColor(r float64) color.RGBA {
	t := uint8(255 * math.Min(math.Abs(r)*4, 1))
	if r > 0 {
		return color.RGBA{t, 0, 0, 255}
	}
	return color.RGBA{0, 0, t, 255}
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCenteredText draws a string centered at (cx, cy).
func drawCenteredText(img *image.RGBA, face font.Face, s string, cx, cy int, c color.RGBA) {
	advance := font.MeasureString(face, s)
	drawText(img, face, s, cx-advance.Round()/2, cy, c)
}

// drawEllipse traces a rotated ellipse outline with semi-axes a and b.
func drawEllipse(img *image.RGBA, cx, cy, a, b, theta float64, c color.RGBA) {
	steps := max(int(4*(a+b)), 16)
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	for i := 0; i < steps; i++ {
		t := 2 * math.Pi * float64(i) / float64(steps)
		ex, ey := a*math.Cos(t), b*math.Sin(t)
		img.Set(int(cx+ex*cosT-ey*sinT), int(cy+ex*sinT+ey*cosT), c)
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := intAbs(x1 - x0)
	dy := -intAbs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
