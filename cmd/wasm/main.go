//go:build js && wasm

package main

import (
	"os"
	"syscall/js"

	"autofocus/pkg/config"
	"autofocus/pkg/curvefit"
	sm "autofocus/pkg/starmetrics"
)

var (
	lastImage sm.Mat
	lastStar  *sm.Star
)

func main() {
	js.Global().Set("fitFocusCurve", js.FuncOf(fitFocusCurve))
	js.Global().Set("fitStar", js.FuncOf(fitStar))
	js.Global().Set("renderStarOverlay", js.FuncOf(renderStarOverlay))
	select {} // block forever
}

// fitFocusCurve(positions, values, options) fits a focus run. Options may
// carry curve, direction, goal, weights, outliers, state and config (YAML).
func fitFocusCurve(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("usage: fitFocusCurve(positions, values, options)")
	}
	xs := floatArray(args[0])
	ys := floatArray(args[1])

	var opts js.Value
	if len(args) >= 3 && args[2].Type() == js.TypeObject {
		opts = args[2]
	}
	cfg, err := configFrom(opts)
	if err != nil {
		return errorResult(err.Error())
	}
	if s := stringOpt(opts, "curve"); s != "" {
		cfg.Fit.Curve = s
	}
	if s := stringOpt(opts, "direction"); s != "" {
		cfg.Fit.Direction = s
	}
	if s := stringOpt(opts, "goal"); s != "" {
		cfg.Fit.Goal = s
	}
	if err := cfg.Validate(); err != nil {
		return errorResult("invalid options: " + err.Error())
	}
	curveType, _ := cfg.CurveType()
	dir, _ := cfg.Direction()
	goal, _ := cfg.Goal()

	var weights []float64
	var outliers []bool
	if opts.Truthy() {
		if w := opts.Get("weights"); w.Type() == js.TypeObject {
			weights = floatArray(w)
			cfg.Fit.UseWeights = true
		}
		if o := opts.Get("outliers"); o.Type() == js.TypeObject {
			outliers = make([]bool, o.Length())
			for i := range outliers {
				outliers[i] = o.Index(i).Truthy()
			}
		}
	}
	samples, err := curvefit.NewDataSet1D(xs, ys, weights, outliers)
	if err != nil {
		return errorResult(err.Error())
	}
	retained := samples.Retained()
	if len(retained) == 0 {
		return errorResult("no samples to fit")
	}

	fitOpts := []curvefit.Option{
		curvefit.WithLogger(cfg.NewLogger(os.Stderr)),
		curvefit.WithSolverConfig(cfg.ToSolverConfig()),
	}
	fitter := curvefit.NewCurveFitter(fitOpts...)
	if state := stringOpt(opts, "state"); state != "" {
		var ok bool
		if fitter, ok = curvefit.NewCurveFitterFromString(state, fitOpts...); !ok {
			return errorResult("invalid fitter state")
		}
	}

	coeffs := fitter.FitDataSet(goal, samples, curveType, cfg.Fit.UseWeights, dir)
	if coeffs == nil {
		return errorResult(curveType.String() + " fit failed")
	}

	lo, hi := retained[0].X, retained[0].X
	expected, bestY := retained[0].X, retained[0].Y
	for _, s := range retained {
		lo, hi = min(lo, s.X), max(hi, s.X)
		if (dir == curvefit.Minimise && s.Y < bestY) || (dir == curvefit.Maximise && s.Y > bestY) {
			expected, bestY = s.X, s.Y
		}
	}
	best, ok := fitter.FindMinMax(expected, lo, hi, curveType, dir)
	if !ok {
		return errorResult("fitted curve has no usable extremum in range")
	}

	jsCoeffs := make([]interface{}, len(coeffs))
	for i, c := range coeffs {
		jsCoeffs[i] = c
	}
	return js.ValueOf(map[string]interface{}{
		"curve":        curveType.String(),
		"position":     best.Position,
		"value":        best.Value,
		"rSquared":     fitter.RSquared(),
		"coefficients": jsCoeffs,
		"state":        fitter.Serialize(),
	})
}

// fitStar(fileBytes, x, y, options) measures the star nearest (x, y) in a
// FITS image and fits its PSF. Options may carry radius, pixelScale and
// config (YAML).
func fitStar(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("usage: fitStar(fileBytes, x, y, options)")
	}

	jsBytes := args[0]
	fileBytes := make([]byte, jsBytes.Get("length").Int())
	js.CopyBytesToGo(fileBytes, jsBytes)
	center := sm.Point2d{X: args[1].Float(), Y: args[2].Float()}

	var opts js.Value
	if len(args) >= 4 && args[3].Type() == js.TypeObject {
		opts = args[3]
	}
	cfg, err := configFrom(opts)
	if err != nil {
		return errorResult(err.Error())
	}
	if opts.Truthy() {
		if r := opts.Get("radius"); r.Type() == js.TypeNumber {
			cfg.Star.Radius = r.Int()
		}
		if s := opts.Get("pixelScale"); s.Type() == js.TypeNumber {
			cfg.Star.PixelScale = s.Float()
		}
	}
	if err := cfg.Validate(); err != nil {
		return errorResult("invalid options: " + err.Error())
	}
	goal, _ := cfg.Goal()

	fitsData, err := sm.ReadFitsFromBytes(fileBytes)
	if err != nil {
		return errorResult("FITS parse error: " + err.Error())
	}
	img, err := fitsData.Mat()
	if err != nil {
		return errorResult(err.Error())
	}

	star, err := sm.MeasureStar(img, center, sm.MeasureOptions{
		Radius:                 cfg.Star.Radius,
		BackgroundBoxExpansion: cfg.Star.BackgroundExpansion,
		StarClippingMultiplier: cfg.Star.ClippingMultiplier,
		HotpixelFiltering:      cfg.Star.HotpixelFiltering,
	})
	if err != nil {
		img.Close()
		return errorResult("measurement error: " + err.Error())
	}

	pixelScale := cfg.Star.PixelScale
	if pixelScale == 0 {
		if s, ok := fitsData.Header.PixelScale(); ok {
			pixelScale = s
		}
	}
	fitter := curvefit.NewCurveFitter(
		curvefit.WithLogger(cfg.NewLogger(os.Stderr)),
		curvefit.WithSolverConfig(cfg.ToSolverConfig()),
	)
	psf, err := sm.FitStarPSF(fitter, img, star, sm.PSFOptions{
		Goal:              goal,
		UseWeights:        cfg.Star.UseWeights,
		GoodnessThreshold: cfg.Star.GoodnessThreshold,
		PixelScale:        pixelScale,
	})
	if err != nil {
		img.Close()
		return errorResult("PSF fit error: " + err.Error())
	}

	if !lastImage.Empty() {
		lastImage.Close()
	}
	lastImage, lastStar = img, star

	return js.ValueOf(map[string]interface{}{
		"width":        fitsData.Width,
		"height":       fitsData.Height,
		"x":            star.Center.X + psf.OffsetX,
		"y":            star.Center.Y + psf.OffsetY,
		"background":   psf.Background,
		"noise":        star.Noise,
		"peak":         psf.Peak,
		"flux":         star.Flux,
		"hfr":          star.HFR,
		"fwhm":         psf.FWHMPixels,
		"fwhmX":        psf.FWHMx,
		"fwhmY":        psf.FWHMy,
		"fwhmArcsec":   psf.FWHMArcsecs,
		"theta":        psf.ThetaRadians,
		"eccentricity": psf.Eccentricity,
		"rSquared":     psf.RSquared,
	})
}

func renderStarOverlay(this js.Value, args []js.Value) interface{} {
	if lastStar == nil {
		return js.Null()
	}

	jpegBytes, err := sm.RenderStarFitBytes(lastImage, lastStar)
	if err != nil {
		return js.Null()
	}

	uint8Array := js.Global().Get("Uint8Array").New(len(jpegBytes))
	js.CopyBytesToJS(uint8Array, jpegBytes)
	return uint8Array
}

func configFrom(opts js.Value) (*config.Config, error) {
	if s := stringOpt(opts, "config"); s != "" {
		return config.ParseConfigYAMLString(s)
	}
	return config.Default(), nil
}

func stringOpt(opts js.Value, key string) string {
	if !opts.Truthy() {
		return ""
	}
	v := opts.Get(key)
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}

func floatArray(v js.Value) []float64 {
	out := make([]float64, v.Length())
	for i := range out {
		out[i] = v.Index(i).Float()
	}
	return out
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}
