package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"autofocus/pkg/config"
	"autofocus/pkg/curvefit"
	"autofocus/pkg/logger"
	sm "autofocus/pkg/starmetrics"
)

func runStar(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("focusfit star", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	x := fs.Float64("x", -1, "approximate star x position in pixels")
	y := fs.Float64("y", -1, "approximate star y position in pixels")
	radius := fs.Int("radius", 0, "half-size of the measurement box in pixels")
	goal := fs.String("goal", "", "standard or best")
	overlayPath := fs.String("overlay", "", "write a JPEG of data, model and residual")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: focusfit star -x X -y Y [flags] image")
	}
	if *x < 0 || *y < 0 {
		return errors.New("star position -x and -y is required")
	}

	cfg, err := loadConfig(fs, *configPath, func(cfg *config.Config, name string) {
		switch name {
		case "radius":
			cfg.Star.Radius = *radius
		case "goal":
			cfg.Fit.Goal = *goal
		}
	})
	if err != nil {
		return err
	}
	fitGoal, _ := cfg.Goal()
	policy, _ := cfg.NumericPolicy()
	defer curvefit.SetNumericPolicy(curvefit.SetNumericPolicy(policy))
	defer useLogger(cfg, stderr)()

	img, header, err := sm.LoadImage(fs.Arg(0))
	if err != nil {
		return err
	}
	defer img.Close()

	star, err := sm.MeasureStar(img, sm.Point2d{X: *x, Y: *y}, sm.MeasureOptions{
		Radius:                 cfg.Star.Radius,
		BackgroundBoxExpansion: cfg.Star.BackgroundExpansion,
		StarClippingMultiplier: cfg.Star.ClippingMultiplier,
		HotpixelFiltering:      cfg.Star.HotpixelFiltering,
	})
	if err != nil {
		return err
	}

	pixelScale := cfg.Star.PixelScale
	if pixelScale == 0 {
		if s, ok := header.PixelScale(); ok {
			pixelScale = s
		} else {
			logger.Warn("no pixel scale configured or in the image header, FWHM in pixels only")
		}
	}

	fitter := curvefit.NewCurveFitter(
		curvefit.WithLogger(logger.With("image", fs.Arg(0))),
		curvefit.WithSolverConfig(cfg.ToSolverConfig()),
	)
	psf, err := sm.FitStarPSF(fitter, img, star, sm.PSFOptions{
		Goal:              fitGoal,
		UseWeights:        cfg.Star.UseWeights,
		GoodnessThreshold: cfg.Star.GoodnessThreshold,
		PixelScale:        pixelScale,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "=== Star Fit ===")
	fmt.Fprintf(stdout, "  Centroid:      (%.2f, %.2f)\n", star.Center.X+psf.OffsetX, star.Center.Y+psf.OffsetY)
	fmt.Fprintf(stdout, "  Background:    %.5f +/- %.5f\n", psf.Background, star.Noise)
	fmt.Fprintf(stdout, "  Peak:          %.5f\n", psf.Peak)
	fmt.Fprintf(stdout, "  HFR:           %.3f px\n", star.HFR)
	fmt.Fprintf(stdout, "  FWHM:          %.3f px (x %.3f, y %.3f)\n", psf.FWHMPixels, psf.FWHMx, psf.FWHMy)
	if pixelScale > 0 {
		fmt.Fprintf(stdout, "  FWHM (arcsec): %.3f\"\n", psf.FWHMArcsecs)
	}
	fmt.Fprintf(stdout, "  Theta:         %.3f rad\n", psf.ThetaRadians)
	fmt.Fprintf(stdout, "  Eccentricity:  %.3f\n", psf.Eccentricity)
	fmt.Fprintf(stdout, "  R-squared:     %.4f\n", psf.RSquared)
	fmt.Fprintln(stdout, "================")

	if *overlayPath != "" {
		if err := sm.RenderStarFit(img, star, *overlayPath); err != nil {
			return err
		}
	}
	return nil
}
