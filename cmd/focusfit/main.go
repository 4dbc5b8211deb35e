// Command focusfit fits a focus curve to a run of focuser samples, or
// measures and fits a single star in an image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gonum.org/v1/plot/vg"

	"autofocus/pkg/config"
	"autofocus/pkg/curvefit"
	"autofocus/pkg/focusplot"
	"autofocus/pkg/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "star" {
		return runStar(args[1:], stdout, stderr)
	}
	return runFit(args, stdout, stderr)
}

// loadConfig reads the -config file when given and applies overrides from
// the flags that were set explicitly.
func loadConfig(fs *flag.FlagSet, path string, apply func(cfg *config.Config, name string)) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	fs.Visit(func(f *flag.Flag) { apply(cfg, f.Name) })
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// useLogger installs the configured logger as the package default for the
// length of a command and returns a func restoring the previous one.
func useLogger(cfg *config.Config, w io.Writer) func() {
	prev := logger.Default
	logger.SetDefault(cfg.NewLogger(w))
	return func() { logger.SetDefault(prev) }
}

func runFit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("focusfit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	curve := fs.String("curve", "", "curve type: hyperbola, parabola or quadratic")
	direction := fs.String("direction", "", "minimise or maximise")
	goal := fs.String("goal", "", "standard or best")
	weights := fs.Bool("weights", false, "use the weight column")
	statePath := fs.String("state", "", "restore fitter state from this file before fitting")
	savePath := fs.String("save", "", "write the fitter state to this file")
	plotPath := fs.String("plot", "", "render the fit to this image (.png, .svg, .pdf)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: focusfit [flags] samples.csv")
		fmt.Fprintln(stderr, "       focusfit star [flags] image")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected one samples file")
	}

	cfg, err := loadConfig(fs, *configPath, func(cfg *config.Config, name string) {
		switch name {
		case "curve":
			cfg.Fit.Curve = *curve
		case "direction":
			cfg.Fit.Direction = *direction
		case "goal":
			cfg.Fit.Goal = *goal
		case "weights":
			cfg.Fit.UseWeights = *weights
		}
	})
	if err != nil {
		return err
	}
	curveType, _ := cfg.CurveType()
	dir, _ := cfg.Direction()
	fitGoal, _ := cfg.Goal()
	policy, _ := cfg.NumericPolicy()
	defer curvefit.SetNumericPolicy(curvefit.SetNumericPolicy(policy))

	defer useLogger(cfg, stderr)()
	log := logger.With("samples", fs.Arg(0))
	opts := []curvefit.Option{curvefit.WithLogger(log), curvefit.WithSolverConfig(cfg.ToSolverConfig())}

	fitter := curvefit.NewCurveFitter(opts...)
	if *statePath != "" {
		data, err := os.ReadFile(*statePath)
		if err != nil {
			return fmt.Errorf("reading state: %w", err)
		}
		var ok bool
		if fitter, ok = curvefit.NewCurveFitterFromString(strings.TrimSpace(string(data)), opts...); !ok {
			return fmt.Errorf("state file %s is not a valid fitter state", *statePath)
		}
		logger.Debug("restored fitter state", "path", *statePath, "curve", fitter.CurveType())
	}

	samples, err := readSamplesFile(fs.Arg(0))
	if err != nil {
		return err
	}
	retained := samples.Retained()
	if len(retained) == 0 {
		return errors.New("no samples to fit")
	}

	coeffs := fitter.FitDataSet(fitGoal, samples, curveType, cfg.Fit.UseWeights, dir)
	if coeffs == nil {
		logger.Error("focus fit failed", "curve", curveType, "goal", fitGoal, "samples", len(retained))
		return fmt.Errorf("%s fit failed on %d samples", curveType, len(retained))
	}

	expected, lo, hi := searchRange(retained, dir)
	best, ok := fitter.FindMinMax(expected, lo, hi, curveType, dir)
	if !ok {
		return fmt.Errorf("fitted %s has no usable %s within [%g, %g]", curveType, dir, lo, hi)
	}
	logger.Info("best focus", "curve", curveType, "position", best.Position, "value", best.Value,
		"r_squared", fitter.RSquared())

	fmt.Fprintln(stdout, "=== Focus Fit ===")
	fmt.Fprintf(stdout, "  Curve:         %s (%s, %s)\n", curveType, fitGoal, dir)
	fmt.Fprintf(stdout, "  Samples:       %d (%d outliers)\n", len(samples), len(samples)-len(retained))
	fmt.Fprintf(stdout, "  Best focus:    %.2f\n", best.Position)
	fmt.Fprintf(stdout, "  Value:         %.4f\n", best.Value)
	fmt.Fprintf(stdout, "  R-squared:     %.4f\n", fitter.RSquared())
	fmt.Fprintf(stdout, "  Coefficients:  %v\n", coeffs)
	fmt.Fprintln(stdout, "=================")

	if *savePath != "" {
		if err := os.WriteFile(*savePath, []byte(fitter.Serialize()+"\n"), 0o644); err != nil {
			return fmt.Errorf("saving state: %w", err)
		}
	}
	if *plotPath != "" {
		if err := focusplot.Render(fitter, samples, &best, *plotPath, 8*vg.Inch, 5*vg.Inch); err != nil {
			return err
		}
	}
	return nil
}

// searchRange returns the best sample position as the search seed and the
// span of the run.
func searchRange(d curvefit.DataSet1D, dir curvefit.OptimisationDirection) (expected, lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	bestY := math.Inf(1)
	if dir == curvefit.Maximise {
		bestY = math.Inf(-1)
	}
	for _, s := range d {
		lo, hi = math.Min(lo, s.X), math.Max(hi, s.X)
		if (dir == curvefit.Minimise && s.Y < bestY) || (dir == curvefit.Maximise && s.Y > bestY) {
			bestY, expected = s.Y, s.X
		}
	}
	return expected, lo, hi
}
