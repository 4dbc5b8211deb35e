package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"autofocus/pkg/curvefit"
	"autofocus/pkg/logger"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	s := curvefit.DefaultSolverConfig()
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Fit: FitConfig{
			Curve:         "hyperbola",
			Direction:     "minimise",
			Goal:          "standard",
			NumericPolicy: "report",
		},
		Solver: SolverConfig{
			StandardTol:           s.StandardTol,
			GradientTol:           s.GradientTol,
			BestTolFactor:         s.BestTolFactor,
			StandardMaxIterations: s.StandardMaxIterations,
			BestMaxIterations:     s.BestMaxIterations,
			MaxAccelRatio:         s.MaxAccelRatio,
			RetryAccelRatio:       s.RetryAccelRatio,
			MaxAttempts:           s.MaxAttempts,
		},
		Star: StarConfig{
			Radius:              12,
			BackgroundExpansion: 3,
			ClippingMultiplier:  2.0,
			HotpixelFiltering:   true,
			GoodnessThreshold:   0.8,
		},
	}
}

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", c.LogFormat)
	}

	if _, err := c.CurveType(); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	if _, err := c.Direction(); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	if _, err := c.Goal(); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	if _, err := c.NumericPolicy(); err != nil {
		return fmt.Errorf("fit: %w", err)
	}

	if err := c.ToSolverConfig().Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}

	if c.Star.Radius < 2 {
		return fmt.Errorf("star: radius must be at least 2, got %d", c.Star.Radius)
	}
	if c.Star.BackgroundExpansion < 1 {
		return fmt.Errorf("star: background_expansion must be at least 1, got %d", c.Star.BackgroundExpansion)
	}
	if c.Star.ClippingMultiplier < 0 {
		return fmt.Errorf("star: clipping_multiplier cannot be negative, got %f", c.Star.ClippingMultiplier)
	}
	if c.Star.PixelScale < 0 {
		return fmt.Errorf("star: pixel_scale cannot be negative, got %f", c.Star.PixelScale)
	}
	if c.Star.GoodnessThreshold < 0 || c.Star.GoodnessThreshold > 1 {
		return fmt.Errorf("star: goodness_threshold must be between 0 and 1, got %f", c.Star.GoodnessThreshold)
	}
	return nil
}

// CurveType parses Fit.Curve.
func (c *Config) CurveType() (curvefit.CurveType, error) {
	return curvefit.ParseCurveType(c.Fit.Curve)
}

// Direction parses Fit.Direction.
func (c *Config) Direction() (curvefit.OptimisationDirection, error) {
	return curvefit.ParseDirection(c.Fit.Direction)
}

// Goal parses Fit.Goal.
func (c *Config) Goal() (curvefit.FittingGoal, error) {
	return curvefit.ParseFittingGoal(c.Fit.Goal)
}

// NumericPolicy parses Fit.NumericPolicy.
func (c *Config) NumericPolicy() (curvefit.NumericPolicy, error) {
	switch c.Fit.NumericPolicy {
	case "abort":
		return curvefit.PolicyAbort, nil
	case "report", "":
		return curvefit.PolicyReport, nil
	default:
		return curvefit.PolicyReport, fmt.Errorf("invalid numeric_policy: %s (must be abort or report)", c.Fit.NumericPolicy)
	}
}

// ToSolverConfig converts the solver section for curvefit.
func (c *Config) ToSolverConfig() curvefit.SolverConfig {
	return curvefit.SolverConfig{
		StandardTol:           c.Solver.StandardTol,
		GradientTol:           c.Solver.GradientTol,
		BestTolFactor:         c.Solver.BestTolFactor,
		StandardMaxIterations: c.Solver.StandardMaxIterations,
		BestMaxIterations:     c.Solver.BestMaxIterations,
		MaxAccelRatio:         c.Solver.MaxAccelRatio,
		RetryAccelRatio:       c.Solver.RetryAccelRatio,
		MaxAttempts:           c.Solver.MaxAttempts,
	}
}

// NewLogger builds the logger described by LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return logger.NewWithFormat(c.LogLevel, c.LogFormat, w)
}
