package config

// Config is the focusfit configuration file.
type Config struct {
	LogLevel  string       `yaml:"log_level"`
	LogFormat string       `yaml:"log_format"`
	Fit       FitConfig    `yaml:"fit"`
	Solver    SolverConfig `yaml:"solver"`
	Star      StarConfig   `yaml:"star"`
}

// FitConfig selects what is fitted to a focus run.
type FitConfig struct {
	Curve      string `yaml:"curve"`
	Direction  string `yaml:"direction"`
	Goal       string `yaml:"goal"`
	UseWeights bool   `yaml:"use_weights"`
	// NumericPolicy is "abort" or "report"; see curvefit.NumericPolicy.
	NumericPolicy string `yaml:"numeric_policy"`
}

// SolverConfig mirrors curvefit.SolverConfig.
type SolverConfig struct {
	StandardTol           float64 `yaml:"standard_tol"`
	GradientTol           float64 `yaml:"gradient_tol"`
	BestTolFactor         float64 `yaml:"best_tol_factor"`
	StandardMaxIterations int     `yaml:"standard_max_iterations"`
	BestMaxIterations     int     `yaml:"best_max_iterations"`
	MaxAccelRatio         float64 `yaml:"max_accel_ratio"`
	RetryAccelRatio       float64 `yaml:"retry_accel_ratio"`
	MaxAttempts           int     `yaml:"max_attempts"`
}

// StarConfig drives the star measurement and PSF fit.
type StarConfig struct {
	// Radius is the half-size in pixels of the cutout around the star.
	Radius int `yaml:"radius"`
	// BackgroundExpansion is the width of the ring around the cutout that
	// the sky background is measured on.
	BackgroundExpansion int     `yaml:"background_expansion"`
	ClippingMultiplier  float64 `yaml:"clipping_multiplier"`
	HotpixelFiltering   bool    `yaml:"hotpixel_filtering"`
	// PixelScale in arcsec/pixel; 0 reports widths in pixels only.
	PixelScale float64 `yaml:"pixel_scale"`
	// GoodnessThreshold is the minimum R^2 for an accepted PSF fit.
	GoodnessThreshold float64 `yaml:"goodness_threshold"`
	UseWeights        bool    `yaml:"use_weights"`
}
