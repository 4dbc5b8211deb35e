package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autofocus/pkg/curvefit"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, curvefit.DefaultSolverConfig(), cfg.ToSolverConfig())

	ct, err := cfg.CurveType()
	require.NoError(t, err)
	assert.Equal(t, curvefit.CurveHyperbola, ct)
}

func TestParseConfigYAMLString(t *testing.T) {
	t.Parallel()
	yamlText := `
log_level: debug
log_format: json
fit:
  curve: parabola
  direction: maximise
  goal: best
  use_weights: true
  numeric_policy: abort
solver:
  max_attempts: 3
  best_max_iterations: 2000
star:
  radius: 8
  pixel_scale: 1.2
  hotpixel_filtering: false
`
	cfg, err := ParseConfigYAMLString(yamlText)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Fit.UseWeights)

	ct, _ := cfg.CurveType()
	assert.Equal(t, curvefit.CurveParabola, ct)
	dir, _ := cfg.Direction()
	assert.Equal(t, curvefit.Maximise, dir)
	goal, _ := cfg.Goal()
	assert.Equal(t, curvefit.GoalBest, goal)
	policy, _ := cfg.NumericPolicy()
	assert.Equal(t, curvefit.PolicyAbort, policy)

	sc := cfg.ToSolverConfig()
	assert.Equal(t, 3, sc.MaxAttempts)
	assert.Equal(t, 2000, sc.BestMaxIterations)
	assert.Equal(t, curvefit.DefaultSolverConfig().StandardTol, sc.StandardTol, "unset keys keep defaults")

	assert.Equal(t, 8, cfg.Star.Radius)
	assert.Equal(t, 1.2, cfg.Star.PixelScale)
	assert.Equal(t, Default().Star.GoodnessThreshold, cfg.Star.GoodnessThreshold)
	assert.False(t, cfg.Star.HotpixelFiltering)
	assert.Equal(t, 3, cfg.Star.BackgroundExpansion)
}

func TestParseConfigYAMLStringInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		yamlText string
	}{
		{"bad yaml", "fit: [unterminated"},
		{"log level", "log_level: loud"},
		{"log format", "log_format: xml"},
		{"curve", "fit: {curve: spline}"},
		{"direction", "fit: {direction: sideways}"},
		{"goal", "fit: {goal: perfect}"},
		{"numeric policy", "fit: {numeric_policy: ignore}"},
		{"solver tolerance", "solver: {standard_tol: -1}"},
		{"solver attempts", "solver: {max_attempts: 0}"},
		{"star radius", "star: {radius: 1}"},
		{"pixel scale", "star: {pixel_scale: -0.5}"},
		{"background ring", "star: {background_expansion: 0}"},
		{"clipping", "star: {clipping_multiplier: -1}"},
		{"goodness", "star: {goodness_threshold: 1.5}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfigYAMLString(tt.yamlText)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "focusfit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fit:\n  curve: quadratic\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	ct, _ := cfg.CurveType()
	assert.Equal(t, curvefit.CurveQuadratic, ct)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	l := cfg.NewLogger(&buf)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
