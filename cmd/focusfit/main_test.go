package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autofocus/pkg/logger"
)

// writeHyperbolaRun writes nine noisy samples of a hyperbola with its
// vertex at 5000 and one wild outlier.
func writeHyperbolaRun(t *testing.T) string {
	t.Helper()
	noise := []float64{0.02, -0.01, 0.015, -0.02, 0.01, -0.015, 0.02, -0.01, 0.005}
	var sb strings.Builder
	sb.WriteString("# position,hfr,weight,outlier\n")
	for i := 0; i < 9; i++ {
		x := 4600 + 100*float64(i)
		y := 2*math.Sqrt(1+math.Pow((x-5000)/150, 2)) + 1 + noise[i]
		fmt.Fprintf(&sb, "%g,%g,1,false\n", x, y)
	}
	sb.WriteString("5050,30,1,true\n")

	path := filepath.Join(t.TempDir(), "run.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func field(t *testing.T, out, label string) float64 {
	t.Helper()
	m := regexp.MustCompile(label + `:\s+([-0-9.]+)`).FindStringSubmatch(out)
	require.Len(t, m, 2, "no %q in output:\n%s", label, out)
	v, err := strconv.ParseFloat(m[1], 64)
	require.NoError(t, err)
	return v
}

func TestRunFit(t *testing.T) {
	samples := writeHyperbolaRun(t)
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.txt")
	plotPath := filepath.Join(dir, "focus.png")

	prev := logger.Default
	var stdout, stderr bytes.Buffer
	err := run([]string{"-goal", "best", "-save", statePath, "-plot", plotPath, samples}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())
	assert.Contains(t, stderr.String(), `msg="best focus"`)
	assert.Same(t, prev, logger.Default, "the command restores the default logger")

	out := stdout.String()
	assert.InDelta(t, 5000, field(t, out, "Best focus"), 1)
	assert.InDelta(t, 3, field(t, out, "Value"), 0.05)
	assert.GreaterOrEqual(t, field(t, out, "R-squared"), 0.99)
	assert.Contains(t, out, "(1 outliers)")

	state, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(state), "1|9;"), "state %q", state)
	_, err = os.Stat(plotPath)
	assert.NoError(t, err)

	// A restored fitter warm-starts from the saved solution.
	stdout.Reset()
	require.NoError(t, run([]string{"-state", statePath, samples}, &stdout, &stderr))
	assert.InDelta(t, 5000, field(t, stdout.String(), "Best focus"), 1)
}

func TestRunFitErrors(t *testing.T) {
	samples := writeHyperbolaRun(t)
	badState := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(badState, []byte("not a state"), 0o644))

	tests := map[string][]string{
		"no samples":     {},
		"unknown curve":  {"-curve", "spline", samples},
		"unknown flag":   {"-frobnicate", samples},
		"missing file":   {filepath.Join(t.TempDir(), "none.csv")},
		"bad state":      {"-state", badState, samples},
		"missing config": {"-config", filepath.Join(t.TempDir(), "none.yaml"), samples},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Error(t, run(args, &stdout, &stderr))
			assert.Empty(t, stdout.String())
		})
	}
}

// writeStarImage renders a Gaussian star (sigma 2) at (30.4, 31.7) on a
// 64x64 16-bit PNG.
func writeStarImage(t *testing.T) string {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			dx, dy := float64(x)-30.4, float64(y)-31.7
			v := 0.1 + 0.5*math.Exp(-(dx*dx+dy*dy)/8)
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(v * 65535))})
		}
	}
	path := filepath.Join(t.TempDir(), "star.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestRunStar(t *testing.T) {
	path := writeStarImage(t)
	overlay := filepath.Join(t.TempDir(), "star.jpg")

	var stdout, stderr bytes.Buffer
	err := run([]string{"star", "-x", "31", "-y", "31", "-radius", "8", "-overlay", overlay, path}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Contains(t, stderr.String(), "FWHM in pixels only")

	out := stdout.String()
	assert.InDelta(t, 2*math.Sqrt(2*math.Ln2)*2, field(t, out, "FWHM"), 0.05)
	assert.GreaterOrEqual(t, field(t, out, "R-squared"), 0.99)
	assert.Contains(t, out, "Centroid:      (30.4")
	_, err = os.Stat(overlay)
	assert.NoError(t, err)
}

func TestRunStarErrors(t *testing.T) {
	path := writeStarImage(t)
	tests := map[string][]string{
		"no image":      {"star", "-x", "1", "-y", "1"},
		"no position":   {"star", path},
		"outside image": {"star", "-x", "500", "-y", "5", path},
		"tiny radius":   {"star", "-x", "31", "-y", "31", "-radius", "1", path},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Error(t, run(args, &stdout, &stderr))
		})
	}
}
