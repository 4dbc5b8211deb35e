package starmetrics

import (
	"bytes"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStarFit(t *testing.T) {
	img, star := measuredStar(t)
	_, err := FitStarPSF(quietFitter(), img, star, DefaultPSFOptions())
	require.NoError(t, err)

	data, err := RenderStarFitBytes(img, star)
	require.NoError(t, err)
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3*panelSize+2*panelGap, decoded.Bounds().Dx())
	assert.Equal(t, panelSize+labelHeight, decoded.Bounds().Dy())

	path := filepath.Join(t.TempDir(), "star.jpg")
	require.NoError(t, RenderStarFit(img, star, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderStarFitNeedsPSF(t *testing.T) {
	img, star := measuredStar(t)
	_, err := RenderStarFitBytes(img, star)
	assert.Error(t, err)

	star.PSF = &PSFModel{Coefficients: []float64{1, 2}}
	_, err = RenderStarFitBytes(img, star)
	assert.Error(t, err)

	assert.Error(t, RenderStarFit(img, nil, filepath.Join(t.TempDir(), "x.jpg")))
}
