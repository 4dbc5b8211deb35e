/*
Extracted from HocusFocus plugin by George Hilios.
Original Copyright © 2021 George Hilios <ghilios+NINA@googlemail.com>
Licensed under Mozilla Public License 2.0.
Ported to Go.
*/

package starmetrics

import (
	"image"
	"math"
	"path/filepath"
	"strings"
)

// ToFloat32Mat converts a uint16 pixel array to a CV_32F Mat normalized to [0, 1].
func ToFloat32Mat(pixels []uint16, bpp, width, height int) Mat {
	data := NewMatWithSize(height, width)
	dest := data.DataFloat32()
	scalingRatio := float32(uint32(1) << uint(bpp))
	for i := 0; i < width*height; i++ {
		dest[i] = float32(pixels[i]) / scalingRatio
	}
	return data
}

// FromFloat64 builds a Mat from row-major values already in [0, 1].
func FromFloat64(values []float64, width, height int) Mat {
	m := NewMatWithSize(height, width)
	dest := m.DataFloat32()
	for i := 0; i < width*height; i++ {
		dest[i] = float32(values[i])
	}
	return m
}

// LoadImage reads a FITS file or any raster format the active Mat backend
// decodes, as a single normalized channel. The header is nil for non-FITS
// images.
func LoadImage(path string) (Mat, FitsHeader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".fit", ".fts":
		fits, err := ReadFits(path)
		if err != nil {
			return Mat{}, nil, err
		}
		m, err := fits.Mat()
		return m, fits.Header, err
	default:
		m, err := loadRaster(path)
		return m, nil, err
	}
}

func bounds(img Mat) image.Rectangle {
	return image.Rect(0, 0, img.Cols(), img.Rows())
}

func pixelAt(img Mat, x, y int) float64 {
	return float64(img.DataFloat32()[y*img.Cols()+x])
}

// BilinearSamplePixelValue samples a pixel value using bilinear interpolation.
func BilinearSamplePixelValue(img Mat, y, x float64) float64 {
	y0 := int(math.Floor(y))
	y1 := min(y0+1, img.Rows()-1)
	x0 := int(math.Floor(x))
	x1 := min(x0+1, img.Cols()-1)
	yRatio := y - float64(y0)
	xRatio := x - float64(x0)

	p00 := pixelAt(img, x0, y0)
	p01 := pixelAt(img, x1, y0)
	p10 := pixelAt(img, x0, y1)
	p11 := pixelAt(img, x1, y1)
	top := p00 + xRatio*(p01-p00)
	bottom := p10 + xRatio*(p11-p10)
	return top + yRatio*(bottom-top)
}
