package starmetrics

import "fmt"

// greenAtOrigin reports, for a 2x2 Bayer pattern name, whether the top-left
// cell is green. The luminance below is symmetric in red and blue, so this
// is all it needs to know.
func greenAtOrigin(pattern string) (bool, error) {
	switch pattern {
	case "RGGB", "BGGR":
		return false, nil
	case "GRBG", "GBRG":
		return true, nil
	default:
		return false, fmt.Errorf("unsupported Bayer pattern %q", pattern)
	}
}

// DebayerLuminance performs bilinear interpolation on a raw Bayer-pattern
// image and returns a luminance channel: (R + G + B) / 3 per pixel.
// Edge pixels use clamped (replicated) neighbor lookups.
func DebayerLuminance(data []float64, width, height int, pattern string) ([]float64, error) {
	greenFirst, err := greenAtOrigin(pattern)
	if err != nil {
		return nil, err
	}
	out := make([]float64, width*height)
	px := func(x, y int) float64 {
		x = min(max(x, 0), width-1)
		y = min(max(y, 0), height-1)
		return data[y*width+x]
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			green := (x+y)%2 == 0
			if !greenFirst {
				green = !green
			}
			var sum float64
			if green {
				// one colour along the row, the other along the column
				sum = px(x, y) +
					(px(x-1, y)+px(x+1, y))/2 +
					(px(x, y-1)+px(x, y+1))/2
			} else {
				// green on the cross, the opposite colour on the diagonals
				sum = px(x, y) +
					(px(x-1, y)+px(x+1, y)+px(x, y-1)+px(x, y+1))/4 +
					(px(x-1, y-1)+px(x+1, y-1)+px(x-1, y+1)+px(x+1, y+1))/4
			}
			out[y*width+x] = sum / 3
		}
	}
	return out, nil
}

// DebayerToMat converts raw Bayer-pattern pixels to a luminance Mat.
func DebayerToMat(pixels []uint16, bitDepth, width, height int, pattern string) (Mat, error) {
	maxVal := float64(uint64(1)<<uint(bitDepth) - 1)
	data := make([]float64, len(pixels))
	for i, p := range pixels {
		data[i] = float64(p) / maxVal
	}
	lum, err := DebayerLuminance(data, width, height, pattern)
	if err != nil {
		return Mat{}, err
	}
	return FromFloat64(lum, width, height), nil
}
