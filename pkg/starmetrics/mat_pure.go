//go:build purego || js

package starmetrics

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"slices"

	_ "golang.org/x/image/tiff"
)

// Mat is a pure Go 2D float32 matrix.
type Mat struct {
	data    []float32
	rows    int
	cols    int
	stride  int // elements per row in the backing array; differs from cols for regions
	dataOff int
	owned   bool
}

func NewMat() Mat { return Mat{} }

func NewMatWithSize(rows, cols int) Mat {
	return Mat{
		data:   make([]float32, rows*cols),
		rows:   rows,
		cols:   cols,
		stride: cols,
		owned:  true,
	}
}

func (m Mat) Rows() int   { return m.rows }
func (m Mat) Cols() int   { return m.cols }
func (m Mat) Empty() bool { return m.data == nil || m.rows == 0 || m.cols == 0 }

func (m Mat) Clone() Mat {
	out := NewMatWithSize(m.rows, m.cols)
	for r := 0; r < m.rows; r++ {
		off := m.dataOff + r*m.stride
		copy(out.data[r*m.cols:], m.data[off:off+m.cols])
	}
	return out
}

func (m *Mat) Close() {
	if m.owned {
		m.data = nil
	}
	m.rows = 0
	m.cols = 0
}

// DataFloat32 returns the backing slice. Only valid for contiguous mats, so
// clone a Region first.
func (m Mat) DataFloat32() []float32 {
	return m.data[m.dataOff:]
}

func (m Mat) Region(r image.Rectangle) Mat {
	return Mat{
		data:    m.data,
		rows:    r.Dy(),
		cols:    r.Dx(),
		stride:  m.stride,
		dataOff: m.dataOff + r.Min.Y*m.stride + r.Min.X,
	}
}

// medianBlur replicates border pixels, as OpenCV does.
func medianBlur(src Mat, dst *Mat, ksize int) {
	rows, cols := src.rows, src.cols
	srcData := src.DataFloat32()
	result := make([]float32, rows*cols)
	half := ksize / 2
	window := make([]float32, 0, ksize*ksize)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			window = window[:0]
			for dr := -half; dr <= half; dr++ {
				rr := min(max(r+dr, 0), rows-1)
				for dc := -half; dc <= half; dc++ {
					cc := min(max(c+dc, 0), cols-1)
					window = append(window, srcData[rr*cols+cc])
				}
			}
			slices.Sort(window)
			result[r*cols+c] = window[len(window)/2]
		}
	}

	if dst.rows != rows || dst.cols != cols || dst.data == nil {
		*dst = NewMatWithSize(rows, cols)
	}
	copy(dst.DataFloat32(), result)
}

// loadRaster decodes a PNG, JPEG or TIFF into 16-bit luminance.
func loadRaster(path string) (Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return Mat{}, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Mat{}, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			pixels[y*w+x] = uint16((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
		}
	}
	return ToFloat32Mat(pixels, 16, w, h), nil
}
