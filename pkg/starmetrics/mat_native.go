//go:build !purego && !js

package starmetrics

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Mat wraps gocv.Mat for the native OpenCV backend. Mats handed out by this
// package are single-channel CV_32F.
type Mat struct {
	m gocv.Mat
}

func NewMat() Mat                      { return Mat{m: gocv.NewMat()} }
func NewMatWithSize(rows, cols int) Mat { return Mat{m: gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)} }
func (mat Mat) Rows() int              { return mat.m.Rows() }
func (mat Mat) Cols() int              { return mat.m.Cols() }
func (mat Mat) Empty() bool            { return mat.m.Empty() }
func (mat Mat) Clone() Mat             { return Mat{m: mat.m.Clone()} }
func (mat *Mat) Close()                { mat.m.Close() }

// Region returns a view on r; clone it before calling DataFloat32.
func (mat Mat) Region(r image.Rectangle) Mat { return Mat{m: mat.m.Region(r)} }

func (mat Mat) DataFloat32() []float32 {
	data, _ := mat.m.DataPtrFloat32()
	return data
}

func medianBlur(src Mat, dst *Mat, ksize int) {
	gocv.MedianBlur(src.m, &dst.m, ksize)
}

// loadRaster reads a PNG, JPEG or TIFF as grayscale, scaled to [0, 1].
func loadRaster(path string) (Mat, error) {
	src := gocv.IMRead(path, gocv.IMReadGrayScale|gocv.IMReadAnyDepth)
	if src.Empty() {
		return Mat{}, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	scale := float32(1.0 / 65535.0)
	if src.Type() == gocv.MatTypeCV8UC1 {
		scale = 1.0 / 255.0
	}
	out := gocv.NewMat()
	src.ConvertToWithParams(&out, gocv.MatTypeCV32F, scale, 0)
	return Mat{m: out}, nil
}
