package starmetrics

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fitsFile assembles a primary HDU from header cards and raw big-endian data.
func fitsFile(cards []string, data []byte) []byte {
	var buf bytes.Buffer
	for _, c := range append(cards, "END") {
		fmt.Fprintf(&buf, "%-80s", c)
	}
	for buf.Len()%fitsBlockSize != 0 {
		buf.WriteByte(' ')
	}
	buf.Write(data)
	return buf.Bytes()
}

func card(key, value string) string {
	return fmt.Sprintf("%-8s= %20s", key, value)
}

func int16Data(pixels []uint16) []byte {
	out := make([]byte, 2*len(pixels))
	for i, p := range pixels {
		binary.BigEndian.PutUint16(out[2*i:], uint16(int16(int32(p)-32768)))
	}
	return out
}

func TestReadFits16Bit(t *testing.T) {
	pixels := []uint16{0, 1000, 65535, 32768, 5, 7}
	raw := fitsFile([]string{
		card("SIMPLE", "T"),
		card("BITPIX", "16"),
		card("NAXIS", "2"),
		card("NAXIS1", "3"),
		card("NAXIS2", "2"),
		card("BZERO", "32768") + " / unsigned offset",
		card("OBJECT", "'M 31    '"),
		card("XPIXSZ", "3.76"),
		card("FOCALLEN", "400"),
		"COMMENT a comment card without a value",
	}, int16Data(pixels))

	img, err := ReadFitsFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Equal(t, 16, img.BitDepth)
	assert.Equal(t, pixels, img.Pixels)
	assert.Equal(t, "M 31", img.Header.String("object"))
	assert.Equal(t, "True", img.Header.String("SIMPLE"))

	scale, ok := img.Header.PixelScale()
	require.True(t, ok)
	assert.InDelta(t, 206.265*3.76/400, scale, 1e-9)

	m, err := img.Mat()
	require.NoError(t, err)
	defer m.Close()
	assert.InDelta(t, 1000.0/65536, pixelAt(m, 1, 0), 1e-7)
	assert.InDelta(t, 65535.0/65536, pixelAt(m, 2, 0), 1e-7)
}

func TestReadFitsNormalizedFloat(t *testing.T) {
	values := []float32{0, 0.5, 1, 0.25}
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	raw := fitsFile([]string{
		card("SIMPLE", "T"),
		card("BITPIX", "-32"),
		card("NAXIS", "2"),
		card("NAXIS1", "2"),
		card("NAXIS2", "2"),
	}, data)

	img, err := ReadFitsFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 32767, 65535, 16383}, img.Pixels)
}

func TestReadFitsBayer(t *testing.T) {
	pixels := []uint16{40000, 40000, 40000, 40000}
	raw := fitsFile([]string{
		card("SIMPLE", "T"),
		card("BITPIX", "16"),
		card("NAXIS", "2"),
		card("NAXIS1", "2"),
		card("NAXIS2", "2"),
		card("BZERO", "32768"),
		card("BAYERPAT", "'RGGB'"),
	}, int16Data(pixels))

	img, err := ReadFitsFromBytes(raw)
	require.NoError(t, err)
	m, err := img.Mat()
	require.NoError(t, err)
	defer m.Close()
	for _, v := range m.DataFloat32()[:4] {
		assert.InDelta(t, 40000.0/65535, float64(v), 1e-6)
	}

	img.Header["BAYERPAT"] = "XYZW"
	_, err = img.Mat()
	assert.Error(t, err)
}

func TestReadFitsErrors(t *testing.T) {
	tests := map[string][]byte{
		"empty":      nil,
		"not fits":   fitsFile([]string{card("BITPIX", "16")}, nil),
		"no axes":    fitsFile([]string{card("SIMPLE", "T"), card("BITPIX", "16"), card("NAXIS", "0")}, nil),
		"bad bitpix": fitsFile([]string{card("SIMPLE", "T"), card("BITPIX", "64"), card("NAXIS", "2"), card("NAXIS1", "1"), card("NAXIS2", "1")}, make([]byte, 8)),
		"short data": fitsFile([]string{card("SIMPLE", "T"), card("BITPIX", "16"), card("NAXIS", "2"), card("NAXIS1", "4"), card("NAXIS2", "4")}, make([]byte, 6)),
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadFitsFromBytes(raw)
			assert.Error(t, err)
		})
	}
}

func TestParseFitsValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  'O''Brien '  / observer", "O'Brien"},
		{"  42 / answer", "42"},
		{"  T", "True"},
		{"  F", "False"},
		{"   ", ""},
		{"  'a/b'", "a/b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseFitsValue(tt.in), tt.in)
	}
}

func TestLoadImageFits(t *testing.T) {
	raw := fitsFile([]string{
		card("SIMPLE", "T"),
		card("BITPIX", "8"),
		card("NAXIS", "2"),
		card("NAXIS1", "2"),
		card("NAXIS2", "1"),
	}, []byte{0, 128})
	path := filepath.Join(t.TempDir(), "frame.fits")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	m, header, err := LoadImage(path)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 2, m.Cols())
	assert.InDelta(t, 0.5, pixelAt(m, 1, 0), 1e-6)
	assert.Equal(t, "8", header.String("BITPIX"))

	_, _, err = LoadImage(filepath.Join(t.TempDir(), "missing.fits"))
	assert.Error(t, err)
}
