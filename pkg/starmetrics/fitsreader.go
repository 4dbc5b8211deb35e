package starmetrics

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	fitsBlockSize  = 2880
	fitsRecordSize = 80
)

// FitsHeader holds the primary HDU keywords, upper-cased, with string
// quotes and comments stripped.
type FitsHeader map[string]string

func (h FitsHeader) String(key string) string {
	return h[strings.ToUpper(key)]
}

func (h FitsHeader) Float(key string) (float64, bool) {
	v, ok := h[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (h FitsHeader) Int(key string) (int, bool) {
	v, ok := h[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

// PixelScale returns arcseconds per pixel from XPIXSZ (microns) and
// FOCALLEN (millimetres), honouring XBINNING.
func (h FitsHeader) PixelScale() (float64, bool) {
	pixel, ok := h.Float("XPIXSZ")
	if !ok || pixel <= 0 {
		return 0, false
	}
	focal, ok := h.Float("FOCALLEN")
	if !ok || focal <= 0 {
		return 0, false
	}
	if bin, ok := h.Int("XBINNING"); ok && bin > 1 {
		pixel *= float64(bin)
	}
	return 206.265 * pixel / focal, true
}

// FitsImage is a decoded 2-D primary image.
type FitsImage struct {
	Pixels   []uint16
	Width    int
	Height   int
	BitDepth int
	Header   FitsHeader
}

// Mat normalizes the pixels to [0, 1]. Raw one-shot-colour frames (BAYERPAT
// set) are reduced to luminance first.
func (f *FitsImage) Mat() (Mat, error) {
	pattern := strings.ToUpper(strings.TrimSpace(f.Header.String("BAYERPAT")))
	if pattern == "" {
		return ToFloat32Mat(f.Pixels, f.BitDepth, f.Width, f.Height), nil
	}
	return DebayerToMat(f.Pixels, f.BitDepth, f.Width, f.Height, pattern)
}

// ReadFits reads headers and pixel data from a file.
func ReadFits(filePath string) (*FitsImage, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return readFits(f)
}

// ReadFitsFromBytes reads headers and pixel data from a byte slice.
func ReadFitsFromBytes(data []byte) (*FitsImage, error) {
	return readFits(bytes.NewReader(data))
}

func readFits(r io.Reader) (*FitsImage, error) {
	header, err := readFitsHeader(r)
	if err != nil {
		return nil, err
	}

	bitpix, _ := header.Int("BITPIX")
	naxis, _ := header.Int("NAXIS")
	width, _ := header.Int("NAXIS1")
	height, _ := header.Int("NAXIS2")
	if naxis < 2 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid FITS: NAXIS=%d, NAXIS1=%d, NAXIS2=%d", naxis, width, height)
	}
	bzero, ok := header.Float("BZERO")
	if !ok {
		bzero = 0
	}
	bscale, ok := header.Float("BSCALE")
	if !ok {
		bscale = 1
	}

	physical, err := readFitsData(r, bitpix, width*height)
	if err != nil {
		return nil, err
	}

	// Floating point frames are often stored already normalized.
	scale := 1.0
	if bitpix < 0 {
		peak := 0.0
		for i, v := range physical {
			physical[i] = v*bscale + bzero
			peak = math.Max(peak, physical[i])
		}
		if peak <= 1 {
			scale = 65535
		}
	} else {
		for i, v := range physical {
			physical[i] = v*bscale + bzero
		}
	}

	bitDepth := 16
	if bitpix == 8 {
		bitDepth = 8
		scale = 1
	}
	ceiling := float64(uint32(1)<<uint(bitDepth) - 1)
	pixels := make([]uint16, len(physical))
	for i, v := range physical {
		pixels[i] = uint16(math.Min(math.Max(v*scale, 0), ceiling))
	}

	return &FitsImage{
		Pixels:   pixels,
		Width:    width,
		Height:   height,
		BitDepth: bitDepth,
		Header:   header,
	}, nil
}

// readFitsHeader consumes whole 2880-byte blocks up to and including END.
func readFitsHeader(r io.Reader) (FitsHeader, error) {
	header := FitsHeader{}
	block := make([]byte, fitsBlockSize)
	for first := true; ; first = false {
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, fmt.Errorf("reading FITS header block: %w", err)
		}
		for off := 0; off < fitsBlockSize; off += fitsRecordSize {
			record := string(block[off : off+fitsRecordSize])
			keyword := strings.TrimSpace(record[:8])
			if first && off == 0 && keyword != "SIMPLE" {
				return nil, fmt.Errorf("not a FITS file: first keyword %q", keyword)
			}
			if keyword == "END" {
				return header, nil
			}
			if keyword == "" || record[8:10] != "= " {
				continue
			}
			if v := parseFitsValue(record[10:]); v != "" {
				header[strings.ToUpper(keyword)] = v
			}
		}
	}
}

func readFitsData(r io.Reader, bitpix, n int) ([]float64, error) {
	var size int
	switch bitpix {
	case 8:
		size = 1
	case 16:
		size = 2
	case 32, -32:
		size = 4
	case -64:
		size = 8
	default:
		return nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}

	raw := make([]byte, n*size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading BITPIX %d pixel data: %w", bitpix, err)
	}

	out := make([]float64, n)
	for i := range out {
		b := raw[i*size:]
		switch bitpix {
		case 8:
			out[i] = float64(b[0])
		case 16:
			out[i] = float64(int16(binary.BigEndian.Uint16(b)))
		case 32:
			out[i] = float64(int32(binary.BigEndian.Uint32(b)))
		case -32:
			out[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
		case -64:
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(b))
		}
	}
	return out, nil
}

// parseFitsValue strips the comment and quoting from the value part of a
// header card.
func parseFitsValue(field string) string {
	field = strings.TrimSpace(field)
	if strings.HasPrefix(field, "'") {
		// Quotes inside strings are doubled.
		var sb strings.Builder
		for i := 1; i < len(field); i++ {
			if field[i] == '\'' {
				if i+1 < len(field) && field[i+1] == '\'' {
					sb.WriteByte('\'')
					i++
					continue
				}
				break
			}
			sb.WriteByte(field[i])
		}
		return strings.TrimRight(sb.String(), " ")
	}
	field = strings.TrimSpace(strings.SplitN(field, "/", 2)[0])
	switch field {
	case "T":
		return "True"
	case "F":
		return "False"
	}
	return field
}
