package curvefit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	fieldSeparator  = "|"
	vectorSeparator = ";"
	serializedParts = 8
)

var errMalformedState = errors.New("curvefit: malformed state string")

// Serialize encodes the fitter state:
//
//	type|xs|ys|weights|T-or-F|coefficients|cachedType|cachedCoefficients
//
// Vectors are written as count;v1;v2... with "0" for an empty vector. A
// missing cache is written as the current curve type and an empty vector.
func (f *CurveFitter) Serialize() string {
	xs := make([]float64, len(f.data))
	ys := make([]float64, len(f.data))
	ws := make([]float64, len(f.data))
	for i, s := range f.data {
		xs[i], ys[i], ws[i] = s.X, s.Y, s.Weight
	}

	cacheType, cacheCoeffs := f.curveType, []float64(nil)
	if f.cache != nil {
		cacheType, cacheCoeffs = f.cache.CurveType, f.cache.Coefficients
	}

	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(f.curveType)))
	for _, v := range [][]float64{xs, ys, ws} {
		sb.WriteString(fieldSeparator)
		sb.WriteString(encodeVector(v))
	}
	sb.WriteString(fieldSeparator)
	if f.useWeights {
		sb.WriteString("T")
	} else {
		sb.WriteString("F")
	}
	sb.WriteString(fieldSeparator)
	sb.WriteString(encodeVector(f.coefficients))
	sb.WriteString(fieldSeparator)
	sb.WriteString(strconv.Itoa(int(cacheType)))
	sb.WriteString(fieldSeparator)
	sb.WriteString(encodeVector(cacheCoeffs))
	return sb.String()
}

// Recreate restores state written by Serialize. On any decoding error it
// returns false and leaves the fitter unchanged.
func (f *CurveFitter) Recreate(s string) bool {
	st, err := decodeState(s)
	if err != nil {
		f.log.Warn("cannot restore fitter state", "err", err)
		return false
	}
	f.curveType = st.curveType
	f.data = st.data
	f.data3D = nil
	f.useWeights = st.useWeights
	f.coefficients = st.coefficients
	f.cache = st.cache
	return true
}

// NewCurveFitterFromString builds a fitter from a Serialize string.
func NewCurveFitterFromString(s string, opts ...Option) (*CurveFitter, bool) {
	f := NewCurveFitter(opts...)
	if !f.Recreate(s) {
		return nil, false
	}
	return f, true
}

type decodedState struct {
	curveType    CurveType
	data         DataSet1D
	useWeights   bool
	coefficients []float64
	cache        *CachedSolution
}

func decodeState(s string) (decodedState, error) {
	parts := strings.Split(s, fieldSeparator)
	if len(parts) != serializedParts {
		return decodedState{}, fmt.Errorf("%w: %d fields, want %d", errMalformedState, len(parts), serializedParts)
	}

	var st decodedState
	var err error
	if st.curveType, err = decodeCurveType(parts[0]); err != nil {
		return decodedState{}, err
	}

	var vecs [3][]float64
	for i := range vecs {
		if vecs[i], err = decodeVector(parts[1+i]); err != nil {
			return decodedState{}, err
		}
	}
	xs, ys, ws := vecs[0], vecs[1], vecs[2]
	if len(ys) != len(xs) || len(ws) != len(xs) {
		return decodedState{}, fmt.Errorf("%w: data vectors of length %d, %d, %d",
			errMalformedState, len(xs), len(ys), len(ws))
	}
	if len(xs) > 0 {
		st.data = make(DataSet1D, len(xs))
		for i := range xs {
			st.data[i] = Sample1D{X: xs[i], Y: ys[i], Weight: ws[i]}
		}
	}

	switch parts[4] {
	case "T":
		st.useWeights = true
	case "F":
		st.useWeights = false
	default:
		return decodedState{}, fmt.Errorf("%w: weights marker %q", errMalformedState, parts[4])
	}

	if st.coefficients, err = decodeVector(parts[5]); err != nil {
		return decodedState{}, err
	}
	if len(st.coefficients) > 0 && !ValidCoefficients(st.curveType, st.coefficients) {
		return decodedState{}, fmt.Errorf("%w: %d coefficients for %s",
			errMalformedState, len(st.coefficients), st.curveType)
	}

	cacheType, err := decodeCurveType(parts[6])
	if err != nil {
		return decodedState{}, err
	}
	cacheCoeffs, err := decodeVector(parts[7])
	if err != nil {
		return decodedState{}, err
	}
	if len(cacheCoeffs) > 0 {
		if !ValidCoefficients(cacheType, cacheCoeffs) {
			return decodedState{}, fmt.Errorf("%w: %d cached coefficients for %s",
				errMalformedState, len(cacheCoeffs), cacheType)
		}
		st.cache = &CachedSolution{CurveType: cacheType, Coefficients: cacheCoeffs}
	}
	return st, nil
}

func decodeCurveType(s string) (CurveType, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: curve tag %q: %v", errMalformedState, s, err)
	}
	t := CurveType(n)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: unknown curve tag %d", errMalformedState, n)
	}
	return t, nil
}

func encodeVector(v []float64) string {
	if len(v) == 0 {
		return "0"
	}
	parts := make([]string, 0, len(v)+1)
	parts = append(parts, strconv.Itoa(len(v)))
	for _, x := range v {
		parts = append(parts, strconv.FormatFloat(x, 'g', -1, 64))
	}
	return strings.Join(parts, vectorSeparator)
}

func decodeVector(s string) ([]float64, error) {
	parts := strings.Split(s, vectorSeparator)
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: vector count %q: %v", errMalformedState, parts[0], err)
	}
	if n < 0 || n != len(parts)-1 {
		return nil, fmt.Errorf("%w: vector declares %d values, has %d", errMalformedState, n, len(parts)-1)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]float64, n)
	for i, p := range parts[1:] {
		if out[i], err = strconv.ParseFloat(p, 64); err != nil {
			return nil, fmt.Errorf("%w: vector value %q: %v", errMalformedState, p, err)
		}
	}
	return out, nil
}
