package curvefit

import (
	"fmt"
	"strings"
)

// CurveType selects the model fitted to the samples. The integer value is
// the tag written by Serialize, so existing values must never be renumbered.
type CurveType int

const (
	CurveQuadratic CurveType = iota
	CurveHyperbola
	CurveParabola
	CurveGaussian
)

var curveTypeNames = map[CurveType]string{
	CurveQuadratic: "quadratic",
	CurveHyperbola: "hyperbola",
	CurveParabola:  "parabola",
	CurveGaussian:  "gaussian",
}

func (t CurveType) String() string {
	if name, ok := curveTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText makes log and JSON output show the name instead of the tag.
func (t CurveType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Valid reports whether t is one of the known curve types.
func (t CurveType) Valid() bool {
	_, ok := curveTypeNames[t]
	return ok
}

// ParseCurveType maps a case-insensitive name to its CurveType.
func ParseCurveType(name string) (CurveType, error) {
	for t, n := range curveTypeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return CurveType(-1), fmt.Errorf("unknown curve type %q", name)
}

// NumCoefficients returns the coefficient count for the curve type, or 0 for
// an unknown type.
func (t CurveType) NumCoefficients() int {
	switch t {
	case CurveQuadratic:
		return quadraticDegree + 1
	case CurveHyperbola:
		return hyperbolaParams
	case CurveParabola:
		return parabolaParams
	case CurveGaussian:
		return gaussianParams
	default:
		return 0
	}
}

// ValidCoefficients reports whether coeffs has the length expected for t.
func ValidCoefficients(t CurveType, coeffs []float64) bool {
	n := t.NumCoefficients()
	return n > 0 && len(coeffs) == n
}

// FittingGoal trades speed for accuracy. GoalBestRetry is an internal
// escalation state and is never honoured when passed in by a caller.
type FittingGoal int

const (
	GoalStandard FittingGoal = iota
	GoalBest
	GoalBestRetry
)

func (g FittingGoal) String() string {
	switch g {
	case GoalStandard:
		return "standard"
	case GoalBest:
		return "best"
	case GoalBestRetry:
		return "best_retry"
	default:
		return "unknown"
	}
}

func (g FittingGoal) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

// ParseFittingGoal accepts "standard" or "best".
func ParseFittingGoal(name string) (FittingGoal, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard", "":
		return GoalStandard, nil
	case "best":
		return GoalBest, nil
	default:
		return GoalStandard, fmt.Errorf("unknown fitting goal %q", name)
	}
}

// OptimisationDirection says whether the best focus is a minimum (HFR, FWHM)
// or a maximum (contrast-style measures) of the curve.
type OptimisationDirection int

const (
	Minimise OptimisationDirection = iota
	Maximise
)

func (d OptimisationDirection) String() string {
	if d == Maximise {
		return "maximise"
	}
	return "minimise"
}

func (d OptimisationDirection) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// ParseDirection accepts both British and American spellings.
func ParseDirection(name string) (OptimisationDirection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "minimise", "minimize", "min", "":
		return Minimise, nil
	case "maximise", "maximize", "max":
		return Maximise, nil
	default:
		return Minimise, fmt.Errorf("unknown optimisation direction %q", name)
	}
}

// Sample1D is one focuser sample.
type Sample1D struct {
	X       float64 // focuser position
	Y       float64 // sharpness measure
	Weight  float64 // inverse variance
	Outlier bool
}

// DataSet1D is an ordered focus run.
type DataSet1D []Sample1D

// Retained returns the samples that are not flagged as outliers, in order.
func (d DataSet1D) Retained() DataSet1D {
	out := make(DataSet1D, 0, len(d))
	for _, s := range d {
		if !s.Outlier {
			out = append(out, s)
		}
	}
	return out
}

// NewDataSet1D zips parallel slices into a DataSet1D. A nil weights slice
// means uniform weight, a nil outliers slice means no outliers.
func NewDataSet1D(xs, ys, weights []float64, outliers []bool) (DataSet1D, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d positions, %d values", ErrLengthMismatch, len(xs), len(ys))
	}
	if weights != nil && len(weights) != len(xs) {
		return nil, fmt.Errorf("%w: %d positions, %d weights", ErrLengthMismatch, len(xs), len(weights))
	}
	if outliers != nil && len(outliers) != len(xs) {
		return nil, fmt.Errorf("%w: %d positions, %d outlier flags", ErrLengthMismatch, len(xs), len(outliers))
	}
	d := make(DataSet1D, len(xs))
	for i := range xs {
		d[i] = Sample1D{X: xs[i], Y: ys[i], Weight: 1}
		if weights != nil {
			d[i].Weight = weights[i]
		}
		if outliers != nil {
			d[i].Outlier = outliers[i]
		}
	}
	return d, nil
}

// Sample2D is one pixel of a star cutout.
type Sample2D struct {
	X, Y   float64 // pixel offsets inside the cutout
	Z      float64 // intensity
	Weight float64
}

// DataSet3D is the 2-D analogue of DataSet1D; the name counts the z axis.
type DataSet3D []Sample2D

// CachedSolution is the last successful fit, used to warm-start the next fit
// of the same curve type.
type CachedSolution struct {
	CurveType    CurveType
	Coefficients []float64
}

// StarParams summarises a star. The detection side fills Background, Peak,
// the centroid, HFR and Theta; a Gaussian fit fills everything but HFR.
type StarParams struct {
	Background float64
	Peak       float64
	CentroidX  float64
	CentroidY  float64
	HFR        float64
	Theta      float64
	FWHMx      float64
	FWHMy      float64
	FWHM       float64
}

func (s StarParams) String() string {
	return fmt.Sprintf("{Background=%f, Peak=%f, Centroid=(%f,%f), HFR=%f, Theta=%f, FWHMx=%f, FWHMy=%f, FWHM=%f}",
		s.Background, s.Peak, s.CentroidX, s.CentroidY, s.HFR, s.Theta, s.FWHMx, s.FWHMy, s.FWHM)
}

// Extremum is the best-focus estimate read off a fitted curve.
type Extremum struct {
	Position float64
	Value    float64
}
