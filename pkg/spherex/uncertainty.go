package spherex

import (
	"fmt"
	"math"

	"github.com/samcharles93/spherex/pkg/fits"
)

// UncertaintyKind names the statistic stored in an uncertainty array. The
// values are the class names recorded by astropy so files stay readable by
// CCDData.
type UncertaintyKind string

const (
	StdDevUncertainty   UncertaintyKind = "StdDevUncertainty"
	VarianceUncertainty UncertaintyKind = "VarianceUncertainty"
	InverseVariance     UncertaintyKind = "InverseVariance"
)

// ParseUncertaintyKind maps a header value to a kind. A missing value means
// standard deviation.
func ParseUncertaintyKind(s string) (UncertaintyKind, error) {
	switch k := UncertaintyKind(s); k {
	case "":
		return StdDevUncertainty, nil
	case StdDevUncertainty, VarianceUncertainty, InverseVariance:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUncertainty, s)
}

// Uncertainty is a per-pixel error estimate tagged with its kind.
type Uncertainty struct {
	Kind   UncertaintyKind
	Values *fits.Array[float64]
}

// Variance returns the values converted to variance.
func (u *Uncertainty) Variance() []float64 {
	out := make([]float64, len(u.Values.Data))
	for i, v := range u.Values.Data {
		switch u.Kind {
		case VarianceUncertainty:
			out[i] = v
		case InverseVariance:
			out[i] = 1 / v
		default:
			out[i] = v * v
		}
	}
	return out
}

// FromVariance builds an uncertainty of the given kind from variances.
func FromVariance(kind UncertaintyKind, shape []int, variance []float64) (*Uncertainty, error) {
	vals := make([]float64, len(variance))
	for i, v := range variance {
		switch kind {
		case VarianceUncertainty:
			vals[i] = v
		case InverseVariance:
			vals[i] = 1 / v
		case StdDevUncertainty:
			vals[i] = math.Sqrt(v)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownUncertainty, kind)
		}
	}
	arr, err := fits.NewArray(shape, vals)
	if err != nil {
		return nil, err
	}
	return &Uncertainty{Kind: kind, Values: arr}, nil
}

func (u *Uncertainty) clone() *Uncertainty {
	if u == nil {
		return nil
	}
	return &Uncertainty{Kind: u.Kind, Values: u.Values.Clone()}
}
