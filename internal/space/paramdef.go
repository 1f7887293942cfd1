// Package space describes the named, typed dimensions of a search
// problem and can validate, sample, or warp a configuration within it.
package space

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"tuneplane/pkg/api"
)

// ErrUnknownParamDefType is returned when a wire payload carries a type
// tag that does not name a known parameter definition.
var ErrUnknownParamDefType = errors.New("unknown param def type")

// ParamDef is one dimension of a parameter space. The set of
// implementations is closed: NumericRange and Nominal.
type ParamDef interface {
	// Contains reports whether a value lies in the parameter's domain.
	Contains(value any) bool

	// Sample draws one uniform value from the domain.
	Sample(rng *rand.Rand) any

	// WarpedSize is the number of [0,1] dimensions this parameter
	// occupies after warping.
	WarpedSize() int

	// WarpIn maps a domain value into [0,1]^WarpedSize.
	WarpIn(value any) ([]float64, error)

	// Wire converts the definition back to its wire representation.
	Wire() api.ParamDef
}

// NumericRange is a continuous numeric dimension with inclusive bounds.
type NumericRange struct {
	Lower float64
	Upper float64
}

// NewNumericRange validates the bounds and builds a NumericRange.
func NewNumericRange(lower, upper float64) (NumericRange, error) {
	if lower >= upper {
		return NumericRange{}, fmt.Errorf("numeric range: lower bound %v must be below upper bound %v", lower, upper)
	}
	return NumericRange{Lower: lower, Upper: upper}, nil
}

func (n NumericRange) Contains(value any) bool {
	v, ok := toFloat(value)
	if !ok {
		return false
	}
	return v >= n.Lower && v <= n.Upper
}

func (n NumericRange) Sample(rng *rand.Rand) any {
	return n.Lower + rng.Float64()*(n.Upper-n.Lower)
}

func (n NumericRange) WarpedSize() int { return 1 }

// WarpIn scales the value linearly into [0,1].
func (n NumericRange) WarpIn(value any) ([]float64, error) {
	v, ok := toFloat(value)
	if !ok || !n.Contains(v) {
		return nil, fmt.Errorf("value %v outside numeric range [%v, %v]", value, n.Lower, n.Upper)
	}
	return []float64{(v - n.Lower) / (n.Upper - n.Lower)}, nil
}

func (n NumericRange) Wire() api.ParamDef {
	lower, upper := n.Lower, n.Upper
	return api.ParamDef{
		Type:       api.ParamDefTypeMinMaxNumeric,
		LowerBound: &lower,
		UpperBound: &upper,
	}
}

// Nominal is a categorical dimension over a fixed set of string labels.
type Nominal struct {
	Values []string
}

// NewNominal validates the label set and builds a Nominal.
func NewNominal(values []string) (Nominal, error) {
	if len(values) == 0 {
		return Nominal{}, errors.New("nominal: values must not be empty")
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			return Nominal{}, fmt.Errorf("nominal: duplicate value %q", v)
		}
		seen[v] = struct{}{}
	}
	out := make([]string, len(values))
	copy(out, values)
	return Nominal{Values: out}, nil
}

func (n Nominal) Contains(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, v := range n.Values {
		if v == s {
			return true
		}
	}
	return false
}

func (n Nominal) Sample(rng *rand.Rand) any {
	return n.Values[rng.Intn(len(n.Values))]
}

func (n Nominal) WarpedSize() int { return len(n.Values) }

// WarpIn one-hot encodes the label.
func (n Nominal) WarpIn(value any) ([]float64, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value %v is not a nominal label", value)
	}
	out := make([]float64, len(n.Values))
	for i, v := range n.Values {
		if v == s {
			out[i] = 1
			return out, nil
		}
	}
	return nil, fmt.Errorf("value %q not in nominal set", s)
}

func (n Nominal) Wire() api.ParamDef {
	values := make([]string, len(n.Values))
	copy(values, n.Values)
	return api.ParamDef{Type: api.ParamDefTypeNominal, Values: values}
}

// ParseParamDef converts a wire payload into a ParamDef, rejecting
// unknown type tags and malformed payloads.
func ParseParamDef(p api.ParamDef) (ParamDef, error) {
	switch p.Type {
	case api.ParamDefTypeMinMaxNumeric:
		if p.LowerBound == nil || p.UpperBound == nil {
			return nil, errors.New("numeric param def requires lower_bound and upper_bound")
		}
		return NewNumericRange(*p.LowerBound, *p.UpperBound)
	case api.ParamDefTypeNominal:
		return NewNominal(p.Values)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownParamDefType, p.Type)
	}
}

// toFloat accepts the numeric types JSON decoding and Go callers
// produce for numeric parameters.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
