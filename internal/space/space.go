package space

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"tuneplane/pkg/api"
)

// InvalidParameterError reports a single parameter value that does not
// satisfy its definition, or a key-set mismatch.
type InvalidParameterError struct {
	Name   string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Name, e.Reason)
}

// Space is an ordered mapping from parameter name to ParamDef.
// It is immutable once built; all methods are pure and safe for
// concurrent use.
type Space struct {
	names []string
	defs  map[string]ParamDef
}

// New builds a Space from named definitions. Names are kept in sorted
// order so sampling and warping are deterministic.
func New(defs map[string]ParamDef) (*Space, error) {
	if len(defs) == 0 {
		return nil, errors.New("space: at least one parameter definition is required")
	}
	names := make([]string, 0, len(defs))
	owned := make(map[string]ParamDef, len(defs))
	for name, def := range defs {
		if name == "" {
			return nil, errors.New("space: parameter name must not be empty")
		}
		if def == nil {
			return nil, fmt.Errorf("space: parameter %q has no definition", name)
		}
		names = append(names, name)
		owned[name] = def
	}
	sort.Strings(names)
	return &Space{names: names, defs: owned}, nil
}

// Parse builds a Space directly from wire payloads.
func Parse(payloads map[string]api.ParamDef) (*Space, error) {
	defs := make(map[string]ParamDef, len(payloads))
	for name, p := range payloads {
		def, err := ParseParamDef(p)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		defs[name] = def
	}
	return New(defs)
}

// Names returns the parameter names in deterministic order.
func (s *Space) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Def returns the definition for a parameter name.
func (s *Space) Def(name string) (ParamDef, bool) {
	def, ok := s.defs[name]
	return def, ok
}

// Validate checks that params has exactly the space's key set and every
// value lies in its parameter's domain.
func (s *Space) Validate(params map[string]any) error {
	for _, name := range s.names {
		value, ok := params[name]
		if !ok {
			return &InvalidParameterError{Name: name, Reason: "missing"}
		}
		if !s.defs[name].Contains(value) {
			return &InvalidParameterError{Name: name, Reason: fmt.Sprintf("value %v outside domain", value)}
		}
	}
	for name := range params {
		if _, ok := s.defs[name]; !ok {
			return &InvalidParameterError{Name: name, Reason: "not defined in parameter space"}
		}
	}
	return nil
}

// Sample draws one uniform value per dimension.
func (s *Space) Sample(rng *rand.Rand) map[string]any {
	params := make(map[string]any, len(s.names))
	for _, name := range s.names {
		params[name] = s.defs[name].Sample(rng)
	}
	return params
}

// WarpedSize is the dimensionality of the warped hypercube.
func (s *Space) WarpedSize() int {
	size := 0
	for _, name := range s.names {
		size += s.defs[name].WarpedSize()
	}
	return size
}

// WarpIn maps a full parameter assignment into [0,1]^WarpedSize,
// concatenating per-parameter warps in name order. Model-based
// optimizers operate on this representation.
func (s *Space) WarpIn(params map[string]any) ([]float64, error) {
	if err := s.Validate(params); err != nil {
		return nil, err
	}
	out := make([]float64, 0, s.WarpedSize())
	for _, name := range s.names {
		warped, err := s.defs[name].WarpIn(params[name])
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		out = append(out, warped...)
	}
	return out, nil
}

// Wire converts the space back to its wire representation.
func (s *Space) Wire() map[string]api.ParamDef {
	out := make(map[string]api.ParamDef, len(s.names))
	for _, name := range s.names {
		out[name] = s.defs[name].Wire()
	}
	return out
}
