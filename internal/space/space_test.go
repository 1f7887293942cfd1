package space

import (
	"errors"
	"math/rand"
	"testing"

	"tuneplane/pkg/api"
)

func float64Ptr(v float64) *float64 { return &v }

func testSpace(t *testing.T) *Space {
	t.Helper()
	s, err := Parse(map[string]api.ParamDef{
		"x": {Type: api.ParamDefTypeMinMaxNumeric, LowerBound: float64Ptr(-5), UpperBound: float64Ptr(10)},
		"y": {Type: api.ParamDefTypeMinMaxNumeric, LowerBound: float64Ptr(0), UpperBound: float64Ptr(15)},
		"k": {Type: api.ParamDefTypeNominal, Values: []string{"a", "b", "c"}},
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return s
}

func TestParseParamDef(t *testing.T) {
	tests := []struct {
		name    string
		payload api.ParamDef
		wantErr bool
		unknown bool
	}{
		{
			name:    "Valid numeric",
			payload: api.ParamDef{Type: api.ParamDefTypeMinMaxNumeric, LowerBound: float64Ptr(0), UpperBound: float64Ptr(1)},
		},
		{
			name:    "Valid nominal",
			payload: api.ParamDef{Type: api.ParamDefTypeNominal, Values: []string{"x", "y"}},
		},
		{
			name:    "Inverted bounds",
			payload: api.ParamDef{Type: api.ParamDefTypeMinMaxNumeric, LowerBound: float64Ptr(2), UpperBound: float64Ptr(1)},
			wantErr: true,
		},
		{
			name:    "Missing bounds",
			payload: api.ParamDef{Type: api.ParamDefTypeMinMaxNumeric},
			wantErr: true,
		},
		{
			name:    "Empty nominal",
			payload: api.ParamDef{Type: api.ParamDefTypeNominal},
			wantErr: true,
		},
		{
			name:    "Duplicate nominal values",
			payload: api.ParamDef{Type: api.ParamDefTypeNominal, Values: []string{"x", "x"}},
			wantErr: true,
		},
		{
			name:    "Unknown type tag",
			payload: api.ParamDef{Type: "FancyParamDef"},
			wantErr: true,
			unknown: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParamDef(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseParamDef error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.unknown && !errors.Is(err, ErrUnknownParamDefType) {
				t.Errorf("expected ErrUnknownParamDefType, got %v", err)
			}
		})
	}
}

func TestSampleValidateRoundTrip(t *testing.T) {
	s := testSpace(t)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		params := s.Sample(rng)
		if err := s.Validate(params); err != nil {
			t.Fatalf("sampled params failed validation: %v (params=%v)", err, params)
		}
		x := params["x"].(float64)
		if x < -5 || x > 10 {
			t.Fatalf("x=%v outside [-5, 10]", x)
		}
	}
}

func TestValidateErrors(t *testing.T) {
	s := testSpace(t)

	tests := []struct {
		name   string
		params map[string]any
	}{
		{"Missing key", map[string]any{"x": 1.0, "y": 1.0}},
		{"Extra key", map[string]any{"x": 1.0, "y": 1.0, "k": "a", "z": 3.0}},
		{"Numeric out of range", map[string]any{"x": 99.0, "y": 1.0, "k": "a"}},
		{"Nominal not in set", map[string]any{"x": 1.0, "y": 1.0, "k": "z"}},
		{"Wrong type", map[string]any{"x": "one", "y": 1.0, "k": "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.params)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var invalid *InvalidParameterError
			if !errors.As(err, &invalid) {
				t.Errorf("expected InvalidParameterError, got %T", err)
			}
		})
	}
}

func TestWarpIn(t *testing.T) {
	s := testSpace(t)

	// k one-hot (3) + x (1) + y (1)
	if got := s.WarpedSize(); got != 5 {
		t.Fatalf("WarpedSize = %d, want 5", got)
	}

	warped, err := s.WarpIn(map[string]any{"x": 10.0, "y": 0.0, "k": "b"})
	if err != nil {
		t.Fatalf("WarpIn failed: %v", err)
	}
	// Names are sorted: k, x, y.
	want := []float64{0, 1, 0, 1, 0}
	if len(warped) != len(want) {
		t.Fatalf("warped length = %d, want %d", len(warped), len(want))
	}
	for i := range want {
		if warped[i] != want[i] {
			t.Errorf("warped[%d] = %v, want %v", i, warped[i], want[i])
		}
	}

	// Warped values always stay inside the unit hypercube.
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		w, err := s.WarpIn(s.Sample(rng))
		if err != nil {
			t.Fatalf("WarpIn of sample failed: %v", err)
		}
		for _, v := range w {
			if v < 0 || v > 1 {
				t.Fatalf("warped value %v outside [0,1]", v)
			}
		}
	}
}

func TestSampleDeterministicForSeed(t *testing.T) {
	s := testSpace(t)

	a := s.Sample(rand.New(rand.NewSource(42)))
	b := s.Sample(rand.New(rand.NewSource(42)))

	for name := range a {
		if a[name] != b[name] {
			t.Errorf("sample for %q differs across identical seeds: %v vs %v", name, a[name], b[name])
		}
	}
}
