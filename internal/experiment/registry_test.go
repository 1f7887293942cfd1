package experiment

import (
	"errors"
	"testing"
)

func TestRegistryAddAndGet(t *testing.T) {
	r := NewRegistry()

	e := testExperiment(t)
	if err := r.Add(e); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Same id twice yields a conflict.
	dup := testExperiment(t)
	if err := r.Add(dup); !errors.Is(err, ErrDuplicateExperiment) {
		t.Errorf("duplicate add: got %v, want ErrDuplicateExperiment", err)
	}

	got, err := r.Get("exp-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != e {
		t.Error("Get returned a different experiment")
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrExperimentNotFound) {
		t.Errorf("missing id: got %v, want ErrExperimentNotFound", err)
	}
}

func TestRegistryIDsSorted(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		e := testExperiment(t)
		e.ID = id
		if err := r.Add(e); err != nil {
			t.Fatalf("Add %s failed: %v", id, err)
		}
	}

	ids := r.IDs()
	want := []string{"alpha", "mid", "zeta"}
	if len(ids) != len(want) {
		t.Fatalf("IDs length = %d, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}
}
