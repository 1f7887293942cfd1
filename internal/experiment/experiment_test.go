package experiment

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"tuneplane/internal/optimizer"
	"tuneplane/internal/space"
	"tuneplane/pkg/api"
)

func float64Ptr(v float64) *float64 { return &v }

func testExperiment(t *testing.T) *Experiment {
	t.Helper()
	sp, err := space.Parse(map[string]api.ParamDef{
		"x": {Type: api.ParamDefTypeMinMaxNumeric, LowerBound: float64Ptr(-5), UpperBound: float64Ptr(10)},
		"y": {Type: api.ParamDefTypeMinMaxNumeric, LowerBound: float64Ptr(0), UpperBound: float64Ptr(15)},
	})
	if err != nil {
		t.Fatalf("building space failed: %v", err)
	}
	strategy, err := optimizer.New(optimizer.KindRandomSearch, optimizer.Config{Seed: 1})
	if err != nil {
		t.Fatalf("building strategy failed: %v", err)
	}
	return New("exp-1", "test experiment", true, sp, strategy)
}

func TestNextCandidateGeneratesAndClaims(t *testing.T) {
	e := testExperiment(t)

	cand, err := e.NextCandidate(nil)
	if err != nil {
		t.Fatalf("NextCandidate failed: %v", err)
	}
	if cand.State != StateWorking {
		t.Errorf("state = %s, want working", cand.State)
	}
	x := cand.Params["x"].(float64)
	y := cand.Params["y"].(float64)
	if x < -5 || x > 10 {
		t.Errorf("x = %v outside [-5, 10]", x)
	}
	if y < 0 || y > 15 {
		t.Errorf("y = %v outside [0, 15]", y)
	}

	snap := e.Snapshot()
	if len(snap.Working) != 1 || len(snap.Pending) != 0 {
		t.Errorf("buckets = %d working / %d pending, want 1/0", len(snap.Working), len(snap.Pending))
	}
}

func TestNextCandidatePrefersPending(t *testing.T) {
	e := testExperiment(t)

	first, err := e.NextCandidate(nil)
	if err != nil {
		t.Fatalf("NextCandidate failed: %v", err)
	}
	// Hand it back; the next request must return the same candidate.
	if _, err := e.Record(first.ID, Report{Status: StatePending}); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	second, err := e.NextCandidate(nil)
	if err != nil {
		t.Fatalf("NextCandidate failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected released candidate %v to be re-dispatched, got %v", first.ID, second.ID)
	}
}

func TestConcurrentNextCandidateDistinct(t *testing.T) {
	e := testExperiment(t)

	const workers = 16
	ids := make(chan uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cand, err := e.NextCandidate(nil)
			if err != nil {
				t.Errorf("NextCandidate failed: %v", err)
				return
			}
			ids <- cand.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uuid.UUID]struct{})
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("candidate %v handed to two workers", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != workers {
		t.Errorf("distinct candidates = %d, want %d", len(seen), workers)
	}
}

func TestRecordValidation(t *testing.T) {
	e := testExperiment(t)

	cand, err := e.NextCandidate(nil)
	if err != nil {
		t.Fatalf("NextCandidate failed: %v", err)
	}

	// Finished without a result is invalid input.
	if _, err := e.Record(cand.ID, Report{Status: StateFinished}); !errors.Is(err, ErrResultRequired) {
		t.Errorf("finished without result: got %v, want ErrResultRequired", err)
	}

	// Unknown candidate.
	if _, err := e.Record(uuid.New(), Report{Status: StateFailed}); !errors.Is(err, ErrCandidateNotFound) {
		t.Errorf("unknown candidate: got %v, want ErrCandidateNotFound", err)
	}

	recorded, err := e.Record(cand.ID, Report{Status: StateFinished, Result: float64Ptr(108.3)})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if recorded.State != StateFinished || *recorded.Result != 108.3 {
		t.Errorf("recorded = %+v, want finished with result 108.3", recorded)
	}

	// Second report conflicts.
	if _, err := e.Record(cand.ID, Report{Status: StateFinished, Result: float64Ptr(1.0)}); !errors.Is(err, ErrNotWorking) {
		t.Errorf("double report: got %v, want ErrNotWorking", err)
	}
}

func TestTwentyDispatchReportCycles(t *testing.T) {
	e := testExperiment(t)

	seen := make(map[uuid.UUID]struct{})
	for i := 0; i < 20; i++ {
		cand, err := e.NextCandidate(nil)
		if err != nil {
			t.Fatalf("cycle %d: NextCandidate failed: %v", i, err)
		}
		if _, dup := seen[cand.ID]; dup {
			t.Fatalf("cycle %d: candidate id %v repeated", i, cand.ID)
		}
		seen[cand.ID] = struct{}{}

		if _, err := e.Record(cand.ID, Report{Status: StateFinished, Result: float64Ptr(float64(i))}); err != nil {
			t.Fatalf("cycle %d: Record failed: %v", i, err)
		}
	}

	snap := e.Snapshot()
	if len(snap.Finished) != 20 {
		t.Errorf("finished = %d, want 20", len(snap.Finished))
	}
	if len(snap.Pending)+len(snap.Working)+len(snap.Failed) != 0 {
		t.Error("unexpected candidates outside the finished bucket")
	}
}

func TestBestRespectsOrientation(t *testing.T) {
	for _, tt := range []struct {
		name         string
		minimization bool
		want         float64
	}{
		{"Minimization", true, 1.0},
		{"Maximization", false, 9.0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e := testExperiment(t)
			e.Minimization = tt.minimization

			for _, result := range []float64{5.0, 1.0, 9.0} {
				cand, err := e.NextCandidate(nil)
				if err != nil {
					t.Fatalf("NextCandidate failed: %v", err)
				}
				if _, err := e.Record(cand.ID, Report{Status: StateFinished, Result: float64Ptr(result)}); err != nil {
					t.Fatalf("Record failed: %v", err)
				}
			}

			best, ok := e.Best()
			if !ok {
				t.Fatal("Best returned no candidate")
			}
			if *best.Result != tt.want {
				t.Errorf("best result = %v, want %v", *best.Result, tt.want)
			}
		})
	}
}

func TestStateTimestampsMonotonic(t *testing.T) {
	e := testExperiment(t)

	cand, err := e.NextCandidate(nil)
	if err != nil {
		t.Fatalf("NextCandidate failed: %v", err)
	}
	afterClaim := cand.LastUpdateAt
	if afterClaim.Before(cand.GeneratedAt) {
		t.Error("claim timestamp precedes generation")
	}

	finished, err := e.Record(cand.ID, Report{Status: StateFinished, Result: float64Ptr(1.0)})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if finished.LastUpdateAt.Before(afterClaim) {
		t.Error("finish timestamp precedes claim")
	}
}
