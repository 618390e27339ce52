package splice

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

const marker = 99

func eps(w float64, next int) fst.Arc {
	return fst.Arc{ILabel: fst.Epsilon, OLabel: fst.Epsilon, Weight: w, NextState: next}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// buildFst creates n states, start 0, the given finals (weight 0) and arcs.
func buildFst(t *testing.T, n int, finals []int, arcs map[int][]fst.Arc) *fst.Fst {
	t.Helper()
	f := fst.New()
	for i := 0; i < n; i++ {
		f.AddState()
	}
	if n > 0 {
		if err := f.SetStart(0); err != nil {
			t.Fatalf("set start: %v", err)
		}
	}
	for _, s := range finals {
		if err := f.SetFinal(s, fst.One); err != nil {
			t.Fatalf("set final: %v", err)
		}
	}
	for s := 0; s < n; s++ {
		for _, a := range arcs[s] {
			if err := f.AddArc(s, a); err != nil {
				t.Fatalf("add arc: %v", err)
			}
		}
	}
	return f
}

// singleStateDonor is one state that is both start and final.
func singleStateDonor(t *testing.T) *fst.Fst {
	return buildFst(t, 1, []int{0}, nil)
}

// chainDonor is 0 -7-> 1 -8-> 2 with 2 final; arcs weigh 0.4 to check they are zeroed.
func chainDonor(t *testing.T) *fst.Fst {
	return buildFst(t, 3, []int{2}, map[int][]fst.Arc{
		0: {{ILabel: 7, OLabel: 7, Weight: 0.4, NextState: 1}},
		1: {{ILabel: 8, OLabel: 8, Weight: 0.4, NextState: 2}},
	})
}

// #region test-insert
func TestInsertScenario(t *testing.T) {
	host := buildFst(t, 2, []int{1}, map[int][]fst.Arc{
		0: {{ILabel: 5, OLabel: marker, Weight: 1.0, NextState: 1}},
	})

	res, err := Insert(host, marker, singleStateDonor(t), DefaultOptions())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if host.NumStates() != 3 {
		t.Fatalf("expected 3 states, got %d", host.NumStates())
	}
	arcs := host.Arcs(0)
	if len(arcs) != 1 {
		t.Fatalf("expected 1 arc from state 0, got %+v", arcs)
	}
	if arcs[0].ILabel != 0 || arcs[0].OLabel != 0 || arcs[0].NextState != 2 || !near(arcs[0].Weight, 3.3) {
		t.Errorf("unexpected entry arc %+v", arcs[0])
	}
	exit := host.Arcs(2)
	if len(exit) != 1 || exit[0] != eps(0, 1) {
		t.Errorf("unexpected exit arcs %+v", exit)
	}
	if host.IsFinal(2) {
		t.Error("grafted donor states must not be final")
	}
	if res.MarkerArcs != 1 || res.DonorCopies != 1 || res.StatesAdded != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestInsertStateCountAndOffset(t *testing.T) {
	host := buildFst(t, 4, []int{3}, map[int][]fst.Arc{
		0: {
			{ILabel: 1, OLabel: 1, Weight: 0.1, NextState: 1},
			{ILabel: 2, OLabel: marker, Weight: 0.5, NextState: 3},
			{ILabel: 3, OLabel: 3, Weight: 0.2, NextState: 2},
		},
		1: {{ILabel: 4, OLabel: 4, NextState: 3}},
	})
	before := host.Copy()
	donor := chainDonor(t)

	if _, err := Insert(host, marker, donor, DefaultOptions()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if host.NumStates() != 4+3 {
		t.Fatalf("expected M+N=7 states, got %d", host.NumStates())
	}
	for _, s := range []int{1, 2, 3} {
		if len(host.Arcs(s)) != len(before.Arcs(s)) || host.Final(s) != before.Final(s) {
			t.Errorf("pre-existing state %d was disturbed", s)
		}
	}

	arcs := host.Arcs(0)
	if len(arcs) != 3 {
		t.Fatalf("expected 2 kept + 1 entry arc, got %+v", arcs)
	}
	if arcs[0].ILabel != 1 || arcs[1].ILabel != 3 {
		t.Errorf("kept arcs should keep their order: %+v", arcs)
	}
	if arcs[2].NextState != 4 || !near(arcs[2].Weight, 0.5+DefaultBias) {
		t.Errorf("unexpected entry arc %+v", arcs[2])
	}

	// Donor arcs are copied with the offset and weight forced to zero.
	if got := host.Arcs(4); len(got) != 1 || got[0] != (fst.Arc{ILabel: 7, OLabel: 7, Weight: 0, NextState: 5}) {
		t.Errorf("unexpected grafted arc %+v", got)
	}
	if got := host.Arcs(6); len(got) != 1 || got[0] != eps(0, 3) {
		t.Errorf("donor final should link back to the old destination: %+v", got)
	}

	if donor.NumStates() != 3 || donor.Arcs(0)[0].Weight != 0.4 {
		t.Error("donor must not be modified")
	}
}

func TestInsertPrivateCopyPerOccurrence(t *testing.T) {
	host := buildFst(t, 3, []int{2}, map[int][]fst.Arc{
		0: {{ILabel: 1, OLabel: marker, Weight: 0, NextState: 2}},
		1: {
			{ILabel: 2, OLabel: marker, Weight: 1, NextState: 2},
			{ILabel: 3, OLabel: marker, Weight: 2, NextState: 0},
		},
	})

	res, err := Insert(host, marker, singleStateDonor(t), DefaultOptions())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.DonorCopies != 3 || host.NumStates() != 6 {
		t.Fatalf("expected 3 private copies, got %+v with %d states", res, host.NumStates())
	}

	arcs := host.Arcs(1)
	if len(arcs) != 2 || arcs[0].NextState == arcs[1].NextState {
		t.Fatalf("each marker arc needs its own copy: %+v", arcs)
	}
	if got := host.Arcs(arcs[1].NextState); len(got) != 1 || got[0].NextState != 0 {
		t.Errorf("second copy should exit to state 0: %+v", got)
	}
}

func TestInsertCustomBias(t *testing.T) {
	host := buildFst(t, 2, []int{1}, map[int][]fst.Arc{
		0: {{ILabel: 5, OLabel: marker, Weight: 1.0, NextState: 1}},
	})
	opts := DefaultOptions()
	opts.Bias = 0.5
	if _, err := Insert(host, marker, singleStateDonor(t), opts); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if w := host.Arcs(0)[0].Weight; !near(w, 1.5) {
		t.Errorf("expected weight 1.5, got %v", w)
	}
}

func TestInsertNoMarkersIsNoop(t *testing.T) {
	host := buildFst(t, 2, []int{1}, map[int][]fst.Arc{
		0: {{ILabel: 5, OLabel: 5, Weight: 1.0, NextState: 1}},
	})
	res, err := Insert(host, marker, singleStateDonor(t), DefaultOptions())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.MarkerArcs != 0 || host.NumStates() != 2 {
		t.Errorf("expected no change, got %+v", res)
	}
}

func TestInsertDonorWithoutStart(t *testing.T) {
	host := buildFst(t, 2, []int{1}, map[int][]fst.Arc{
		0: {{ILabel: 5, OLabel: marker, Weight: 1.0, NextState: 1}},
	})
	donor := fst.New()
	donor.AddState()

	_, err := Insert(host, marker, donor, DefaultOptions())
	if !errors.Is(err, ErrNoDonorStart) {
		t.Fatalf("expected ErrNoDonorStart, got %v", err)
	}
	if host.NumStates() != 2 || host.NumArcs(0) != 1 {
		t.Error("host must be untouched when the donor is unusable")
	}
}

func TestInsertSelfAsDonor(t *testing.T) {
	host := buildFst(t, 2, []int{1}, map[int][]fst.Arc{
		0: {{ILabel: 5, OLabel: marker, Weight: 1.0, NextState: 1}},
	})
	if _, err := Insert(host, marker, host, DefaultOptions()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if host.NumStates() != 4 {
		t.Errorf("expected host copied once, got %d states", host.NumStates())
	}
}

// #endregion test-insert

// #region test-replace-single
func TestReplaceSingleSharedDestination(t *testing.T) {
	host := buildFst(t, 4, []int{3}, map[int][]fst.Arc{
		0: {{ILabel: 1, OLabel: marker, Weight: 0.5, NextState: 3}},
		1: {{ILabel: 2, OLabel: marker, Weight: 1.5, NextState: 3}},
		2: {{ILabel: 3, OLabel: 3, Weight: 0.1, NextState: 3}},
		3: {{ILabel: 4, OLabel: marker, Weight: 0.7, NextState: 3}}, // self-loop
	})
	donor := chainDonor(t)

	res, err := ReplaceSingle(host, marker, donor, DefaultOptions())
	if err != nil {
		t.Fatalf("replace single: %v", err)
	}

	if host.NumStates() != 4+3 {
		t.Fatalf("donor should be spliced exactly once, got %d states", host.NumStates())
	}
	if res.MarkerArcs != 3 || res.DonorCopies != 1 || res.Destination != 3 || res.Divergences != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	if got := host.Arcs(0); len(got) != 1 || got[0].NextState != 4 || !near(got[0].Weight, 0.5+DefaultBias) {
		t.Errorf("state 0 entry arc: %+v", got)
	}
	if got := host.Arcs(1); len(got) != 1 || got[0].NextState != 4 || !near(got[0].Weight, 1.5+DefaultBias) {
		t.Errorf("state 1 entry arc: %+v", got)
	}
	if got := host.Arcs(2); len(got) != 1 || got[0].ILabel != 3 {
		t.Errorf("unrelated state changed: %+v", got)
	}
	if got := host.Arcs(3); len(got) != 0 {
		t.Errorf("self-loop marker should be stripped without reconnection: %+v", got)
	}
	if got := host.Arcs(6); len(got) != 1 || got[0] != eps(0, 3) {
		t.Errorf("donor final should exit to the shared destination: %+v", got)
	}
}

func TestReplaceSingleNoMarkers(t *testing.T) {
	host := buildFst(t, 2, []int{1}, map[int][]fst.Arc{
		0: {{ILabel: 5, OLabel: 5, Weight: 1.0, NextState: 1}},
	})
	_, err := ReplaceSingle(host, marker, singleStateDonor(t), DefaultOptions())
	if !errors.Is(err, ErrNoMarkerArcs) {
		t.Fatalf("expected ErrNoMarkerArcs, got %v", err)
	}
	if host.NumStates() != 2 {
		t.Error("host must be untouched")
	}
}

func TestReplaceSingleDivergenceWarns(t *testing.T) {
	host := buildFst(t, 3, []int{1, 2}, map[int][]fst.Arc{
		0: {
			{ILabel: 1, OLabel: marker, Weight: 0, NextState: 1},
			{ILabel: 2, OLabel: marker, Weight: 0, NextState: 2},
		},
	})
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	res, err := ReplaceSingle(host, marker, singleStateDonor(t), opts)
	if err != nil {
		t.Fatalf("replace single: %v", err)
	}
	if res.Divergences != 1 || res.Destination != 1 {
		t.Errorf("expected one divergence and first destination kept, got %+v", res)
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
	if got := host.Arcs(3); len(got) != 1 || got[0].NextState != 1 {
		t.Errorf("donor final should exit to first-seen destination: %+v", got)
	}
}

func TestReplaceSingleStrictDivergence(t *testing.T) {
	host := buildFst(t, 3, []int{1, 2}, map[int][]fst.Arc{
		0: {{ILabel: 1, OLabel: marker, Weight: 0, NextState: 1}},
		1: {{ILabel: 2, OLabel: marker, Weight: 0, NextState: 2}},
	})
	opts := DefaultOptions()
	opts.StrictDestination = true

	_, err := ReplaceSingle(host, marker, singleStateDonor(t), opts)
	if !errors.Is(err, ErrDivergentDestination) {
		t.Fatalf("expected ErrDivergentDestination, got %v", err)
	}
	if host.NumStates() != 3 || host.NumArcs(0) != 1 || host.NumArcs(1) != 1 {
		t.Error("strict failure must happen before any mutation")
	}
}

func TestReplaceSingleDonorWithoutStart(t *testing.T) {
	host := buildFst(t, 2, []int{1}, map[int][]fst.Arc{
		0: {{ILabel: 5, OLabel: marker, Weight: 1.0, NextState: 1}},
	})
	if _, err := ReplaceSingle(host, marker, nil, DefaultOptions()); !errors.Is(err, ErrNoDonorStart) {
		t.Fatalf("expected ErrNoDonorStart, got %v", err)
	}
	if host.NumArcs(0) != 1 {
		t.Error("marker arc should still be present")
	}
}

// #endregion test-replace-single
