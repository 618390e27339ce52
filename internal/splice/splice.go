// Package splice grafts copies of a donor automaton into a host automaton at
// arcs carrying a marker output label.
package splice

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// #region constants
// DefaultBias is added to the weight of a removed marker arc when it is
// replaced by the epsilon arc into the donor copy. It is about -ln(0.1).
const DefaultBias = 2.3

// #endregion constants

// #region errors
var (
	// ErrNoDonorStart is returned when the donor has no usable start state.
	ErrNoDonorStart = errors.New("splice: donor has no start state")
	// ErrNoMarkerArcs is returned by ReplaceSingle when no arc carries the marker.
	ErrNoMarkerArcs = errors.New("splice: no marker arcs")
	// ErrDivergentDestination is returned by ReplaceSingle in strict mode when
	// marker arcs do not all lead to the same state.
	ErrDivergentDestination = errors.New("splice: marker arcs lead to different states")
)

// #endregion errors

// #region types
// Options tunes a splice call.
type Options struct {
	Bias              float64
	StrictDestination bool         // ReplaceSingle: fail instead of warning on divergent destinations
	Logger            *slog.Logger // nil uses slog.Default()
}

// DefaultOptions returns Options with DefaultBias and warn-only destination checks.
func DefaultOptions() Options {
	return Options{Bias: DefaultBias}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Result summarizes what a splice call changed.
type Result struct {
	MarkerArcs  int // marker arcs removed from the host
	DonorCopies int // times the donor was copied in
	StatesAdded int
	Destination int // shared destination used by ReplaceSingle, fst.NoState for Insert
	Divergences int // marker arcs whose destination differed from Destination
}

// #endregion types

// #region insert
// Insert replaces every arc of f whose output label is marker with a private
// copy of donor: an epsilon arc from the arc's source into the copy's start
// (weight = arc weight + bias) and an epsilon arc from each copied final
// state to the arc's old destination. Only states present before the call
// are scanned. donor is never modified.
func Insert(f *fst.Fst, marker int, donor *fst.Fst, opts Options) (Result, error) {
	if err := checkDonor(donor); err != nil {
		return Result{}, err
	}
	if donor == f {
		donor = donor.Copy()
	}

	res := Result{Destination: fst.NoState}
	before := f.NumStates()
	for s := 0; s < before; s++ {
		removed, err := stripMarkers(f, s, marker)
		if err != nil {
			return res, err
		}
		for _, a := range removed {
			start, finals, err := graft(f, donor)
			if err != nil {
				return res, err
			}
			if err := reconnect(f, []int{s}, start, finals, a.Weight+opts.Bias, a.NextState); err != nil {
				return res, err
			}
			res.DonorCopies++
		}
		res.MarkerArcs += len(removed)
	}
	res.StatesAdded = f.NumStates() - before
	return res, nil
}

// #endregion insert

// #region replace-single
// ReplaceSingle assumes every marker arc of f leads to the same state. It
// strips all marker arcs, splices donor in once, links every stripped arc's
// source (self-loops excluded) to the donor start and links every donor
// final state to the shared destination.
//
// A marker arc with a different destination is logged and counted; the first
// destination seen wins. With StrictDestination set it is an error instead,
// reported before anything is modified.
func ReplaceSingle(f *fst.Fst, marker int, donor *fst.Fst, opts Options) (Result, error) {
	if err := checkDonor(donor); err != nil {
		return Result{}, err
	}
	if donor == f {
		donor = donor.Copy()
	}

	res := Result{Destination: fst.NoState}
	var sources []int
	var weights []float64
	for _, s := range f.States() {
		for _, a := range f.Arcs(s) {
			if a.OLabel != marker {
				continue
			}
			res.MarkerArcs++
			if res.Destination == fst.NoState {
				res.Destination = a.NextState
			} else if a.NextState != res.Destination {
				res.Divergences++
				if opts.StrictDestination {
					return Result{}, fmt.Errorf("%w: state %d -> %d, expected %d", ErrDivergentDestination, s, a.NextState, res.Destination)
				}
				opts.logger().Warn("marker arc destination differs from shared destination",
					"marker", marker, "source", s, "destination", a.NextState, "shared", res.Destination)
			}
			if s != a.NextState {
				sources = append(sources, s)
				weights = append(weights, a.Weight)
			}
		}
	}
	if res.MarkerArcs == 0 {
		return Result{}, fmt.Errorf("%w: marker %d", ErrNoMarkerArcs, marker)
	}

	before := f.NumStates()
	for s := 0; s < before; s++ {
		if _, err := stripMarkers(f, s, marker); err != nil {
			return res, err
		}
	}

	start, finals, err := graft(f, donor)
	if err != nil {
		return res, err
	}
	for i, s := range sources {
		a := fst.Arc{ILabel: fst.Epsilon, OLabel: fst.Epsilon, Weight: weights[i] + opts.Bias, NextState: start}
		if err := f.AddArc(s, a); err != nil {
			return res, fmt.Errorf("link source %d: %w", s, err)
		}
	}
	if err := reconnect(f, nil, start, finals, 0, res.Destination); err != nil {
		return res, err
	}
	res.DonorCopies = 1
	res.StatesAdded = f.NumStates() - before
	return res, nil
}

// #endregion replace-single

// #region helpers
func checkDonor(donor *fst.Fst) error {
	if donor == nil || !donor.Valid(donor.Start()) {
		return ErrNoDonorStart
	}
	return nil
}

// stripMarkers rebuilds the arc list of s without its marker arcs and
// returns the removed arcs in list order.
func stripMarkers(f *fst.Fst, s, marker int) ([]fst.Arc, error) {
	arcs := f.Arcs(s)
	kept := make([]fst.Arc, 0, len(arcs))
	var removed []fst.Arc
	for _, a := range arcs {
		if a.OLabel == marker {
			removed = append(removed, a)
		} else {
			kept = append(kept, a)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	if err := f.DeleteArcs(s); err != nil {
		return nil, fmt.Errorf("strip markers: %w", err)
	}
	for _, a := range kept {
		if err := f.AddArc(s, a); err != nil {
			return nil, fmt.Errorf("strip markers: %w", err)
		}
	}
	return removed, nil
}

// graft appends a copy of donor's states and arcs to f, offset by the state
// count of f before the copy. Copied arcs carry weight One and copied states
// are not final. It returns the mapped start state and mapped final states.
func graft(f, donor *fst.Fst) (int, []int, error) {
	offset := f.NumStates()
	var finals []int
	for _, s := range donor.States() {
		f.AddState()
		if donor.IsFinal(s) {
			finals = append(finals, s+offset)
		}
	}
	for _, s := range donor.States() {
		for _, a := range donor.Arcs(s) {
			a.NextState += offset
			a.Weight = fst.One
			if err := f.AddArc(s+offset, a); err != nil {
				return fst.NoState, nil, fmt.Errorf("graft arc: %w", err)
			}
		}
	}
	return donor.Start() + offset, finals, nil
}

// reconnect adds the epsilon arcs around a grafted copy: from each entry
// state into start with weight w, and from each final into exit.
func reconnect(f *fst.Fst, entries []int, start int, finals []int, w float64, exit int) error {
	for _, s := range entries {
		a := fst.Arc{ILabel: fst.Epsilon, OLabel: fst.Epsilon, Weight: w, NextState: start}
		if err := f.AddArc(s, a); err != nil {
			return fmt.Errorf("link entry %d: %w", s, err)
		}
	}
	for _, q := range finals {
		a := fst.Arc{ILabel: fst.Epsilon, OLabel: fst.Epsilon, Weight: fst.One, NextState: exit}
		if err := f.AddArc(q, a); err != nil {
			return fmt.Errorf("link final %d: %w", q, err)
		}
	}
	return nil
}

// #endregion helpers
