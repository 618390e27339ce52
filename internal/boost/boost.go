// Package boost lowers the cost of label sequences in a back-off language
// model automaton and grows the states needed to represent sequences the
// model does not contain yet.
package boost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// #region constants
const (
	// DefaultFullBias weighs the first grown arc when at most one label of
	// the sequence was already present. About -ln(0.1).
	DefaultFullBias = 2.3
	// DefaultPartialBias weighs the first grown arc when a longer prefix was
	// present. About -ln(0.5).
	DefaultPartialBias = 0.69
)

// #endregion constants

// #region errors
var (
	ErrNoContextlessArc = errors.New("boost: start state has no contextless arc")
	ErrNoUnigramState   = errors.New("boost: no unigram state for label")
	ErrEmptySequence    = errors.New("boost: empty label sequence")
	ErrInvalidFactor    = errors.New("boost: factor must be finite and positive")
)

// #endregion errors

// #region types
// Params configures one Boost call.
type Params struct {
	Factor           float64 // matched arcs lose ln(Factor)
	ContextlessLabel int     // ilabel of the start arc into the context-free state
	UnusedLabel      int     // reserved
	FullBias         float64
	PartialBias      float64
}

// NewParams returns Params with the default grown-arc biases.
func NewParams(factor float64, contextless int) Params {
	return Params{
		Factor:           factor,
		ContextlessLabel: contextless,
		FullBias:         DefaultFullBias,
		PartialBias:      DefaultPartialBias,
	}
}

// Sorter re-sorts arcs between sequences. provider.Provider satisfies it.
type Sorter interface {
	ArcSort(ctx context.Context, f *fst.Fst, by fst.SortType) error
}

// Result summarizes a Boost call.
type Result struct {
	Sequences    int
	FullyMatched int
	BoostedArcs  int
	StatesAdded  int
}

type step struct {
	state int
	pos   int
}

type pairKey struct {
	state int
	label int
}

// #endregion types

// #region boost
// Boost processes each sequence in turn:
//
//  1. walk from the context-free state, taking the first arc whose ilabel
//     matches the next label, until a label has no match;
//  2. subtract ln(Factor) from every matched arc, at most once per
//     (state, ilabel) over the whole call;
//  3. if the walk stopped early, chain new states for the missing labels and
//     close the chain with a contextless arc into the unigram state of the
//     last label;
//  4. arc-sort by ilabel with sorter (in process when nil).
func Boost(ctx context.Context, f *fst.Fst, sequences [][]int, p Params, sorter Sorter) (Result, error) {
	if !(p.Factor > 0) || math.IsInf(p.Factor, 1) {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidFactor, p.Factor)
	}
	for i, seq := range sequences {
		if len(seq) == 0 {
			return Result{}, fmt.Errorf("%w: sequence %d", ErrEmptySequence, i)
		}
	}

	noctx, err := contextFree(f, p.ContextlessLabel)
	if err != nil {
		return Result{}, err
	}
	unigram := unigramStates(f, noctx, p.ContextlessLabel)

	res := Result{}
	boosted := make(map[pairKey]bool)
	discount := math.Log(p.Factor)

	for i, seq := range sequences {
		path := walk(f, noctx, seq)
		for _, st := range path {
			it := fst.NewArcIterator(f, st.state)
			it.Seek(st.pos)
			a := it.Value()
			key := pairKey{state: st.state, label: a.ILabel}
			if boosted[key] {
				continue
			}
			a.Weight -= discount
			if err := it.SetValue(a); err != nil {
				return res, fmt.Errorf("boost arc: %w", err)
			}
			boosted[key] = true
			res.BoostedArcs++
		}

		if len(path) == len(seq) {
			res.FullyMatched++
		} else {
			added, err := extend(f, noctx, path, seq, unigram, p)
			if err != nil {
				return res, fmt.Errorf("sequence %d: %w", i, err)
			}
			res.StatesAdded += added
		}
		res.Sequences++

		slog.Debug("boosted sequence", "index", i, "length", len(seq), "matched", len(path))

		if err := sortArcs(ctx, f, sorter); err != nil {
			return res, fmt.Errorf("arc sort after sequence %d: %w", i, err)
		}
	}
	return res, nil
}

// #endregion boost

// #region helpers
// contextFree returns the destination of the first start arc carrying label.
func contextFree(f *fst.Fst, label int) (int, error) {
	if !f.Valid(f.Start()) {
		return fst.NoState, fmt.Errorf("%w: automaton has no start state", ErrNoContextlessArc)
	}
	for _, a := range f.Arcs(f.Start()) {
		if a.ILabel == label {
			return a.NextState, nil
		}
	}
	return fst.NoState, fmt.Errorf("%w: label %d", ErrNoContextlessArc, label)
}

// unigramStates maps every ilabel leaving the context-free state (other than
// the contextless label) to its destination.
func unigramStates(f *fst.Fst, noctx, contextless int) map[int]int {
	states := make(map[int]int)
	for _, a := range f.Arcs(noctx) {
		if a.ILabel == contextless {
			continue
		}
		states[a.ILabel] = a.NextState
	}
	return states
}

// walk follows the first matching arc per label and records where each
// match sits in its state's arc list.
func walk(f *fst.Fst, from int, seq []int) []step {
	cur := from
	var path []step
	for len(path) < len(seq) {
		it := fst.NewArcIterator(f, cur)
		found := false
		for !it.Done() {
			a := it.Value()
			if a.ILabel == seq[len(path)] {
				path = append(path, step{state: cur, pos: it.Position()})
				cur = a.NextState
				found = true
				break
			}
			it.Next()
		}
		if !found {
			break
		}
	}
	return path
}

// extend grows the unmatched suffix of seq and returns the number of new states.
func extend(f *fst.Fst, noctx int, path []step, seq []int, unigram map[int]int, p Params) (int, error) {
	last := seq[len(seq)-1]
	target, ok := unigram[last]
	if !ok {
		return 0, fmt.Errorf("%w %d", ErrNoUnigramState, last)
	}

	state := noctx
	if len(path) > 0 {
		end := path[len(path)-1]
		it := fst.NewArcIterator(f, end.state)
		it.Seek(end.pos)
		state = it.Value().NextState
	}

	w := p.PartialBias
	if len(path) <= 1 {
		w = p.FullBias
	}
	added := 0
	for _, label := range seq[len(path):] {
		next := f.AddState()
		added++
		if err := f.AddArc(state, fst.Arc{ILabel: label, OLabel: label, Weight: w, NextState: next}); err != nil {
			return added, err
		}
		state = next
		w = fst.One
	}

	back := fst.Arc{ILabel: p.ContextlessLabel, OLabel: fst.Epsilon, Weight: fst.One, NextState: target}
	if err := f.AddArc(state, back); err != nil {
		return added, err
	}
	return added, nil
}

func sortArcs(ctx context.Context, f *fst.Fst, sorter Sorter) error {
	if sorter == nil {
		f.SortArcs(fst.ILabelCompare)
		return nil
	}
	return sorter.ArcSort(ctx, f, fst.ILabelSort)
}

// #endregion helpers
