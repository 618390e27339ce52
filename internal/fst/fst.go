// Package fst holds the in-memory weighted transducer that every editing
// component operates on. Weights live in the tropical (negative log) domain.
package fst

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// #region weights
// NoState marks an unset start state.
const NoState = -1

// Epsilon is the label of a transition that consumes no input.
const Epsilon = 0

// One is the tropical weight of probability 1.
const One = 0.0

// Zero is the tropical weight of probability 0 (also "not final").
var Zero = math.Inf(1)

// IsZero reports whether w carries no probability mass.
func IsZero(w float64) bool {
	return math.IsInf(w, 1)
}

// #endregion weights

// #region errors
// ErrStateRange is wrapped by every error caused by an out-of-range state index.
var ErrStateRange = errors.New("fst: state index out of range")

// RangeError reports the offending index of a failed call.
type RangeError struct {
	Op        string
	State     int
	NumStates int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("fst: %s: state %d not in [0, %d)", e.Op, e.State, e.NumStates)
}

func (e *RangeError) Unwrap() error { return ErrStateRange }

// #endregion errors

// #region types
// Arc is a single weighted transition. It has no identity of its own: it is
// addressed by its source state and its position in that state's arc list.
type Arc struct {
	ILabel    int
	OLabel    int
	Weight    float64
	NextState int
}

type vertex struct {
	final float64
	arcs  []Arc
}

// Fst is a mutable vector transducer. It is not safe for concurrent use.
type Fst struct {
	start  int
	states []vertex
}

// #endregion types

// #region constructor
// New returns an empty automaton with no start state.
func New() *Fst {
	return &Fst{start: NoState}
}

// #endregion constructor

// #region states
// AddState appends a non-final state with no arcs and returns its index.
func (f *Fst) AddState() int {
	f.states = append(f.states, vertex{final: Zero})
	return len(f.states) - 1
}

// NumStates returns the number of states.
func (f *Fst) NumStates() int {
	return len(f.states)
}

// States returns all state indices in ascending order.
func (f *Fst) States() []int {
	ids := make([]int, len(f.states))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// Valid reports whether s names an existing state.
func (f *Fst) Valid(s int) bool {
	return s >= 0 && s < len(f.states)
}

func (f *Fst) check(op string, s int) error {
	if !f.Valid(s) {
		return &RangeError{Op: op, State: s, NumStates: len(f.states)}
	}
	return nil
}

// Start returns the start state, or NoState.
func (f *Fst) Start() int {
	return f.start
}

// SetStart marks s as the start state.
func (f *Fst) SetStart(s int) error {
	if err := f.check("set start", s); err != nil {
		return err
	}
	f.start = s
	return nil
}

// SetFinal sets the final weight of s. Zero makes s non-final again.
func (f *Fst) SetFinal(s int, w float64) error {
	if err := f.check("set final", s); err != nil {
		return err
	}
	f.states[s].final = w
	return nil
}

// Final returns the final weight of s, Zero when s is not final.
// It panics when s is out of range.
func (f *Fst) Final(s int) float64 {
	return f.states[s].final
}

// IsFinal reports whether s has a final weight other than Zero.
func (f *Fst) IsFinal(s int) bool {
	return !IsZero(f.states[s].final)
}

// DeleteStates removes the given states and every arc entering them, then
// renumbers the remaining states densely, keeping their relative order.
// Indices held by the caller are stale afterwards.
func (f *Fst) DeleteStates(ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make([]bool, len(f.states))
	for _, s := range ids {
		if err := f.check("delete states", s); err != nil {
			return err
		}
		drop[s] = true
	}

	remap := make([]int, len(f.states))
	kept := f.states[:0:0]
	for s, v := range f.states {
		if drop[s] {
			remap[s] = NoState
			continue
		}
		remap[s] = len(kept)
		kept = append(kept, v)
	}
	for i := range kept {
		arcs := kept[i].arcs[:0]
		for _, a := range kept[i].arcs {
			if next := remap[a.NextState]; next != NoState {
				a.NextState = next
				arcs = append(arcs, a)
			}
		}
		kept[i].arcs = arcs
	}

	if f.start != NoState {
		f.start = remap[f.start]
	}
	f.states = kept
	return nil
}

// #endregion states

// #region arcs
// AddArc appends a to the arc list of src.
func (f *Fst) AddArc(src int, a Arc) error {
	if err := f.check("add arc", src); err != nil {
		return err
	}
	if err := f.check("add arc destination", a.NextState); err != nil {
		return err
	}
	f.states[src].arcs = append(f.states[src].arcs, a)
	return nil
}

// DeleteArcs removes every outgoing arc of s.
func (f *Fst) DeleteArcs(s int) error {
	if err := f.check("delete arcs", s); err != nil {
		return err
	}
	f.states[s].arcs = nil
	return nil
}

// NumArcs returns the number of outgoing arcs of s.
func (f *Fst) NumArcs(s int) int {
	return len(f.states[s].arcs)
}

// NumArcsTotal returns the arc count summed over all states.
func (f *Fst) NumArcsTotal() int {
	n := 0
	for _, v := range f.states {
		n += len(v.arcs)
	}
	return n
}

// Arcs returns a copy of the outgoing arcs of s in list order.
func (f *Fst) Arcs(s int) []Arc {
	return slices.Clone(f.states[s].arcs)
}

// SortArcs reorders the arcs of every state with a stable sort using cmp.
func (f *Fst) SortArcs(cmp func(a, b Arc) int) {
	for i := range f.states {
		slices.SortStableFunc(f.states[i].arcs, cmp)
	}
}

// #endregion arcs

// #region copy
// Copy returns a deep copy with identical states, start, final weights and arcs.
func (f *Fst) Copy() *Fst {
	c := &Fst{start: f.start, states: make([]vertex, len(f.states))}
	for i, v := range f.states {
		c.states[i] = vertex{final: v.final, arcs: slices.Clone(v.arcs)}
	}
	return c
}

// Assign replaces the contents of f with a deep copy of src.
func (f *Fst) Assign(src *Fst) {
	c := src.Copy()
	f.start, f.states = c.start, c.states
}

// #endregion copy
