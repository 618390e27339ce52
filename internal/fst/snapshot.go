package fst

import "fmt"

// #region snapshot-types
// FinalWeight pairs a final state with its weight.
type FinalWeight struct {
	State  int     `json:"state"`
	Weight float64 `json:"weight"`
}

// ArcTuple is one arc in flattened form.
type ArcTuple struct {
	State     int     `json:"state"`
	NextState int     `json:"next_state"`
	ILabel    int     `json:"ilabel"`
	OLabel    int     `json:"olabel"`
	Weight    float64 `json:"weight"`
}

// Snapshot is the flat tuple form used to persist or transfer an automaton:
// state count, start state, final states and every arc.
type Snapshot struct {
	NumStates int           `json:"num_states"`
	Start     int           `json:"start"`
	Finals    []FinalWeight `json:"finals"`
	Arcs      []ArcTuple    `json:"arcs"`
}

// #endregion snapshot-types

// #region snapshot
// Snapshot flattens f. Arcs are listed per state in list order.
func (f *Fst) Snapshot() Snapshot {
	snap := Snapshot{NumStates: len(f.states), Start: f.start}
	for s, v := range f.states {
		if !IsZero(v.final) {
			snap.Finals = append(snap.Finals, FinalWeight{State: s, Weight: v.final})
		}
		for _, a := range v.arcs {
			snap.Arcs = append(snap.Arcs, ArcTuple{
				State:     s,
				NextState: a.NextState,
				ILabel:    a.ILabel,
				OLabel:    a.OLabel,
				Weight:    a.Weight,
			})
		}
	}
	return snap
}

// FromSnapshot rebuilds an automaton from its tuple form.
func FromSnapshot(snap Snapshot) (*Fst, error) {
	if snap.NumStates < 0 {
		return nil, fmt.Errorf("snapshot: negative state count %d", snap.NumStates)
	}
	f := New()
	for i := 0; i < snap.NumStates; i++ {
		f.AddState()
	}
	if snap.Start != NoState {
		if err := f.SetStart(snap.Start); err != nil {
			return nil, fmt.Errorf("snapshot start: %w", err)
		}
	}
	for _, fw := range snap.Finals {
		if err := f.SetFinal(fw.State, fw.Weight); err != nil {
			return nil, fmt.Errorf("snapshot final: %w", err)
		}
	}
	for _, t := range snap.Arcs {
		a := Arc{ILabel: t.ILabel, OLabel: t.OLabel, Weight: t.Weight, NextState: t.NextState}
		if err := f.AddArc(t.State, a); err != nil {
			return nil, fmt.Errorf("snapshot arc: %w", err)
		}
	}
	return f, nil
}

// #endregion snapshot
