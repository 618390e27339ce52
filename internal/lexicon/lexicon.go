// Package lexicon builds and reshapes pronunciation lexicon automata.
package lexicon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
	"github.com/idiap/icassp-oov-recognition/internal/symbols"
)

// Position suffixes appended to phones on input labels.
const (
	SuffixBegin    = "_B"
	SuffixInternal = "_I"
	SuffixEnd      = "_E"
)

// DefaultBoundary is the symbol AddBoundary is usually given.
const DefaultBoundary = "<b>"

var ErrBadExpansion = errors.New("lexicon: expansion symbol must have exactly two parts")

// BuildResult reports what Build kept and dropped.
type BuildResult struct {
	Words   int
	Skipped []string
}

// #region build
// Build reads "word phone phone ..." lines and returns an automaton with one
// path per pronunciation from state 0 to the single final state 1. The first
// arc of a path carries the word as output label. Words with fewer than two
// phones and pronunciations already seen are skipped.
func Build(r io.Reader, phones, words *symbols.Table) (*fst.Fst, BuildResult, error) {
	var res BuildResult
	f := fst.New()
	start, end := f.AddState(), f.AddState()
	if err := f.SetStart(start); err != nil {
		return nil, res, err
	}
	if err := f.SetFinal(end, fst.One); err != nil {
		return nil, res, err
	}

	seen := map[string]bool{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		word, pron := fields[0], fields[1:]
		if len(pron) <= 1 {
			res.Skipped = append(res.Skipped, word)
			continue
		}
		key := strings.Join(pron, " ")
		if seen[key] {
			res.Skipped = append(res.Skipped, word)
			continue
		}

		labels, olabel, err := pathLabels(word, pron, phones, words)
		if err != nil {
			return nil, res, fmt.Errorf("lexicon: line %d: %w", line, err)
		}
		seen[key] = true

		state := start
		for i, il := range labels {
			next := end
			if i < len(labels)-1 {
				next = f.AddState()
			}
			arc := fst.Arc{ILabel: il, Weight: fst.One, NextState: next}
			if i == 0 {
				arc.OLabel = olabel
			}
			if err := f.AddArc(state, arc); err != nil {
				return nil, res, err
			}
			state = next
		}
		res.Words++
	}
	if err := sc.Err(); err != nil {
		return nil, res, fmt.Errorf("lexicon: scan: %w", err)
	}
	if len(res.Skipped) > 0 {
		slog.Info("lexicon words skipped", "count", len(res.Skipped))
	}
	return f, res, nil
}

func pathLabels(word string, pron []string, phones, words *symbols.Table) ([]int, int, error) {
	olabel, err := words.Lookup(word)
	if err != nil {
		return nil, 0, err
	}
	labels := make([]int, len(pron))
	for i, p := range pron {
		suffix := SuffixInternal
		switch i {
		case 0:
			suffix = SuffixBegin
		case len(pron) - 1:
			suffix = SuffixEnd
		}
		if labels[i], err = phones.Lookup(p + suffix); err != nil {
			return nil, 0, err
		}
	}
	return labels, olabel, nil
}

// #endregion build

// #region expand
type expansion struct {
	state  int
	arc    fst.Arc
	first  int
	second int
}

// Expand rewrites every arc whose output symbol is in split and has the form
// "a|b" into an arc with output a into a new state, followed by an epsilon
// input arc with output b and weight One to the old destination. Kept arcs
// precede the rewritten ones in each state's list. Nothing is mutated when a
// listed symbol is malformed or its parts are missing from syms.
func Expand(f *fst.Fst, split map[string]bool, syms *symbols.Table) (int, error) {
	var todo []expansion
	keep := map[int][]fst.Arc{}

	for _, s := range f.States() {
		var kept []fst.Arc
		touched := false
		for _, a := range f.Arcs(s) {
			name, ok := syms.Symbol(a.OLabel)
			if !ok || !split[name] {
				kept = append(kept, a)
				continue
			}
			parts := strings.Split(name, "|")
			if len(parts) != 2 {
				return 0, fmt.Errorf("%w: %q", ErrBadExpansion, name)
			}
			first, err := syms.Lookup(parts[0])
			if err != nil {
				return 0, err
			}
			second, err := syms.Lookup(parts[1])
			if err != nil {
				return 0, err
			}
			todo = append(todo, expansion{state: s, arc: a, first: first, second: second})
			touched = true
		}
		if touched {
			keep[s] = kept
		}
	}

	for s, kept := range keep {
		if err := f.DeleteArcs(s); err != nil {
			return 0, err
		}
		for _, a := range kept {
			if err := f.AddArc(s, a); err != nil {
				return 0, err
			}
		}
	}
	for _, e := range todo {
		mid := f.AddState()
		head := fst.Arc{ILabel: e.arc.ILabel, OLabel: e.first, Weight: e.arc.Weight, NextState: mid}
		tail := fst.Arc{ILabel: fst.Epsilon, OLabel: e.second, Weight: fst.One, NextState: e.arc.NextState}
		if err := f.AddArc(e.state, head); err != nil {
			return 0, err
		}
		if err := f.AddArc(mid, tail); err != nil {
			return 0, err
		}
	}
	return len(todo), nil
}

// ReadSplitSet reads one symbol per line.
func ReadSplitSet(r io.Reader) (map[string]bool, error) {
	set := map[string]bool{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			set[s] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lexicon: read split set: %w", err)
	}
	return set, nil
}

// #endregion expand

// #region boundary
// AddBoundary gives every final state an arc labelled label on both sides
// into one new final state, then clears their finality. The new arcs weigh
// One; final weights of the old final states are discarded. Returns the new
// final state.
func AddBoundary(f *fst.Fst, label int) (int, error) {
	var finals []int
	for _, s := range f.States() {
		if f.IsFinal(s) {
			finals = append(finals, s)
		}
	}
	end := f.AddState()
	for _, s := range finals {
		if err := f.AddArc(s, fst.Arc{ILabel: label, OLabel: label, Weight: fst.One, NextState: end}); err != nil {
			return fst.NoState, err
		}
		if err := f.SetFinal(s, fst.Zero); err != nil {
			return fst.NoState, err
		}
	}
	if err := f.SetFinal(end, fst.One); err != nil {
		return fst.NoState, err
	}
	return end, nil
}

// #endregion boundary
