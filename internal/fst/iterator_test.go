package fst

import (
	"errors"
	"testing"
)

func fanOut(t *testing.T, labels ...int) *Fst {
	t.Helper()
	f := New()
	src := f.AddState()
	dst := f.AddState()
	for _, l := range labels {
		if err := f.AddArc(src, Arc{ILabel: l, OLabel: l, Weight: float64(l), NextState: dst}); err != nil {
			t.Fatalf("add arc: %v", err)
		}
	}
	return f
}

func TestIteratorVisitsInOrder(t *testing.T) {
	f := fanOut(t, 4, 2, 9)
	it := NewArcIterator(f, 0)

	var seen []int
	for !it.Done() {
		seen = append(seen, it.Value().ILabel)
		it.Next()
	}
	if len(seen) != 3 || seen[0] != 4 || seen[1] != 2 || seen[2] != 9 {
		t.Errorf("unexpected order %v", seen)
	}
}

func TestIteratorPositionAndSeek(t *testing.T) {
	f := fanOut(t, 4, 2, 9)

	it := NewArcIterator(f, 0)
	recorded := -1
	for !it.Done() {
		if it.Value().ILabel == 9 {
			recorded = it.Position()
			break
		}
		it.Next()
	}
	if recorded != 2 {
		t.Fatalf("expected position 2, got %d", recorded)
	}

	fresh := NewArcIterator(f, 0)
	fresh.Seek(recorded)
	if got := fresh.Value().ILabel; got != 9 {
		t.Errorf("seek landed on label %d, want 9", got)
	}
}

func TestIteratorDoneResetsCount(t *testing.T) {
	f := fanOut(t, 1, 2)
	it := NewArcIterator(f, 0)
	it.Next()
	it.Next()
	if it.Position() != 2 {
		t.Fatalf("expected position 2, got %d", it.Position())
	}
	if !it.Done() {
		t.Fatal("expected done")
	}
	if it.Position() != 0 {
		t.Errorf("done should reset count, got %d", it.Position())
	}
	if !it.Done() {
		t.Error("done must not rewind the iterator")
	}
}

func TestIteratorSetValue(t *testing.T) {
	f := fanOut(t, 1, 2, 3)
	it := NewArcIterator(f, 0)
	it.Seek(1)
	a := it.Value()
	a.Weight = -0.5
	if err := it.SetValue(a); err != nil {
		t.Fatalf("set value: %v", err)
	}

	arcs := f.Arcs(0)
	if len(arcs) != 3 {
		t.Fatalf("arc count changed: %d", len(arcs))
	}
	if arcs[1].Weight != -0.5 || arcs[1].ILabel != 2 {
		t.Errorf("unexpected arc after set value: %+v", arcs[1])
	}
	if it.Value().Weight != -0.5 {
		t.Error("iterator should still point at the rewritten arc")
	}

	a.NextState = 17
	if err := it.SetValue(a); !errors.Is(err, ErrStateRange) {
		t.Errorf("expected ErrStateRange for dangling destination, got %v", err)
	}
}

func TestIteratorPanicsOnBadState(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range state")
		}
	}()
	NewArcIterator(New(), 0)
}
