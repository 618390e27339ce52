package lexicon

import (
	"errors"
	"strings"
	"testing"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
	"github.com/idiap/icassp-oov-recognition/internal/symbols"
)

func phoneTable(t *testing.T) *symbols.Table {
	t.Helper()
	tbl, err := symbols.Read(strings.NewReader(`<eps> 0
a_B 1
a_I 2
a_E 3
b_B 4
b_I 5
b_E 6
c_B 7
c_I 8
c_E 9
`))
	if err != nil {
		t.Fatalf("phones: %v", err)
	}
	return tbl
}

func wordTable(t *testing.T) *symbols.Table {
	t.Helper()
	tbl, err := symbols.Read(strings.NewReader(`<eps> 0
ab 1
abc 2
one 3
dup 4
x 5
y 6
x|y 7
<b> 8
`))
	if err != nil {
		t.Fatalf("words: %v", err)
	}
	return tbl
}

// #region build
func TestBuild(t *testing.T) {
	lex := "ab a b\nabc a b c\none a\ndup a b\n"
	f, res, err := Build(strings.NewReader(lex), phoneTable(t), wordTable(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Words != 2 {
		t.Errorf("expected 2 words, got %d", res.Words)
	}
	if strings.Join(res.Skipped, ",") != "one,dup" {
		t.Errorf("unexpected skipped words %v", res.Skipped)
	}
	if f.Start() != 0 || !f.IsFinal(1) || f.NumStates() != 5 {
		t.Fatalf("unexpected shape: start %d, states %d", f.Start(), f.NumStates())
	}

	arcs := f.Arcs(0)
	if len(arcs) != 2 {
		t.Fatalf("expected 2 arcs from start, got %d", len(arcs))
	}
	if arcs[0].ILabel != 1 || arcs[0].OLabel != 1 {
		t.Errorf("ab should start with a_B:ab, got %+v", arcs[0])
	}
	second := f.Arcs(arcs[0].NextState)
	if len(second) != 1 || second[0].ILabel != 6 || second[0].OLabel != 0 || second[0].NextState != 1 {
		t.Errorf("ab should end with b_E into the final state, got %+v", second)
	}

	// abc: a_B:abc, b_I, c_E
	s := arcs[1].NextState
	if arcs[1].OLabel != 2 {
		t.Errorf("abc olabel = %d", arcs[1].OLabel)
	}
	mid := f.Arcs(s)
	if len(mid) != 1 || mid[0].ILabel != 5 {
		t.Fatalf("expected b_I, got %+v", mid)
	}
	last := f.Arcs(mid[0].NextState)
	if len(last) != 1 || last[0].ILabel != 9 || last[0].NextState != 1 {
		t.Errorf("expected c_E into final, got %+v", last)
	}
}

func TestBuildUnknownPhone(t *testing.T) {
	_, _, err := Build(strings.NewReader("ab a z\n"), phoneTable(t), wordTable(t))
	if !errors.Is(err, symbols.ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
	if !strings.Contains(err.Error(), "z_E") {
		t.Errorf("error should name the missing symbol: %v", err)
	}
}

func TestBuildUnknownWord(t *testing.T) {
	lex := "nope a b\nab a b\n"
	_, _, err := Build(strings.NewReader(lex), phoneTable(t), wordTable(t))
	if err == nil {
		t.Fatal("expected error for unknown word")
	}
}

// #endregion build

// #region expand
func TestExpand(t *testing.T) {
	f := fst.New()
	for i := 0; i < 3; i++ {
		f.AddState()
	}
	f.SetStart(0)
	f.SetFinal(2, fst.One)
	f.AddArc(0, fst.Arc{ILabel: 1, OLabel: 7, Weight: 0.5, NextState: 1})
	f.AddArc(0, fst.Arc{ILabel: 2, OLabel: 1, Weight: 0.25, NextState: 1})
	f.AddArc(1, fst.Arc{ILabel: 3, OLabel: 0, NextState: 2})

	n, err := Expand(f, map[string]bool{"x|y": true}, wordTable(t))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if n != 1 || f.NumStates() != 4 {
		t.Fatalf("expected 1 expansion and 4 states, got %d and %d", n, f.NumStates())
	}
	arcs := f.Arcs(0)
	if len(arcs) != 2 || arcs[0].OLabel != 1 {
		t.Fatalf("kept arc should come first: %+v", arcs)
	}
	head := arcs[1]
	if head.ILabel != 1 || head.OLabel != 5 || head.Weight != 0.5 || head.NextState != 3 {
		t.Errorf("unexpected head arc %+v", head)
	}
	tail := f.Arcs(3)
	if len(tail) != 1 || tail[0] != (fst.Arc{ILabel: 0, OLabel: 6, Weight: 0, NextState: 1}) {
		t.Errorf("unexpected tail arc %+v", tail)
	}
}

func TestExpandMalformedLeavesFstUntouched(t *testing.T) {
	syms := wordTable(t)
	syms.Add("p|q|r", 20)
	f := fst.New()
	f.AddState()
	f.AddState()
	f.AddArc(0, fst.Arc{ILabel: 1, OLabel: 1, NextState: 1})
	f.AddArc(1, fst.Arc{ILabel: 1, OLabel: 20, NextState: 0})

	if _, err := Expand(f, map[string]bool{"ab": true, "p|q|r": true}, syms); !errors.Is(err, ErrBadExpansion) {
		t.Fatalf("expected ErrBadExpansion, got %v", err)
	}
	if f.NumStates() != 2 || f.NumArcs(0) != 1 || f.NumArcs(1) != 1 {
		t.Error("automaton should be untouched")
	}
}

func TestReadSplitSet(t *testing.T) {
	set, err := ReadSplitSet(strings.NewReader("x|y\n\n a|b \n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 2 || !set["x|y"] || !set["a|b"] {
		t.Errorf("unexpected set %v", set)
	}
}

// #endregion expand

// #region boundary
func TestAddBoundary(t *testing.T) {
	f := fst.New()
	for i := 0; i < 3; i++ {
		f.AddState()
	}
	f.SetStart(0)
	f.SetFinal(1, 0.5)
	f.SetFinal(2, fst.One)

	end, err := AddBoundary(f, 8)
	if err != nil {
		t.Fatalf("add boundary: %v", err)
	}
	if end != 3 || !f.IsFinal(3) || f.Final(3) != fst.One {
		t.Fatalf("expected new final state 3, got %d", end)
	}
	for _, s := range []int{1, 2} {
		if f.IsFinal(s) {
			t.Errorf("state %d should no longer be final", s)
		}
		arcs := f.Arcs(s)
		if len(arcs) != 1 || arcs[0] != (fst.Arc{ILabel: 8, OLabel: 8, Weight: fst.One, NextState: 3}) {
			t.Errorf("state %d: unexpected arcs %+v", s, arcs)
		}
	}
	if f.NumArcs(0) != 0 {
		t.Error("non-final state should get no boundary arc")
	}
}

// #endregion boundary
