package fst

// #region iterator
// ArcIterator walks the arcs of one state and can overwrite them in place.
//
// Arcs have no stable identifier, so code that wants to come back to an arc
// later records Position while scanning, opens a fresh iterator and calls
// Seek with that position.
type ArcIterator struct {
	f     *Fst
	state int
	pos   int
	count int
}

// NewArcIterator opens an iterator over the arcs of s. It panics when s is
// out of range.
func NewArcIterator(f *Fst, s int) *ArcIterator {
	if !f.Valid(s) {
		panic(&RangeError{Op: "arc iterator", State: s, NumStates: f.NumStates()})
	}
	return &ArcIterator{f: f, state: s}
}

// Done reports whether the iterator has moved past the last arc. Returning
// true also resets the advance count reported by Position; it does not rewind.
func (it *ArcIterator) Done() bool {
	done := it.pos >= len(it.f.states[it.state].arcs)
	if done {
		it.count = 0
	}
	return done
}

// Next advances to the following arc.
func (it *ArcIterator) Next() {
	it.pos++
	it.count++
}

// Seek advances n times from the current position.
func (it *ArcIterator) Seek(n int) {
	for i := 0; i < n; i++ {
		it.Next()
	}
}

// Position returns how many times Next was called since the iterator was
// opened or since Done last returned true.
func (it *ArcIterator) Position() int {
	return it.count
}

// Value returns the current arc.
func (it *ArcIterator) Value() Arc {
	return it.f.states[it.state].arcs[it.pos]
}

// SetValue overwrites the current arc without moving the iterator.
// The destination must be a valid state.
func (it *ArcIterator) SetValue(a Arc) error {
	if err := it.f.check("set arc value", a.NextState); err != nil {
		return err
	}
	it.f.states[it.state].arcs[it.pos] = a
	return nil
}

// #endregion iterator
