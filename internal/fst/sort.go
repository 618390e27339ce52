package fst

import "cmp"

// SortType selects the key arcs are ordered by.
type SortType int

const (
	ILabelSort SortType = iota
	OLabelSort
)

func (t SortType) String() string {
	if t == OLabelSort {
		return "olabel"
	}
	return "ilabel"
}

// ParseSortType maps "ilabel" / "olabel" to a SortType.
func ParseSortType(s string) (SortType, bool) {
	switch s {
	case "ilabel":
		return ILabelSort, true
	case "olabel":
		return OLabelSort, true
	}
	return ILabelSort, false
}

// ILabelCompare orders arcs by (ilabel, olabel).
func ILabelCompare(a, b Arc) int {
	if c := cmp.Compare(a.ILabel, b.ILabel); c != 0 {
		return c
	}
	return cmp.Compare(a.OLabel, b.OLabel)
}

// OLabelCompare orders arcs by (olabel, ilabel).
func OLabelCompare(a, b Arc) int {
	if c := cmp.Compare(a.OLabel, b.OLabel); c != 0 {
		return c
	}
	return cmp.Compare(a.ILabel, b.ILabel)
}

// Compare returns the comparison function for t.
func (t SortType) Compare() func(a, b Arc) int {
	if t == OLabelSort {
		return OLabelCompare
	}
	return ILabelCompare
}
