// Package provider supplies the automaton algorithms the editing packages
// delegate to: arc sorting, trimming, determinization, minimization,
// composition and shortest path.
package provider

import (
	"context"
	"errors"
	"math"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// DefaultDelta is the quantization delta used for weight comparisons.
const DefaultDelta = 9.765625e-4

// ErrUnsupported is returned by providers that do not implement an operation.
var ErrUnsupported = errors.New("provider: operation not supported")

// #region options
type DeterminizeOptions struct {
	Delta           float64
	WeightThreshold float64
}

func DefaultDeterminizeOptions() DeterminizeOptions {
	return DeterminizeOptions{Delta: DefaultDelta, WeightThreshold: math.Inf(1)}
}

type MinimizeOptions struct {
	Delta       float64
	AllowNondet bool
}

func DefaultMinimizeOptions() MinimizeOptions {
	return MinimizeOptions{Delta: DefaultDelta}
}

type ShortestPathOptions struct {
	NShortest int
	Unique    bool
	Delta     float64
}

func DefaultShortestPathOptions() ShortestPathOptions {
	return ShortestPathOptions{NShortest: 1, Unique: true, Delta: DefaultDelta}
}

// #endregion options

// Provider runs automaton algorithms. ArcSort, Connect and Minimize rewrite
// f in place; the others return a new automaton.
type Provider interface {
	ArcSort(ctx context.Context, f *fst.Fst, by fst.SortType) error
	Connect(ctx context.Context, f *fst.Fst) error
	Determinize(ctx context.Context, f *fst.Fst, opts DeterminizeOptions) (*fst.Fst, error)
	Minimize(ctx context.Context, f *fst.Fst, opts MinimizeOptions) error
	Compose(ctx context.Context, a, b *fst.Fst) (*fst.Fst, error)
	ShortestPath(ctx context.Context, f *fst.Fst, opts ShortestPathOptions) (*fst.Fst, error)
}
