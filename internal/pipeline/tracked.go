package pipeline

import (
	"context"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
	"github.com/idiap/icassp-oov-recognition/internal/observe"
	"github.com/idiap/icassp-oov-recognition/internal/provider"
)

// tracked counts every provider call by method and status.
type tracked struct {
	next    provider.Provider
	metrics *observe.Metrics
}

func (r *Runner) tracked() tracked {
	return tracked{next: r.opts.Provider, metrics: r.metrics}
}

func (t tracked) ArcSort(ctx context.Context, f *fst.Fst, by fst.SortType) error {
	err := t.next.ArcSort(ctx, f, by)
	t.metrics.RecordProviderCall(ctx, "ArcSort", err)
	return err
}

func (t tracked) Connect(ctx context.Context, f *fst.Fst) error {
	err := t.next.Connect(ctx, f)
	t.metrics.RecordProviderCall(ctx, "Connect", err)
	return err
}

func (t tracked) Determinize(ctx context.Context, f *fst.Fst, opts provider.DeterminizeOptions) (*fst.Fst, error) {
	out, err := t.next.Determinize(ctx, f, opts)
	t.metrics.RecordProviderCall(ctx, "Determinize", err)
	return out, err
}

func (t tracked) Minimize(ctx context.Context, f *fst.Fst, opts provider.MinimizeOptions) error {
	err := t.next.Minimize(ctx, f, opts)
	t.metrics.RecordProviderCall(ctx, "Minimize", err)
	return err
}

func (t tracked) Compose(ctx context.Context, a, b *fst.Fst) (*fst.Fst, error) {
	out, err := t.next.Compose(ctx, a, b)
	t.metrics.RecordProviderCall(ctx, "Compose", err)
	return out, err
}

func (t tracked) ShortestPath(ctx context.Context, f *fst.Fst, opts provider.ShortestPathOptions) (*fst.Fst, error) {
	out, err := t.next.ShortestPath(ctx, f, opts)
	t.metrics.RecordProviderCall(ctx, "ShortestPath", err)
	return out, err
}
