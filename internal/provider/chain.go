package provider

import (
	"context"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// Chain runs ArcSort and Connect on Local and everything else on Remote.
// A nil Remote leaves the heavy operations unsupported.
type Chain struct {
	Local  Provider
	Remote Provider
}

func NewChain(local, remote Provider) *Chain {
	return &Chain{Local: local, Remote: remote}
}

func (c *Chain) remote() Provider {
	if c.Remote == nil {
		return Local{}
	}
	return c.Remote
}

func (c *Chain) ArcSort(ctx context.Context, f *fst.Fst, by fst.SortType) error {
	return c.Local.ArcSort(ctx, f, by)
}

func (c *Chain) Connect(ctx context.Context, f *fst.Fst) error {
	return c.Local.Connect(ctx, f)
}

func (c *Chain) Determinize(ctx context.Context, f *fst.Fst, opts DeterminizeOptions) (*fst.Fst, error) {
	return c.remote().Determinize(ctx, f, opts)
}

func (c *Chain) Minimize(ctx context.Context, f *fst.Fst, opts MinimizeOptions) error {
	return c.remote().Minimize(ctx, f, opts)
}

func (c *Chain) Compose(ctx context.Context, a, b *fst.Fst) (*fst.Fst, error) {
	return c.remote().Compose(ctx, a, b)
}

func (c *Chain) ShortestPath(ctx context.Context, f *fst.Fst, opts ShortestPathOptions) (*fst.Fst, error) {
	return c.remote().ShortestPath(ctx, f, opts)
}
