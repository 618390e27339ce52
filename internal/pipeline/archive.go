package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/idiap/icassp-oov-recognition/internal/codec"
	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// EntryResult is the outcome of a recipe run over one archive entry.
type EntryResult struct {
	Key   string
	Fst   *fst.Fst
	Steps []StepResult
}

// RunArchive applies recipe to every entry with at most workers entries in
// flight (workers <= 0 means one per CPU). Each entry is owned by exactly one
// goroutine. Results are in input order. The first failing entry cancels
// the rest and its error is returned.
func (r *Runner) RunArchive(ctx context.Context, entries []codec.ArkEntry, recipe *Recipe, workers int) ([]EntryResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]EntryResult, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			r.metrics.ActiveJobs.Add(ctx, 1)
			defer r.metrics.ActiveJobs.Add(ctx, -1)

			steps, err := r.Run(ctx, e.Fst, recipe)
			if err != nil {
				return fmt.Errorf("entry %q: %w", e.Key, err)
			}
			results[i] = EntryResult{Key: e.Key, Fst: e.Fst, Steps: steps}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
