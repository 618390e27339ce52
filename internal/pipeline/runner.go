// Package pipeline applies YAML recipes of automaton edits, checks each step
// with the eval harness, and runs recipes over whole archives.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/idiap/icassp-oov-recognition/internal/boost"
	"github.com/idiap/icassp-oov-recognition/internal/codec"
	"github.com/idiap/icassp-oov-recognition/internal/eval"
	"github.com/idiap/icassp-oov-recognition/internal/fst"
	"github.com/idiap/icassp-oov-recognition/internal/lexicon"
	"github.com/idiap/icassp-oov-recognition/internal/normalize"
	"github.com/idiap/icassp-oov-recognition/internal/observe"
	"github.com/idiap/icassp-oov-recognition/internal/provider"
	"github.com/idiap/icassp-oov-recognition/internal/splice"
)

// ErrNoSymbols is returned by expand and boundary steps run without a
// symbol table.
var ErrNoSymbols = errors.New("pipeline: step needs a symbol table")

// ErrUnknownSortType is returned by arcsort steps whose sort_by is neither
// ilabel nor olabel.
var ErrUnknownSortType = errors.New("pipeline: unknown sort type")

// Runner applies recipes. A Runner may be shared by goroutines working on
// distinct automata; loaded donors are cached and never mutated.
type Runner struct {
	opts    Options
	harness *eval.EvalHarness
	metrics *observe.Metrics
	logger  *slog.Logger

	mu    sync.Mutex
	files map[string]*fst.Fst
	seqs  map[string][][]int
}

// NewRunner returns a Runner for opts.
func NewRunner(opts Options) *Runner {
	if opts.Provider == nil {
		opts.Provider = provider.NewLocal()
	}
	r := &Runner{
		opts:    opts,
		harness: eval.NewEvalHarness(opts.Eval),
		metrics: opts.Metrics,
		logger:  opts.Logger,
		files:   map[string]*fst.Fst{},
		seqs:    map[string][][]int{},
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// #region run
// Run applies recipe to f step by step: apply to a scratch copy, then eval,
// then commit into f or roll back. A step that fails outright aborts the run
// and leaves f as of the last committed step.
func (r *Runner) Run(ctx context.Context, f *fst.Fst, recipe *Recipe) ([]StepResult, error) {
	results := make([]StepResult, 0, len(recipe.Steps))

	for i, step := range recipe.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := time.Now()
		before := f.NumStates()
		work := f.Copy()

		// 1. Apply
		detail, changed, err := r.apply(ctx, work, step)
		r.metrics.RecordEdit(ctx, step.Op, start, err)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		res := StepResult{Index: i, Op: step.Op, StatesBefore: before, Detail: detail}

		// 2. No-op check
		if !changed {
			res.Action = ActionNoOp
			res.Reason = "no change"
			res.StatesAfter = before
			results = append(results, res)
			continue
		}

		// 3. Eval
		evalResult := r.harness.Run(work, before)
		res.Eval = &evalResult
		if !evalResult.Passed {
			res.Action = ActionEvalRollback
			res.Reason = evalResult.Reason
			res.StatesAfter = before
			r.logger.Warn("step rolled back", "step", i, "op", step.Op, "reason", evalResult.Reason)
			results = append(results, res)
			continue
		}

		// 4. Commit
		f.Assign(work)
		res.Action = ActionCommit
		res.Reason = evalResult.Reason
		res.StatesAfter = f.NumStates()
		r.metrics.RecordGrowth(ctx, step.Op, res.StatesAfter-before)
		r.logger.Debug("step committed", "step", i, "op", step.Op, "states", res.StatesAfter)
		results = append(results, res)
	}
	return results, nil
}

// #endregion run

// #region apply
func (r *Runner) apply(ctx context.Context, f *fst.Fst, step Step) (any, bool, error) {
	switch step.Op {
	case OpInsert, OpReplace:
		donor, err := r.loadFst(step.Donor)
		if err != nil {
			return nil, false, err
		}
		opts := r.spliceOptions(step)
		var res splice.Result
		if step.Op == OpInsert {
			res, err = splice.Insert(f, step.Marker, donor, opts)
		} else {
			res, err = splice.ReplaceSingle(f, step.Marker, donor, opts)
		}
		return res, res.MarkerArcs > 0, err

	case OpBoost:
		seqs, err := r.sequences(step)
		if err != nil {
			return nil, false, err
		}
		params := r.opts.Boost
		if step.Factor != nil {
			params.Factor = *step.Factor
		}
		res, err := boost.Boost(ctx, f, seqs, params, r.tracked())
		r.metrics.RecordBoosted(ctx, res.BoostedArcs)
		return res, res.BoostedArcs > 0 || res.StatesAdded > 0, err

	case OpNormalize:
		res, err := normalize.Normalize(f)
		return res, res.StatesNormalized > 0, err

	case OpArcSort:
		by := fst.ILabelSort
		if step.SortBy != "" {
			var ok bool
			if by, ok = fst.ParseSortType(step.SortBy); !ok {
				return nil, false, fmt.Errorf("%w: %q", ErrUnknownSortType, step.SortBy)
			}
		}
		return nil, true, r.tracked().ArcSort(ctx, f, by)

	case OpConnect:
		before := f.NumStates()
		err := r.tracked().Connect(ctx, f)
		return nil, f.NumStates() != before, err

	case OpDeterminize:
		opts := provider.DefaultDeterminizeOptions()
		if step.Delta != nil {
			opts.Delta = *step.Delta
		}
		if step.WeightThreshold != nil {
			opts.WeightThreshold = *step.WeightThreshold
		}
		out, err := r.tracked().Determinize(ctx, f, opts)
		return nil, true, assign(f, out, err)

	case OpMinimize:
		opts := provider.DefaultMinimizeOptions()
		if step.Delta != nil {
			opts.Delta = *step.Delta
		}
		opts.AllowNondet = step.AllowNondet
		return nil, true, r.tracked().Minimize(ctx, f, opts)

	case OpShortestPath:
		opts := provider.DefaultShortestPathOptions()
		if step.Delta != nil {
			opts.Delta = *step.Delta
		}
		if step.NShortest > 0 {
			opts.NShortest = step.NShortest
		}
		opts.Unique = !step.NonUnique
		out, err := r.tracked().ShortestPath(ctx, f, opts)
		return nil, true, assign(f, out, err)

	case OpCompose:
		rhs, err := r.loadFst(step.RHS)
		if err != nil {
			return nil, false, err
		}
		out, err := r.tracked().Compose(ctx, f, rhs)
		return nil, true, assign(f, out, err)

	case OpExpand:
		if r.opts.Symbols == nil {
			return nil, false, ErrNoSymbols
		}
		split := make(map[string]bool, len(step.Split))
		for _, s := range step.Split {
			split[s] = true
		}
		n, err := lexicon.Expand(f, split, r.opts.Symbols)
		return n, n > 0, err

	case OpBoundary:
		if r.opts.Symbols == nil {
			return nil, false, ErrNoSymbols
		}
		sym := step.Boundary
		if sym == "" {
			sym = lexicon.DefaultBoundary
		}
		label, err := r.opts.Symbols.Lookup(sym)
		if err != nil {
			return nil, false, err
		}
		end, err := lexicon.AddBoundary(f, label)
		return end, true, err
	}
	return nil, false, fmt.Errorf("unknown op %q", step.Op)
}

func assign(f, out *fst.Fst, err error) error {
	if err != nil {
		return err
	}
	f.Assign(out)
	return nil
}

func (r *Runner) spliceOptions(step Step) splice.Options {
	opts := r.opts.Splice
	if step.Bias != nil {
		opts.Bias = *step.Bias
	}
	if step.Strict != nil {
		opts.StrictDestination = *step.Strict
	}
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	return opts
}

// #endregion apply

// #region inputs
func (r *Runner) resolve(path string) string {
	if filepath.IsAbs(path) || r.opts.BaseDir == "" {
		return path
	}
	return filepath.Join(r.opts.BaseDir, path)
}

func (r *Runner) loadFst(path string) (*fst.Fst, error) {
	path = r.resolve(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.files[path]; ok {
		return f, nil
	}
	f, err := codec.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r.files[path] = f
	return f, nil
}

func (r *Runner) sequences(step Step) ([][]int, error) {
	if step.SequencesFile == "" {
		return step.Sequences, nil
	}
	path := r.resolve(step.SequencesFile)
	r.mu.Lock()
	defer r.mu.Unlock()
	seqs, ok := r.seqs[path]
	if !ok {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sequences: %w", err)
		}
		defer fh.Close()
		if seqs, err = ReadSequences(fh); err != nil {
			return nil, err
		}
		r.seqs[path] = seqs
	}
	return append(append([][]int(nil), step.Sequences...), seqs...), nil
}

// #endregion inputs
