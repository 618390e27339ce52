package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/idiap/icassp-oov-recognition/internal/boost"
	"github.com/idiap/icassp-oov-recognition/internal/codec"
	"github.com/idiap/icassp-oov-recognition/internal/fst"
	"github.com/idiap/icassp-oov-recognition/internal/normalize"
	"github.com/idiap/icassp-oov-recognition/internal/pipeline"
	"github.com/idiap/icassp-oov-recognition/internal/splice"
)

// #region splice
type spliceFlags struct {
	marker int
	bias   float64
	strict bool
}

func newInsertCmd(a *app) *cobra.Command {
	var fl spliceFlags
	cmd := &cobra.Command{
		Use:   "insert IN DONOR OUT",
		Short: "Splice a private donor copy at every marker arc",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSplice(cmd, args, fl, splice.Insert, pipeline.OpInsert)
		},
	}
	addSpliceFlags(cmd, &fl)
	return cmd
}

func newReplaceCmd(a *app) *cobra.Command {
	var fl spliceFlags
	cmd := &cobra.Command{
		Use:   "replace IN DONOR OUT",
		Short: "Splice one donor copy shared by every marker arc",
		Long: `Remove every marker arc and route all of them through a single donor copy
whose final states lead to the first marker arc's destination. Differing
destinations are logged, or rejected with --strict.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSplice(cmd, args, fl, splice.ReplaceSingle, pipeline.OpReplace)
		},
	}
	addSpliceFlags(cmd, &fl)
	cmd.Flags().BoolVar(&fl.strict, "strict", false, "fail when marker arcs lead to different states")
	return cmd
}

func addSpliceFlags(cmd *cobra.Command, fl *spliceFlags) {
	cmd.Flags().IntVar(&fl.marker, "marker", 0, "output label of the arcs to replace")
	cmd.Flags().Float64Var(&fl.bias, "bias", splice.DefaultBias, "weight added to each entry arc (default from config)")
	if err := cmd.MarkFlagRequired("marker"); err != nil {
		panic(fmt.Sprintf("%s: %v", cmd.Name(), err))
	}
}

type spliceFunc func(f *fst.Fst, marker int, donor *fst.Fst, opts splice.Options) (splice.Result, error)

func (a *app) runSplice(cmd *cobra.Command, args []string, fl spliceFlags, fn spliceFunc, op string) error {
	f, err := codec.ReadFile(args[0])
	if err != nil {
		return err
	}
	donor, err := codec.ReadFile(args[1])
	if err != nil {
		return err
	}

	opts := a.cfg.SpliceOptions()
	opts.Logger = a.logger
	if cmd.Flags().Changed("bias") {
		opts.Bias = fl.bias
	}
	if cmd.Flags().Changed("strict") {
		opts.StrictDestination = fl.strict
	}

	res, err := fn(f, fl.marker, donor, opts)
	if err != nil {
		return err
	}
	a.logger.Info(op+" done", "marker_arcs", res.MarkerArcs, "copies", res.DonorCopies,
		"states_added", res.StatesAdded, "divergences", res.Divergences)

	if err := codec.WriteFile(args[2], f); err != nil {
		return err
	}
	params := map[string]any{"marker": fl.marker, "donor": args[1], "bias": opts.Bias}
	return a.recordResult(f, op, params, res)
}

// #endregion splice

// #region boost
func newBoostCmd(a *app) *cobra.Command {
	var (
		factor      float64
		contextless int
	)
	cmd := &cobra.Command{
		Use:   "boost IN SEQUENCES OUT",
		Short: "Discount label sequences in a language model graph",
		Long: `Walk each sequence (one line of whitespace separated labels in SEQUENCES)
from the context-free state, subtract ln(factor) from every matched arc, and
grow new states for the unmatched suffix.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := codec.ReadFile(args[0])
			if err != nil {
				return err
			}
			fh, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open sequences: %w", err)
			}
			seqs, err := pipeline.ReadSequences(fh)
			fh.Close()
			if err != nil {
				return err
			}

			params := a.cfg.BoostParams()
			if cmd.Flags().Changed("factor") {
				params.Factor = factor
			}
			if cmd.Flags().Changed("contextless") {
				params.ContextlessLabel = contextless
			}

			p, release, err := a.provider()
			if err != nil {
				return err
			}
			defer release()

			res, err := boost.Boost(a.context(cmd), f, seqs, params, p)
			if err != nil {
				return err
			}
			a.logger.Info("boost done", "sequences", res.Sequences, "fully_matched", res.FullyMatched,
				"boosted_arcs", res.BoostedArcs, "states_added", res.StatesAdded)

			if err := codec.WriteFile(args[2], f); err != nil {
				return err
			}
			return a.recordResult(f, pipeline.OpBoost, params, res)
		},
	}
	cmd.Flags().Float64Var(&factor, "factor", 2, "boost factor, matched arcs lose ln(factor) (default from config)")
	cmd.Flags().IntVar(&contextless, "contextless", 0, "ilabel of the start arc into the context-free state (default from config)")
	return cmd
}

// #endregion boost

// #region normalize
func newNormalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize IN OUT",
		Short: "Renormalize the outgoing mass of every state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := codec.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := normalize.Normalize(f)
			if err != nil {
				return err
			}
			a.logger.Info("normalize done", "states", res.StatesNormalized)
			if err := codec.WriteFile(args[1], f); err != nil {
				return err
			}
			return a.recordResult(f, pipeline.OpNormalize, nil, res)
		},
	}
}

// #endregion normalize
