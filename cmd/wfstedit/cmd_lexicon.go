package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/idiap/icassp-oov-recognition/internal/codec"
	"github.com/idiap/icassp-oov-recognition/internal/fst"
	"github.com/idiap/icassp-oov-recognition/internal/lexicon"
	"github.com/idiap/icassp-oov-recognition/internal/symbols"
)

func newLexiconCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lexicon LEXICON PHONES WORDS OUT",
		Short: "Build a lexicon automaton from a pronunciation dictionary",
		Long: `Build one path per pronunciation from "word phone phone ..." lines. Input labels
are position tagged phones (_B, _I, _E) from PHONES, the word from WORDS is
the output of the first arc. Words with fewer than two phones and repeated
pronunciations are skipped and listed.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			phones, err := symbols.ReadFile(args[1])
			if err != nil {
				return err
			}
			words, err := symbols.ReadFile(args[2])
			if err != nil {
				return err
			}
			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open lexicon: %w", err)
			}
			defer in.Close()

			f, res, err := lexicon.Build(in, phones, words)
			if err != nil {
				return err
			}
			if err := codec.WriteFile(args[3], f); err != nil {
				return err
			}
			a.logger.Info("lexicon built", "words", res.Words, "skipped", len(res.Skipped), "states", f.NumStates())
			for _, w := range res.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			return a.recordResult(f, "lexicon", map[string]string{"lexicon": args[0]}, res)
		},
	}
}

func newExpandCmd(a *app) *cobra.Command {
	var (
		noExpand bool
		boundary string
	)
	cmd := &cobra.Command{
		Use:   "expand IN SPLIT SYMBOLS OUT",
		Short: "Split a|b output labels and add a boundary arc over an archive",
		Long: `For every entry of archive IN: rewrite arcs whose output symbol is listed in
SPLIT into two arcs, route all final states through a boundary arc into one
new final state, sort arcs by output label, and write the entry to OUT.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			syms, err := symbols.ReadFile(args[2])
			if err != nil {
				return err
			}
			split := map[string]bool{}
			if !noExpand {
				fh, err := os.Open(args[1])
				if err != nil {
					return fmt.Errorf("open split set: %w", err)
				}
				split, err = lexicon.ReadSplitSet(fh)
				fh.Close()
				if err != nil {
					return err
				}
			}
			label, err := syms.Lookup(boundary)
			if err != nil {
				return err
			}
			entries, err := codec.ReadArkFile(args[0])
			if err != nil {
				return err
			}

			p, release, err := a.provider()
			if err != nil {
				return err
			}
			defer release()
			ctx := a.context(cmd)

			out, err := os.Create(args[3])
			if err != nil {
				return fmt.Errorf("create archive: %w", err)
			}
			defer out.Close()

			expanded := 0
			for _, e := range entries {
				if len(split) > 0 {
					n, err := lexicon.Expand(e.Fst, split, syms)
					if err != nil {
						return fmt.Errorf("entry %q: %w", e.Key, err)
					}
					expanded += n
				}
				if _, err := lexicon.AddBoundary(e.Fst, label); err != nil {
					return fmt.Errorf("entry %q: %w", e.Key, err)
				}
				if err := p.ArcSort(ctx, e.Fst, fst.OLabelSort); err != nil {
					return fmt.Errorf("entry %q: %w", e.Key, err)
				}
				if err := codec.WriteArkEntry(out, e.Key, e.Fst); err != nil {
					return err
				}
			}
			a.logger.Info("expand done", "entries", len(entries), "arcs_split", expanded)
			return out.Close()
		},
	}
	cmd.Flags().BoolVar(&noExpand, "no-expand", false, "only add the boundary; SPLIT is not read")
	cmd.Flags().StringVar(&boundary, "boundary", lexicon.DefaultBoundary, "boundary symbol")
	return cmd
}
