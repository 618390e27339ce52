package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/idiap/icassp-oov-recognition/internal/codec"
	"github.com/idiap/icassp-oov-recognition/internal/fst"
	"github.com/idiap/icassp-oov-recognition/internal/pipeline"
	"github.com/idiap/icassp-oov-recognition/internal/store"
	"github.com/idiap/icassp-oov-recognition/internal/symbols"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		archive  bool
		workers  int
		symsPath string
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:   "run RECIPE IN OUT",
		Short: "Apply a YAML recipe to an automaton or an archive",
		Long: `Apply each recipe step to a scratch copy, validate it, and keep it only when
validation passes. With --archive, IN and OUT are archives and entries are
processed concurrently. Relative paths in the recipe resolve against the
recipe's directory.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipe, err := pipeline.LoadRecipe(args[0])
			if err != nil {
				return err
			}
			p, release, err := a.provider()
			if err != nil {
				return err
			}
			defer release()

			opts := a.runnerOptions(p)
			opts.BaseDir = filepath.Dir(args[0])
			if symsPath != "" {
				if opts.Symbols, err = symbols.ReadFile(symsPath); err != nil {
					return err
				}
			}
			runner := pipeline.NewRunner(opts)
			ctx := a.context(cmd)

			if !archive {
				f, err := codec.ReadFile(args[1])
				if err != nil {
					return err
				}
				results, err := runner.Run(ctx, f, recipe)
				if err != nil {
					return err
				}
				if err := codec.WriteFile(args[2], f); err != nil {
					return err
				}
				if err := a.recordRun(f, recipe, results); err != nil {
					return err
				}
				return report(cmd, pipeline.Summarize(recipe.Name, results, f.NumStates()), results, jsonOut)
			}

			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Batch.Workers
			}
			entries, err := codec.ReadArkFile(args[1])
			if err != nil {
				return err
			}
			results, err := runner.RunArchive(ctx, entries, recipe, workers)
			if err != nil {
				return err
			}
			if err := writeArchive(args[2], results); err != nil {
				return err
			}
			return a.recordArchive(recipe, results)
		},
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "IN and OUT are archives")
	cmd.Flags().IntVar(&workers, "workers", 0, "archive entries processed at once (default from config, 0 = one per CPU)")
	cmd.Flags().StringVar(&symsPath, "symbols", "", "symbol table for expand and boundary steps")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print step results as JSON")
	return cmd
}

// recordRun commits a single-automaton run when --record is set.
func (a *app) recordRun(f *fst.Fst, recipe *pipeline.Recipe, results []pipeline.StepResult) error {
	if a.record == "" {
		return nil
	}
	st, err := store.NewStore(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	v, ok, err := pipeline.RecordRun(st, a.record, f, recipe, results)
	if err != nil {
		return err
	}
	if ok {
		a.logger.Info("recorded version", "name", a.record, "version", v.VersionID)
	}
	return nil
}

// recordArchive commits every edited entry as record/key.
func (a *app) recordArchive(recipe *pipeline.Recipe, results []pipeline.EntryResult) error {
	if a.record == "" {
		return nil
	}
	st, err := store.NewStore(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	recorded := 0
	for _, r := range results {
		_, ok, err := pipeline.RecordRun(st, a.record+"/"+r.Key, r.Fst, recipe, r.Steps)
		if err != nil {
			return err
		}
		if ok {
			recorded++
		}
	}
	a.logger.Info("recorded archive", "name", a.record, "entries", recorded)
	return nil
}

func writeArchive(path string, results []pipeline.EntryResult) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	for _, r := range results {
		if err := codec.WriteArkEntry(out, r.Key, r.Fst); err != nil {
			out.Close()
			return err
		}
	}
	return out.Close()
}

func report(cmd *cobra.Command, summary pipeline.Summary, results []pipeline.StepResult, jsonOut bool) error {
	w := cmd.OutOrStdout()
	if jsonOut {
		data, err := json.MarshalIndent(struct {
			Summary pipeline.Summary      `json:"summary"`
			Steps   []pipeline.StepResult `json:"steps"`
		}{summary, results}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(w, "%2d  %-12s  %-14s  %6d -> %-6d  %s\n",
			r.Index, r.Op, r.Action, r.StatesBefore, r.StatesAfter, r.Reason)
	}
	fmt.Fprintf(w, "\n%d steps: %d committed, %d rolled back, %d no-op; %d states\n",
		summary.Steps, summary.Commits, summary.EvalRollbacks, summary.NoOps, summary.FinalStates)
	return nil
}
