package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/idiap/icassp-oov-recognition/internal/config"
	"github.com/idiap/icassp-oov-recognition/internal/fst"
	"github.com/idiap/icassp-oov-recognition/internal/pipeline"
	"github.com/idiap/icassp-oov-recognition/internal/provider"
	"github.com/idiap/icassp-oov-recognition/internal/store"
)

// app carries state shared by every subcommand for one invocation.
type app struct {
	configPath string
	logLevel   string
	record     string

	cfg    *config.Config
	logger *slog.Logger
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}
	root := &cobra.Command{
		Use:   "wfstedit",
		Short: "Edit weighted finite-state transducers",
		Long: `Edit tropical-weight automata in the OpenFst binary format.

Subcommands:
  insert     - splice a private donor copy at every marker arc
  replace    - splice one shared donor copy for all marker arcs
  boost      - discount and extend label sequences in a language model graph
  normalize  - renormalize the outgoing mass of every state
  run        - apply a YAML recipe to one automaton or a whole archive
  lexicon    - build a lexicon automaton from a pronunciation dictionary
  expand     - split a|b output labels and add a boundary over an archive
  serve      - expose the in-process algorithms over gRPC`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.record, "record", "", "commit the result to the version store under this name")

	root.AddCommand(
		newInsertCmd(a),
		newReplaceCmd(a),
		newBoostCmd(a),
		newNormalizeCmd(a),
		newRunCmd(a),
		newLexiconCmd(a),
		newExpandCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg = config.Default()
		config.ApplyEnv(a.cfg)
		err = config.Validate(a.cfg)
	}
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		lvl := config.LogLevel(a.logLevel)
		if !lvl.IsValid() {
			return fmt.Errorf("--log-level %q is invalid", a.logLevel)
		}
		a.cfg.Log.Level = lvl
	}

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: a.cfg.Log.Level.SlogLevel(),
	}))
	slog.SetDefault(a.logger)
	return nil
}

// provider returns the configured algorithm provider and a function that
// releases it.
func (a *app) provider() (provider.Provider, func(), error) {
	local := provider.NewLocal()
	if a.cfg.Provider.Addr == "" {
		return provider.NewChain(local, nil), func() {}, nil
	}
	remote, err := provider.NewRemote(a.cfg.Provider.Addr, a.cfg.Provider.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("connect provider %s: %w", a.cfg.Provider.Addr, err)
	}
	a.logger.Debug("using remote provider", "addr", a.cfg.Provider.Addr)
	return provider.NewChain(local, remote), func() { remote.Close() }, nil
}

// runnerOptions builds pipeline options from the loaded config.
func (a *app) runnerOptions(p provider.Provider) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Provider = p
	opts.Splice = a.cfg.SpliceOptions()
	opts.Splice.Logger = a.logger
	opts.Boost = a.cfg.BoostParams()
	opts.Eval = a.cfg.EvalConfig()
	opts.Logger = a.logger
	return opts
}

// recordResult commits f to the version store when --record is set.
func (a *app) recordResult(f *fst.Fst, operation string, params, result any) error {
	if a.record == "" {
		return nil
	}
	st, err := store.NewStore(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	v, err := pipeline.Record(st, a.record, f, operation, params, result)
	if err != nil {
		return err
	}
	a.logger.Info("recorded version", "name", a.record, "version", v.VersionID)
	return nil
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
