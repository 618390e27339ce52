package pipeline

import (
	"log/slog"

	"github.com/idiap/icassp-oov-recognition/internal/boost"
	"github.com/idiap/icassp-oov-recognition/internal/eval"
	"github.com/idiap/icassp-oov-recognition/internal/observe"
	"github.com/idiap/icassp-oov-recognition/internal/provider"
	"github.com/idiap/icassp-oov-recognition/internal/splice"
	"github.com/idiap/icassp-oov-recognition/internal/symbols"
)

// Step outcomes.
const (
	ActionCommit       = "commit"
	ActionEvalRollback = "eval_rollback"
	ActionNoOp         = "no_op"
)

// #region options
// Options configures a Runner.
type Options struct {
	Provider provider.Provider // nil uses provider.NewLocal()
	Splice   splice.Options
	Boost    boost.Params
	Eval     eval.EvalConfig
	Symbols  *symbols.Table // needed by expand and boundary steps
	BaseDir  string         // relative donor/rhs/sequence paths resolve here
	Metrics  *observe.Metrics
	Logger   *slog.Logger
}

// DefaultOptions returns local-only options with default splice, boost and
// eval settings. Boost still needs a contextless label.
func DefaultOptions() Options {
	return Options{
		Splice: splice.DefaultOptions(),
		Boost:  boost.NewParams(2, 0),
		Eval:   eval.DefaultEvalConfig(),
	}
}

// #endregion options

// #region results
// StepResult captures the outcome of one recipe step.
type StepResult struct {
	Index        int              `json:"index"`
	Op           string           `json:"op"`
	Action       string           `json:"action"`
	Reason       string           `json:"reason,omitempty"`
	StatesBefore int              `json:"states_before"`
	StatesAfter  int              `json:"states_after"`
	Detail       any              `json:"detail,omitempty"`
	Eval         *eval.EvalResult `json:"eval,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Recipe        string `json:"recipe"`
	Steps         int    `json:"steps"`
	Commits       int    `json:"commits"`
	EvalRollbacks int    `json:"eval_rollbacks"`
	NoOps         int    `json:"no_ops"`
	FinalStates   int    `json:"final_states"`
}

// Summarize computes aggregate stats from step results.
func Summarize(recipe string, results []StepResult, finalStates int) Summary {
	s := Summary{Recipe: recipe, Steps: len(results), FinalStates: finalStates}
	for _, r := range results {
		switch r.Action {
		case ActionCommit:
			s.Commits++
		case ActionEvalRollback:
			s.EvalRollbacks++
		case ActionNoOp:
			s.NoOps++
		}
	}
	return s
}

// #endregion results
