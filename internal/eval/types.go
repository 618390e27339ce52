package eval

// #region eval-config
// EvalConfig holds thresholds for post-edit validation.
type EvalConfig struct {
	StochasticTolerance   float64 // allowed |mass - 1| per state
	RequireStochastic     bool    // fail instead of warn when a state is off by more than the tolerance
	RejectNegativeWeights bool    // fail instead of warn on arcs with weight < 0
	MaxStateGrowth        float64 // reject if states/baseline exceeds this; 0 reports growth only
}

// DefaultEvalConfig returns defaults suited to boosted language models,
// where discounted arcs may legitimately drop below zero. Splicing grows an
// automaton by one donor copy per marker arc, so growth is not limited.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		StochasticTolerance: 1e-6,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of post-edit validation.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// Metric returns the named metric.
func (r EvalResult) Metric(name string) (EvalMetric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return EvalMetric{}, false
}

// #endregion eval-result
