// Package eval validates an automaton after an edit.
package eval

import (
	"fmt"
	"math"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// #region eval-harness
// EvalHarness runs lightweight post-edit validation.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run validates f. baselineStates is the state count before the edit; zero
// skips the growth check.
func (h *EvalHarness) Run(f *fst.Fst, baselineStates int) EvalResult {
	var metrics []EvalMetric
	var failReasons []string
	check := func(m EvalMetric, blocking bool, reason string) {
		metrics = append(metrics, m)
		if !m.Pass && blocking {
			failReasons = append(failReasons, reason)
		}
	}

	// 1. start state
	hasStart := f.NumStates() == 0 || f.Valid(f.Start())
	check(EvalMetric{Name: "has_start", Value: boolValue(hasStart), Pass: hasStart},
		true, "automaton has states but no start state")

	// 2. some final state reachable from the start
	reachable := f.NumStates() == 0 || finalReachable(f)
	check(EvalMetric{Name: "final_reachable", Value: boolValue(reachable), Pass: reachable},
		true, "no final state is reachable from the start")

	// 3. NaN weights are never valid
	nan, negative := weightCounts(f)
	check(EvalMetric{Name: "nan_weights", Value: float64(nan), Pass: nan == 0},
		true, fmt.Sprintf("%d NaN weights", nan))

	// 4. negative weights: informational unless configured otherwise
	check(EvalMetric{Name: "negative_weight_arcs", Value: float64(negative), Pass: negative == 0},
		h.config.RejectNegativeWeights, fmt.Sprintf("%d arcs with negative weight", negative))

	// 5. local stochasticity
	dev := maxDeviation(f)
	check(EvalMetric{Name: "max_stochastic_deviation", Value: dev, Pass: dev <= h.config.StochasticTolerance},
		h.config.RequireStochastic, fmt.Sprintf("stochastic deviation %.6f exceeds %.6f", dev, h.config.StochasticTolerance))

	// 6. state growth; informational unless a limit is set
	if baselineStates > 0 {
		growth := float64(f.NumStates()) / float64(baselineStates)
		limited := h.config.MaxStateGrowth > 0
		check(EvalMetric{Name: "state_growth", Value: growth, Pass: !limited || growth <= h.config.MaxStateGrowth},
			limited, fmt.Sprintf("state growth %.2f exceeds %.2f", growth, h.config.MaxStateGrowth))
	}

	passed := len(failReasons) == 0
	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func finalReachable(f *fst.Fst) bool {
	if !f.Valid(f.Start()) {
		return false
	}
	seen := make([]bool, f.NumStates())
	stack := []int{f.Start()}
	seen[f.Start()] = true
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.IsFinal(s) {
			return true
		}
		for _, a := range f.Arcs(s) {
			if !seen[a.NextState] {
				seen[a.NextState] = true
				stack = append(stack, a.NextState)
			}
		}
	}
	return false
}

func weightCounts(f *fst.Fst) (nan, negative int) {
	for _, s := range f.States() {
		if math.IsNaN(f.Final(s)) {
			nan++
		}
		for _, a := range f.Arcs(s) {
			switch {
			case math.IsNaN(a.Weight):
				nan++
			case a.Weight < 0:
				negative++
			}
		}
	}
	return nan, negative
}

// maxDeviation returns the largest |exp(-final) + sum exp(-w) - 1| over
// states with arcs.
func maxDeviation(f *fst.Fst) float64 {
	worst := 0.0
	for _, s := range f.States() {
		if f.NumArcs(s) == 0 {
			continue
		}
		mass := 0.0
		if f.IsFinal(s) {
			mass = math.Exp(-f.Final(s))
		}
		for _, a := range f.Arcs(s) {
			mass += math.Exp(-a.Weight)
		}
		if d := math.Abs(mass - 1); d > worst || math.IsNaN(d) {
			worst = d
		}
	}
	return worst
}

// #endregion helpers
