package eval

import (
	"math"
	"testing"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// makeFst builds 0 -> 1(final) with the given arc weights in parallel.
func makeFst(t *testing.T, weights ...float64) *fst.Fst {
	t.Helper()
	f := fst.New()
	f.AddState()
	f.AddState()
	f.SetStart(0)
	f.SetFinal(1, fst.One)
	for i, w := range weights {
		if err := f.AddArc(0, fst.Arc{ILabel: i + 1, OLabel: i + 1, Weight: w, NextState: 1}); err != nil {
			t.Fatalf("add arc: %v", err)
		}
	}
	return f
}

func metric(t *testing.T, r EvalResult, name string) EvalMetric {
	t.Helper()
	m, ok := r.Metric(name)
	if !ok {
		t.Fatalf("metric %s missing", name)
	}
	return m
}

func TestEvalPassesOnStochasticFst(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run(makeFst(t, math.Ln2, math.Ln2), 2)

	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
	if len(result.Metrics) != 6 {
		t.Fatalf("expected 6 metrics, got %d", len(result.Metrics))
	}
	if m := metric(t, result, "max_stochastic_deviation"); !m.Pass || m.Value > 1e-12 {
		t.Errorf("unexpected deviation %+v", m)
	}
}

func TestEvalPassesOnEmptyFst(t *testing.T) {
	result := NewEvalHarness(DefaultEvalConfig()).Run(fst.New(), 0)
	if !result.Passed {
		t.Fatalf("empty automaton should pass: %s", result.Reason)
	}
}

func TestEvalFailsWithoutStart(t *testing.T) {
	f := fst.New()
	f.AddState()
	result := NewEvalHarness(DefaultEvalConfig()).Run(f, 0)
	if result.Passed {
		t.Fatal("expected fail without start state")
	}
	if metric(t, result, "has_start").Pass {
		t.Error("has_start should fail")
	}
}

func TestEvalFailsWhenNoFinalReachable(t *testing.T) {
	f := makeFst(t, 0)
	f.SetFinal(1, fst.Zero)
	f.AddState()
	f.SetFinal(2, fst.One)

	result := NewEvalHarness(DefaultEvalConfig()).Run(f, 0)
	if result.Passed || metric(t, result, "final_reachable").Pass {
		t.Fatalf("expected final_reachable to fail: %+v", result)
	}
}

func TestEvalNegativeWeightsInformationalByDefault(t *testing.T) {
	f := makeFst(t, -0.5, 2)
	result := NewEvalHarness(DefaultEvalConfig()).Run(f, 0)
	if !result.Passed {
		t.Fatalf("negative weights should only warn: %s", result.Reason)
	}
	if m := metric(t, result, "negative_weight_arcs"); m.Pass || m.Value != 1 {
		t.Errorf("expected one negative arc flagged, got %+v", m)
	}

	cfg := DefaultEvalConfig()
	cfg.RejectNegativeWeights = true
	if NewEvalHarness(cfg).Run(f, 0).Passed {
		t.Error("expected fail when negative weights are rejected")
	}
}

func TestEvalStochasticRequirement(t *testing.T) {
	f := makeFst(t, 0, 0)
	result := NewEvalHarness(DefaultEvalConfig()).Run(f, 0)
	if !result.Passed {
		t.Fatalf("deviation should be informational by default: %s", result.Reason)
	}
	if m := metric(t, result, "max_stochastic_deviation"); m.Pass || math.Abs(m.Value-1) > 1e-12 {
		t.Errorf("expected deviation 1, got %+v", m)
	}

	cfg := DefaultEvalConfig()
	cfg.RequireStochastic = true
	if NewEvalHarness(cfg).Run(f, 0).Passed {
		t.Error("expected fail when stochasticity is required")
	}
}

func TestEvalFailsOnNaN(t *testing.T) {
	result := NewEvalHarness(DefaultEvalConfig()).Run(makeFst(t, math.NaN()), 0)
	if result.Passed {
		t.Fatal("expected fail on NaN weight")
	}
}

func TestEvalStateGrowth(t *testing.T) {
	cfg := DefaultEvalConfig()
	cfg.MaxStateGrowth = 1.5
	f := makeFst(t, 0)
	f.AddState()
	f.AddState()

	result := NewEvalHarness(cfg).Run(f, 2)
	if result.Passed {
		t.Fatal("expected fail on 2x growth with 1.5 limit")
	}
	if m := metric(t, result, "state_growth"); m.Value != 2 {
		t.Errorf("expected growth 2, got %v", m.Value)
	}
	if _, ok := NewEvalHarness(cfg).Run(f, 0).Metric("state_growth"); ok {
		t.Error("growth check should be skipped without a baseline")
	}
}

func TestEvalStateGrowthInformationalByDefault(t *testing.T) {
	f := makeFst(t, 0)
	for i := 0; i < 18; i++ {
		f.AddState()
	}

	result := NewEvalHarness(DefaultEvalConfig()).Run(f, 2)
	if !result.Passed {
		t.Fatalf("10x growth should not block by default: %s", result.Reason)
	}
	if m := metric(t, result, "state_growth"); m.Value != 10 || !m.Pass {
		t.Errorf("expected passing growth metric of 10, got %+v", m)
	}
}

func TestEvalReasonCountsFailures(t *testing.T) {
	f := fst.New()
	f.AddState()
	f.AddState()
	f.AddArc(0, fst.Arc{ILabel: 1, Weight: math.NaN(), NextState: 1})
	result := NewEvalHarness(DefaultEvalConfig()).Run(f, 0)
	if result.Passed || result.Reason != "eval failed: 3 checks: automaton has states but no start state" {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}
