// Package normalize rescales arc weights so every state carries a proper
// local probability distribution.
package normalize

import (
	"errors"
	"fmt"
	"math"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// ErrZeroMass is wrapped by ZeroMassError.
var ErrZeroMass = errors.New("normalize: state has zero probability mass")

// ZeroMassError names the first state found without probability mass.
type ZeroMassError struct {
	State int
}

func (e *ZeroMassError) Error() string {
	return fmt.Sprintf("normalize: state %d has zero probability mass", e.State)
}

func (e *ZeroMassError) Unwrap() error { return ErrZeroMass }

// Result summarizes a Normalize call.
type Result struct {
	StatesNormalized int
}

// Normalize rewrites each arc weight w of state s to -ln(exp(-w) / sum),
// where sum is exp(-final(s)) plus exp(-w) over all arcs of s. Final weights
// are left unchanged. States without arcs are skipped, final or not, so a
// non-final dead end has no mass yet never yields a ZeroMassError; only a
// state whose arcs (and final weight) all carry Zero does. Every sum is
// checked before anything is rewritten, so on error f is unchanged.
func Normalize(f *fst.Fst) (Result, error) {
	sums := make([]float64, f.NumStates())
	for _, s := range f.States() {
		if f.NumArcs(s) == 0 {
			continue
		}
		sum := 0.0
		if f.IsFinal(s) {
			sum = math.Exp(-f.Final(s))
		}
		for _, a := range f.Arcs(s) {
			sum += math.Exp(-a.Weight)
		}
		if sum == 0 || math.IsNaN(sum) {
			return Result{}, &ZeroMassError{State: s}
		}
		sums[s] = sum
	}

	res := Result{}
	for _, s := range f.States() {
		if f.NumArcs(s) == 0 {
			continue
		}
		it := fst.NewArcIterator(f, s)
		for !it.Done() {
			a := it.Value()
			a.Weight = -math.Log(math.Exp(-a.Weight) / sums[s])
			if err := it.SetValue(a); err != nil {
				return res, fmt.Errorf("normalize state %d: %w", s, err)
			}
			it.Next()
		}
		res.StatesNormalized++
	}
	return res, nil
}
