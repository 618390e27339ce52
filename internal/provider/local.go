package provider

import (
	"context"
	"fmt"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// Local runs ArcSort and Connect in process. The remaining operations
// return ErrUnsupported.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

// ArcSort stably orders every state's arcs by the given key.
func (Local) ArcSort(ctx context.Context, f *fst.Fst, by fst.SortType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.SortArcs(by.Compare())
	return nil
}

// Connect deletes every state that is not both reachable from the start
// and able to reach a final state. An automaton without a start state
// becomes empty.
func (Local) Connect(ctx context.Context, f *fst.Fst) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := f.NumStates()
	access := make([]bool, n)
	if f.Valid(f.Start()) {
		stack := []int{f.Start()}
		access[f.Start()] = true
		for len(stack) > 0 {
			s := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, a := range f.Arcs(s) {
				if !access[a.NextState] {
					access[a.NextState] = true
					stack = append(stack, a.NextState)
				}
			}
		}
	}

	// reverse adjacency for coaccessibility
	preds := make([][]int, n)
	var stack []int
	coaccess := make([]bool, n)
	for _, s := range f.States() {
		for _, a := range f.Arcs(s) {
			preds[a.NextState] = append(preds[a.NextState], s)
		}
		if f.IsFinal(s) {
			coaccess[s] = true
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range preds[s] {
			if !coaccess[p] {
				coaccess[p] = true
				stack = append(stack, p)
			}
		}
	}

	var dead []int
	for s := 0; s < n; s++ {
		if !access[s] || !coaccess[s] {
			dead = append(dead, s)
		}
	}
	if len(dead) == 0 {
		return nil
	}
	if err := f.DeleteStates(dead); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (Local) Determinize(context.Context, *fst.Fst, DeterminizeOptions) (*fst.Fst, error) {
	return nil, fmt.Errorf("local determinize: %w", ErrUnsupported)
}

func (Local) Minimize(context.Context, *fst.Fst, MinimizeOptions) error {
	return fmt.Errorf("local minimize: %w", ErrUnsupported)
}

func (Local) Compose(context.Context, *fst.Fst, *fst.Fst) (*fst.Fst, error) {
	return nil, fmt.Errorf("local compose: %w", ErrUnsupported)
}

func (Local) ShortestPath(context.Context, *fst.Fst, ShortestPathOptions) (*fst.Fst, error) {
	return nil, fmt.Errorf("local shortest path: %w", ErrUnsupported)
}
