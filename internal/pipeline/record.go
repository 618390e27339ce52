package pipeline

import (
	"fmt"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
	"github.com/idiap/icassp-oov-recognition/internal/logging"
	"github.com/idiap/icassp-oov-recognition/internal/store"
)

// Record commits f as a new version of name and writes the edit_log row
// describing the operation that produced it.
func Record(st *store.Store, name string, f *fst.Fst, operation string, params, result any) (store.Version, error) {
	v, err := st.Commit(name, f, operation)
	if err != nil {
		return store.Version{}, fmt.Errorf("commit %s: %w", name, err)
	}
	entry, err := logging.NewEditEntry(v.VersionID, name, operation, params, result)
	if err != nil {
		return v, err
	}
	if err := logging.LogEdit(st.DB(), entry); err != nil {
		return v, err
	}
	return v, nil
}

// RecordRun persists the outcome of a recipe run. Runs that committed no
// step are not recorded.
func RecordRun(st *store.Store, name string, f *fst.Fst, recipe *Recipe, results []StepResult) (store.Version, bool, error) {
	summary := Summarize(recipe.Name, results, f.NumStates())
	if summary.Commits == 0 {
		return store.Version{}, false, nil
	}
	op := "recipe"
	if recipe.Name != "" {
		op = "recipe:" + recipe.Name
	}
	v, err := Record(st, name, f, op, recipe, results)
	return v, err == nil, err
}
