package store

import (
	"database/sql"
	"fmt"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// #region insert
func insertTuples(tx *sql.Tx, versionID string, snap fst.Snapshot) error {
	finalStmt, err := tx.Prepare(`INSERT INTO automaton_finals (version_id, state, weight) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare finals: %w", err)
	}
	defer finalStmt.Close()
	for _, fw := range snap.Finals {
		if _, err := finalStmt.Exec(versionID, fw.State, fw.Weight); err != nil {
			return fmt.Errorf("insert final %d: %w", fw.State, err)
		}
	}

	arcStmt, err := tx.Prepare(
		`INSERT INTO automaton_arcs (version_id, state, ordinal, ilabel, olabel, weight, next_state)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare arcs: %w", err)
	}
	defer arcStmt.Close()

	ordinal, prev := 0, fst.NoState
	for _, a := range snap.Arcs {
		if a.State != prev {
			ordinal, prev = 0, a.State
		}
		if _, err := arcStmt.Exec(versionID, a.State, ordinal, a.ILabel, a.OLabel, a.Weight, a.NextState); err != nil {
			return fmt.Errorf("insert arc %d/%d: %w", a.State, ordinal, err)
		}
		ordinal++
	}
	return nil
}

// #endregion insert

// #region query
func (s *Store) arcs(where string, args ...any) ([]StoredArc, error) {
	rows, err := s.db.Query(
		`SELECT state, ordinal, ilabel, olabel, weight, next_state FROM automaton_arcs `+
			where+` ORDER BY state, ordinal`, args...)
	if err != nil {
		return nil, fmt.Errorf("query arcs: %w", err)
	}
	defer rows.Close()

	var out []StoredArc
	for rows.Next() {
		var a StoredArc
		if err := rows.Scan(&a.State, &a.Ordinal, &a.ILabel, &a.OLabel, &a.Weight, &a.NextState); err != nil {
			return nil, fmt.Errorf("scan arc: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// StateArcs returns the arcs of one state of a stored version in list order.
func (s *Store) StateArcs(versionID string, state int) ([]StoredArc, error) {
	return s.arcs(`WHERE version_id = ? AND state = ?`, versionID, state)
}

// ArcsWithOLabel returns every arc of a stored version carrying olabel.
// Used to locate splice markers without loading the automaton.
func (s *Store) ArcsWithOLabel(versionID string, olabel int) ([]StoredArc, error) {
	return s.arcs(`WHERE version_id = ? AND olabel = ?`, versionID, olabel)
}

// #endregion query

// #region walk
// WalkResult lists states in breadth-first visit order with the weight of
// the path that first reached each one.
type WalkResult struct {
	States []int
	Costs  []float64
}

// Walk performs a BFS over a stored version from state from, up to
// maxDepth hops and maxStates states.
func (s *Store) Walk(versionID string, from, maxDepth, maxStates int) (WalkResult, error) {
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if maxStates <= 0 {
		maxStates = 10
	}

	result := WalkResult{States: []int{from}, Costs: []float64{0}}
	visited := map[int]bool{from: true}

	type queueItem struct {
		state int
		depth int
		cost  float64
	}
	queue := []queueItem{{from, 0, 0}}

	for len(queue) > 0 && len(result.States) < maxStates {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		arcs, err := s.StateArcs(versionID, cur.state)
		if err != nil {
			return result, fmt.Errorf("walk arcs: %w", err)
		}
		for _, a := range arcs {
			if len(result.States) >= maxStates {
				break
			}
			if visited[a.NextState] {
				continue
			}
			visited[a.NextState] = true
			cost := cur.cost + a.Weight
			result.States = append(result.States, a.NextState)
			result.Costs = append(result.Costs, cost)
			queue = append(queue, queueItem{a.NextState, cur.depth + 1, cost})
		}
	}
	return result, nil
}

// #endregion walk
