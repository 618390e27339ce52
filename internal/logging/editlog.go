// Package logging records which edit produced each stored automaton version.
package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region log-edit
// LogEdit writes an entry to the edit_log table.
func LogEdit(db *sql.DB, entry EditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO edit_log (version_id, name, operation, params_json, result_json, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		entry.Name,
		entry.Operation,
		nullIfEmpty(entry.ParamsJSON),
		nullIfEmpty(entry.ResultJSON),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log edit: %w", err)
	}
	return nil
}

// #endregion log-edit

// #region new-entry
// NewEditEntry builds an entry with params and result encoded as JSON.
// Nil params or result leave the column NULL.
func NewEditEntry(versionID, name, operation string, params, result any) (EditEntry, error) {
	entry := EditEntry{VersionID: versionID, Name: name, Operation: operation}
	var err error
	if entry.ParamsJSON, err = encode(params); err != nil {
		return EditEntry{}, fmt.Errorf("marshal params: %w", err)
	}
	if entry.ResultJSON, err = encode(result); err != nil {
		return EditEntry{}, fmt.Errorf("marshal result: %w", err)
	}
	return entry, nil
}

func encode(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// #endregion new-entry

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
