package logging

import (
	"database/sql"
	"math"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE edit_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		version_id  TEXT NOT NULL,
		name        TEXT NOT NULL,
		operation   TEXT NOT NULL,
		params_json TEXT,
		result_json TEXT,
		reason      TEXT,
		created_at  TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-edit-tests
func TestLogEdit_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := EditEntry{
		VersionID:  "v1",
		Name:       "lm",
		Operation:  "boost",
		ParamsJSON: `{"factor":2}`,
		ResultJSON: `{"boosted_arcs":4}`,
		Reason:     "new words",
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogEdit(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM edit_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var versionID, operation, params string
	db.QueryRow("SELECT version_id, operation, params_json FROM edit_log").Scan(&versionID, &operation, &params)
	if versionID != "v1" || operation != "boost" || params != `{"factor":2}` {
		t.Errorf("unexpected row %q %q %q", versionID, operation, params)
	}
}

func TestLogEdit_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogEdit(db, EditEntry{VersionID: "v2", Name: "lm", Operation: "normalize"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM edit_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogEdit_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogEdit(db, EditEntry{VersionID: "v3", Name: "lm", Operation: "insert"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var params, result, reason sql.NullString
	db.QueryRow("SELECT params_json, result_json, reason FROM edit_log").Scan(&params, &result, &reason)
	if params.Valid || result.Valid || reason.Valid {
		t.Error("expected NULL for empty optional fields")
	}
}

func TestLogEdit_Error(t *testing.T) {
	db := setupDB(t)
	db.Close()

	if err := LogEdit(db, EditEntry{VersionID: "v4", Name: "lm", Operation: "boost"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-edit-tests

// #region new-entry-tests
func TestNewEditEntry(t *testing.T) {
	params := map[string]float64{"factor": 2}
	result := struct {
		BoostedArcs int `json:"boosted_arcs"`
	}{3}

	entry, err := NewEditEntry("v1", "lm", "boost", params, result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ParamsJSON != `{"factor":2}` || entry.ResultJSON != `{"boosted_arcs":3}` {
		t.Errorf("unexpected JSON %q %q", entry.ParamsJSON, entry.ResultJSON)
	}

	bare, err := NewEditEntry("v1", "lm", "normalize", nil, nil)
	if err != nil || bare.ParamsJSON != "" || bare.ResultJSON != "" {
		t.Errorf("nil payloads should stay empty: %+v %v", bare, err)
	}
}

func TestNewEditEntry_Unencodable(t *testing.T) {
	if _, err := NewEditEntry("v1", "lm", "boost", math.Inf(1), nil); err == nil {
		t.Fatal("expected marshal error for +Inf")
	}
}

// #endregion new-entry-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	if result := nullIfEmpty(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	if result := nullIfEmpty("hello"); result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
