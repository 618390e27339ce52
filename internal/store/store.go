// Package store keeps versioned automata in SQLite. Each named automaton has
// an active version; every commit writes the full tuple set of the automaton
// and moves the pointer.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/idiap/icassp-oov-recognition/internal/fst"
)

// ErrNotFound is returned when a name or version does not exist.
var ErrNotFound = errors.New("store: not found")

// fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS automaton_versions (
	version_id  TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	parent_id   TEXT,
	num_states  INTEGER NOT NULL,
	start_state INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	note        TEXT,
	FOREIGN KEY (parent_id) REFERENCES automaton_versions(version_id)
);
CREATE INDEX IF NOT EXISTS idx_versions_name ON automaton_versions(name, created_at);

CREATE TABLE IF NOT EXISTS automaton_finals (
	version_id  TEXT NOT NULL,
	state       INTEGER NOT NULL,
	weight      REAL NOT NULL,
	PRIMARY KEY (version_id, state),
	FOREIGN KEY (version_id) REFERENCES automaton_versions(version_id)
);

CREATE TABLE IF NOT EXISTS automaton_arcs (
	version_id  TEXT NOT NULL,
	state       INTEGER NOT NULL,
	ordinal     INTEGER NOT NULL,
	ilabel      INTEGER NOT NULL,
	olabel      INTEGER NOT NULL,
	weight      REAL NOT NULL,
	next_state  INTEGER NOT NULL,
	PRIMARY KEY (version_id, state, ordinal),
	FOREIGN KEY (version_id) REFERENCES automaton_versions(version_id)
);

CREATE TABLE IF NOT EXISTS edit_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id  TEXT NOT NULL,
	name        TEXT NOT NULL,
	operation   TEXT NOT NULL,
	params_json TEXT,
	result_json TEXT,
	reason      TEXT,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES automaton_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_automaton (
	name        TEXT PRIMARY KEY,
	version_id  TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES automaton_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store manages versioned automata in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-migrated database.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the store tables on db if they are missing.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region commit
// Commit stores f as a new version of name, child of the currently active
// version if there is one, and makes it active.
func (s *Store) Commit(name string, f *fst.Fst, note string) (Version, error) {
	parent, err := s.activeID(name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Version{}, err
	}

	snap := f.Snapshot()
	rec := Version{
		VersionID: uuid.New().String(),
		Name:      name,
		ParentID:  parent,
		NumStates: snap.NumStates,
		NumArcs:   len(snap.Arcs),
		Start:     snap.Start,
		CreatedAt: time.Now().UTC(),
		Note:      note,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Version{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO automaton_versions (version_id, name, parent_id, num_states, start_state, created_at, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, name, nullIfEmpty(parent), rec.NumStates, rec.Start,
		rec.CreatedAt.Format(timeLayout), nullIfEmpty(note),
	)
	if err != nil {
		return Version{}, fmt.Errorf("insert version: %w", err)
	}

	if err := insertTuples(tx, rec.VersionID, snap); err != nil {
		return Version{}, err
	}

	_, err = tx.Exec(
		`INSERT INTO active_automaton (name, version_id) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET version_id = excluded.version_id`,
		name, rec.VersionID,
	)
	if err != nil {
		return Version{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Version{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion commit

// #region get-current
// GetCurrent reads the active version of name.
func (s *Store) GetCurrent(name string) (Version, error) {
	id, err := s.activeID(name)
	if err != nil {
		return Version{}, err
	}
	return s.GetVersion(id)
}

func (s *Store) activeID(name string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT version_id FROM active_automaton WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: no active version of %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("get active: %w", err)
	}
	return id, nil
}

// #endregion get-current

// #region get-version
const versionColumns = `v.version_id, v.name, v.parent_id, v.num_states, v.start_state, v.created_at, v.note,
	(SELECT COUNT(*) FROM automaton_arcs a WHERE a.version_id = v.version_id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner, extra ...any) (Version, error) {
	var rec Version
	var parentID, note sql.NullString
	var createdStr string
	dest := append([]any{&rec.VersionID, &rec.Name, &parentID, &rec.NumStates, &rec.Start, &createdStr, &note, &rec.NumArcs}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Version{}, err
	}
	rec.ParentID = parentID.String
	rec.Note = note.String
	rec.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return rec, nil
}

// GetVersion retrieves a version's metadata by ID.
func (s *Store) GetVersion(id string) (Version, error) {
	rec, err := scanVersion(s.db.QueryRow(
		`SELECT `+versionColumns+` FROM automaton_versions v WHERE v.version_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("%w: version %s", ErrNotFound, id)
	}
	if err != nil {
		return Version{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-version

// #region load
// Load rebuilds the automaton stored under version id.
func (s *Store) Load(id string) (*fst.Fst, error) {
	rec, err := s.GetVersion(id)
	if err != nil {
		return nil, err
	}
	snap := fst.Snapshot{NumStates: rec.NumStates, Start: rec.Start}

	rows, err := s.db.Query(`SELECT state, weight FROM automaton_finals WHERE version_id = ? ORDER BY state`, id)
	if err != nil {
		return nil, fmt.Errorf("load finals: %w", err)
	}
	for rows.Next() {
		var fw fst.FinalWeight
		if err := rows.Scan(&fw.State, &fw.Weight); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan final: %w", err)
		}
		snap.Finals = append(snap.Finals, fw)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load finals: %w", err)
	}

	arcs, err := s.arcs(`WHERE version_id = ?`, id)
	if err != nil {
		return nil, err
	}
	for _, a := range arcs {
		snap.Arcs = append(snap.Arcs, fst.ArcTuple{
			State: a.State, NextState: a.NextState,
			ILabel: a.ILabel, OLabel: a.OLabel, Weight: a.Weight,
		})
	}

	f, err := fst.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("rebuild version %s: %w", id, err)
	}
	return f, nil
}

// LoadCurrent rebuilds the active version of name.
func (s *Store) LoadCurrent(name string) (*fst.Fst, Version, error) {
	rec, err := s.GetCurrent(name)
	if err != nil {
		return nil, Version{}, err
	}
	f, err := s.Load(rec.VersionID)
	if err != nil {
		return nil, Version{}, err
	}
	return f, rec, nil
}

// #endregion load

// #region rollback
// Rollback points name at a previous version of the same name.
func (s *Store) Rollback(name, targetVersionID string) error {
	var owner string
	err := s.db.QueryRow(
		`SELECT name FROM automaton_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: version %s", ErrNotFound, targetVersionID)
	}
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if owner != name {
		return fmt.Errorf("version %s belongs to %s, not %s", targetVersionID, owner, name)
	}

	_, err = s.db.Exec(
		`INSERT INTO active_automaton (name, version_id) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET version_id = excluded.version_id`,
		name, targetVersionID,
	)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns the most recent versions of name, newest first. An
// empty name lists every automaton.
func (s *Store) ListVersions(name string, limit int) ([]Version, error) {
	rows, err := s.db.Query(
		`SELECT `+versionColumns+` FROM automaton_versions v
		 WHERE (? = '' OR v.name = ?)
		 ORDER BY v.created_at DESC, v.rowid DESC LIMIT ?`, name, name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []Version
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListVersionsWithEdits is ListVersions joined with the latest edit_log row
// of each version. Versions without a log row have empty edit fields.
func (s *Store) ListVersionsWithEdits(name string, limit int) ([]VersionWithEdit, error) {
	rows, err := s.db.Query(
		`SELECT `+versionColumns+`, e.operation, e.params_json, e.result_json
		 FROM automaton_versions v
		 LEFT JOIN edit_log e ON e.id = (SELECT MAX(id) FROM edit_log WHERE version_id = v.version_id)
		 WHERE (? = '' OR v.name = ?)
		 ORDER BY v.created_at DESC, v.rowid DESC LIMIT ?`, name, name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []VersionWithEdit
	for rows.Next() {
		var op, params, result sql.NullString
		rec, err := scanVersion(rows, &op, &params, &result)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, VersionWithEdit{
			Version:    rec,
			Operation:  op.String,
			ParamsJSON: params.String,
			ResultJSON: result.String,
		})
	}
	return out, rows.Err()
}

// GetVersionWithEdit returns one version joined with its latest edit_log row.
func (s *Store) GetVersionWithEdit(id string) (VersionWithEdit, error) {
	var op, params, result sql.NullString
	rec, err := scanVersion(s.db.QueryRow(
		`SELECT `+versionColumns+`, e.operation, e.params_json, e.result_json
		 FROM automaton_versions v
		 LEFT JOIN edit_log e ON e.id = (SELECT MAX(id) FROM edit_log WHERE version_id = v.version_id)
		 WHERE v.version_id = ?`, id), &op, &params, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return VersionWithEdit{}, fmt.Errorf("%w: version %s", ErrNotFound, id)
	}
	if err != nil {
		return VersionWithEdit{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return VersionWithEdit{
		Version:    rec,
		Operation:  op.String,
		ParamsJSON: params.String,
		ResultJSON: result.String,
	}, nil
}

// #endregion list-versions

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
