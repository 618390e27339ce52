package logging

import "time"

// #region edit-entry
// EditEntry is a single row in the edit_log table.
type EditEntry struct {
	VersionID  string
	Name       string
	Operation  string // "insert" | "replace" | "boost" | "normalize" | "recipe" | ...
	ParamsJSON string
	ResultJSON string
	Reason     string
	CreatedAt  time.Time
}

// #endregion edit-entry
