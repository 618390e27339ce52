package store

import "time"

// #region version
// Version describes one committed automaton snapshot.
type Version struct {
	VersionID string
	Name      string
	ParentID  string
	NumStates int
	NumArcs   int
	Start     int
	CreatedAt time.Time
	Note      string
}

// #endregion version

// #region version-with-edit
// VersionWithEdit pairs a version with the edit_log row that produced it.
type VersionWithEdit struct {
	Version
	Operation  string
	ParamsJSON string
	ResultJSON string
}

// #endregion version-with-edit

// #region stored-arc
// StoredArc is one persisted arc with its position in its state's arc list.
type StoredArc struct {
	State     int
	Ordinal   int
	ILabel    int
	OLabel    int
	Weight    float64
	NextState int
}

// #endregion stored-arc
