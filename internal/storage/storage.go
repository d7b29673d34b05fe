// Package storage defines the mission log: an audit trail of every mission
// handed to the vehicle controller and every telemetry fix received.
// Planning state is never restored from it.
package storage

import "github.com/groundlink/missionmap/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordMission stores a finalized mission and assigns its ID.
	RecordMission(m *core.MissionRecord) error
	// RecordPosition stores a telemetry fix.
	RecordPosition(f *core.PositionFix) error
}

// Lister is an optional interface for backends that can read the log back.
type Lister interface {
	// ListMissions returns up to limit missions, newest first.
	// A limit of zero or less returns all of them.
	ListMissions(limit int) ([]core.MissionRecord, error)
}

// Exporter is an optional interface for backends that write the log to a
// file on Close.
type Exporter interface {
	GetExportedFilePath() string
}

// Pender is an optional interface for backends that queue writes.
type Pender interface {
	// Pending returns the number of records not yet written.
	Pending() int
}
