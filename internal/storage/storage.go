// internal/storage/storage.go
package storage

import "github.com/aeroterra/sim/pkg/core"

// Backend is the interface all telemetry storage implementations satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management. StartSession assigns the ID on the passed pointer.
	StartSession(s *core.Session) error
	EndSession() error

	// Telemetry recording
	RecordFlightSample(s *core.FlightSample) error
	RecordGroundSample(s *core.GroundSample) error
	RecordModeChange(m *core.ModeChange) error
	RecordPerfSample(p *core.PerfSample) error
}

// Exportable is an optional interface for backends that produce a replay
// file on session end.
type Exportable interface {
	ExportedFilePath() string
}
