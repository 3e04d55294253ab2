// pkg/core/session.go
package core

import "time"

// Session describes one simulation run. Storage backends key all recorded
// samples by the session ID they assign in StartSession.
type Session struct {
	ID        uint
	Name      string
	StartTime time.Time
	EndTime   time.Time
	TickRate  float64 // fixed physics ticks per second
	OriginLon float64 // geographic origin of the local frame
	OriginLat float64
	World     string // terrain preset name
}

// PerfSample is a periodic snapshot of simulation health.
type PerfSample struct {
	SessionID           uint
	Time                time.Time
	Tick                uint64
	TickDurationMs      float32
	FlightQueueLen      uint16
	GroundQueueLen      uint16
	EventQueueLen       uint16
	LastWriteDurationMs float32
}
