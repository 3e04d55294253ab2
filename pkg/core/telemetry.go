// pkg/core/telemetry.go
package core

import "time"

// FlightSample is the per-tick read-only flight telemetry the HUD, camera
// and minimap consume.
type FlightSample struct {
	SessionID     uint
	Time          time.Time
	Tick          uint64
	Position      Position3D
	HeadingDeg    float64
	Speed         float64 // m/s
	Altitude      float64 // meters above terrain; negative when penetrated
	VerticalSpeed float64 // m/s, signed
	ThrottlePct   float64 // 0-100
	AoADeg        float64 // signed angle of attack
	Stalled       bool
}

// GroundSample is the per-tick read-only ground vehicle telemetry.
type GroundSample struct {
	SessionID      uint
	Time           time.Time
	Tick           uint64
	Position       Position3D
	HeadingDeg     float64
	Speed          float64 // m/s
	SteerDeg       float64 // current smoothed steer angle
	Braking        bool
	Grounded       bool // at least one wheel in contact
	WheelsGrounded uint8
}

// ModeChange is published when a mode transition completes.
type ModeChange struct {
	SessionID uint
	Time      time.Time
	Tick      uint64
	From      VehicleMode
	To        VehicleMode
	Position  Position3D
	Relocated bool // false when no terrain was found and the entity was leveled in place
}
