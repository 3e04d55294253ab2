package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists the structs representing tables in the schema.
var DatabaseModels = []interface{}{
	&Session{},
	&FlightSample{},
	&GroundSample{},
	&ModeChange{},
	&PerfSample{},
}

// Session is one recorded simulation run.
type Session struct {
	gorm.Model
	Name      string    `json:"name" gorm:"size:127"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	TickRate  float64   `json:"tickRate"`
	OriginLon float64   `json:"originLon"`
	OriginLat float64   `json:"originLat"`
	World     string    `json:"world" gorm:"size:63"`

	// Extra holds tuning parameters captured at session start, as JSON.
	Extra datatypes.JSON `json:"extra"`
}

// FlightSample is one recorded flight telemetry tick.
type FlightSample struct {
	ID        uint      `gorm:"primarykey"`
	SessionID uint      `json:"sessionId" gorm:"index"`
	Time      time.Time `json:"time" gorm:"index"`
	Tick      uint64    `json:"tick"`

	// Position is the EPSG:3857 point in WKB form.
	Position      []byte  `json:"-" gorm:"type:blob"`
	HeadingDeg    float64 `json:"headingDeg"`
	Speed         float64 `json:"speed"`
	Altitude      float64 `json:"altitude"`
	VerticalSpeed float64 `json:"verticalSpeed"`
	ThrottlePct   float64 `json:"throttlePct"`
	AoADeg        float64 `json:"aoaDeg"`
	Stalled       bool    `json:"stalled"`
}

// GroundSample is one recorded ground telemetry tick.
type GroundSample struct {
	ID        uint      `gorm:"primarykey"`
	SessionID uint      `json:"sessionId" gorm:"index"`
	Time      time.Time `json:"time" gorm:"index"`
	Tick      uint64    `json:"tick"`

	Position       []byte  `json:"-" gorm:"type:blob"`
	HeadingDeg     float64 `json:"headingDeg"`
	Speed          float64 `json:"speed"`
	SteerDeg       float64 `json:"steerDeg"`
	Braking        bool    `json:"braking"`
	Grounded       bool    `json:"grounded"`
	WheelsGrounded uint8   `json:"wheelsGrounded"`
}

// ModeChange records one completed mode transition.
type ModeChange struct {
	ID        uint      `gorm:"primarykey"`
	SessionID uint      `json:"sessionId" gorm:"index"`
	Time      time.Time `json:"time"`
	Tick      uint64    `json:"tick"`
	FromMode  string    `json:"from" gorm:"size:15"`
	ToMode    string    `json:"to" gorm:"size:15"`
	Position  []byte    `json:"-" gorm:"type:blob"`
	Relocated bool      `json:"relocated"`
}

// PerfSample records periodic simulation health snapshots.
type PerfSample struct {
	ID        uint      `gorm:"primarykey"`
	SessionID uint      `json:"sessionId" gorm:"index"`
	Time      time.Time `json:"time"`
	Tick      uint64    `json:"tick"`

	TickDurationMs      float32 `json:"tickDurationMs"`
	FlightQueueLen      uint16  `json:"flightQueueLen"`
	GroundQueueLen      uint16  `json:"groundQueueLen"`
	EventQueueLen       uint16  `json:"eventQueueLen"`
	LastWriteDurationMs float32 `json:"lastWriteDurationMs"`
}
