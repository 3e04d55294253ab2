// Package input translates raw device state into the normalized control
// axes the vehicle controllers consume. It is a pure translation layer with
// no physics knowledge; mappers are enabled in lockstep with their
// controller by the mode machine.
package input

import "github.com/aeroterra/sim/internal/spatial"

// DeviceState is a per-frame snapshot of the raw input device. Digital keys
// are booleans; analog sticks arrive pre-scaled to [-1,1] by the polling
// layer, which is outside the core.
type DeviceState struct {
	PitchUp, PitchDown       bool
	RollLeft, RollRight      bool
	YawLeft, YawRight        bool
	ThrottleUp, ThrottleDown bool

	Forward, Reverse      bool
	SteerLeft, SteerRight bool
	Brake                 bool

	// Analog axes override the digital keys when nonzero.
	StickPitch, StickRoll, StickYaw float64
	StickThrottle                   float64
	StickSteer, StickAccel          float64
}

// FlightAxes are the normalized flight controls.
type FlightAxes struct {
	Pitch    float64 // [-1,1], positive nose up
	Roll     float64 // [-1,1], positive right wing down
	Yaw      float64 // [-1,1], positive nose right
	Throttle float64 // [-1,1], rate of throttle change
}

// GroundAxes are the normalized ground vehicle controls.
type GroundAxes struct {
	Accel float64 // [-1,1], negative is reverse
	Steer float64 // [-1,1], positive right
	Brake bool
}

func axis(negative, positive bool, analog float64) float64 {
	if analog != 0 {
		return spatial.Clamp(analog, -1, 1)
	}
	var v float64
	if positive {
		v += 1
	}
	if negative {
		v -= 1
	}
	return v
}

// FlightMapper produces FlightAxes from device state.
type FlightMapper struct {
	enabled bool
	axes    FlightAxes
}

// Enabled reports whether the mapper updates its axes.
func (m *FlightMapper) Enabled() bool { return m.enabled }

// SetEnabled toggles the mapper. Disabling zeroes the axes so a re-enabled
// controller never sees stale input.
func (m *FlightMapper) SetEnabled(on bool) {
	m.enabled = on
	if !on {
		m.axes = FlightAxes{}
	}
}

// Update translates one device snapshot. Disabled mappers hold zero axes.
func (m *FlightMapper) Update(d DeviceState) {
	if !m.enabled {
		return
	}
	m.axes = FlightAxes{
		Pitch:    axis(d.PitchDown, d.PitchUp, d.StickPitch),
		Roll:     axis(d.RollLeft, d.RollRight, d.StickRoll),
		Yaw:      axis(d.YawLeft, d.YawRight, d.StickYaw),
		Throttle: axis(d.ThrottleDown, d.ThrottleUp, d.StickThrottle),
	}
}

// Axes returns the current flight axes.
func (m *FlightMapper) Axes() FlightAxes { return m.axes }

// GroundMapper produces GroundAxes from device state.
type GroundMapper struct {
	enabled bool
	axes    GroundAxes
}

func (m *GroundMapper) Enabled() bool { return m.enabled }

func (m *GroundMapper) SetEnabled(on bool) {
	m.enabled = on
	if !on {
		m.axes = GroundAxes{}
	}
}

func (m *GroundMapper) Update(d DeviceState) {
	if !m.enabled {
		return
	}
	m.axes = GroundAxes{
		Accel: axis(d.Reverse, d.Forward, d.StickAccel),
		Steer: axis(d.SteerLeft, d.SteerRight, d.StickSteer),
		Brake: d.Brake,
	}
}

func (m *GroundMapper) Axes() GroundAxes { return m.axes }
