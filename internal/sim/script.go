package sim

import (
	"time"

	"github.com/aeroterra/sim/internal/input"
	"github.com/aeroterra/sim/pkg/core"
)

// Step is one scripted control change. The device state holds from At until
// the next step; RequestMode, when set, fires once as the step activates.
type Step struct {
	At          time.Duration
	Device      input.DeviceState
	RequestMode core.VehicleMode
}

// Script replays a fixed control timeline. It stands in for the hardware
// polling layer in headless runs and scenario tests.
type Script struct {
	steps   []Step
	idx     int
	current input.DeviceState
}

// NewScript creates a script from steps ordered by activation time.
func NewScript(steps []Step) *Script {
	return &Script{steps: steps}
}

// Sample returns the device state at the given elapsed time, plus a mode
// request if a newly activated step carries one.
func (s *Script) Sample(elapsed time.Duration) (input.DeviceState, core.VehicleMode) {
	var request core.VehicleMode
	for s.idx < len(s.steps) && s.steps[s.idx].At <= elapsed {
		s.current = s.steps[s.idx].Device
		if s.steps[s.idx].RequestMode != "" {
			request = s.steps[s.idx].RequestMode
		}
		s.idx++
	}
	return s.current, request
}

// CruiseScript holds full throttle with a gentle climb, then levels off.
func CruiseScript() *Script {
	return NewScript([]Step{
		{At: 0, Device: input.DeviceState{ThrottleUp: true}},
		{At: 2 * time.Second, Device: input.DeviceState{ThrottleUp: true, PitchUp: true}},
		{At: 5 * time.Second, Device: input.DeviceState{ThrottleUp: true}},
	})
}

// TouchAndGoScript flies level, drops to ground mode, drives briefly, then
// returns to flight.
func TouchAndGoScript() *Script {
	return NewScript([]Step{
		{At: 0, Device: input.DeviceState{ThrottleUp: true}},
		{At: 3 * time.Second, RequestMode: core.ModeGround},
		{At: 5 * time.Second, Device: input.DeviceState{Forward: true}},
		{At: 10 * time.Second, Device: input.DeviceState{Forward: true, SteerRight: true}},
		{At: 12 * time.Second, Device: input.DeviceState{}, RequestMode: core.ModeFlight},
		{At: 13 * time.Second, Device: input.DeviceState{ThrottleUp: true, PitchUp: true}},
	})
}

// DriveScript starts on the ground, accelerates, corners and brakes.
func DriveScript() *Script {
	return NewScript([]Step{
		{At: 0, Device: input.DeviceState{Forward: true}},
		{At: 4 * time.Second, Device: input.DeviceState{Forward: true, SteerLeft: true}},
		{At: 7 * time.Second, Device: input.DeviceState{Forward: true}},
		{At: 9 * time.Second, Device: input.DeviceState{Brake: true}},
	})
}
