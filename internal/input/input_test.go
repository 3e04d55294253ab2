package input

import "testing"

func TestAxisDigitalCombination(t *testing.T) {
	cases := []struct {
		name     string
		neg, pos bool
		want     float64
	}{
		{"none", false, false, 0},
		{"positive", false, true, 1},
		{"negative", true, false, -1},
		{"both cancel", true, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := axis(tc.neg, tc.pos, 0); got != tc.want {
				t.Errorf("axis(%v, %v, 0) = %v, want %v", tc.neg, tc.pos, got, tc.want)
			}
		})
	}
}

func TestAxisAnalogOverridesDigital(t *testing.T) {
	if got := axis(true, false, 0.7); got != 0.7 {
		t.Errorf("axis = %v, want analog 0.7", got)
	}
	// Out-of-range device values clamp.
	if got := axis(false, false, 3); got != 1 {
		t.Errorf("axis = %v, want clamped 1", got)
	}
}

func TestFlightMapperUpdate(t *testing.T) {
	m := &FlightMapper{}
	m.SetEnabled(true)

	m.Update(DeviceState{PitchUp: true, YawLeft: true, ThrottleUp: true})

	a := m.Axes()
	if a.Pitch != 1 || a.Yaw != -1 || a.Throttle != 1 || a.Roll != 0 {
		t.Errorf("axes = %+v", a)
	}
}

func TestFlightMapperDisabledHoldsZero(t *testing.T) {
	m := &FlightMapper{}
	if m.Enabled() {
		t.Fatal("mapper enabled by default")
	}

	m.Update(DeviceState{PitchUp: true})
	if m.Axes() != (FlightAxes{}) {
		t.Errorf("disabled mapper produced axes %+v", m.Axes())
	}
}

func TestFlightMapperDisableZeroesAxes(t *testing.T) {
	m := &FlightMapper{}
	m.SetEnabled(true)
	m.Update(DeviceState{PitchUp: true, StickRoll: 0.5})

	m.SetEnabled(false)

	if m.Axes() != (FlightAxes{}) {
		t.Errorf("stale axes survived disable: %+v", m.Axes())
	}
}

func TestGroundMapperUpdate(t *testing.T) {
	m := &GroundMapper{}
	m.SetEnabled(true)

	m.Update(DeviceState{Forward: true, SteerRight: true, Brake: true})

	a := m.Axes()
	if a.Accel != 1 || a.Steer != 1 || !a.Brake {
		t.Errorf("axes = %+v", a)
	}

	m.Update(DeviceState{StickAccel: -0.4, StickSteer: -1})
	a = m.Axes()
	if a.Accel != -0.4 || a.Steer != -1 || a.Brake {
		t.Errorf("axes = %+v", a)
	}
}

func TestGroundMapperDisableZeroesAxes(t *testing.T) {
	m := &GroundMapper{}
	m.SetEnabled(true)
	m.Update(DeviceState{Forward: true, Brake: true})

	m.SetEnabled(false)

	if m.Axes() != (GroundAxes{}) {
		t.Errorf("stale axes survived disable: %+v", m.Axes())
	}
}
