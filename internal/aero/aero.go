// Package aero computes the per-tick aerodynamic forces for the flight
// model: thrust, lift, drag and model-owned gravity. It is a pure function
// of orientation and velocity except for the AoA/stall state it publishes
// for telemetry.
package aero

import (
	"fmt"
	"math"

	"github.com/aeroterra/sim/internal/spatial"
)

// Parameters are the immutable-per-session flight tuning values.
type Parameters struct {
	MaxThrust     float64 // newtons at full throttle
	WingArea      float64 // m^2
	BaseDragCoeff float64
	InducedDrag   float64 // multiplier on |Cl| added to the drag coefficient
	StallAngleDeg float64
	StallClScale  float64 // lift-coefficient multiplier while stalled, < 1
	MinAirspeed   float64 // m/s; below this AoA is meaningless and the wing stalls
	AirDensity    float64 // kg/m^3
	Gravity       float64 // m/s^2, positive down
	LiftCurve     *Curve
}

// Validate rejects degenerate tuning at load time.
func (p *Parameters) Validate() error {
	if p.LiftCurve == nil {
		return fmt.Errorf("flight parameters: %w", ErrEmptyCurve)
	}
	if p.WingArea <= 0 {
		return fmt.Errorf("flight parameters: wing area must be positive, got %g", p.WingArea)
	}
	if p.StallClScale < 0 || p.StallClScale >= 1 {
		return fmt.Errorf("flight parameters: stall lift scale must be in [0,1), got %g", p.StallClScale)
	}
	if p.AirDensity <= 0 {
		return fmt.Errorf("flight parameters: air density must be positive, got %g", p.AirDensity)
	}
	return nil
}

// Forces is the decomposed output of one evaluation, all in the world frame.
type Forces struct {
	Thrust  spatial.Vec3
	Lift    spatial.Vec3
	Drag    spatial.Vec3
	Gravity spatial.Vec3
}

// Total sums the component forces.
func (f Forces) Total() spatial.Vec3 {
	return f.Thrust.Add(f.Lift).Add(f.Drag).Add(f.Gravity)
}

// Model evaluates the aerodynamic forces each fixed tick.
type Model struct {
	params Parameters

	// published per-tick state
	aoaDeg  float64
	stalled bool
	liftCl  float64
}

// NewModel validates the parameters and returns a model.
func NewModel(params Parameters) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Model{params: params}, nil
}

// AoADeg returns the angle of attack computed by the last Evaluate call.
func (m *Model) AoADeg() float64 { return m.aoaDeg }

// Stalled returns the stall flag from the last Evaluate call.
func (m *Model) Stalled() bool { return m.stalled }

// LiftCoefficient returns the (possibly stall-scaled) Cl from the last
// Evaluate call.
func (m *Model) LiftCoefficient() float64 { return m.liftCl }

// Evaluate computes thrust, lift, drag and gravity for the current state.
// throttle is pre-clamped to [0,1] by the flight controller.
func (m *Model) Evaluate(orientation spatial.Quat, velocity spatial.Vec3, mass, throttle float64) Forces {
	p := m.params
	speed := velocity.Length()

	// AoA from the body-frame velocity: airflow from below the nose (local
	// velocity pointing down) means the nose is pitched up relative to the
	// airflow, which is positive AoA.
	local := orientation.InverseRotate(velocity)
	if speed >= p.MinAirspeed {
		m.aoaDeg = spatial.RadToDeg(math.Atan2(-local.Y, local.Z))
	} else {
		m.aoaDeg = 0
	}

	m.stalled = speed < p.MinAirspeed || math.Abs(m.aoaDeg) > p.StallAngleDeg

	cl := p.LiftCurve.Eval(m.aoaDeg)
	if m.stalled {
		cl *= p.StallClScale
	}
	m.liftCl = cl

	q := 0.5 * p.AirDensity * speed * speed * p.WingArea

	var lift, drag spatial.Vec3
	if speed > 1e-6 {
		vDir := velocity.Scale(1 / speed)

		// Lift acts perpendicular to the airflow in the plane containing
		// the body up axis: velocity cross body right points wing-up.
		liftDir := vDir.Cross(orientation.Right()).NormalizeSafe(1e-9)
		lift = liftDir.Scale(q * cl)

		cd := p.BaseDragCoeff + p.InducedDrag*math.Abs(cl)
		drag = vDir.Scale(-q * cd)
	}

	thrust := orientation.Forward().Scale(p.MaxThrust * throttle)
	gravity := spatial.Vec3{Y: -mass * p.Gravity}

	return Forces{Thrust: thrust, Lift: lift, Drag: drag, Gravity: gravity}
}
