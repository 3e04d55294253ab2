// Package flight implements the aircraft controller: throttle integration,
// body-frame rotation from the control axes, per-tick aerodynamic force
// application and read-only telemetry.
package flight

import (
	"log/slog"

	"github.com/aeroterra/sim/internal/aero"
	"github.com/aeroterra/sim/internal/input"
	"github.com/aeroterra/sim/internal/phys"
	"github.com/aeroterra/sim/internal/spatial"
)

// Config holds the controller tuning on top of the aerodynamic parameters.
type Config struct {
	PitchRateDeg float64 // deg/s at full stick
	RollRateDeg  float64
	YawRateDeg   float64

	ThrottleRate float64 // throttle fraction per second at full input
	MinThrottle  float64 // idle floor; zero means the engine can be cut

	// AltitudeRayDist bounds the downward terrain query for the altitude
	// readout.
	AltitudeRayDist float64
}

// Telemetry is the read-only per-tick flight state.
type Telemetry struct {
	Speed         float64
	Altitude      float64
	VerticalSpeed float64
	HeadingDeg    float64
	ThrottlePct   float64
	AoADeg        float64
	Stalled       bool
}

// Controller owns the flight-mode simulation of the vehicle body. It is
// enabled and disabled exclusively by the mode machine; while disabled it
// performs no computation and applies no forces.
type Controller struct {
	cfg   Config
	model *aero.Model
	body  *phys.Body
	world phys.Raycaster
	log   *slog.Logger

	enabled    bool
	throttle   float64
	prevHeight float64
	havePrev   bool
	telemetry  Telemetry
}

// New builds a flight controller. The aero parameters are validated by
// aero.NewModel before this is called.
func New(cfg Config, model *aero.Model, body *phys.Body, world phys.Raycaster, log *slog.Logger) *Controller {
	if cfg.AltitudeRayDist <= 0 {
		cfg.AltitudeRayDist = 10000
	}
	return &Controller{
		cfg:   cfg,
		model: model,
		body:  body,
		world: world,
		log:   log,
	}
}

// Enabled reports whether the controller runs its tick.
func (c *Controller) Enabled() bool { return c.enabled }

// SetEnabled toggles the controller. Enabling resets the vertical speed
// derivative so the first tick after a transition reads zero.
func (c *Controller) SetEnabled(on bool) {
	c.enabled = on
	if on {
		c.havePrev = false
	}
}

// Throttle returns the current throttle in [MinThrottle, 1].
func (c *Controller) Throttle() float64 { return c.throttle }

// SetThrottle clamps and sets the throttle directly. The mode machine uses
// this to seed a sensible power setting on entry into flight.
func (c *Controller) SetThrottle(t float64) {
	c.throttle = spatial.Clamp(t, c.cfg.MinThrottle, 1)
}

// Telemetry returns the values computed by the last tick.
func (c *Controller) Telemetry() Telemetry { return c.telemetry }

// Tick runs one fixed timestep: integrate throttle, rotate the body in its
// own frame, apply the aerodynamic forces and refresh telemetry.
func (c *Controller) Tick(dt float64, axes input.FlightAxes) {
	if !c.enabled || dt <= 0 {
		return
	}

	c.throttle = spatial.Clamp(
		c.throttle+axes.Throttle*c.cfg.ThrottleRate*dt,
		c.cfg.MinThrottle, 1,
	)

	// Controls rotate the body in its local frame so response does not
	// depend on the current attitude: orientation *= delta.
	pitch := spatial.DegToRad(-axes.Pitch*c.cfg.PitchRateDeg) * dt
	yaw := spatial.DegToRad(axes.Yaw*c.cfg.YawRateDeg) * dt
	roll := spatial.DegToRad(-axes.Roll*c.cfg.RollRateDeg) * dt
	delta := spatial.QuatFromEuler(pitch, yaw, roll)
	c.body.Orientation = c.body.Orientation.Mul(delta).Normalize()

	forces := c.model.Evaluate(c.body.Orientation, c.body.Velocity, c.body.Mass, c.throttle)
	c.body.AddForce(forces.Total())

	c.updateTelemetry(dt)
}

func (c *Controller) updateTelemetry(dt float64) {
	height := c.body.Position.Y
	vs := 0.0
	if c.havePrev {
		vs = (height - c.prevHeight) / dt
	}
	c.prevHeight = height
	c.havePrev = true

	c.telemetry = Telemetry{
		Speed:         c.body.Speed(),
		Altitude:      c.altitude(),
		VerticalSpeed: vs,
		HeadingDeg:    spatial.RadToDeg(c.body.Orientation.HeadingRad()),
		ThrottlePct:   c.throttle * 100,
		AoADeg:        c.model.AoADeg(),
		Stalled:       c.model.Stalled(),
	}
}

// altitude measures height above terrain with a downward ray. When nothing
// is below, an upward ray checks for terrain penetration and reports a
// negative altitude; when both miss, absolute world height is the fallback.
func (c *Controller) altitude() float64 {
	down := phys.Ray{
		Origin:  c.body.Position,
		Dir:     spatial.Vec3{Y: -1},
		MaxDist: c.cfg.AltitudeRayDist,
	}
	if hit, ok := c.world.Raycast(down); ok {
		return hit.Distance
	}
	up := phys.Ray{
		Origin:  c.body.Position,
		Dir:     spatial.Vec3{Y: 1},
		MaxDist: c.cfg.AltitudeRayDist,
	}
	if hit, ok := c.world.Raycast(up); ok {
		return -hit.Distance
	}
	return c.body.Position.Y
}
