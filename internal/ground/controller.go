package ground

import (
	"log/slog"
	"math"

	"github.com/aeroterra/sim/internal/input"
	"github.com/aeroterra/sim/internal/phys"
	"github.com/aeroterra/sim/internal/spatial"
)

// Config are the immutable-per-session ground vehicle parameters.
type Config struct {
	Wheelbase  float64 // meters between front and rear axles
	TrackWidth float64 // meters between left and right wheels
	Suspension Suspension

	MaxSpeed     float64 // m/s forward
	ReverseSpeed float64 // m/s backward
	Acceleration float64 // m/s^2
	BrakeDecel   float64 // m/s^2

	MaxSteerDeg   float64
	SteerRateDeg  float64 // deg/s the smoothed steer angle tracks the target
	MinTurnSpeed  float64 // m/s below which steering has no effect

	ForwardFriction float64 // 1/s exponential damping of the forward component
	LateralFriction float64 // 1/s exponential damping of the lateral component

	AlignRate float64 // 1/s slerp rate toward the average ground normal
	Gravity   float64 // m/s^2, positive down; engine gravity is off

	FailsafeAirborneTicks int     // consecutive fully-airborne ticks before respawn
	RespawnHeight         float64 // meters above the contact point to respawn at
	RespawnRayDist        float64 // search distance for the respawn rays
}

// Telemetry is the read-only per-tick ground vehicle state.
type Telemetry struct {
	Speed          float64
	HeadingDeg     float64
	SteerDeg       float64
	Braking        bool
	Grounded       bool
	WheelsGrounded int
}

// Controller simulates the 4-wheel vehicle. Enabled/disabled exclusively by
// the mode machine.
type Controller struct {
	cfg   Config
	body  *phys.Body
	world phys.Raycaster
	log   *slog.Logger

	enabled       bool
	wheels        [4]WheelContact
	steerDeg      float64
	airborneTicks int
	telemetry     Telemetry
}

// New builds a ground controller with wheel mounts derived from the
// wheelbase and track width. The mounts sit at axle height (body origin).
func New(cfg Config, body *phys.Body, world phys.Raycaster, log *slog.Logger) *Controller {
	c := &Controller{cfg: cfg, body: body, world: world, log: log}
	hw := cfg.Wheelbase / 2
	ht := cfg.TrackWidth / 2
	c.wheels[0].MountLocal = spatial.Vec3{X: -ht, Z: hw}  // front left
	c.wheels[1].MountLocal = spatial.Vec3{X: ht, Z: hw}   // front right
	c.wheels[2].MountLocal = spatial.Vec3{X: -ht, Z: -hw} // rear left
	c.wheels[3].MountLocal = spatial.Vec3{X: ht, Z: -hw}  // rear right
	return c
}

func (c *Controller) Enabled() bool { return c.enabled }

// SetEnabled toggles the controller and clears transient state on enable.
func (c *Controller) SetEnabled(on bool) {
	c.enabled = on
	if on {
		c.steerDeg = 0
		c.airborneTicks = 0
		for i := range c.wheels {
			c.wheels[i].Compression = 0
			c.wheels[i].PrevCompression = 0
			c.wheels[i].Grounded = false
		}
	}
}

// Wheels exposes the contact states for telemetry and tests.
func (c *Controller) Wheels() [4]WheelContact { return c.wheels }

// Telemetry returns the values computed by the last tick.
func (c *Controller) Telemetry() Telemetry { return c.telemetry }

// Tick runs one fixed timestep of the ground vehicle simulation.
func (c *Controller) Tick(dt float64, axes input.GroundAxes) {
	if !c.enabled || dt <= 0 {
		return
	}

	groundedCount := 0
	avgNormal := spatial.Vec3{}
	for i := range c.wheels {
		c.cfg.Suspension.UpdateContact(&c.wheels[i], c.body, c.world)
		if c.wheels[i].Grounded {
			groundedCount++
			avgNormal = avgNormal.Add(c.wheels[i].GroundNormal)
		}
		c.body.AddForceAtPosition(c.cfg.Suspension.Force(&c.wheels[i], dt), c.wheels[i].MountWorld)
	}
	grounded := groundedCount > 0

	forward := c.body.Orientation.Forward()
	right := c.body.Orientation.Right()
	fwdSpeed := c.body.Velocity.Dot(forward)

	if grounded {
		c.applyDrive(axes, forward, fwdSpeed)
	}
	c.applySteering(dt, axes, grounded, fwdSpeed)
	if grounded {
		c.alignToGround(dt, avgNormal.Normalize())
	}
	c.applyFriction(dt, forward, right)

	c.body.AddForce(spatial.Vec3{Y: -c.body.Mass * c.cfg.Gravity})

	c.updateFailsafe(grounded)

	c.telemetry = Telemetry{
		Speed:          c.body.Speed(),
		HeadingDeg:     spatial.RadToDeg(c.body.Orientation.HeadingRad()),
		SteerDeg:       c.steerDeg,
		Braking:        axes.Brake,
		Grounded:       grounded,
		WheelsGrounded: groundedCount,
	}
}

func (c *Controller) applyDrive(axes input.GroundAxes, forward spatial.Vec3, fwdSpeed float64) {
	if axes.Brake {
		if math.Abs(fwdSpeed) > 0.05 {
			decel := math.Copysign(c.cfg.BrakeDecel, -fwdSpeed)
			c.body.AddForce(forward.Scale(decel * c.body.Mass))
		}
		return
	}
	switch {
	case axes.Accel > 0 && fwdSpeed < c.cfg.MaxSpeed:
		c.body.AddForce(forward.Scale(axes.Accel * c.cfg.Acceleration * c.body.Mass))
	case axes.Accel < 0 && fwdSpeed > -c.cfg.ReverseSpeed:
		c.body.AddForce(forward.Scale(axes.Accel * c.cfg.Acceleration * c.body.Mass))
	}
}

// applySteering tracks the target steer angle at the configured rate and
// converts it to a yaw rate through the bicycle-model turn radius. The yaw
// rate is written directly rather than accumulated as torque, and only while
// grounded and moving.
func (c *Controller) applySteering(dt float64, axes input.GroundAxes, grounded bool, fwdSpeed float64) {
	target := axes.Steer * c.cfg.MaxSteerDeg
	maxDelta := c.cfg.SteerRateDeg * dt
	delta := spatial.Clamp(target-c.steerDeg, -maxDelta, maxDelta)
	c.steerDeg += delta

	if !grounded || math.Abs(fwdSpeed) < c.cfg.MinTurnSpeed {
		c.body.AngularVel = spatial.Vec3{}
		return
	}
	steerRad := spatial.DegToRad(c.steerDeg)
	if math.Abs(steerRad) < 1e-4 {
		c.body.AngularVel = spatial.Vec3{}
		return
	}
	// turn radius = wheelbase / tan(steer); omega = v / radius
	omega := fwdSpeed * math.Tan(steerRad) / c.cfg.Wheelbase
	c.body.AngularVel = spatial.Vec3{Y: omega}
}

// alignToGround slerps the body orientation toward alignment of its up axis
// with the average contact normal, preserving the rest of the attitude.
func (c *Controller) alignToGround(dt float64, normal spatial.Vec3) {
	if normal.Length() < 1e-9 {
		return
	}
	target := spatial.QuatFromTo(c.body.Orientation.Up(), normal).Mul(c.body.Orientation)
	c.body.Orientation = c.body.Orientation.Slerp(target, c.cfg.AlignRate*dt)
}

// applyFriction damps the forward and lateral velocity components; a cheap
// stand-in for a contact-patch tire model.
func (c *Controller) applyFriction(dt float64, forward, right spatial.Vec3) {
	v := c.body.Velocity
	fwd := v.Dot(forward)
	lat := v.Dot(right)
	vert := v.Sub(forward.Scale(fwd)).Sub(right.Scale(lat))

	fwd *= math.Exp(-c.cfg.ForwardFriction * dt)
	lat *= math.Exp(-c.cfg.LateralFriction * dt)

	c.body.Velocity = forward.Scale(fwd).Add(right.Scale(lat)).Add(vert)
}

// updateFailsafe counts fully-airborne ticks and teleports the vehicle back
// onto terrain once the limit is exceeded. When no terrain exists in either
// direction the counter resets without relocating; a vehicle over a truly
// bottomless region keeps falling and the condition is only logged.
func (c *Controller) updateFailsafe(grounded bool) {
	if grounded {
		c.airborneTicks = 0
		return
	}
	c.airborneTicks++
	if c.airborneTicks <= c.cfg.FailsafeAirborneTicks {
		return
	}

	hit, ok := c.world.Raycast(phys.Ray{
		Origin:  c.body.Position,
		Dir:     spatial.Vec3{Y: -1},
		MaxDist: c.cfg.RespawnRayDist,
	})
	if !ok {
		hit, ok = c.world.Raycast(phys.Ray{
			Origin:  c.body.Position,
			Dir:     spatial.Vec3{Y: 1},
			MaxDist: c.cfg.RespawnRayDist,
		})
	}
	if !ok {
		c.airborneTicks = 0
		c.log.Warn("ground failsafe found no terrain, not relocating",
			"x", c.body.Position.X, "y", c.body.Position.Y, "z", c.body.Position.Z)
		return
	}

	c.body.Position = hit.Point.Add(spatial.Vec3{Y: c.cfg.RespawnHeight})
	c.body.Orientation = c.body.Orientation.LevelHeading()
	c.body.Velocity = spatial.Vec3{}
	c.body.AngularVel = spatial.Vec3{}
	c.body.SyncTransforms()
	c.airborneTicks = 0
	c.log.Warn("ground failsafe respawned vehicle onto terrain",
		"x", hit.Point.X, "y", hit.Point.Y, "z", hit.Point.Z)
}
