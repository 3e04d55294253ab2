// Package phys implements the minimal rigid-body layer the vehicle
// controllers sit on: force accumulation, semi-implicit Euler integration,
// the kinematic flag, collider enable/disable and an explicit transform
// flush. Controllers write forces; they never write positions outside a
// mode transition.
package phys

import "github.com/aeroterra/sim/internal/spatial"

// TransformListener is notified when SyncTransforms flushes an explicit
// position or orientation write. The geospatial anchor hangs off this.
type TransformListener interface {
	TransformSynced(position spatial.Vec3, orientation spatial.Quat)
}

// Body is a single simulated rigid body.
type Body struct {
	Position    spatial.Vec3
	Orientation spatial.Quat
	Velocity    spatial.Vec3
	AngularVel  spatial.Vec3 // rad/s, world frame

	Mass    float64
	Inertia spatial.Vec3 // diagonal approximation about body axes

	// Kinematic suspends integration: accumulated forces are discarded and
	// the transform moves only through explicit writes.
	Kinematic bool

	// ColliderEnabled gates collision response in Step. The mode machine
	// turns this off while repositioning the body flush with terrain.
	ColliderEnabled bool

	force     spatial.Vec3
	torque    spatial.Vec3
	listeners []TransformListener
}

// NewBody creates a dynamic body at the origin with identity orientation.
func NewBody(mass float64, inertia spatial.Vec3) *Body {
	return &Body{
		Orientation:     spatial.QuatIdentity(),
		Mass:            mass,
		Inertia:         inertia,
		ColliderEnabled: true,
	}
}

// AddForce accumulates a force through the center of mass for this tick.
func (b *Body) AddForce(f spatial.Vec3) {
	b.force = b.force.Add(f)
}

// AddForceAtPosition accumulates a force applied at a world position; the
// off-center component shows up as torque.
func (b *Body) AddForceAtPosition(f, worldPos spatial.Vec3) {
	b.force = b.force.Add(f)
	arm := worldPos.Sub(b.Position)
	b.torque = b.torque.Add(arm.Cross(f))
}

// AddTorque accumulates a world-frame torque for this tick.
func (b *Body) AddTorque(t spatial.Vec3) {
	b.torque = b.torque.Add(t)
}

// Step integrates one fixed timestep with semi-implicit Euler: velocity
// first from the accumulated forces, then position from the new velocity.
// A kinematic body discards its accumulators and does not move.
func (b *Body) Step(dt float64) {
	if b.Kinematic || dt <= 0 {
		b.force = spatial.Vec3{}
		b.torque = spatial.Vec3{}
		return
	}

	accel := b.force.Scale(1.0 / b.Mass)
	b.Velocity = b.Velocity.Add(accel.Scale(dt))
	b.Position = b.Position.Add(b.Velocity.Scale(dt))

	// Torque is expressed in the world frame; map through the body-frame
	// diagonal inertia.
	localT := b.Orientation.InverseRotate(b.torque)
	var localA spatial.Vec3
	if b.Inertia.X > 0 {
		localA.X = localT.X / b.Inertia.X
	}
	if b.Inertia.Y > 0 {
		localA.Y = localT.Y / b.Inertia.Y
	}
	if b.Inertia.Z > 0 {
		localA.Z = localT.Z / b.Inertia.Z
	}
	b.AngularVel = b.AngularVel.Add(b.Orientation.Rotate(localA).Scale(dt))
	b.Orientation = b.Orientation.Integrate(b.AngularVel, dt)

	b.force = spatial.Vec3{}
	b.torque = spatial.Vec3{}

	if !b.Position.IsFinite() || !b.Velocity.IsFinite() {
		// Numerical blowup guard: freeze motion rather than propagate NaNs.
		b.Velocity = spatial.Vec3{}
		b.AngularVel = spatial.Vec3{}
	}
}

// Speed returns the linear speed in m/s.
func (b *Body) Speed() float64 { return b.Velocity.Length() }

// AddTransformListener registers a listener for SyncTransforms.
func (b *Body) AddTransformListener(l TransformListener) {
	b.listeners = append(b.listeners, l)
}

// SyncTransforms flushes explicit transform writes to listeners and
// renormalizes the orientation. Call it after writing Position or
// Orientation directly so dependent systems observe a consistent state
// within the same tick.
func (b *Body) SyncTransforms() {
	b.Orientation = b.Orientation.Normalize()
	for _, l := range b.listeners {
		l.TransformSynced(b.Position, b.Orientation)
	}
}
