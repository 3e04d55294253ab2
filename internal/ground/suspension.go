// Package ground implements the 4-wheel raycast-suspension vehicle: wheel
// contact detection, spring/damper suspension, drive and steering forces,
// terrain alignment and the airborne failsafe.
package ground

import (
	"github.com/aeroterra/sim/internal/phys"
	"github.com/aeroterra/sim/internal/spatial"
)

// WheelContact is the per-wheel state recomputed every fixed tick.
type WheelContact struct {
	// MountLocal is the wheel mount point in the body frame.
	MountLocal spatial.Vec3

	// Detected is true when the long detection ray hit terrain at all.
	Detected bool
	// Grounded is true when the wheel is actually in contact, i.e. the
	// suspension is compressed.
	Grounded bool

	Compression     float64 // >= 0
	PrevCompression float64 // previous tick, for the damping derivative
	GroundNormal    spatial.Vec3
	ContactPoint    spatial.Vec3
	MountWorld      spatial.Vec3
}

// Suspension holds the per-wheel spring/damper tuning.
type Suspension struct {
	Travel        float64 // rest suspension travel, meters
	WheelRadius   float64
	Stiffness     float64 // N per meter of compression
	Damping       float64 // N per m/s of compression rate
	DetectionDist float64 // max ray distance; generous to tolerate falling
	RayOffset     float64 // cast origin height above the mount
}

// UpdateContact raycasts one wheel and refreshes its contact state. A miss
// within the detection distance resets the wheel to not grounded.
func (s *Suspension) UpdateContact(w *WheelContact, body *phys.Body, world phys.Raycaster) {
	w.MountWorld = body.Position.Add(body.Orientation.Rotate(w.MountLocal))
	w.PrevCompression = w.Compression

	origin := w.MountWorld.Add(spatial.Vec3{Y: s.RayOffset})
	hit, ok := world.Raycast(phys.Ray{
		Origin:  origin,
		Dir:     spatial.Vec3{Y: -1},
		MaxDist: s.DetectionDist + s.RayOffset,
	})
	if !ok {
		w.Detected = false
		w.Grounded = false
		w.Compression = 0
		return
	}

	dist := hit.Distance - s.RayOffset
	w.Detected = true
	w.ContactPoint = hit.Point
	w.GroundNormal = hit.Normal
	w.Compression = s.Travel - (dist - s.WheelRadius)
	if w.Compression < 0 {
		w.Compression = 0
	}
	w.Grounded = w.Compression > 0
}

// Force returns the spring plus damper force for a grounded wheel, directed
// along the ground normal. Zero for airborne wheels.
func (s *Suspension) Force(w *WheelContact, dt float64) spatial.Vec3 {
	if !w.Grounded || dt <= 0 {
		return spatial.Vec3{}
	}
	spring := w.Compression * s.Stiffness
	damper := ((w.Compression - w.PrevCompression) / dt) * s.Damping
	total := spring + damper
	if total < 0 {
		// The damper never pulls the body into the ground.
		total = 0
	}
	return w.GroundNormal.Scale(total)
}
