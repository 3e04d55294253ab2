// Package terrain provides the collision geometry the vehicle controllers
// raycast against, and the geospatial anchor tying the local world frame to
// real-world coordinates.
package terrain

import (
	"math"

	"github.com/aeroterra/sim/internal/phys"
	"github.com/aeroterra/sim/internal/spatial"
)

// Field samples terrain elevation. ok=false means there is no terrain at
// that location (open ocean, unloaded tile); callers must treat the column
// as bottomless.
type Field interface {
	HeightAt(x, z float64) (y float64, ok bool)
}

// FieldFunc adapts a plain function to the Field interface.
type FieldFunc func(x, z float64) (float64, bool)

func (f FieldFunc) HeightAt(x, z float64) (float64, bool) { return f(x, z) }

// Flat returns a field with constant elevation.
func Flat(elevation float64) Field {
	return FieldFunc(func(x, z float64) (float64, bool) {
		return elevation, true
	})
}

// Rolling returns a synthetic wavy field useful for tests and demo
// scenarios: two superimposed sine waves with the given amplitudes.
func Rolling(amp1, wavelen1, amp2, wavelen2 float64) Field {
	return FieldFunc(func(x, z float64) (float64, bool) {
		w1 := math.Sin(x/wavelen1) * amp1
		w2 := math.Sin((x+z)/wavelen2) * amp2
		return w1 + w2, true
	})
}

// Bottomless returns a field with no terrain anywhere.
func Bottomless() Field {
	return FieldFunc(func(x, z float64) (float64, bool) {
		return 0, false
	})
}

// Heightfield answers ray queries against a Field. Vertical rays (the only
// kind the controllers issue) are resolved analytically; oblique rays are
// resolved by fixed-step marching.
type Heightfield struct {
	Field Field

	// MarchStep is the sampling interval for non-vertical rays, meters.
	MarchStep float64
}

// NewHeightfield wraps a field with a default march step.
func NewHeightfield(f Field) *Heightfield {
	return &Heightfield{Field: f, MarchStep: 0.5}
}

var _ phys.Raycaster = (*Heightfield)(nil)

// Raycast implements phys.Raycaster.
func (h *Heightfield) Raycast(r phys.Ray) (phys.Hit, bool) {
	if r.MaxDist <= 0 {
		return phys.Hit{}, false
	}
	d := r.Dir.Normalize()
	if math.Abs(d.X) < 1e-9 && math.Abs(d.Z) < 1e-9 {
		return h.raycastVertical(r.Origin, d.Y, r.MaxDist)
	}
	return h.march(r.Origin, d, r.MaxDist)
}

func (h *Heightfield) raycastVertical(origin spatial.Vec3, dirY, maxDist float64) (phys.Hit, bool) {
	ground, ok := h.Field.HeightAt(origin.X, origin.Z)
	if !ok {
		return phys.Hit{}, false
	}
	var dist float64
	if dirY < 0 {
		dist = origin.Y - ground
	} else {
		dist = ground - origin.Y
	}
	if dist < 0 || dist > maxDist {
		return phys.Hit{}, false
	}
	return phys.Hit{
		Point:    spatial.Vec3{X: origin.X, Y: ground, Z: origin.Z},
		Normal:   h.normalAt(origin.X, origin.Z),
		Distance: dist,
	}, true
}

func (h *Heightfield) march(origin, dir spatial.Vec3, maxDist float64) (phys.Hit, bool) {
	step := h.MarchStep
	if step <= 0 {
		step = 0.5
	}
	prev := origin
	for t := step; t <= maxDist; t += step {
		p := origin.Add(dir.Scale(t))
		ground, ok := h.Field.HeightAt(p.X, p.Z)
		if !ok {
			prev = p
			continue
		}
		if p.Y <= ground {
			// Bisect between prev and p for the crossing point.
			lo, hi := prev, p
			for i := 0; i < 16; i++ {
				mid := lo.Add(hi.Sub(lo).Scale(0.5))
				g, gok := h.Field.HeightAt(mid.X, mid.Z)
				if gok && mid.Y <= g {
					hi = mid
				} else {
					lo = mid
				}
			}
			return phys.Hit{
				Point:    spatial.Vec3{X: hi.X, Y: ground, Z: hi.Z},
				Normal:   h.normalAt(hi.X, hi.Z),
				Distance: hi.Sub(origin).Length(),
			}, true
		}
		prev = p
	}
	return phys.Hit{}, false
}

// normalAt estimates the surface normal by central differences.
func (h *Heightfield) normalAt(x, z float64) spatial.Vec3 {
	const eps = 0.5
	hx0, ok1 := h.Field.HeightAt(x-eps, z)
	hx1, ok2 := h.Field.HeightAt(x+eps, z)
	hz0, ok3 := h.Field.HeightAt(x, z-eps)
	hz1, ok4 := h.Field.HeightAt(x, z+eps)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return spatial.Vec3{Y: 1}
	}
	n := spatial.Vec3{
		X: (hx0 - hx1) / (2 * eps),
		Y: 1,
		Z: (hz0 - hz1) / (2 * eps),
	}
	return n.Normalize()
}
