package phys

import "github.com/aeroterra/sim/internal/spatial"

// Ray is a query against the collision world.
type Ray struct {
	Origin  spatial.Vec3
	Dir     spatial.Vec3 // unit direction
	MaxDist float64
}

// Hit is the result of a successful raycast.
type Hit struct {
	Point    spatial.Vec3
	Normal   spatial.Vec3 // unit surface normal
	Distance float64
}

// Raycaster answers ray queries against collision geometry. Terrain is the
// only collision geometry the core knows about; the implementation lives in
// the terrain package.
type Raycaster interface {
	// Raycast returns the nearest hit within MaxDist, or ok=false on a miss.
	Raycast(r Ray) (Hit, bool)
}
