package terrain

import (
	"sync"

	"github.com/wroge/wgs84"

	"github.com/aeroterra/sim/internal/spatial"
)

// GeoAnchor ties the local simulation frame to a real-world location. The
// local origin (0,0,0) sits at the configured longitude/latitude; local X is
// easting and local Z is northing, in meters of EPSG:3857.
//
// When enabled, the anchor tracks every transform flush from the physics
// body. The mode machine disables it while writing positions explicitly
// during a transition so the two position sources cannot fight.
type GeoAnchor struct {
	mu      sync.RWMutex
	enabled bool

	originX3857 float64 // origin easting in EPSG:3857
	originY3857 float64 // origin northing in EPSG:3857

	lastPos spatial.Vec3
	synced  bool

	to4326 func(x, y, z float64) (float64, float64, float64)
}

// NewGeoAnchor creates an enabled anchor at the given geographic origin.
func NewGeoAnchor(originLon, originLat float64) *GeoAnchor {
	epsg := wgs84.EPSG()
	to3857 := epsg.Transform(4326, 3857)
	x, y, _ := to3857(originLon, originLat, 0)
	return &GeoAnchor{
		enabled:     true,
		originX3857: x,
		originY3857: y,
		to4326:      epsg.Transform(3857, 4326),
	}
}

// Enabled reports whether automatic synchronization is active.
func (a *GeoAnchor) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetEnabled toggles automatic synchronization.
func (a *GeoAnchor) SetEnabled(on bool) {
	a.mu.Lock()
	a.enabled = on
	a.mu.Unlock()
}

// TransformSynced implements phys.TransformListener. Disabled anchors ignore
// the flush entirely.
func (a *GeoAnchor) TransformSynced(pos spatial.Vec3, _ spatial.Quat) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled {
		return
	}
	a.lastPos = pos
	a.synced = true
}

// Mercator returns the EPSG:3857 easting/northing and elevation of the last
// synced position.
func (a *GeoAnchor) Mercator() (x, y, elev float64, ok bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.synced {
		return 0, 0, 0, false
	}
	return a.originX3857 + a.lastPos.X, a.originY3857 + a.lastPos.Z, a.lastPos.Y, true
}

// Geographic returns the WGS84 longitude/latitude and elevation of the last
// synced position.
func (a *GeoAnchor) Geographic() (lon, lat, elev float64, ok bool) {
	x, y, e, ok := a.Mercator()
	if !ok {
		return 0, 0, 0, false
	}
	lon, lat, _ = a.to4326(x, y, 0)
	return lon, lat, e, true
}
