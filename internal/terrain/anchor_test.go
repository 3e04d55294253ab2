package terrain

import (
	"math"
	"testing"

	"github.com/aeroterra/sim/internal/spatial"
)

func TestAnchorTracksWhenEnabled(t *testing.T) {
	a := NewGeoAnchor(-122.349, 47.62)

	a.TransformSynced(spatial.Vec3{X: 100, Y: 25, Z: 200}, spatial.QuatIdentity())

	x, y, elev, ok := a.Mercator()
	if !ok {
		t.Fatal("expected synced position")
	}
	if elev != 25 {
		t.Errorf("elevation = %v, want 25", elev)
	}

	// Moving 100m east and 200m north must move the mercator position by
	// exactly that much relative to the origin.
	a.TransformSynced(spatial.Vec3{}, spatial.QuatIdentity())
	ox, oy, _, _ := a.Mercator()
	if math.Abs((x-ox)-100) > 1e-9 || math.Abs((y-oy)-200) > 1e-9 {
		t.Errorf("offset = (%v, %v), want (100, 200)", x-ox, y-oy)
	}
}

func TestAnchorIgnoresWhileDisabled(t *testing.T) {
	a := NewGeoAnchor(0, 0)
	a.TransformSynced(spatial.Vec3{X: 10}, spatial.QuatIdentity())

	a.SetEnabled(false)
	a.TransformSynced(spatial.Vec3{X: 9999}, spatial.QuatIdentity())

	a.SetEnabled(true)
	x, _, _, ok := a.Mercator()
	if !ok {
		t.Fatal("expected synced position")
	}

	ox, _, _, _ := anchorOrigin(0, 0)
	if math.Abs((x-ox)-10) > 1e-6 {
		t.Errorf("disabled anchor tracked an explicit write: offset %v", x-ox)
	}
}

// anchorOrigin returns the mercator coordinates of an origin.
func anchorOrigin(lon, lat float64) (x, y, elev float64, ok bool) {
	a := NewGeoAnchor(lon, lat)
	a.TransformSynced(spatial.Vec3{}, spatial.QuatIdentity())
	return a.Mercator()
}

func TestAnchorGeographicRoundTrip(t *testing.T) {
	a := NewGeoAnchor(-122.349, 47.62)
	a.TransformSynced(spatial.Vec3{}, spatial.QuatIdentity())

	lon, lat, _, ok := a.Geographic()
	if !ok {
		t.Fatal("expected synced position")
	}
	if math.Abs(lon-(-122.349)) > 1e-6 || math.Abs(lat-47.62) > 1e-6 {
		t.Errorf("origin round trip = (%v, %v)", lon, lat)
	}
}
