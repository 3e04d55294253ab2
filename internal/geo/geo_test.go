package geo

import (
	"errors"
	"math"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/aeroterra/sim/pkg/core"
)

func TestNewProjectorRejectsBadOrigin(t *testing.T) {
	cases := []struct{ lon, lat float64 }{
		{-181, 0},
		{181, 0},
		{0, 86},
		{0, -86},
	}
	for _, c := range cases {
		if _, err := NewProjector(c.lon, c.lat); !errors.Is(err, ErrInvalidOrigin) {
			t.Errorf("NewProjector(%v, %v) err = %v, want ErrInvalidOrigin", c.lon, c.lat, err)
		}
	}
}

func TestPoint3857OffsetsFromOrigin(t *testing.T) {
	p, err := NewProjector(-122.349, 47.62)
	if err != nil {
		t.Fatal(err)
	}

	origin := p.Point3857(core.Position3D{})
	moved := p.Point3857(core.Position3D{X: 100, Y: 25, Z: 200})

	oc, ok := origin.Coordinates()
	if !ok {
		t.Fatal("origin point has no coordinates")
	}
	mc, ok := moved.Coordinates()
	if !ok {
		t.Fatal("moved point has no coordinates")
	}

	if math.Abs((mc.XY.X-oc.XY.X)-100) > 1e-9 {
		t.Errorf("easting offset = %v, want 100", mc.XY.X-oc.XY.X)
	}
	if math.Abs((mc.XY.Y-oc.XY.Y)-200) > 1e-9 {
		t.Errorf("northing offset = %v, want 200", mc.XY.Y-oc.XY.Y)
	}
	if mc.Z != 25 {
		t.Errorf("elevation = %v, want 25", mc.Z)
	}
}

func TestWKB3857RoundTrips(t *testing.T) {
	p, err := NewProjector(0, 0)
	if err != nil {
		t.Fatal(err)
	}

	wkb := p.WKB3857(core.Position3D{X: 10, Y: 5, Z: -20})
	if len(wkb) == 0 {
		t.Fatal("empty WKB")
	}

	g, err := geom.UnmarshalWKB(wkb)
	if err != nil {
		t.Fatal(err)
	}
	pt, ok := g.AsPoint()
	if !ok {
		t.Fatal("WKB did not decode to a point")
	}
	c, ok := pt.Coordinates()
	if !ok {
		t.Fatal("decoded point has no coordinates")
	}
	if c.Z != 5 {
		t.Errorf("elevation = %v, want 5", c.Z)
	}
}
