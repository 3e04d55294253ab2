package geo

import (
	"errors"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/aeroterra/sim/pkg/core"
)

// GEO POINTS
// Telemetry positions are stored as EPSG:3857 points so the web map can
// consume them directly. Geometry is serialized in WKB, which SQLite can
// round-trip as a blob without spatial awareness.

// ErrInvalidOrigin is returned for origins outside the WGS84 domain.
var ErrInvalidOrigin = errors.New("invalid geographic origin")

// Projector converts local world positions (meters east/north of a
// geographic origin) into EPSG:3857 points.
type Projector struct {
	originX float64
	originY float64
}

// NewProjector creates a projector anchored at the given WGS84 origin.
func NewProjector(originLon, originLat float64) (*Projector, error) {
	if originLon < -180 || originLon > 180 || originLat < -85 || originLat > 85 {
		return nil, ErrInvalidOrigin
	}
	to3857 := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := to3857(originLon, originLat, 0)
	return &Projector{originX: x, originY: y}, nil
}

// Point3857 converts a local position to an EPSG:3857 point with elevation.
func (p *Projector) Point3857(pos core.Position3D) geom.Point {
	pt, _ := geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: p.originX + pos.X, Y: p.originY + pos.Z},
			Z:    pos.Y,
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
	return pt
}

// WKB3857 converts a local position to the WKB encoding of its EPSG:3857
// point, the form the storage backends persist.
func (p *Projector) WKB3857(pos core.Position3D) []byte {
	return p.Point3857(pos).AsBinary()
}
