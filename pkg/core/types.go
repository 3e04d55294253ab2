// pkg/core/types.go
package core

// Position3D represents a 3D coordinate in the local world frame without
// GIS dependencies. X is easting, Z is northing, Y is elevation.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// VehicleMode identifies which vehicle representation is active.
type VehicleMode string

const (
	ModeFlight VehicleMode = "flight"
	ModeGround VehicleMode = "ground"
)

// Valid reports whether m is a known mode.
func (m VehicleMode) Valid() bool {
	return m == ModeFlight || m == ModeGround
}
