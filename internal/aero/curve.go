package aero

import (
	"errors"
	"sort"
)

// ErrEmptyCurve is returned when a lift curve has no points.
var ErrEmptyCurve = errors.New("lift curve has no points")

// CurvePoint maps an angle of attack (degrees) to a lift coefficient.
type CurvePoint struct {
	AoADeg float64 `json:"aoaDeg" mapstructure:"aoaDeg"`
	Cl     float64 `json:"cl" mapstructure:"cl"`
}

// Curve is a piecewise-linear lift-coefficient curve keyed by angle of
// attack. Lookups outside the domain clamp to the endpoints.
type Curve struct {
	points []CurvePoint
}

// NewCurve builds a curve from points, sorting them by AoA. An empty point
// set is a configuration error, not a correctable condition.
func NewCurve(points []CurvePoint) (*Curve, error) {
	if len(points) == 0 {
		return nil, ErrEmptyCurve
	}
	ps := make([]CurvePoint, len(points))
	copy(ps, points)
	sort.Slice(ps, func(i, j int) bool { return ps[i].AoADeg < ps[j].AoADeg })
	return &Curve{points: ps}, nil
}

// DefaultCurve is a conventional subsonic airfoil: linear lift slope through
// the normal regime, peak near 15 degrees, collapsing beyond stall.
func DefaultCurve() *Curve {
	c, _ := NewCurve([]CurvePoint{
		{AoADeg: -90, Cl: 0},
		{AoADeg: -20, Cl: -0.6},
		{AoADeg: -10, Cl: -0.8},
		{AoADeg: 0, Cl: 0.2},
		{AoADeg: 10, Cl: 1.2},
		{AoADeg: 15, Cl: 1.5},
		{AoADeg: 20, Cl: 0.9},
		{AoADeg: 90, Cl: 0},
	})
	return c
}

// Eval returns the lift coefficient at the given AoA, clamped to the curve
// domain.
func (c *Curve) Eval(aoaDeg float64) float64 {
	ps := c.points
	if aoaDeg <= ps[0].AoADeg {
		return ps[0].Cl
	}
	last := ps[len(ps)-1]
	if aoaDeg >= last.AoADeg {
		return last.Cl
	}
	i := sort.Search(len(ps), func(i int) bool { return ps[i].AoADeg >= aoaDeg })
	lo, hi := ps[i-1], ps[i]
	t := (aoaDeg - lo.AoADeg) / (hi.AoADeg - lo.AoADeg)
	return lo.Cl + (hi.Cl-lo.Cl)*t
}
