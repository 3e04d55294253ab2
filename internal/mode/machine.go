// Package mode owns the state machine switching the vehicle between its
// aircraft and ground representations. Mode is the single source of truth
// for which controller runs; transitions are the only mutator.
//
// The Flight→Ground switch is sequenced carefully: the body goes kinematic
// before any position write, the anchor sync and collider are off while the
// body is placed flush with the terrain, and neither controller runs during
// a short settle window. Skipping any of these steps reintroduces the
// collision-penetration impulse this sequencing exists to prevent.
package mode

import (
	"errors"
	"log/slog"
	"time"

	"github.com/aeroterra/sim/internal/flight"
	"github.com/aeroterra/sim/internal/ground"
	"github.com/aeroterra/sim/internal/input"
	"github.com/aeroterra/sim/internal/phys"
	"github.com/aeroterra/sim/internal/spatial"
	"github.com/aeroterra/sim/pkg/core"
)

var (
	// ErrTransitionInProgress rejects re-entrant mode requests. Callers
	// retry after the settle window instead of queueing.
	ErrTransitionInProgress = errors.New("mode transition already in progress")

	// ErrAlreadyInMode rejects a switch to the current mode.
	ErrAlreadyInMode = errors.New("vehicle already in requested mode")

	// ErrUnknownMode rejects modes outside {flight, ground}.
	ErrUnknownMode = errors.New("unknown vehicle mode")
)

// AnchorSync is the geospatial-anchor boundary: the machine disables
// automatic coordinate synchronization around explicit position writes.
type AnchorSync interface {
	SetEnabled(on bool)
}

// Publisher receives the mode-changed event on transition completion.
type Publisher interface {
	Publish(topic string, payload any)
}

// Config tunes the transition behavior.
type Config struct {
	// SettleDelay is how long the body stays kinematic with both
	// controllers disabled after a Flight→Ground placement.
	SettleDelay time.Duration

	// GroundSpawnOffset lifts the spawn point slightly off the contact
	// point. Near zero: the collider is disabled during placement, so
	// there is no penetration to avoid.
	GroundSpawnOffset float64

	// FlightSpawnSpeed seeds the forward velocity on entry into flight.
	// Must exceed the aero low-airspeed stall threshold.
	FlightSpawnSpeed float64

	// FlightSpawnThrottle seeds the throttle on entry into flight.
	FlightSpawnThrottle float64

	// TerrainRayDist bounds the Flight→Ground terrain search.
	TerrainRayDist float64
}

// Dependencies holds everything the machine orchestrates.
type Dependencies struct {
	Body        *phys.Body
	World       phys.Raycaster
	Anchor      AnchorSync
	Flight      *flight.Controller
	Ground      *ground.Controller
	FlightInput *input.FlightMapper
	GroundInput *input.GroundMapper
	Events      Publisher
	Logger      *slog.Logger
}

// transition is the ephemeral context alive only while settling into ground
// mode.
type transition struct {
	remaining     time.Duration
	savedVelocity spatial.Vec3
	from          core.VehicleMode
	relocated     bool
}

// Machine is the mode-transition state machine.
type Machine struct {
	cfg  Config
	deps Dependencies

	mode  core.VehicleMode
	trans *transition

	tick uint64
}

// ModeChangedTopic is where completed transitions are published.
const ModeChangedTopic = "mode.changed"

// New creates a machine starting in the given mode with the matching
// controller and input mapper enabled.
func New(cfg Config, deps Dependencies, start core.VehicleMode) (*Machine, error) {
	if !start.Valid() {
		return nil, ErrUnknownMode
	}
	m := &Machine{cfg: cfg, deps: deps, mode: start}
	switch start {
	case core.ModeFlight:
		deps.Flight.SetEnabled(true)
		deps.FlightInput.SetEnabled(true)
	case core.ModeGround:
		deps.Ground.SetEnabled(true)
		deps.GroundInput.SetEnabled(true)
	}
	return m, nil
}

// Mode returns the settled mode. During a transition it still reports the
// origin mode; the transient kinematic sub-state is not exposed.
func (m *Machine) Mode() core.VehicleMode { return m.mode }

// Transitioning reports whether a settle window is in progress.
func (m *Machine) Transitioning() bool { return m.trans != nil }

// RequestMode initiates a switch. Re-entrant requests are rejected.
func (m *Machine) RequestMode(target core.VehicleMode) error {
	if !target.Valid() {
		return ErrUnknownMode
	}
	if m.trans != nil {
		return ErrTransitionInProgress
	}
	if target == m.mode {
		return ErrAlreadyInMode
	}
	switch target {
	case core.ModeGround:
		m.beginFlightToGround()
	case core.ModeFlight:
		m.groundToFlight()
	}
	return nil
}

// Tick advances the machine and whichever controller is active by one fixed
// timestep. During the settle window neither controller runs and the body is
// kinematic, so its position cannot change between ticks.
func (m *Machine) Tick(dt float64, fa input.FlightAxes, ga input.GroundAxes) {
	m.tick++
	if m.trans != nil {
		m.trans.remaining -= time.Duration(dt * float64(time.Second))
		if m.trans.remaining <= 0 {
			m.finishFlightToGround()
		}
		return
	}
	switch m.mode {
	case core.ModeFlight:
		m.deps.Flight.Tick(dt, fa)
	case core.ModeGround:
		m.deps.Ground.Tick(dt, ga)
	}
}

// beginFlightToGround runs steps 1-7 of the ground-bound sequence and arms
// the settle timer. Order matters throughout; see the package comment.
func (m *Machine) beginFlightToGround() {
	body := m.deps.Body

	hit, found := m.deps.World.Raycast(phys.Ray{
		Origin:  body.Position,
		Dir:     spatial.Vec3{Y: -1},
		MaxDist: m.cfg.TerrainRayDist,
	})

	// Kinematic before any position write so integration cannot fight it.
	body.Kinematic = true
	m.deps.Anchor.SetEnabled(false)
	body.ColliderEnabled = false

	relocated := false
	if found {
		body.Position = hit.Point.Add(spatial.Vec3{Y: m.cfg.GroundSpawnOffset})
		body.Orientation = spatial.QuatFromTo(spatial.Vec3{Y: 1}, hit.Normal).
			Mul(body.Orientation.LevelHeading())
		relocated = true
	} else {
		// No terrain below: level in place and complete the transition
		// anyway rather than deadlocking in the transient sub-state.
		body.Orientation = body.Orientation.LevelHeading()
		m.deps.Logger.Warn("no terrain found below, leveling in place",
			"x", body.Position.X, "y", body.Position.Y, "z", body.Position.Z)
	}
	body.SyncTransforms()

	m.deps.Flight.SetEnabled(false)
	m.deps.FlightInput.SetEnabled(false)

	m.trans = &transition{
		remaining:     m.cfg.SettleDelay,
		savedVelocity: body.Velocity,
		from:          m.mode,
		relocated:     relocated,
	}
	body.Velocity = spatial.Vec3{}
	body.AngularVel = spatial.Vec3{}
}

// finishFlightToGround runs step 8: restore simulation, hand the body to the
// ground controller and publish the mode change.
func (m *Machine) finishFlightToGround() {
	body := m.deps.Body
	t := m.trans

	body.Kinematic = false
	body.ColliderEnabled = true
	body.SyncTransforms()
	m.deps.Anchor.SetEnabled(true)

	// Carry the pre-transition ground track into the rolling start.
	forward := body.Orientation.Forward()
	horiz := t.savedVelocity
	horiz.Y = 0
	body.Velocity = forward.Scale(horiz.Dot(forward))

	m.deps.Ground.SetEnabled(true)
	m.deps.GroundInput.SetEnabled(true)

	m.mode = core.ModeGround
	m.trans = nil
	m.publish(t.from, core.ModeGround, t.relocated)
}

// groundToFlight has no penetration risk lifting off, so it completes in a
// single step.
func (m *Machine) groundToFlight() {
	body := m.deps.Body

	body.ColliderEnabled = true
	body.Kinematic = false
	body.Orientation = body.Orientation.LevelHeading()
	body.Velocity = body.Orientation.Forward().Scale(m.cfg.FlightSpawnSpeed)
	body.AngularVel = spatial.Vec3{}
	body.SyncTransforms()

	m.deps.Ground.SetEnabled(false)
	m.deps.GroundInput.SetEnabled(false)
	m.deps.Flight.SetEnabled(true)
	m.deps.Flight.SetThrottle(m.cfg.FlightSpawnThrottle)
	m.deps.FlightInput.SetEnabled(true)

	from := m.mode
	m.mode = core.ModeFlight
	m.publish(from, core.ModeFlight, false)
}

func (m *Machine) publish(from, to core.VehicleMode, relocated bool) {
	if m.deps.Events == nil {
		return
	}
	p := m.deps.Body.Position
	m.deps.Events.Publish(ModeChangedTopic, core.ModeChange{
		Time:      time.Now(),
		Tick:      m.tick,
		From:      from,
		To:        to,
		Position:  core.Position3D{X: p.X, Y: p.Y, Z: p.Z},
		Relocated: relocated,
	})
}
