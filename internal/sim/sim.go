// Package sim owns the fixed-timestep loop: it feeds input to the mode
// machine, steps the rigid body, and samples telemetry into the write
// queues. One Simulator simulates one vehicle.
package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aeroterra/sim/internal/channel"
	"github.com/aeroterra/sim/internal/dispatcher"
	"github.com/aeroterra/sim/internal/flight"
	"github.com/aeroterra/sim/internal/ground"
	"github.com/aeroterra/sim/internal/input"
	"github.com/aeroterra/sim/internal/mode"
	"github.com/aeroterra/sim/internal/phys"
	"github.com/aeroterra/sim/internal/worker"
	"github.com/aeroterra/sim/pkg/core"
)

// Config holds the loop settings.
type Config struct {
	TickRate    float64       // fixed physics ticks per second
	Duration    time.Duration // zero runs until ctx is done
	SampleEvery int           // record telemetry every N ticks
	Realtime    bool          // sleep between ticks; false runs flat out
}

// Dependencies holds the simulated vehicle and its consumers.
type Dependencies struct {
	Body        *phys.Body
	Machine     *mode.Machine
	Flight      *flight.Controller
	Ground      *ground.Controller
	FlightInput *input.FlightMapper
	GroundInput *input.GroundMapper
	Queues      *worker.Queues
	Events      *dispatcher.Dispatcher
	Logger      *slog.Logger

	// Script drives the controls. Device, when non-nil, overrides it with
	// externally fed snapshots.
	Script *Script
	Device channel.Receiver[input.DeviceState]
}

// Simulator runs the fixed-timestep loop.
type Simulator struct {
	cfg  Config
	deps Dependencies
	dt   float64

	// lastDevice is only touched from the tick goroutine.
	lastDevice input.DeviceState

	mu          sync.RWMutex
	tick        uint64
	lastTickDur time.Duration
	sessionID   uint
}

// New creates a simulator. TickRate must be positive.
func New(cfg Config, deps Dependencies) *Simulator {
	if cfg.SampleEvery <= 0 {
		cfg.SampleEvery = 1
	}
	return &Simulator{
		cfg:  cfg,
		deps: deps,
		dt:   1.0 / cfg.TickRate,
	}
}

// SetSessionID stamps subsequent telemetry with the session.
func (s *Simulator) SetSessionID(id uint) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
}

// SessionID returns the current session ID.
func (s *Simulator) SessionID() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// CurrentTick returns the number of completed ticks.
func (s *Simulator) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// LastTickDuration returns the wall time of the last tick.
func (s *Simulator) LastTickDuration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTickDur
}

// Run executes the loop until the configured duration elapses or ctx is
// done, whichever comes first.
func (s *Simulator) Run(ctx context.Context) error {
	totalTicks := uint64(0)
	if s.cfg.Duration > 0 {
		totalTicks = uint64(s.cfg.Duration.Seconds() * s.cfg.TickRate)
	}

	var ticker *time.Ticker
	if s.cfg.Realtime {
		ticker = time.NewTicker(time.Duration(float64(time.Second) / s.cfg.TickRate))
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if totalTicks > 0 && s.CurrentTick() >= totalTicks {
			return nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}

		s.Tick()
	}
}

// Tick advances the simulation by one fixed timestep.
func (s *Simulator) Tick() {
	start := time.Now()

	s.mu.Lock()
	tick := s.tick
	s.mu.Unlock()

	elapsed := time.Duration(float64(tick) * s.dt * float64(time.Second))

	device, request := s.sampleInput(elapsed)
	s.deps.FlightInput.Update(device)
	s.deps.GroundInput.Update(device)

	if request != "" {
		if err := s.deps.Machine.RequestMode(request); err != nil {
			s.deps.Logger.Warn("mode request rejected", "target", string(request), "error", err)
		}
	}

	s.deps.Machine.Tick(s.dt, s.deps.FlightInput.Axes(), s.deps.GroundInput.Axes())
	s.deps.Body.Step(s.dt)
	s.deps.Body.SyncTransforms()

	s.mu.Lock()
	s.tick++
	tick = s.tick
	s.lastTickDur = time.Since(start)
	s.mu.Unlock()

	if tick%uint64(s.cfg.SampleEvery) == 0 && !s.deps.Machine.Transitioning() {
		s.sampleTelemetry(tick)
	}
}

// sampleInput returns the device snapshot for this tick. An external device
// feed wins over the script; the last received snapshot holds between reads.
func (s *Simulator) sampleInput(elapsed time.Duration) (input.DeviceState, core.VehicleMode) {
	if s.deps.Device != nil {
		for {
			select {
			case d, ok := <-s.deps.Device.Receive():
				if !ok {
					return s.lastDevice, ""
				}
				s.lastDevice = d
			default:
				return s.lastDevice, ""
			}
		}
	}
	if s.deps.Script != nil {
		return s.deps.Script.Sample(elapsed)
	}
	return input.DeviceState{}, ""
}

func (s *Simulator) sampleTelemetry(tick uint64) {
	now := time.Now()
	pos := s.deps.Body.Position
	position := core.Position3D{X: pos.X, Y: pos.Y, Z: pos.Z}

	switch s.deps.Machine.Mode() {
	case core.ModeFlight:
		t := s.deps.Flight.Telemetry()
		sample := core.FlightSample{
			SessionID:     s.SessionID(),
			Time:          now,
			Tick:          tick,
			Position:      position,
			HeadingDeg:    t.HeadingDeg,
			Speed:         t.Speed,
			Altitude:      t.Altitude,
			VerticalSpeed: t.VerticalSpeed,
			ThrottlePct:   t.ThrottlePct,
			AoADeg:        t.AoADeg,
			Stalled:       t.Stalled,
		}
		s.deps.Queues.Flight.Push(sample)
		if s.deps.Events != nil {
			s.deps.Events.Publish(dispatcher.TopicFlightTelemetry, sample)
		}
	case core.ModeGround:
		t := s.deps.Ground.Telemetry()
		sample := core.GroundSample{
			SessionID:      s.SessionID(),
			Time:           now,
			Tick:           tick,
			Position:       position,
			HeadingDeg:     t.HeadingDeg,
			Speed:          t.Speed,
			SteerDeg:       t.SteerDeg,
			Braking:        t.Braking,
			Grounded:       t.Grounded,
			WheelsGrounded: uint8(t.WheelsGrounded),
		}
		s.deps.Queues.Ground.Push(sample)
		if s.deps.Events != nil {
			s.deps.Events.Publish(dispatcher.TopicGroundTelemetry, sample)
		}
	}
}
