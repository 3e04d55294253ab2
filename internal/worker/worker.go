// Package worker drains the telemetry queues into the storage backend off
// the physics tick, so a slow write never stalls the simulation.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aeroterra/sim/internal/influx"
	"github.com/aeroterra/sim/internal/logging"
	"github.com/aeroterra/sim/internal/queue"
	"github.com/aeroterra/sim/internal/storage"
	"github.com/aeroterra/sim/pkg/core"
)

// Queues holds the channels between the sim tick and the writer.
type Queues struct {
	Flight *queue.Queue[core.FlightSample]
	Ground *queue.Queue[core.GroundSample]
	Modes  *queue.Queue[core.ModeChange]
	Perf   *queue.Queue[core.PerfSample]
}

// NewQueues creates an empty queue set.
func NewQueues() *Queues {
	return &Queues{
		Flight: queue.New[core.FlightSample](),
		Ground: queue.New[core.GroundSample](),
		Modes:  queue.New[core.ModeChange](),
		Perf:   queue.New[core.PerfSample](),
	}
}

// Dependencies holds the worker manager collaborators. Influx is optional.
type Dependencies struct {
	Queues     *Queues
	LogManager *logging.SlogManager
	Influx     *influx.Manager
}

// Manager periodically flushes queued telemetry to the backend.
type Manager struct {
	deps        Dependencies
	backend     storage.Backend
	log         *slog.Logger
	sessionName string
	interval    time.Duration
}

// NewManager creates a new worker manager.
func NewManager(deps Dependencies, backend storage.Backend, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Manager{
		deps:     deps,
		backend:  backend,
		log:      deps.LogManager.Logger().With("component", "worker"),
		interval: interval,
	}
}

// SetSessionName sets the tag used for mirrored metrics.
func (m *Manager) SetSessionName(name string) {
	m.sessionName = name
}

// Run drains the queues until ctx is done, then performs a final drain.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.DrainOnce(context.Background())
			return
		case <-ticker.C:
			m.DrainOnce(ctx)
		}
	}
}

// DrainOnce flushes everything currently queued. Errors are logged and the
// remaining queues still drain; telemetry loss is preferable to backpressure
// into the physics tick.
func (m *Manager) DrainOnce(ctx context.Context) {
	for _, s := range m.deps.Queues.Flight.Drain() {
		if err := m.backend.RecordFlightSample(&s); err != nil {
			m.log.Error("Failed to record flight sample", "error", err)
		}
		if m.deps.Influx != nil {
			if err := m.deps.Influx.WriteFlightSample(ctx, m.sessionName, &s); err != nil {
				m.log.Debug("Failed to mirror flight sample", "error", err)
			}
		}
	}
	for _, s := range m.deps.Queues.Ground.Drain() {
		if err := m.backend.RecordGroundSample(&s); err != nil {
			m.log.Error("Failed to record ground sample", "error", err)
		}
		if m.deps.Influx != nil {
			if err := m.deps.Influx.WriteGroundSample(ctx, m.sessionName, &s); err != nil {
				m.log.Debug("Failed to mirror ground sample", "error", err)
			}
		}
	}
	for _, s := range m.deps.Queues.Modes.Drain() {
		if err := m.backend.RecordModeChange(&s); err != nil {
			m.log.Error("Failed to record mode change", "error", err)
		}
	}
	for _, s := range m.deps.Queues.Perf.Drain() {
		if err := m.backend.RecordPerfSample(&s); err != nil {
			m.log.Error("Failed to record perf sample", "error", err)
		}
		if m.deps.Influx != nil {
			if err := m.deps.Influx.WritePerfSample(ctx, m.sessionName, &s); err != nil {
				m.log.Debug("Failed to mirror perf sample", "error", err)
			}
		}
	}
}

// DBWriteDurationProvider is an optional interface backends implement to
// expose their last write duration for monitoring.
type DBWriteDurationProvider interface {
	LastWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last backend write
// cycle, or 0 when the backend does not track it.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.LastWriteDuration()
	}
	return 0
}
