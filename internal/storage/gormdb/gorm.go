// Package gormdb is the shared GORM-backed telemetry store the sqlite and
// postgres backends wrap. Samples are buffered and written in batches.
package gormdb

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aeroterra/sim/internal/geo"
	"github.com/aeroterra/sim/internal/logging"
	"github.com/aeroterra/sim/internal/model"
	"github.com/aeroterra/sim/pkg/core"
)

// flushThreshold is the buffered sample count that triggers a batch write.
const flushThreshold = 256

// Dependencies are the shared collaborators a GORM backend needs.
type Dependencies struct {
	Projector  *geo.Projector
	LogManager *logging.SlogManager
}

// Backend persists telemetry through a GORM connection.
type Backend struct {
	db   *gorm.DB
	deps Dependencies
	log  *slog.Logger

	mu        sync.Mutex
	session   *model.Session
	flight    []model.FlightSample
	ground    []model.GroundSample
	modes     []model.ModeChange
	perf      []model.PerfSample
	lastWrite time.Duration
}

// New creates a backend on an already-open GORM connection.
func New(db *gorm.DB, deps Dependencies) *Backend {
	return &Backend{
		db:   db,
		deps: deps,
		log:  deps.LogManager.Logger().With("component", "storage"),
	}
}

// Init migrates the telemetry schema.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close flushes pending samples.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

// StartSession inserts the session row and assigns its ID back onto s.
func (b *Backend) StartSession(s *core.Session) error {
	extra, err := json.Marshal(map[string]any{
		"tickRate": s.TickRate,
		"world":    s.World,
	})
	if err != nil {
		return err
	}

	row := model.Session{
		Name:      s.Name,
		StartTime: s.StartTime,
		TickRate:  s.TickRate,
		OriginLon: s.OriginLon,
		OriginLat: s.OriginLat,
		World:     s.World,
		Extra:     datatypes.JSON(extra),
	}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	b.mu.Lock()
	b.session = &row
	b.mu.Unlock()

	s.ID = row.ID
	b.log.Info("Session started", "id", row.ID, "name", row.Name)
	return nil
}

// EndSession flushes pending samples and stamps the session end time.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no active session")
	}
	if err := b.flushLocked(); err != nil {
		return err
	}

	b.session.EndTime = time.Now()
	if err := b.db.Model(b.session).Update("end_time", b.session.EndTime).Error; err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	b.session = nil
	return nil
}

// RecordFlightSample buffers one flight telemetry row.
func (b *Backend) RecordFlightSample(s *core.FlightSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flight = append(b.flight, model.FlightSample{
		SessionID:     s.SessionID,
		Time:          s.Time,
		Tick:          s.Tick,
		Position:      b.deps.Projector.WKB3857(s.Position),
		HeadingDeg:    s.HeadingDeg,
		Speed:         s.Speed,
		Altitude:      s.Altitude,
		VerticalSpeed: s.VerticalSpeed,
		ThrottlePct:   s.ThrottlePct,
		AoADeg:        s.AoADeg,
		Stalled:       s.Stalled,
	})
	return b.maybeFlushLocked()
}

// RecordGroundSample buffers one ground telemetry row.
func (b *Backend) RecordGroundSample(s *core.GroundSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ground = append(b.ground, model.GroundSample{
		SessionID:      s.SessionID,
		Time:           s.Time,
		Tick:           s.Tick,
		Position:       b.deps.Projector.WKB3857(s.Position),
		HeadingDeg:     s.HeadingDeg,
		Speed:          s.Speed,
		SteerDeg:       s.SteerDeg,
		Braking:        s.Braking,
		Grounded:       s.Grounded,
		WheelsGrounded: s.WheelsGrounded,
	})
	return b.maybeFlushLocked()
}

// RecordModeChange writes one mode transition row immediately. Transitions
// are rare and ordering against a crash matters more than batching.
func (b *Backend) RecordModeChange(m *core.ModeChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modes = append(b.modes, model.ModeChange{
		SessionID: m.SessionID,
		Time:      m.Time,
		Tick:      m.Tick,
		FromMode:  string(m.From),
		ToMode:    string(m.To),
		Position:  b.deps.Projector.WKB3857(m.Position),
		Relocated: m.Relocated,
	})
	return b.flushLocked()
}

// RecordPerfSample buffers one performance snapshot.
func (b *Backend) RecordPerfSample(p *core.PerfSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.perf = append(b.perf, model.PerfSample{
		SessionID:           p.SessionID,
		Time:                p.Time,
		Tick:                p.Tick,
		TickDurationMs:      p.TickDurationMs,
		FlightQueueLen:      p.FlightQueueLen,
		GroundQueueLen:      p.GroundQueueLen,
		EventQueueLen:       p.EventQueueLen,
		LastWriteDurationMs: p.LastWriteDurationMs,
	})
	return b.maybeFlushLocked()
}

// LastWriteDuration reports how long the most recent batch write took.
func (b *Backend) LastWriteDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastWrite
}

func (b *Backend) maybeFlushLocked() error {
	if len(b.flight)+len(b.ground)+len(b.perf) < flushThreshold {
		return nil
	}
	return b.flushLocked()
}

func (b *Backend) flushLocked() error {
	start := time.Now()

	if len(b.flight) > 0 {
		if err := b.db.Create(&b.flight).Error; err != nil {
			return fmt.Errorf("failed to write flight samples: %w", err)
		}
		b.flight = b.flight[:0]
	}
	if len(b.ground) > 0 {
		if err := b.db.Create(&b.ground).Error; err != nil {
			return fmt.Errorf("failed to write ground samples: %w", err)
		}
		b.ground = b.ground[:0]
	}
	if len(b.modes) > 0 {
		if err := b.db.Create(&b.modes).Error; err != nil {
			return fmt.Errorf("failed to write mode changes: %w", err)
		}
		b.modes = b.modes[:0]
	}
	if len(b.perf) > 0 {
		if err := b.db.Create(&b.perf).Error; err != nil {
			return fmt.Errorf("failed to write perf samples: %w", err)
		}
		b.perf = b.perf[:0]
	}

	b.lastWrite = time.Since(start)
	return nil
}

// DB exposes the underlying connection for backend-specific maintenance.
func (b *Backend) DB() *gorm.DB {
	return b.db
}
