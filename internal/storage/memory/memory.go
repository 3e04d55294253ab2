// Package memory is the zero-dependency storage backend: samples are held
// in memory and written out as a single JSON document when the session ends.
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aeroterra/sim/internal/config"
	"github.com/aeroterra/sim/pkg/core"
)

// Recording is the exported document layout.
type Recording struct {
	Session       core.Session        `json:"session"`
	FlightSamples []core.FlightSample `json:"flightSamples"`
	GroundSamples []core.GroundSample `json:"groundSamples"`
	ModeChanges   []core.ModeChange   `json:"modeChanges"`
	PerfSamples   []core.PerfSample   `json:"perfSamples"`
}

// Backend accumulates telemetry in memory.
type Backend struct {
	cfg config.MemoryConfig

	mu       sync.Mutex
	rec      Recording
	active   bool
	nextID   uint
	exported string
}

// New creates an in-memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg, nextID: 1}
}

func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		b.cfg.OutputDir = "."
	}
	return os.MkdirAll(b.cfg.OutputDir, 0o755)
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		return b.exportLocked()
	}
	return nil
}

// StartSession begins accumulation and assigns a session ID.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		return fmt.Errorf("session already active")
	}
	s.ID = b.nextID
	b.nextID++
	b.rec = Recording{Session: *s}
	b.active = true
	return nil
}

// EndSession writes the recording to disk.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return fmt.Errorf("no active session")
	}
	b.rec.Session.EndTime = time.Now()
	if err := b.exportLocked(); err != nil {
		return err
	}
	b.active = false
	return nil
}

func (b *Backend) RecordFlightSample(s *core.FlightSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.FlightSamples = append(b.rec.FlightSamples, *s)
	return nil
}

func (b *Backend) RecordGroundSample(s *core.GroundSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.GroundSamples = append(b.rec.GroundSamples, *s)
	return nil
}

func (b *Backend) RecordModeChange(m *core.ModeChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.ModeChanges = append(b.rec.ModeChanges, *m)
	return nil
}

func (b *Backend) RecordPerfSample(p *core.PerfSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.PerfSamples = append(b.rec.PerfSamples, *p)
	return nil
}

// ExportedFilePath returns the path written by the last EndSession.
func (b *Backend) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exported
}

func (b *Backend) exportLocked() error {
	name := b.rec.Session.Name
	if name == "" {
		name = "session"
	}
	name = strings.ReplaceAll(name, " ", "_")
	stamp := b.rec.Session.StartTime.Format("2006-01-02_15-04-05")

	path := filepath.Join(b.cfg.OutputDir, fmt.Sprintf("%s_%s.json", name, stamp))
	if b.cfg.CompressOutput {
		path += ".gz"
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(f)
		if err := json.NewEncoder(gz).Encode(&b.rec); err != nil {
			gz.Close()
			return fmt.Errorf("failed to encode recording: %w", err)
		}
		if err := gz.Close(); err != nil {
			return err
		}
	} else {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(&b.rec); err != nil {
			return fmt.Errorf("failed to encode recording: %w", err)
		}
	}

	b.exported = path
	return nil
}
