// Package sqlite stores telemetry in an in-memory SQLite database and
// periodically dumps it to disk with VACUUM INTO so a crash loses at most
// one dump interval.
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aeroterra/sim/internal/database"
	"github.com/aeroterra/sim/internal/storage/gormdb"
)

// Config holds the dump schedule.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string
}

// Backend wraps the shared GORM backend with an in-memory SQLite connection.
type Backend struct {
	*gormdb.Backend
	cfg Config

	mu       sync.Mutex
	lastDump string
	stop     chan struct{}
	done     chan struct{}
}

// New opens the in-memory database and builds the backend. The dump path is
// required; without one every dump would fail silently until Close.
func New(cfg Config, deps gormdb.Dependencies) (*Backend, error) {
	if cfg.DumpPath == "" {
		return nil, fmt.Errorf("sqlite dump path not configured")
	}
	db, err := database.GetSqliteDBStandalone("")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory sqlite: %w", err)
	}
	if cfg.DumpInterval <= 0 {
		cfg.DumpInterval = time.Minute
	}
	return &Backend{
		Backend: gormdb.New(db, deps),
		cfg:     cfg,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Init migrates the schema and starts the dump loop.
func (b *Backend) Init() error {
	if err := os.MkdirAll(filepath.Dir(b.cfg.DumpPath), 0o755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	if err := b.Backend.Init(); err != nil {
		return err
	}
	go b.dumpLoop()
	return nil
}

// Close stops the dump loop, flushes and writes a final dump.
func (b *Backend) Close() error {
	close(b.stop)
	<-b.done
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.dump()
}

// ExportedFilePath returns the most recent dump file.
func (b *Backend) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDump
}

func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = b.dump()
		case <-b.stop:
			return
		}
	}
}

// dump snapshots the in-memory database to disk. VACUUM INTO refuses to
// overwrite, so any previous file at the path is removed first.
func (b *Backend) dump() error {
	if err := os.Remove(b.cfg.DumpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove previous dump: %w", err)
	}
	if err := b.DB().Exec("VACUUM INTO ?", b.cfg.DumpPath).Error; err != nil {
		return fmt.Errorf("failed to dump database: %w", err)
	}
	b.mu.Lock()
	b.lastDump = b.cfg.DumpPath
	b.mu.Unlock()
	return nil
}
