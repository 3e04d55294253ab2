// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/aeroterra/sim/internal/config"
	"github.com/aeroterra/sim/internal/database"
	"github.com/aeroterra/sim/internal/geo"
	"github.com/aeroterra/sim/internal/logging"
	"github.com/aeroterra/sim/internal/storage/gormdb"
	"github.com/aeroterra/sim/internal/storage/memory"
	"github.com/aeroterra/sim/internal/storage/postgres"
	"github.com/aeroterra/sim/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, proj *geo.Projector, logManager *logging.SlogManager, db *database.Manager) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		return sqlite.New(sqlite.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, gormdb.Dependencies{Projector: proj, LogManager: logManager})
	case "postgres":
		return postgres.New(gormdb.Dependencies{Projector: proj, LogManager: logManager}, db)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
