// Package postgres stores telemetry in Postgres through the database
// manager, which falls back to local SQLite when the server is down.
package postgres

import (
	"fmt"

	"github.com/aeroterra/sim/internal/database"
	"github.com/aeroterra/sim/internal/storage/gormdb"
)

// Backend wraps the shared GORM backend with a managed server connection.
type Backend struct {
	*gormdb.Backend
	manager *database.Manager
}

// New connects through the manager and builds the backend.
func New(deps gormdb.Dependencies, manager *database.Manager) (*Backend, error) {
	if manager == nil {
		return nil, fmt.Errorf("nil database manager")
	}
	if manager.DB == nil {
		if err := manager.Connect(); err != nil {
			return nil, err
		}
	}
	return &Backend{
		Backend: gormdb.New(manager.DB, deps),
		manager: manager,
	}, nil
}

// Init migrates the schema.
func (b *Backend) Init() error {
	return b.manager.Setup()
}

// Close flushes buffered samples and releases the connection.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.manager.SqlDB != nil {
		return b.manager.SqlDB.Close()
	}
	return nil
}
