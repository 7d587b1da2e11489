package store

import (
	"fmt"

	"noteguard/internal/models"
)

// New instantiates an event store based on the provided configuration.
// Supported backends:
//   - memory: in-memory store (tests/development)
//   - sqlite: SQLite database (single-node deployments)
//   - postgres: PostgreSQL database (production)
func New(cfg models.StorageConfig) (EventStore, error) {
	switch cfg.Type {
	case models.StorageTypeMemory:
		return NewMemoryStore(), nil
	case models.StorageTypeSQLite:
		return NewSQLiteStore(cfg.Database.DSN)
	case models.StorageTypePostgres:
		return NewPostgresStore(cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
