package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteguard/internal/models"
)

func TestNew_Memory(t *testing.T) {
	s, err := New(models.StorageConfig{Type: models.StorageTypeMemory})
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &MemoryStore{}, s)
}

func TestNew_SQLite(t *testing.T) {
	s, err := New(models.StorageConfig{
		Type: models.StorageTypeSQLite,
		Database: models.DatabaseConfig{
			DSN: filepath.Join(t.TempDir(), "events.db"),
		},
	})
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &SQLiteStore{}, s)
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(models.StorageConfig{Type: "cassandra"})
	assert.Error(t, err)
}
