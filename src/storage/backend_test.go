package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------

func backendConfig(dir string, mode string) *models.MConfig {
	return &models.MConfig{
		Name:    "test",
		Storage: models.MStorageConfig{WeatherDir: dir, Mode: mode},
	}
}

// -----------------------------------------------------------------------------

func TestCreateBackendDefaultsToFilesystem(t *testing.T) {
	dir := testDir(t)

	backend, err := CreateBackend(backendConfig(dir.Path(), "auto"), testLogger())
	require.NoError(t, err)
	defer backend.Close()

	_, ok := backend.(*ArchiveBackend)
	assert.True(t, ok, "expected the filesystem backend, got %T", backend)
}

// -----------------------------------------------------------------------------

func TestCreateBackendPicksDatabaseWhenPresent(t *testing.T) {
	dir := testDir(t)
	require.NoError(t, InitSQLiteDB(dir, false, false, 1, testLogger()))

	backend, err := CreateBackend(backendConfig(dir.Path(), "auto"), testLogger())
	require.NoError(t, err)
	defer backend.Close()

	_, ok := backend.(*SQLiteBackend)
	assert.True(t, ok, "expected the relational backend, got %T", backend)
}

// -----------------------------------------------------------------------------

func TestCreateBackendForcedFilesystem(t *testing.T) {
	dir := testDir(t)
	require.NoError(t, InitSQLiteDB(dir, false, false, 1, testLogger()))

	// the database file is there but the configuration wins
	backend, err := CreateBackend(backendConfig(dir.Path(), "filesys"), testLogger())
	require.NoError(t, err)
	defer backend.Close()

	_, ok := backend.(*ArchiveBackend)
	assert.True(t, ok, "expected the filesystem backend, got %T", backend)
}

// -----------------------------------------------------------------------------

func TestCreateBackendMissingDirectory(t *testing.T) {
	_, err := CreateBackend(backendConfig("/no/such/directory", "auto"), testLogger())
	assert.Error(t, err)
}
