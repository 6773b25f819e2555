package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-observer/src/helpers"
	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------

// seededArchive creates an archive holding one history so a failed update has
// prior content to fall back to.
func seededArchive(t *testing.T) (*WeatherDir, *HistoryArchive) {
	t.Helper()
	dir := testDir(t)
	archive, err := CreateArchive(dir, "kfalls", testLogger())
	require.NoError(t, err)
	_, err = archive.Append([]models.MHistory{
		{Alias: "kfalls", Date: day("2024-02-27"), TempMax: float(45.2)},
	})
	require.NoError(t, err)
	return dir, archive
}

// -----------------------------------------------------------------------------

func TestArchiveWriterRestoresBackupOnFailedSwap(t *testing.T) {
	dir, archive := seededArchive(t)

	w := newArchiveWriter("kfalls", dir.Archive("kfalls"), testLogger())
	w.rename = func(from, to WeatherFile) error {
		// the staged archive never makes it over the live one
		if from.Filename == w.update.Filename {
			return fmt.Errorf("rename interrupted")
		}
		return from.Rename(to)
	}

	document, err := EncodeHistory(models.MHistory{
		Alias: "kfalls", Date: day("2024-02-28"), TempMax: float(41.0),
	})
	require.NoError(t, err)

	err = w.Write(map[string][]byte{entryName("kfalls", day("2024-02-28")): document})
	require.Error(t, err)
	assert.False(t, helpers.IsUnrecoverable(err), "restored archive is recoverable: %v", err)

	// the previous archive came back intact and staging was cleaned up
	dates, err := archive.Dates()
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-02-27")}, dates)
	assert.False(t, dir.File("kfalls.upd").Exists())
	assert.False(t, dir.File("kfalls.bu").Exists())
}

// -----------------------------------------------------------------------------

func TestArchiveWriterUnrecoverableOnDoubleFailure(t *testing.T) {
	dir, _ := seededArchive(t)

	w := newArchiveWriter("kfalls", dir.Archive("kfalls"), testLogger())
	w.rename = func(from, to WeatherFile) error {
		return fmt.Errorf("rename interrupted")
	}

	document, err := EncodeHistory(models.MHistory{
		Alias: "kfalls", Date: day("2024-02-28"), TempMax: float(41.0),
	})
	require.NoError(t, err)

	err = w.Write(map[string][]byte{entryName("kfalls", day("2024-02-28")): document})
	require.Error(t, err)
	assert.True(t, helpers.IsUnrecoverable(err), "expected unrecoverable storage error, got %v", err)
	assert.True(t, dir.Archive("kfalls").Exists())
}
