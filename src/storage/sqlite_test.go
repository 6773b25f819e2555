package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-observer/src/helpers"
	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------

func testSQLiteBackend(t *testing.T) (*SQLiteBackend, *WeatherDir) {
	t.Helper()
	dir := testDir(t)
	require.NoError(t, InitSQLiteDB(dir, false, false, 1, testLogger()))
	usCities, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)
	backend, err := NewSQLiteBackend(dir, usCities, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return backend, dir
}

// -----------------------------------------------------------------------------

func TestSQLiteBackendRequiresDatabase(t *testing.T) {
	dir := testDir(t)
	usCities, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)

	// the database file is only ever created through admin init
	_, err = NewSQLiteBackend(dir, usCities, testLogger())
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestSQLiteBackendLocations(t *testing.T) {
	backend, _ := testSQLiteBackend(t)

	require.NoError(t, backend.AddLocation(validLocation()))
	require.NoError(t, backend.AddLocation(pdxLocation()))

	err := backend.AddLocation(validLocation())
	assert.True(t, helpers.IsValidation(err), "duplicate alias, got %v", err)

	locations, err := backend.GetLocations(nil)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, "kfalls", locations[0].Alias)
	assert.Equal(t, "pdx", locations[1].Alias)

	matches, err := backend.GetLocations(models.MLocationFilters{{Name: "*falls*"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "kfalls", matches[0].Alias)
}

// -----------------------------------------------------------------------------

func TestSQLiteBackendHistoryFlow(t *testing.T) {
	backend, _ := testSQLiteBackend(t)
	require.NoError(t, backend.AddLocation(validLocation()))

	count, err := backend.AddDailyHistories(models.MDailyHistories{
		Location: models.MLocation{Alias: "kfalls"},
		Histories: []models.MHistory{
			{Alias: "kfalls", Date: day("2024-02-27"), TempMax: float(45.2)},
			{Alias: "kfalls", Date: day("2024-02-28"), TempMax: float(41.0)},
			{Alias: "kfalls", Date: day("2024-03-01"), TempMax: float(39.5)},
			{Alias: "kfalls", Date: day("2024-03-02"), TempMax: float(44.1)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	r, err := models.NewDateRange(day("2024-02-27"), day("2024-03-02"))
	require.NoError(t, err)
	histories, err := backend.GetDailyHistories(models.MLocationFilters{{Name: "kfalls"}}, r)
	require.NoError(t, err)
	require.Len(t, histories.Histories, 4)
	assert.Equal(t, day("2024-02-27"), histories.Histories[0].Date)
	assert.Equal(t, 45.2, *histories.Histories[0].TempMax)

	historyDates, err := backend.GetHistoryDates(models.MLocationFilters{{Name: "kfalls"}})
	require.NoError(t, err)
	require.Len(t, historyDates, 1)
	require.Len(t, historyDates[0].DateRanges, 2)

	summaries, err := backend.GetHistorySummaries(nil)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 4, summaries[0].Count)
	assert.Greater(t, summaries[0].RawSize, int64(0))
	assert.Greater(t, summaries[0].StoreSize, int64(0))
	assert.Greater(t, summaries[0].OverallSize, int64(0))
}

// -----------------------------------------------------------------------------

func TestSQLiteBackendUpsert(t *testing.T) {
	backend, _ := testSQLiteBackend(t)
	require.NoError(t, backend.AddLocation(validLocation()))

	store := func(temp float64) {
		count, err := backend.AddDailyHistories(models.MDailyHistories{
			Location: models.MLocation{Alias: "kfalls"},
			Histories: []models.MHistory{
				{Alias: "kfalls", Date: day("2024-02-27"), TempMax: float(temp)},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	}
	store(45.2)
	store(50.0)

	r, err := models.NewDateRange(day("2024-02-27"), day("2024-02-27"))
	require.NoError(t, err)
	histories, err := backend.GetDailyHistories(models.MLocationFilters{{Name: "kfalls"}}, r)
	require.NoError(t, err)
	require.Len(t, histories.Histories, 1)
	assert.Equal(t, 50.0, *histories.Histories[0].TempMax)
}

// -----------------------------------------------------------------------------

func TestSQLiteBackendCardinality(t *testing.T) {
	backend, _ := testSQLiteBackend(t)
	require.NoError(t, backend.AddLocation(validLocation()))
	require.NoError(t, backend.AddLocation(pdxLocation()))

	r, err := models.NewDateRange(day("2024-02-27"), day("2024-02-27"))
	require.NoError(t, err)

	_, err = backend.GetDailyHistories(models.MLocationFilters{{Name: "boise"}}, r)
	assert.True(t, helpers.IsNotFound(err))

	_, err = backend.GetDailyHistories(models.MLocationFilters{{State: "or"}}, r)
	assert.True(t, helpers.IsAmbiguous(err))
}

// -----------------------------------------------------------------------------

func TestSQLiteBackendSweepsStaging(t *testing.T) {
	dir := testDir(t)
	require.NoError(t, InitSQLiteDB(dir, false, false, 1, testLogger()))
	_, err := CreateArchive(dir, "kfalls", testLogger())
	require.NoError(t, err)

	// simulate an interrupted archive update
	require.NoError(t, dir.File("kfalls.upd").Touch())
	require.NoError(t, dir.File("kfalls.bu").Touch())

	usCities, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)
	backend, err := NewSQLiteBackend(dir, usCities, testLogger())
	require.NoError(t, err)
	defer backend.Close()

	assert.False(t, dir.File("kfalls.upd").Exists())
	assert.False(t, dir.File("kfalls.bu").Exists())
	assert.True(t, dir.Archive("kfalls").Exists())
}

// -----------------------------------------------------------------------------

func TestInitSQLiteDBLoadsArchives(t *testing.T) {
	dir := testDir(t)

	// build filesystem data first
	usCities, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)
	filesys, err := NewArchiveBackend(dir, usCities, testLogger())
	require.NoError(t, err)
	require.NoError(t, filesys.AddLocation(validLocation()))
	_, err = filesys.AddDailyHistories(models.MDailyHistories{
		Location: models.MLocation{Alias: "kfalls"},
		Histories: []models.MHistory{
			{Alias: "kfalls", Date: day("2024-02-27"), TempMax: float(45.2)},
			{Alias: "kfalls", Date: day("2024-02-28"), TempMax: float(41.0)},
		},
	})
	require.NoError(t, err)

	// replay it into a fresh relational store
	require.NoError(t, InitSQLiteDB(dir, true, true, 2, testLogger()))

	usCities2, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)
	backend, err := NewSQLiteBackend(dir, usCities2, testLogger())
	require.NoError(t, err)
	defer backend.Close()

	r, err := models.NewDateRange(day("2024-02-27"), day("2024-02-28"))
	require.NoError(t, err)
	histories, err := backend.GetDailyHistories(models.MLocationFilters{{Name: "kfalls"}}, r)
	require.NoError(t, err)
	require.Len(t, histories.Histories, 2)
	assert.Equal(t, 45.2, *histories.Histories[0].TempMax)
}

// -----------------------------------------------------------------------------

func TestSQLiteReload(t *testing.T) {
	dir := testDir(t)

	// archives hold one history
	usCities, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)
	filesys, err := NewArchiveBackend(dir, usCities, testLogger())
	require.NoError(t, err)
	require.NoError(t, filesys.AddLocation(validLocation()))
	_, err = filesys.AddDailyHistories(models.MDailyHistories{
		Location: models.MLocation{Alias: "kfalls"},
		Histories: []models.MHistory{
			{Alias: "kfalls", Date: day("2024-02-27"), TempMax: float(45.2)},
		},
	})
	require.NoError(t, err)
	require.NoError(t, InitSQLiteDB(dir, true, true, 1, testLogger()))

	usCities2, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)
	backend, err := NewSQLiteBackend(dir, usCities2, testLogger())
	require.NoError(t, err)
	defer backend.Close()

	// diverge the database from the archive, then reload repairs it
	_, err = backend.AddDailyHistories(models.MDailyHistories{
		Location: models.MLocation{Alias: "kfalls"},
		Histories: []models.MHistory{
			{Alias: "kfalls", Date: day("2024-06-01"), TempMax: float(80.0)},
		},
	})
	require.NoError(t, err)
	require.NoError(t, backend.Reload(models.MLocationFilters{{Name: "kfalls"}}))

	historyDates, err := backend.GetHistoryDates(nil)
	require.NoError(t, err)
	require.Len(t, historyDates, 1)
	require.Len(t, historyDates[0].DateRanges, 1)
	assert.Equal(t, day("2024-02-27"), historyDates[0].DateRanges[0].Start)
}

// -----------------------------------------------------------------------------

func TestDropSQLiteDB(t *testing.T) {
	dir := testDir(t)
	require.NoError(t, InitSQLiteDB(dir, false, false, 1, testLogger()))
	require.True(t, dir.File(DBFilename).Exists())

	require.NoError(t, DropSQLiteDB(dir, true, testLogger()))
	assert.False(t, dir.File(DBFilename).Exists())

	// dropping an absent database is fine
	require.NoError(t, DropSQLiteDB(dir, true, testLogger()))
}
