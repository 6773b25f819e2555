package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------

// a two row cut of the simplemaps uscities CSV layout
const usCitiesCSV = `"city","city_ascii","state_id","state_name","county_fips","county_name","lat","lng","population","density","source","military","incorporated","timezone","ranking","zips","id"
"Portland","Portland","OR","Oregon","41051","Multnomah","45.5372","-122.6500","2052796","1802.4","shape","FALSE","TRUE","America/Los_Angeles","1","97229 97203","1840019941"
"Klamath Falls","Klamath Falls","OR","Oregon","41035","Klamath","42.2191","-121.7754","47771","751.3","shape","FALSE","TRUE","America/Los_Angeles","3","97601 97603","1840018674"
`

func writeCitiesCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uscities.csv")
	require.NoError(t, os.WriteFile(path, []byte(usCitiesCSV), 0644))
	return path
}

// -----------------------------------------------------------------------------

func TestUSCitiesLoadAndSearch(t *testing.T) {
	dir := testDir(t)
	usCities, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)
	defer usCities.Close()

	require.NoError(t, usCities.Load(writeCitiesCSV(t)))

	states, cities, zips, err := usCities.Info()
	require.NoError(t, err)
	assert.Equal(t, int64(1), states)
	assert.Equal(t, int64(2), cities)
	assert.Equal(t, int64(4), zips)

	locations, err := usCities.Cities(models.MCityFilter{Name: "klamath*"})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Klamath Falls, OR", locations[0].Name)
	assert.Equal(t, "klamath_falls_or", locations[0].Alias)
	assert.Equal(t, "America/Los_Angeles", locations[0].TZ)

	locations, err = usCities.Cities(models.MCityFilter{ZipCode: "97229"})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Portland", locations[0].City)

	stateList, err := usCities.States()
	require.NoError(t, err)
	require.Len(t, stateList, 1)
	assert.Equal(t, "Oregon", stateList[0].Name)
	assert.Equal(t, "OR", stateList[0].StateID)
}

// -----------------------------------------------------------------------------

func TestUSCitiesStateMetrics(t *testing.T) {
	dir := testDir(t)
	usCities, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)
	defer usCities.Close()
	require.NoError(t, usCities.Load(writeCitiesCSV(t)))

	metrics, err := usCities.StateMetrics()
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "Oregon", metrics[0].Name)
	assert.Equal(t, "OR", metrics[0].StateID)
	assert.Equal(t, 2, metrics[0].CityCount)
}

// -----------------------------------------------------------------------------

func TestUSCitiesLimit(t *testing.T) {
	dir := testDir(t)
	usCities, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)
	defer usCities.Close()
	require.NoError(t, usCities.Load(writeCitiesCSV(t)))

	locations, err := usCities.Cities(models.MCityFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, locations, 1)
}

// -----------------------------------------------------------------------------

func TestUSCitiesAbsent(t *testing.T) {
	dir := testDir(t)
	usCities, err := NewUSCities(dir, testLogger())
	require.NoError(t, err)

	locations, err := usCities.Cities(models.MCityFilter{Name: "*"})
	require.NoError(t, err)
	assert.Empty(t, locations)

	metrics, err := usCities.StateMetrics()
	require.NoError(t, err)
	assert.Empty(t, metrics)

	require.NoError(t, usCities.Load(writeCitiesCSV(t)))
	require.NoError(t, usCities.Delete())
	assert.False(t, dir.File(USCitiesFilename).Exists())
}
