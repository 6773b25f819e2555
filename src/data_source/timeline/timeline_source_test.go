package timeline

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-observer/src/logger"
	"weather-observer/src/models"
	"weather-observer/src/network"
)

// -----------------------------------------------------------------------------

const timelineBody = `{
	"days": [
		{"datetime": "2024-02-27", "tempmax": 45.2, "tempmin": 28.1,
		 "preciptype": ["rain", "snow"], "sunriseEpoch": 1709043000,
		 "description": "Partly cloudy throughout the day."},
		{"datetime": "2024-02-28", "tempmax": 41.0}
	]
}`

func testSource(t *testing.T, handler http.HandlerFunc) (*TimelineSource, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &models.MConfig{
		Network:  models.MNetworkConfig{RequestTimeout: 5},
		Timeline: models.MTimelineConfig{Endpoint: server.URL, APIKey: "test-key"},
	}
	log := logger.NewLogger("ERROR", "test")
	return NewTimelineSource(cfg, network.NewAsyncNetworkManager(cfg, log), log), server
}

func kfalls() models.MLocation {
	return models.MLocation{
		Alias:     "kfalls",
		Latitude:  "42.2191",
		Longitude: "-121.7754",
	}
}

func dateRange(t *testing.T, from, thru string) models.MDateRange {
	t.Helper()
	start, err := time.ParseInLocation(models.DateFormat, from, time.UTC)
	require.NoError(t, err)
	end, err := time.ParseInLocation(models.DateFormat, thru, time.UTC)
	require.NoError(t, err)
	r, err := models.NewDateRange(start, end)
	require.NoError(t, err)
	return r
}

// -----------------------------------------------------------------------------

func TestTimelineFetch(t *testing.T) {
	var gotPath, gotKey string
	source, _ := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		fmt.Fprint(w, timelineBody)
	})

	require.NoError(t, source.Execute(kfalls(), dateRange(t, "2024-02-27", "2024-02-28")))
	result, err := source.Get()
	require.NoError(t, err)

	assert.Equal(t, "/42.2191,-121.7754/2024-02-27/2024-02-28", gotPath)
	assert.Equal(t, "test-key", gotKey)

	require.Len(t, result.Histories, 2)
	first := result.Histories[0]
	assert.Equal(t, "kfalls", first.Alias)
	assert.Equal(t, 45.2, *first.TempMax)
	assert.Equal(t, "rain,snow", *first.PrecipType)
	assert.Equal(t, int64(1709043000), first.Sunrise.Unix())
	assert.Nil(t, result.Histories[1].TempMin)
}

// -----------------------------------------------------------------------------

func TestTimelineSingleDayPath(t *testing.T) {
	var gotPath string
	source, _ := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"days": []}`)
	})

	require.NoError(t, source.Execute(kfalls(), dateRange(t, "2024-02-27", "2024-02-27")))
	_, err := source.Get()
	require.NoError(t, err)
	assert.Equal(t, "/42.2191,-121.7754/2024-02-27", gotPath)
}

// -----------------------------------------------------------------------------

func TestTimelineSingleRequestAtATime(t *testing.T) {
	release := make(chan struct{})
	source, _ := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `{"days": []}`)
	})

	require.NoError(t, source.Execute(kfalls(), dateRange(t, "2024-02-27", "2024-02-27")))
	assert.Error(t, source.Execute(kfalls(), dateRange(t, "2024-02-27", "2024-02-27")))

	done, err := source.Poll()
	require.NoError(t, err)
	assert.False(t, done)

	close(release)
	_, err = source.Get()
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------

func TestTimelineGetConsumes(t *testing.T) {
	source, _ := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, timelineBody)
	})

	require.NoError(t, source.Execute(kfalls(), dateRange(t, "2024-02-27", "2024-02-28")))
	first, err := source.Get()
	require.NoError(t, err)
	assert.Len(t, first.Histories, 2)

	// the request was consumed
	second, err := source.Get()
	require.NoError(t, err)
	assert.Empty(t, second.Histories)

	_, err = source.Poll()
	assert.Error(t, err, "no request is active after Get")
}

// -----------------------------------------------------------------------------

func TestTimelinePollWithoutRequest(t *testing.T) {
	source, _ := testSource(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := source.Poll()
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestTimelineBadResponse(t *testing.T) {
	source, _ := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	})

	require.NoError(t, source.Execute(kfalls(), dateRange(t, "2024-02-27", "2024-02-27")))
	_, err := source.Get()
	assert.Error(t, err)
}
