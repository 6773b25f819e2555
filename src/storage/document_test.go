package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------

func float(v float64) *float64   { return &v }
func text(v string) *string      { return &v }
func instant(v int64) *time.Time { t := time.Unix(v, 0).UTC(); return &t }

func day(value string) time.Time {
	t, err := time.ParseInLocation(models.DateFormat, value, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

// -----------------------------------------------------------------------------

func TestHistoryRoundTrip(t *testing.T) {
	history := models.MHistory{
		Alias:      "kfalls",
		Date:       day("2024-02-27"),
		TempMax:    float(45.2),
		TempMin:    float(28.1),
		Precip:     float(0.03),
		PrecipType: text("rain,snow"),
		Sunrise:    instant(1709043000),
		Sunset:     instant(1709082600),
		Summary:    text("Partly cloudy throughout the day."),
	}

	data, err := EncodeHistory(history)
	require.NoError(t, err)

	decoded, err := DecodeHistory("kfalls", data)
	require.NoError(t, err)
	assert.Equal(t, history, decoded)
}

// -----------------------------------------------------------------------------

func TestHistoryAbsentFieldsStayAbsent(t *testing.T) {
	history := models.MHistory{Alias: "kfalls", Date: day("2024-02-27")}

	data, err := EncodeHistory(history)
	require.NoError(t, err)

	// only the date appears in the document
	var document map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &document))
	assert.Equal(t, map[string]interface{}{"date": "2024-02-27"}, document)

	decoded, err := DecodeHistory("kfalls", data)
	require.NoError(t, err)
	assert.Nil(t, decoded.TempMax)
	assert.Nil(t, decoded.Sunrise)
	assert.Nil(t, decoded.Summary)
}

// -----------------------------------------------------------------------------

func TestHistoryDocumentFieldNames(t *testing.T) {
	history := models.MHistory{
		Date:       day("2024-02-27"),
		TempMean:   float(36.0),
		DewPoint:   float(30.5),
		WindSpeed:  float(7.2),
		Cloud:      float(55.0),
		UV:         float(3.0),
		Visibility: float(9.9),
		Moon:       float(0.58),
	}
	data, err := EncodeHistory(history)
	require.NoError(t, err)

	var document map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &document))
	for _, field := range []string{"tempmean", "dewpoint", "wind", "cloud", "uv", "vis", "moon"} {
		assert.Contains(t, document, field)
	}
}

// -----------------------------------------------------------------------------

func TestDecodeHistoryBadDocument(t *testing.T) {
	_, err := DecodeHistory("kfalls", []byte("not json"))
	assert.Error(t, err)

	_, err = DecodeHistory("kfalls", []byte(`{"date":"02/27/2024"}`))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestCompressedSize(t *testing.T) {
	document := []byte(`{"date":"2024-02-27","tempmax":45.2,"tempmin":28.1}`)
	size, err := CompressedSize(document)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}
