package storage

import (
	"bytes"
	"compress/flate"
	"encoding/json"
	"fmt"
	"time"

	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------
// History document codec
//
// Histories are serialized as flat JSON documents. Field names are part of
// the stored format and must not change; absent metrics stay absent in the
// document and come back as nil pointers.
// -----------------------------------------------------------------------------

type historyDocument struct {
	Date       string   `json:"date"`
	TempMax    *float64 `json:"tempmax,omitempty"`
	TempMin    *float64 `json:"tempmin,omitempty"`
	TempMean   *float64 `json:"tempmean,omitempty"`
	DewPoint   *float64 `json:"dewpoint,omitempty"`
	Humidity   *float64 `json:"humidity,omitempty"`
	Precip     *float64 `json:"precip,omitempty"`
	PrecipProb *float64 `json:"precipprob,omitempty"`
	PrecipType *string  `json:"preciptype,omitempty"`
	WindSpeed  *float64 `json:"wind,omitempty"`
	WindGust   *float64 `json:"windgust,omitempty"`
	WindDir    *float64 `json:"winddir,omitempty"`
	Pressure   *float64 `json:"pressure,omitempty"`
	Cloud      *float64 `json:"cloud,omitempty"`
	UV         *float64 `json:"uv,omitempty"`
	Visibility *float64 `json:"vis,omitempty"`
	Moon       *float64 `json:"moon,omitempty"`
	Sunrise    *int64   `json:"sunrise,omitempty"`
	Sunset     *int64   `json:"sunset,omitempty"`
	Summary    *string  `json:"summary,omitempty"`
}

// -----------------------------------------------------------------------------

// EncodeHistory serializes a history into its stored document form.
// Sunrise and sunset become epoch seconds.
func EncodeHistory(history models.MHistory) ([]byte, error) {
	doc := historyDocument{
		Date:       history.Date.Format(models.DateFormat),
		TempMax:    history.TempMax,
		TempMin:    history.TempMin,
		TempMean:   history.TempMean,
		DewPoint:   history.DewPoint,
		Humidity:   history.Humidity,
		Precip:     history.Precip,
		PrecipProb: history.PrecipProb,
		PrecipType: history.PrecipType,
		WindSpeed:  history.WindSpeed,
		WindGust:   history.WindGust,
		WindDir:    history.WindDir,
		Pressure:   history.Pressure,
		Cloud:      history.Cloud,
		UV:         history.UV,
		Visibility: history.Visibility,
		Moon:       history.Moon,
		Summary:    history.Summary,
	}
	if history.Sunrise != nil {
		epoch := history.Sunrise.Unix()
		doc.Sunrise = &epoch
	}
	if history.Sunset != nil {
		epoch := history.Sunset.Unix()
		doc.Sunset = &epoch
	}

	data, err := json.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("history document for %s: %w", doc.Date, err)
	}
	return data, nil
}

// -----------------------------------------------------------------------------

// DecodeHistory deserializes a stored document back into a history for the
// location alias.
func DecodeHistory(alias string, data []byte) (models.MHistory, error) {
	var doc historyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.MHistory{}, fmt.Errorf("history document for '%s': %w", alias, err)
	}

	date, err := time.ParseInLocation(models.DateFormat, doc.Date, time.UTC)
	if err != nil {
		return models.MHistory{}, fmt.Errorf("history document for '%s': bad date '%s': %w", alias, doc.Date, err)
	}

	history := models.MHistory{
		Alias:      alias,
		Date:       date,
		TempMax:    doc.TempMax,
		TempMin:    doc.TempMin,
		TempMean:   doc.TempMean,
		DewPoint:   doc.DewPoint,
		Humidity:   doc.Humidity,
		Precip:     doc.Precip,
		PrecipProb: doc.PrecipProb,
		PrecipType: doc.PrecipType,
		WindSpeed:  doc.WindSpeed,
		WindGust:   doc.WindGust,
		WindDir:    doc.WindDir,
		Pressure:   doc.Pressure,
		Cloud:      doc.Cloud,
		UV:         doc.UV,
		Visibility: doc.Visibility,
		Moon:       doc.Moon,
		Summary:    doc.Summary,
	}
	if doc.Sunrise != nil {
		t := time.Unix(*doc.Sunrise, 0).UTC()
		history.Sunrise = &t
	}
	if doc.Sunset != nil {
		t := time.Unix(*doc.Sunset, 0).UTC()
		history.Sunset = &t
	}
	return history, nil
}

// -----------------------------------------------------------------------------

// CompressedSize returns the deflate-compressed length of a document, the
// same cost an archive entry would pay for it.
func CompressedSize(data []byte) (int64, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(data); err != nil {
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return int64(buf.Len()), nil
}
