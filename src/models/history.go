package models

import "time"

// -----------------------------------------------------------------------------

// MHistory holds one day of weather history for a location. Every metric is
// optional; a nil pointer means the value was never reported and must stay
// absent when the history is stored or returned.
type MHistory struct {
	Alias      string
	Date       time.Time
	TempMax    *float64
	TempMin    *float64
	TempMean   *float64
	DewPoint   *float64
	Humidity   *float64
	Precip     *float64
	PrecipProb *float64
	PrecipType *string
	WindSpeed  *float64
	WindGust   *float64
	WindDir    *float64
	Pressure   *float64
	Cloud      *float64
	UV         *float64
	Visibility *float64
	Moon       *float64
	Sunrise    *time.Time
	Sunset     *time.Time
	Summary    *string
}

// -----------------------------------------------------------------------------

// MDailyHistories pairs a location with its daily histories.
type MDailyHistories struct {
	Location  MLocation
	Histories []MHistory
}
