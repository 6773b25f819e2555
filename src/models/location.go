package models

// MLocation Structure
//
// Latitude and longitude stay decimal strings so a location round-trips
// through the catalog file without float formatting drift.
type MLocation struct {
	Name      string `json:"name"`
	City      string `json:"city"`
	State     string `json:"state"`
	StateID   string `json:"state_id"`
	Alias     string `json:"alias"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	TZ        string `json:"tz"`
}
