package models

// -----------------------------------------------------------------------------

// MHistoryEvent is broadcast to websocket subscribers when histories are
// stored.
type MHistoryEvent struct {
	Type      string `json:"type"`
	Alias     string `json:"alias"`
	Count     int    `json:"count"`
	Timestamp int64  `json:"timestamp"`
}
