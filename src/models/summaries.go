package models

// -----------------------------------------------------------------------------

// MHistorySummaries describes how much history a location holds. Sizes are
// computed from the store when asked for, never cached.
type MHistorySummaries struct {
	Location    MLocation
	Count       int
	OverallSize int64
	RawSize     int64
	StoreSize   int64
}

// -----------------------------------------------------------------------------

// MState is a US state entry from the reference database.
type MState struct {
	Name    string
	StateID string
}

// -----------------------------------------------------------------------------

// MStateMetrics counts the reference database cities held for a state.
type MStateMetrics struct {
	Name      string
	StateID   string
	CityCount int
}
