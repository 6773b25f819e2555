package interfaces

import "weather-observer/src/models"

// -----------------------------------------------------------------------------
// IHistoryClient defines the contract for fetching daily histories from a
// weather service. One request may be in flight at a time.
// -----------------------------------------------------------------------------

type IHistoryClient interface {

	// -----------------------------------------------------------------------------

	// Execute starts fetching histories for the location over the date
	// range. It fails when a request is already active.
	Execute(location models.MLocation, dateRange models.MDateRange) error

	// -----------------------------------------------------------------------------

	// Poll reports without blocking whether the active request has finished.
	// It fails when no request is active.
	Poll() (bool, error)

	// -----------------------------------------------------------------------------

	// Get blocks until the active request finishes and returns its result,
	// consuming the request. A second Get returns an empty result.
	Get() (models.MDailyHistories, error)
}
