package interfaces

import "weather-observer/src/models"

// -----------------------------------------------------------------------------
// IBackend defines the contract for weather history storage. The backend is
// chosen once at startup; callers never learn whether archives or a database
// sit behind it.
// -----------------------------------------------------------------------------

type IBackend interface {

	// -----------------------------------------------------------------------------

	// AddDailyHistories stores daily histories for a location, overwriting
	// any history already held for the same date. It returns how many
	// histories were written.
	AddDailyHistories(histories models.MDailyHistories) (int, error)

	// -----------------------------------------------------------------------------

	// GetDailyHistories returns the histories of exactly one location within
	// the date range, ascending by date. Zero matching locations is a
	// not-found error, more than one is ambiguous.
	GetDailyHistories(filters models.MLocationFilters, dateRange models.MDateRange) (models.MDailyHistories, error)

	// -----------------------------------------------------------------------------

	// GetHistoryDates returns, per matching location, the date ranges its
	// stored history covers.
	GetHistoryDates(filters models.MLocationFilters) ([]models.MHistoryDates, error)

	// -----------------------------------------------------------------------------

	// GetHistorySummaries returns, per matching location, counts and sizes
	// of the stored history.
	GetHistorySummaries(filters models.MLocationFilters) ([]models.MHistorySummaries, error)

	// -----------------------------------------------------------------------------

	// GetLocations returns the catalog locations accepted by the filters,
	// ordered by name.
	GetLocations(filters models.MLocationFilters) ([]models.MLocation, error)

	// -----------------------------------------------------------------------------

	// AddLocation validates and adds a location to the catalog. The alias
	// must be unique.
	AddLocation(location models.MLocation) error

	// -----------------------------------------------------------------------------

	// SearchLocations queries the US Cities reference database for locations
	// that could be added. An unpopulated reference database yields no rows.
	SearchLocations(filter models.MCityFilter) ([]models.MLocation, error)

	// -----------------------------------------------------------------------------

	// GetStates lists the US states known to the reference database.
	GetStates() ([]models.MState, error)

	// -----------------------------------------------------------------------------

	// Close releases the backend resources.
	Close() error
}
