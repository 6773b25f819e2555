package storage

import (
	"fmt"
	"strings"

	"weather-observer/src/logger"
	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------
// ArchiveBackend
//
// The filesystem rendition of the storage contract: the location catalog
// plus one history archive per location, all inside the weather directory.
// -----------------------------------------------------------------------------

type ArchiveBackend struct {
	dir      *WeatherDir
	catalog  *Locations
	usCities *USCities
	logger   *logger.Logger
}

// -----------------------------------------------------------------------------

// NewArchiveBackend opens the filesystem backend over the weather directory.
// Stray archive staging files from an interrupted update are removed.
func NewArchiveBackend(dir *WeatherDir, usCities *USCities, log *logger.Logger) (*ArchiveBackend, error) {
	catalog, err := OpenLocations(dir, log)
	if err != nil {
		return nil, err
	}
	backend := &ArchiveBackend{dir: dir, catalog: catalog, usCities: usCities, logger: log}
	sweepStaging(dir, log)
	return backend, nil
}

// -----------------------------------------------------------------------------

// sweepStaging drops `.upd`/`.bu` leftovers from interrupted archive updates.
// Both backends run it at construction.
func sweepStaging(dir *WeatherDir, log *logger.Logger) {
	aliases, err := dir.ArchiveAliases()
	if err != nil {
		log.Warning("archive staging sweep failed: %v", err)
		return
	}
	for _, alias := range aliases {
		live := dir.Archive(alias)
		for _, ext := range []string{updateExt, backupExt} {
			stray := live.WithExtension(ext)
			if !stray.Exists() {
				continue
			}
			log.Warning("removing stray archive file %s", stray.Filename)
			if err := stray.Remove(); err != nil {
				log.Warning("stray archive file %s was not removed: %v", stray.Filename, err)
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (b *ArchiveBackend) AddDailyHistories(histories models.MDailyHistories) (int, error) {
	location, err := b.catalog.Get(histories.Location.Alias)
	if err != nil {
		return 0, err
	}
	archive, err := OpenArchive(b.dir, location.Alias, b.logger)
	if err != nil {
		return 0, err
	}
	dates, err := archive.Append(histories.Histories)
	if err != nil {
		return 0, err
	}
	b.logger.Info("stored %d histories for '%s'", len(dates), location.Alias)
	return len(dates), nil
}

// -----------------------------------------------------------------------------

func (b *ArchiveBackend) GetDailyHistories(filters models.MLocationFilters, dateRange models.MDateRange) (models.MDailyHistories, error) {
	location, err := b.catalog.FindOne(filters)
	if err != nil {
		return models.MDailyHistories{}, err
	}
	archive, err := OpenArchive(b.dir, location.Alias, b.logger)
	if err != nil {
		return models.MDailyHistories{}, err
	}
	histories, err := archive.Histories(dateRange)
	if err != nil {
		return models.MDailyHistories{}, err
	}
	return models.MDailyHistories{Location: location, Histories: histories}, nil
}

// -----------------------------------------------------------------------------

func (b *ArchiveBackend) GetHistoryDates(filters models.MLocationFilters) ([]models.MHistoryDates, error) {
	var results []models.MHistoryDates
	for _, location := range b.catalog.Find(filters) {
		archive, err := OpenArchive(b.dir, location.Alias, b.logger)
		if err != nil {
			return nil, err
		}
		dates, err := archive.Dates()
		if err != nil {
			return nil, err
		}
		results = append(results, models.MHistoryDates{
			Location:   location,
			DateRanges: models.BuildDateRanges(dates),
		})
	}
	return results, nil
}

// -----------------------------------------------------------------------------

func (b *ArchiveBackend) GetHistorySummaries(filters models.MLocationFilters) ([]models.MHistorySummaries, error) {
	var results []models.MHistorySummaries
	for _, location := range b.catalog.Find(filters) {
		archive, err := OpenArchive(b.dir, location.Alias, b.logger)
		if err != nil {
			return nil, err
		}
		summary, err := archive.Summary()
		if err != nil {
			return nil, err
		}
		summary.Location = location
		results = append(results, summary)
	}
	return results, nil
}

// -----------------------------------------------------------------------------

func (b *ArchiveBackend) GetLocations(filters models.MLocationFilters) ([]models.MLocation, error) {
	return b.catalog.Find(filters), nil
}

// -----------------------------------------------------------------------------

func (b *ArchiveBackend) AddLocation(location models.MLocation) error {
	if err := b.catalog.Add(location); err != nil {
		return err
	}
	added, err := b.catalog.Get(strings.ToLower(strings.TrimSpace(location.Alias)))
	if err != nil {
		return err
	}
	if _, err := CreateArchive(b.dir, added.Alias, b.logger); err != nil {
		return fmt.Errorf("location '%s' added but archive creation failed: %w", added.Alias, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (b *ArchiveBackend) SearchLocations(filter models.MCityFilter) ([]models.MLocation, error) {
	return b.usCities.Cities(filter)
}

// -----------------------------------------------------------------------------

func (b *ArchiveBackend) GetStates() ([]models.MState, error) {
	return b.usCities.States()
}

// -----------------------------------------------------------------------------

func (b *ArchiveBackend) Close() error {
	return b.usCities.Close()
}
