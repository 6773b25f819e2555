package storage

import (
	"weather-observer/src/interfaces"
	"weather-observer/src/logger"
	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------
// Backend selection
// -----------------------------------------------------------------------------

// CreateBackend picks the storage backend for the weather directory. A
// relational database file selects the relational backend unless the
// configuration forces the filesystem; otherwise archives are used. The
// choice is made once, at startup.
func CreateBackend(cfg *models.MConfig, log *logger.Logger) (interfaces.IBackend, error) {
	dir, err := NewWeatherDir(cfg.Storage.WeatherDir)
	if err != nil {
		return nil, err
	}
	usCities, err := NewUSCities(dir, log)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Mode != "filesys" && dir.File(DBFilename).Exists() {
		log.Info("using relational backend (%s)", DBFilename)
		return NewSQLiteBackend(dir, usCities, log)
	}
	log.Info("using filesystem backend")
	return NewArchiveBackend(dir, usCities, log)
}
