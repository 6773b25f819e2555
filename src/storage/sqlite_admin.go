package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"weather-observer/src/helpers"
	"weather-observer/src/logger"
	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------
// Relational store administration
//
// The database file is only ever created, dropped or reloaded through these
// operations; the backend itself never mutates the schema.
// -----------------------------------------------------------------------------

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		state_id TEXT NOT NULL,
		alias TEXT NOT NULL UNIQUE,
		latitude TEXT NOT NULL,
		longitude TEXT NOT NULL,
		tz TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lid INTEGER NOT NULL REFERENCES locations (id),
		date TEXT NOT NULL,
		store_size INTEGER NOT NULL,
		size INTEGER NOT NULL,
		UNIQUE (lid, date)
	);
	CREATE TABLE IF NOT EXISTS history (
		mid INTEGER PRIMARY KEY REFERENCES metadata (id),
		data BLOB NOT NULL
	);
`

// -----------------------------------------------------------------------------

// InitSQLiteDB creates the relational store in the weather directory. With
// dropFirst the existing schema is dropped and rebuilt; with load the
// location catalog and every archive are replayed into the fresh schema
// using a pool of loader goroutines.
func InitSQLiteDB(dir *WeatherDir, dropFirst, load bool, threads int, log *logger.Logger) error {
	file := dir.File(DBFilename)
	db, err := openSQLite(file.Path(), log)
	if err != nil {
		return helpers.NewStorageError(fmt.Sprintf("database %s open failed", file.Filename), err)
	}
	defer db.Close()

	if dropFirst {
		if err := dropSchema(db); err != nil {
			return err
		}
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		return helpers.NewStorageError("schema create failed", err)
	}
	log.Info("initialized database %s", file.Filename)

	if !load {
		return nil
	}
	return loadFromArchives(db, dir, threads, log)
}

// -----------------------------------------------------------------------------

// DropSQLiteDB drops the schema and compacts the file, or deletes the file
// outright. Without the file the backend selection falls back to archives.
func DropSQLiteDB(dir *WeatherDir, deleteFile bool, log *logger.Logger) error {
	file := dir.File(DBFilename)
	if !file.Exists() {
		log.Warning("database %s does not exist", file.Filename)
		return nil
	}

	if deleteFile {
		log.Info("deleting database %s", file.Filename)
		return file.Remove()
	}

	db, err := openSQLite(file.Path(), log)
	if err != nil {
		return helpers.NewStorageError(fmt.Sprintf("database %s open failed", file.Filename), err)
	}
	defer db.Close()

	if err := dropSchema(db); err != nil {
		return err
	}
	if _, err := db.Exec("VACUUM"); err != nil {
		return helpers.NewStorageError("vacuum failed", err)
	}
	log.Info("dropped schema in %s", file.Filename)
	return nil
}

// -----------------------------------------------------------------------------

func dropSchema(db *sql.DB) error {
	for _, table := range []string{"history", "metadata", "locations"} {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return helpers.NewStorageError(fmt.Sprintf("drop of %s failed", table), err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Bulk load
// -----------------------------------------------------------------------------

type historyRow struct {
	date      string
	document  []byte
	storeSize int64
}

type archiveLoad struct {
	location models.MLocation
	rows     []historyRow
	err      error
}

// -----------------------------------------------------------------------------

// loadFromArchives copies the location catalog and every archive into the
// database. Archives are read by a pool of goroutines; the inserts stay on
// one writer, a transaction per location.
func loadFromArchives(db *sql.DB, dir *WeatherDir, threads int, log *logger.Logger) error {
	catalog, err := OpenLocations(dir, log)
	if err != nil {
		return err
	}
	locations := catalog.All()
	if len(locations) == 0 {
		log.Info("no locations to load")
		return nil
	}
	if threads < 1 {
		threads = 1
	}

	jobs := make(chan models.MLocation, len(locations))
	loads := make(chan archiveLoad, len(locations))
	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for location := range jobs {
				loads <- readArchiveRows(dir, location, log)
			}
		}()
	}
	for _, location := range locations {
		jobs <- location
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(loads)
	}()

	loaded := 0
	for load := range loads {
		if load.err != nil {
			return load.err
		}
		lid, err := insertLocation(db, load.location)
		if err != nil {
			return err
		}
		if err := insertRows(db, lid, load.rows); err != nil {
			return err
		}
		loaded += len(load.rows)
		log.Info("loaded %d histories for '%s'", len(load.rows), load.location.Alias)
	}
	log.Info("loaded %d histories for %d locations", loaded, len(locations))
	return nil
}

// -----------------------------------------------------------------------------

func readArchiveRows(dir *WeatherDir, location models.MLocation, log *logger.Logger) archiveLoad {
	load := archiveLoad{location: location}

	archive, err := OpenArchive(dir, location.Alias, log)
	if err != nil {
		load.err = err
		return load
	}
	load.err = archive.Documents(func(date time.Time, document []byte) error {
		storeSize, err := CompressedSize(document)
		if err != nil {
			return helpers.NewStorageError("history size failed", err)
		}
		load.rows = append(load.rows, historyRow{
			date:      date.Format(models.DateFormat),
			document:  document,
			storeSize: storeSize,
		})
		return nil
	})
	return load
}

// -----------------------------------------------------------------------------

func insertLocation(db *sql.DB, location models.MLocation) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO locations (name, city, state, state_id, alias, latitude, longitude, tz)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, location.Name, location.City, location.State, location.StateID,
		location.Alias, location.Latitude, location.Longitude, location.TZ)
	if err != nil {
		return 0, helpers.NewStorageError(fmt.Sprintf("location '%s' insert failed", location.Alias), err)
	}
	return result.LastInsertId()
}

// -----------------------------------------------------------------------------

func insertRows(db *sql.DB, lid int64, rows []historyRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return helpers.NewStorageError("load transaction begin failed", err)
	}
	defer tx.Rollback()

	insertMetadata, err := tx.Prepare("INSERT INTO metadata (lid, date, store_size, size) VALUES (?, ?, ?, ?)")
	if err != nil {
		return helpers.NewStorageError("metadata insert prepare failed", err)
	}
	defer insertMetadata.Close()

	insertHistory, err := tx.Prepare("INSERT INTO history (mid, data) VALUES (?, ?)")
	if err != nil {
		return helpers.NewStorageError("history insert prepare failed", err)
	}
	defer insertHistory.Close()

	for _, row := range rows {
		result, err := insertMetadata.Exec(lid, row.date, row.storeSize, int64(len(row.document)))
		if err != nil {
			return helpers.NewStorageError("metadata insert failed", err)
		}
		mid, err := result.LastInsertId()
		if err != nil {
			return helpers.NewStorageError("metadata insert failed", err)
		}
		if _, err := insertHistory.Exec(mid, row.document); err != nil {
			return helpers.NewStorageError("history insert failed", err)
		}
	}
	return tx.Commit()
}

// -----------------------------------------------------------------------------
// Reload
// -----------------------------------------------------------------------------

// Reload drops the stored history of the matching locations and replays
// their archives. It is the repair path when archives and database drift
// apart.
func (b *SQLiteBackend) Reload(filters models.MLocationFilters) error {
	locations, err := b.GetLocations(filters)
	if err != nil {
		return err
	}

	for _, location := range locations {
		lid, err := b.locationID(location.Alias)
		if err != nil {
			return err
		}

		load := readArchiveRows(b.dir, location, b.logger)
		if load.err != nil {
			return load.err
		}

		tx, err := b.db.Begin()
		if err != nil {
			return helpers.NewStorageError("reload transaction begin failed", err)
		}
		if _, err := tx.Exec("DELETE FROM history WHERE mid IN (SELECT id FROM metadata WHERE lid = ?)", lid); err != nil {
			tx.Rollback()
			return helpers.NewStorageError("history delete failed", err)
		}
		if _, err := tx.Exec("DELETE FROM metadata WHERE lid = ?", lid); err != nil {
			tx.Rollback()
			return helpers.NewStorageError("metadata delete failed", err)
		}
		if err := tx.Commit(); err != nil {
			return helpers.NewStorageError("reload transaction commit failed", err)
		}

		if err := insertRows(b.db, lid, load.rows); err != nil {
			return err
		}
		b.logger.Info("reloaded %d histories for '%s'", len(load.rows), location.Alias)
	}
	return nil
}
