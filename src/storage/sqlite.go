package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"weather-observer/src/helpers"
	"weather-observer/src/logger"
	"weather-observer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------
// SQLiteBackend
//
// The relational rendition of the storage contract: a single database file
// in the weather directory. Locations and a per-date metadata ledger are
// relational; the history itself is stored as the serialized document, one
// blob per date.
// -----------------------------------------------------------------------------

// DBFilename is the relational store file inside the weather directory.
const DBFilename = "weather_data.db"

type SQLiteBackend struct {
	dir      *WeatherDir
	db       *sql.DB
	usCities *USCities
	logger   *logger.Logger
}

// -----------------------------------------------------------------------------

// NewSQLiteBackend opens the relational backend. The database file must
// already exist; it is created through the admin initialize operation, never
// implicitly.
func NewSQLiteBackend(dir *WeatherDir, usCities *USCities, log *logger.Logger) (*SQLiteBackend, error) {
	file := dir.File(DBFilename)
	if !file.Exists() {
		return nil, helpers.NewStorageError(fmt.Sprintf("database %s does not exist", file.Filename), nil)
	}

	db, err := openSQLite(file.Path(), log)
	if err != nil {
		return nil, err
	}
	sweepStaging(dir, log)
	return &SQLiteBackend{dir: dir, db: db, usCities: usCities, logger: log}, nil
}

// -----------------------------------------------------------------------------

func openSQLite(path string, log *logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		log.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		log.Warning("Failed to set synchronous mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Warning("Failed to enable foreign keys: %v", err)
	}
	return db, nil
}

// -----------------------------------------------------------------------------
// Location queries
// -----------------------------------------------------------------------------

const locationColumns = "name, city, state, state_id, alias, latitude, longitude, tz"

// likePattern converts a filter pattern into a LIKE pattern.
func likePattern(pattern string) string {
	return strings.ReplaceAll(strings.ToLower(pattern), "*", "%")
}

// locationWhere builds the WHERE clause for a filter set. Filters OR
// together; criteria within a filter AND together.
func locationWhere(filters models.MLocationFilters) (string, []interface{}) {
	var groups []string
	var args []interface{}
	for _, f := range filters {
		if f.IsEmpty() {
			return "", nil
		}
		var criteria []string
		if f.Name != "" {
			criteria = append(criteria, "(LOWER(name) LIKE ? OR LOWER(alias) LIKE ?)")
			args = append(args, likePattern(f.Name), likePattern(f.Name))
		}
		if f.City != "" {
			criteria = append(criteria, "LOWER(city) LIKE ?")
			args = append(args, likePattern(f.City))
		}
		if f.State != "" {
			if len(f.State) > 2 {
				criteria = append(criteria, "(LOWER(state_id) LIKE ? OR LOWER(state) LIKE ?)")
				args = append(args, likePattern(f.State), likePattern(f.State))
			} else {
				criteria = append(criteria, "LOWER(state_id) LIKE ?")
				args = append(args, likePattern(f.State))
			}
		}
		groups = append(groups, "("+strings.Join(criteria, " AND ")+")")
	}
	if len(groups) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(groups, " OR "), args
}

// -----------------------------------------------------------------------------

func (b *SQLiteBackend) GetLocations(filters models.MLocationFilters) ([]models.MLocation, error) {
	where, args := locationWhere(filters)
	query := "SELECT " + locationColumns + " FROM locations" + where + " ORDER BY LOWER(name)"

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, helpers.NewStorageError("location query failed", err)
	}
	defer rows.Close()

	var locations []models.MLocation
	for rows.Next() {
		var l models.MLocation
		if err := rows.Scan(&l.Name, &l.City, &l.State, &l.StateID, &l.Alias,
			&l.Latitude, &l.Longitude, &l.TZ); err != nil {
			return nil, helpers.NewStorageError("location scan failed", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// -----------------------------------------------------------------------------

// findOne resolves the filters to exactly one location.
func (b *SQLiteBackend) findOne(filters models.MLocationFilters) (models.MLocation, error) {
	matches, err := b.GetLocations(filters)
	if err != nil {
		return models.MLocation{}, err
	}
	switch len(matches) {
	case 0:
		return models.MLocation{}, helpers.NewNotFoundError("no location matches %s", describeFilters(filters))
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return models.MLocation{}, helpers.NewAmbiguousError("%s matches multiple locations (%s)",
			describeFilters(filters), strings.Join(names, ", "))
	}
}

// -----------------------------------------------------------------------------

// locationID looks up the row id of a location by alias.
func (b *SQLiteBackend) locationID(alias string) (int64, error) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	var id int64
	err := b.db.QueryRow("SELECT id FROM locations WHERE alias = ?", alias).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, helpers.NewNotFoundError("no location with alias '%s'", alias)
	}
	if err != nil {
		return 0, helpers.NewStorageError("location id query failed", err)
	}
	return id, nil
}

// -----------------------------------------------------------------------------

func (b *SQLiteBackend) AddLocation(location models.MLocation) error {
	if err := ValidateLocation(&location); err != nil {
		return err
	}

	var count int
	if err := b.db.QueryRow("SELECT COUNT(*) FROM locations WHERE alias = ?", location.Alias).Scan(&count); err != nil {
		return helpers.NewStorageError("location alias check failed", err)
	}
	if count > 0 {
		return helpers.NewValidationError("location alias '%s' already exists", location.Alias)
	}

	_, err := b.db.Exec(`
		INSERT INTO locations (name, city, state, state_id, alias, latitude, longitude, tz)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, location.Name, location.City, location.State, location.StateID,
		location.Alias, location.Latitude, location.Longitude, location.TZ)
	if err != nil {
		return helpers.NewStorageError("location insert failed", err)
	}
	b.logger.Info("added location '%s' (%s)", location.Name, location.Alias)
	return nil
}

// -----------------------------------------------------------------------------
// History operations
// -----------------------------------------------------------------------------

func (b *SQLiteBackend) AddDailyHistories(histories models.MDailyHistories) (int, error) {
	lid, err := b.locationID(histories.Location.Alias)
	if err != nil {
		return 0, err
	}
	if len(histories.Histories) == 0 {
		return 0, nil
	}

	// in-batch duplicates collapse to the last history per date
	byDate := make(map[string]models.MHistory, len(histories.Histories))
	order := make([]string, 0, len(histories.Histories))
	for _, history := range histories.Histories {
		history.Date = models.TruncateDate(history.Date)
		key := history.Date.Format(models.DateFormat)
		if _, seen := byDate[key]; !seen {
			order = append(order, key)
		}
		byDate[key] = history
	}

	tx, err := b.db.Begin()
	if err != nil {
		return 0, helpers.NewStorageError("history transaction begin failed", err)
	}
	defer tx.Rollback()

	deleteHistory, err := tx.Prepare(`
		DELETE FROM history WHERE mid IN (SELECT id FROM metadata WHERE lid = ? AND date = ?)
	`)
	if err != nil {
		return 0, helpers.NewStorageError("history delete prepare failed", err)
	}
	defer deleteHistory.Close()

	deleteMetadata, err := tx.Prepare("DELETE FROM metadata WHERE lid = ? AND date = ?")
	if err != nil {
		return 0, helpers.NewStorageError("metadata delete prepare failed", err)
	}
	defer deleteMetadata.Close()

	insertMetadata, err := tx.Prepare(`
		INSERT INTO metadata (lid, date, store_size, size) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, helpers.NewStorageError("metadata insert prepare failed", err)
	}
	defer insertMetadata.Close()

	insertHistory, err := tx.Prepare("INSERT INTO history (mid, data) VALUES (?, ?)")
	if err != nil {
		return 0, helpers.NewStorageError("history insert prepare failed", err)
	}
	defer insertHistory.Close()

	for _, date := range order {
		history := byDate[date]
		document, err := EncodeHistory(history)
		if err != nil {
			return 0, helpers.NewStorageError("history encode failed", err)
		}
		storeSize, err := CompressedSize(document)
		if err != nil {
			return 0, helpers.NewStorageError("history size failed", err)
		}

		if _, err := deleteHistory.Exec(lid, date); err != nil {
			return 0, helpers.NewStorageError("history delete failed", err)
		}
		if _, err := deleteMetadata.Exec(lid, date); err != nil {
			return 0, helpers.NewStorageError("metadata delete failed", err)
		}

		result, err := insertMetadata.Exec(lid, date, storeSize, int64(len(document)))
		if err != nil {
			return 0, helpers.NewStorageError("metadata insert failed", err)
		}
		mid, err := result.LastInsertId()
		if err != nil {
			return 0, helpers.NewStorageError("metadata insert failed", err)
		}
		if _, err := insertHistory.Exec(mid, document); err != nil {
			return 0, helpers.NewStorageError("history insert failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, helpers.NewStorageError("history transaction commit failed", err)
	}
	b.logger.Info("stored %d histories for '%s'", len(order), histories.Location.Alias)
	return len(order), nil
}

// -----------------------------------------------------------------------------

func (b *SQLiteBackend) GetDailyHistories(filters models.MLocationFilters, dateRange models.MDateRange) (models.MDailyHistories, error) {
	location, err := b.findOne(filters)
	if err != nil {
		return models.MDailyHistories{}, err
	}
	lid, err := b.locationID(location.Alias)
	if err != nil {
		return models.MDailyHistories{}, err
	}

	rows, err := b.db.Query(`
		SELECT h.data FROM metadata m JOIN history h ON h.mid = m.id
		WHERE m.lid = ? AND m.date BETWEEN ? AND ?
		ORDER BY m.date
	`, lid, dateRange.Start.Format(models.DateFormat), dateRange.End.Format(models.DateFormat))
	if err != nil {
		return models.MDailyHistories{}, helpers.NewStorageError("history query failed", err)
	}
	defer rows.Close()

	result := models.MDailyHistories{Location: location}
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return models.MDailyHistories{}, helpers.NewStorageError("history scan failed", err)
		}
		history, err := DecodeHistory(location.Alias, document)
		if err != nil {
			return models.MDailyHistories{}, helpers.NewStorageError("history decode failed", err)
		}
		result.Histories = append(result.Histories, history)
	}
	return result, rows.Err()
}

// -----------------------------------------------------------------------------

func (b *SQLiteBackend) GetHistoryDates(filters models.MLocationFilters) ([]models.MHistoryDates, error) {
	locations, err := b.GetLocations(filters)
	if err != nil {
		return nil, err
	}

	var results []models.MHistoryDates
	for _, location := range locations {
		lid, err := b.locationID(location.Alias)
		if err != nil {
			return nil, err
		}
		rows, err := b.db.Query("SELECT date FROM metadata WHERE lid = ? ORDER BY date", lid)
		if err != nil {
			return nil, helpers.NewStorageError("history dates query failed", err)
		}

		var dates []time.Time
		for rows.Next() {
			var text string
			if err := rows.Scan(&text); err != nil {
				rows.Close()
				return nil, helpers.NewStorageError("history dates scan failed", err)
			}
			date, err := time.ParseInLocation(models.DateFormat, text, time.UTC)
			if err != nil {
				rows.Close()
				return nil, helpers.NewStorageError(fmt.Sprintf("metadata date '%s' is invalid", text), err)
			}
			dates = append(dates, date)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()

		results = append(results, models.MHistoryDates{
			Location:   location,
			DateRanges: models.BuildDateRanges(dates),
		})
	}
	return results, nil
}

// -----------------------------------------------------------------------------

func (b *SQLiteBackend) GetHistorySummaries(filters models.MLocationFilters) ([]models.MHistorySummaries, error) {
	locations, err := b.GetLocations(filters)
	if err != nil {
		return nil, err
	}

	var totalCount int64
	if err := b.db.QueryRow("SELECT COUNT(*) FROM metadata").Scan(&totalCount); err != nil {
		return nil, helpers.NewStorageError("metadata count failed", err)
	}
	dbSize, err := b.estimateSize()
	if err != nil {
		return nil, err
	}

	var results []models.MHistorySummaries
	for _, location := range locations {
		lid, err := b.locationID(location.Alias)
		if err != nil {
			return nil, err
		}

		summary := models.MHistorySummaries{Location: location}
		err = b.db.QueryRow(`
			SELECT COUNT(*), COALESCE(SUM(size), 0), COALESCE(SUM(store_size), 0)
			FROM metadata WHERE lid = ?
		`, lid).Scan(&summary.Count, &summary.RawSize, &summary.StoreSize)
		if err != nil {
			return nil, helpers.NewStorageError("history summary query failed", err)
		}

		// The overall size is the location's share of the estimated database
		// size, distributed by history count. It is an approximation.
		if totalCount > 0 {
			summary.OverallSize = dbSize * int64(summary.Count) / totalCount
		}
		results = append(results, summary)
	}
	return results, nil
}

// -----------------------------------------------------------------------------
// Database size estimation
// -----------------------------------------------------------------------------

// estimateSize approximates the database size from the schema: a fixed cost
// per row based on the declared column types plus the actual lengths of text
// and blob content.
func (b *SQLiteBackend) estimateSize() (int64, error) {
	var total int64
	for _, table := range []string{"locations", "metadata", "history"} {
		size, err := b.estimateTableSize(table)
		if err != nil {
			return 0, err
		}
		total += size
	}
	return total, nil
}

// -----------------------------------------------------------------------------

func (b *SQLiteBackend) estimateTableSize(table string) (int64, error) {
	rows, err := b.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return 0, helpers.NewStorageError(fmt.Sprintf("table info for %s failed", table), err)
	}

	var fixedRowCost int64
	var varColumns []string
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return 0, helpers.NewStorageError(fmt.Sprintf("table info for %s failed", table), err)
		}
		switch strings.ToUpper(colType) {
		case "REAL":
			fixedRowCost += 8
		case "INTEGER":
			// row ids and foreign keys grow to 8 bytes, plain counters stay small
			if name == "id" || name == "mid" || name == "lid" {
				fixedRowCost += 8
			} else {
				fixedRowCost += 4
			}
		default:
			varColumns = append(varColumns, name)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	var count int64
	if err := b.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		return 0, helpers.NewStorageError(fmt.Sprintf("row count for %s failed", table), err)
	}
	size := fixedRowCost * count

	for _, column := range varColumns {
		var length int64
		query := fmt.Sprintf("SELECT COALESCE(SUM(LENGTH(%s)), 0) FROM %s", column, table)
		if err := b.db.QueryRow(query).Scan(&length); err != nil {
			return 0, helpers.NewStorageError(fmt.Sprintf("column size for %s.%s failed", table, column), err)
		}
		size += length
	}
	return size, nil
}

// -----------------------------------------------------------------------------
// Reference database delegation
// -----------------------------------------------------------------------------

func (b *SQLiteBackend) SearchLocations(filter models.MCityFilter) ([]models.MLocation, error) {
	return b.usCities.Cities(filter)
}

// -----------------------------------------------------------------------------

func (b *SQLiteBackend) GetStates() ([]models.MState, error) {
	return b.usCities.States()
}

// -----------------------------------------------------------------------------

func (b *SQLiteBackend) Close() error {
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
	}
	return b.usCities.Close()
}
