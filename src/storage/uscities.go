package storage

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"weather-observer/src/helpers"
	"weather-observer/src/logger"
	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------
// USCities
//
// A reference database of US cities used to search for locations worth
// adding to the catalog. It lives in its own file next to the weather data
// and is populated from the simplemaps uscities CSV. A weather directory
// without it is fine: searches simply return nothing.
// -----------------------------------------------------------------------------

// USCitiesFilename is the reference database file inside the weather
// directory.
const USCitiesFilename = "uscities.db"

type USCities struct {
	dir    *WeatherDir
	db     *sql.DB
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewUSCities attaches to the reference database when present.
func NewUSCities(dir *WeatherDir, log *logger.Logger) (*USCities, error) {
	u := &USCities{dir: dir, logger: log}
	file := dir.File(USCitiesFilename)
	if !file.Exists() {
		log.Debug("reference database %s not present", file.Filename)
		return u, nil
	}

	db, err := openSQLite(file.Path(), log)
	if err != nil {
		return nil, helpers.NewStorageError(fmt.Sprintf("reference database %s open failed", file.Filename), err)
	}
	u.db = db
	return u, nil
}

// -----------------------------------------------------------------------------

// Cities searches the reference database. Without a populated database the
// result is empty, never an error.
func (u *USCities) Cities(filter models.MCityFilter) ([]models.MLocation, error) {
	if u.db == nil {
		return nil, nil
	}

	query := `
		SELECT DISTINCT c.city, s.name, s.state_id, c.latitude, c.longitude, c.timezone
		FROM cities c
		JOIN states s ON c.states_id = s.id
	`
	var conditions []string
	var args []interface{}
	if filter.ZipCode != "" {
		query += `
		JOIN city_zip_codes cz ON cz.cities_id = c.id
		JOIN zip_codes z ON z.id = cz.zip_codes_id
		`
		conditions = append(conditions, "z.zip_code LIKE ?")
		args = append(args, likePattern(filter.ZipCode))
	}
	if filter.Name != "" {
		conditions = append(conditions, "LOWER(c.city) LIKE ?")
		args = append(args, likePattern(filter.Name))
	}
	if filter.State != "" {
		if len(filter.State) > 2 {
			conditions = append(conditions, "(LOWER(s.state_id) LIKE ? OR LOWER(s.name) LIKE ?)")
			args = append(args, likePattern(filter.State), likePattern(filter.State))
		} else {
			conditions = append(conditions, "LOWER(s.state_id) LIKE ?")
			args = append(args, likePattern(filter.State))
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultCityLimit
	}
	query += " ORDER BY c.city, s.state_id LIMIT ?"
	args = append(args, limit)

	rows, err := u.db.Query(query, args...)
	if err != nil {
		return nil, helpers.NewStorageError("city search failed", err)
	}
	defer rows.Close()

	var locations []models.MLocation
	for rows.Next() {
		var city, state, stateID, latitude, longitude, timezone string
		if err := rows.Scan(&city, &state, &stateID, &latitude, &longitude, &timezone); err != nil {
			return nil, helpers.NewStorageError("city scan failed", err)
		}
		locations = append(locations, models.MLocation{
			Name:      fmt.Sprintf("%s, %s", city, stateID),
			City:      city,
			State:     state,
			StateID:   stateID,
			Alias:     suggestAlias(city, stateID),
			Latitude:  latitude,
			Longitude: longitude,
			TZ:        timezone,
		})
	}
	return locations, rows.Err()
}

// -----------------------------------------------------------------------------

// suggestAlias proposes a catalog alias for a city.
func suggestAlias(city, stateID string) string {
	alias := strings.ToLower(city + "_" + stateID)
	return strings.ReplaceAll(alias, " ", "_")
}

// -----------------------------------------------------------------------------

// States lists the states in the reference database, ordered by name.
func (u *USCities) States() ([]models.MState, error) {
	if u.db == nil {
		return nil, nil
	}

	rows, err := u.db.Query("SELECT name, state_id FROM states ORDER BY name")
	if err != nil {
		return nil, helpers.NewStorageError("state query failed", err)
	}
	defer rows.Close()

	var states []models.MState
	for rows.Next() {
		var state models.MState
		if err := rows.Scan(&state.Name, &state.StateID); err != nil {
			return nil, helpers.NewStorageError("state scan failed", err)
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// -----------------------------------------------------------------------------

// StateMetrics returns the city count per state, ordered by state name.
func (u *USCities) StateMetrics() ([]models.MStateMetrics, error) {
	if u.db == nil {
		return nil, nil
	}

	rows, err := u.db.Query(`
		SELECT s.name, s.state_id, COUNT(c.id)
		FROM states s LEFT JOIN cities c ON c.states_id = s.id
		GROUP BY s.id
		ORDER BY s.name
	`)
	if err != nil {
		return nil, helpers.NewStorageError("state metrics query failed", err)
	}
	defer rows.Close()

	var metrics []models.MStateMetrics
	for rows.Next() {
		var m models.MStateMetrics
		if err := rows.Scan(&m.Name, &m.StateID, &m.CityCount); err != nil {
			return nil, helpers.NewStorageError("state metrics scan failed", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// -----------------------------------------------------------------------------

// Info returns the reference database row counts.
func (u *USCities) Info() (states, cities, zips int64, err error) {
	if u.db == nil {
		return 0, 0, 0, nil
	}
	if err = u.db.QueryRow("SELECT COUNT(*) FROM states").Scan(&states); err != nil {
		return 0, 0, 0, helpers.NewStorageError("state count failed", err)
	}
	if err = u.db.QueryRow("SELECT COUNT(*) FROM cities").Scan(&cities); err != nil {
		return 0, 0, 0, helpers.NewStorageError("city count failed", err)
	}
	if err = u.db.QueryRow("SELECT COUNT(*) FROM zip_codes").Scan(&zips); err != nil {
		return 0, 0, 0, helpers.NewStorageError("zip code count failed", err)
	}
	return states, cities, zips, nil
}

// -----------------------------------------------------------------------------

func (u *USCities) Close() error {
	if u.db == nil {
		return nil
	}
	err := u.db.Close()
	u.db = nil
	return err
}

// -----------------------------------------------------------------------------

// Delete removes the reference database file.
func (u *USCities) Delete() error {
	if err := u.Close(); err != nil {
		return err
	}
	return u.dir.File(USCitiesFilename).Remove()
}

// -----------------------------------------------------------------------------
// CSV load
// -----------------------------------------------------------------------------

// uscities CSV column positions (simplemaps layout).
const (
	csvCityASCII = 1
	csvStateID   = 2
	csvStateName = 3
	csvLatitude  = 6
	csvLongitude = 7
	csvTimezone  = 13
	csvZips      = 15
	csvColumns   = 16
)

const usCitiesDDL = `
	CREATE TABLE IF NOT EXISTS states (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		state_id TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		city TEXT NOT NULL,
		states_id INTEGER NOT NULL REFERENCES states (id),
		latitude TEXT NOT NULL,
		longitude TEXT NOT NULL,
		timezone TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS zip_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		zip_code TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS city_zip_codes (
		cities_id INTEGER NOT NULL REFERENCES cities (id),
		zip_codes_id INTEGER NOT NULL REFERENCES zip_codes (id)
	);
`

// -----------------------------------------------------------------------------

// Load rebuilds the reference database from the uscities CSV file.
func (u *USCities) Load(csvPath string) error {
	if csvPath == "" {
		return helpers.NewValidationError("uscities CSV path is not configured")
	}
	source, err := os.Open(csvPath)
	if err != nil {
		return helpers.NewStorageError(fmt.Sprintf("uscities CSV '%s' open failed", csvPath), err)
	}
	defer source.Close()

	if err := u.Delete(); err != nil {
		return err
	}
	file := u.dir.File(USCitiesFilename)
	db, err := openSQLite(file.Path(), u.logger)
	if err != nil {
		return helpers.NewStorageError(fmt.Sprintf("reference database %s create failed", file.Filename), err)
	}
	u.db = db

	if _, err := db.Exec(usCitiesDDL); err != nil {
		return helpers.NewStorageError("reference schema create failed", err)
	}
	if err := u.loadRows(source); err != nil {
		return err
	}

	states, cities, zips, err := u.Info()
	if err != nil {
		return err
	}
	u.logger.Info("loaded %d states, %d cities, %d zip codes", states, cities, zips)
	return nil
}

// -----------------------------------------------------------------------------

func (u *USCities) loadRows(source io.Reader) error {
	reader := csv.NewReader(source)
	reader.FieldsPerRecord = -1

	tx, err := u.db.Begin()
	if err != nil {
		return helpers.NewStorageError("reference load begin failed", err)
	}
	defer tx.Rollback()

	insertCity, err := tx.Prepare(`
		INSERT INTO cities (city, states_id, latitude, longitude, timezone) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return helpers.NewStorageError("city insert prepare failed", err)
	}
	defer insertCity.Close()

	insertZipLink, err := tx.Prepare("INSERT INTO city_zip_codes (cities_id, zip_codes_id) VALUES (?, ?)")
	if err != nil {
		return helpers.NewStorageError("zip link insert prepare failed", err)
	}
	defer insertZipLink.Close()

	stateIDs := make(map[string]int64)
	zipIDs := make(map[string]int64)
	header := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return helpers.NewStorageError("uscities CSV read failed", err)
		}
		if header {
			header = false
			continue
		}
		if len(record) < csvColumns {
			continue
		}

		stateName := record[csvStateName]
		sid, ok := stateIDs[stateName]
		if !ok {
			result, err := tx.Exec("INSERT INTO states (name, state_id) VALUES (?, ?)",
				stateName, record[csvStateID])
			if err != nil {
				return helpers.NewStorageError(fmt.Sprintf("state '%s' insert failed", stateName), err)
			}
			if sid, err = result.LastInsertId(); err != nil {
				return helpers.NewStorageError(fmt.Sprintf("state '%s' insert failed", stateName), err)
			}
			stateIDs[stateName] = sid
		}

		result, err := insertCity.Exec(record[csvCityASCII], sid,
			record[csvLatitude], record[csvLongitude], record[csvTimezone])
		if err != nil {
			return helpers.NewStorageError(fmt.Sprintf("city '%s' insert failed", record[csvCityASCII]), err)
		}
		cid, err := result.LastInsertId()
		if err != nil {
			return helpers.NewStorageError(fmt.Sprintf("city '%s' insert failed", record[csvCityASCII]), err)
		}

		for _, zip := range strings.Fields(record[csvZips]) {
			zid, ok := zipIDs[zip]
			if !ok {
				result, err := tx.Exec("INSERT INTO zip_codes (zip_code) VALUES (?)", zip)
				if err != nil {
					return helpers.NewStorageError(fmt.Sprintf("zip code '%s' insert failed", zip), err)
				}
				if zid, err = result.LastInsertId(); err != nil {
					return helpers.NewStorageError(fmt.Sprintf("zip code '%s' insert failed", zip), err)
				}
				zipIDs[zip] = zid
			}
			if _, err := insertZipLink.Exec(cid, zid); err != nil {
				return helpers.NewStorageError("zip link insert failed", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewStorageError("reference load commit failed", err)
	}
	return nil
}
