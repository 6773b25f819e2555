package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"weather-observer/src/helpers"
	"weather-observer/src/logger"
	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------
// Location catalog
//
// Locations live in a single JSON document in the weather directory, sorted
// by name. The catalog is small; it is read on open and rewritten whole on
// every change.
// -----------------------------------------------------------------------------

// CatalogFilename is the location catalog document name.
const CatalogFilename = "locations.json"

type Locations struct {
	file    WeatherFile
	entries []models.MLocation
	logger  *logger.Logger
}

// -----------------------------------------------------------------------------

// OpenLocations opens the catalog, creating an empty one when the weather
// directory has none yet.
func OpenLocations(dir *WeatherDir, log *logger.Logger) (*Locations, error) {
	catalog := &Locations{file: dir.File(CatalogFilename), logger: log}
	if !catalog.file.Exists() {
		log.Debug("creating empty location catalog %s", catalog.file.Filename)
		if err := catalog.save(); err != nil {
			return nil, err
		}
		return catalog, nil
	}

	data, err := os.ReadFile(catalog.file.Path())
	if err != nil {
		return nil, helpers.NewStorageError("location catalog read failed", err)
	}
	if err := json.Unmarshal(data, &catalog.entries); err != nil {
		return nil, helpers.NewStorageError("location catalog is corrupt", err)
	}
	return catalog, nil
}

// -----------------------------------------------------------------------------

// All returns every cataloged location, ordered by name.
func (l *Locations) All() []models.MLocation {
	entries := make([]models.MLocation, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// -----------------------------------------------------------------------------

// Find returns the locations accepted by the filters, ordered by name.
func (l *Locations) Find(filters models.MLocationFilters) []models.MLocation {
	var matches []models.MLocation
	for _, location := range l.entries {
		if filters.Match(location) {
			matches = append(matches, location)
		}
	}
	return matches
}

// -----------------------------------------------------------------------------

// FindOne resolves the filters to exactly one location. Zero matches is a
// not-found error, more than one is ambiguous.
func (l *Locations) FindOne(filters models.MLocationFilters) (models.MLocation, error) {
	matches := l.Find(filters)
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

// Get returns the location with the alias.
func (l *Locations) Get(alias string) (models.MLocation, error) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	for _, location := range l.entries {
		if location.Alias == alias {
			return location, nil
		}
	}
	return models.MLocation{}, helpers.NewNotFoundError("no location with alias '%s'", alias)
}

// -----------------------------------------------------------------------------

// Add validates the location, rejects a duplicate alias and persists the
// catalog with the new entry in name order.
func (l *Locations) Add(location models.MLocation) error {
	if err := ValidateLocation(&location); err != nil {
		return err
	}
	for _, existing := range l.entries {
		if existing.Alias == location.Alias {
			return helpers.NewValidationError("location alias '%s' already exists", location.Alias)
		}
	}

	l.entries = append(l.entries, location)
	sort.Slice(l.entries, func(i, j int) bool {
		return strings.ToLower(l.entries[i].Name) < strings.ToLower(l.entries[j].Name)
	})

	if err := l.save(); err != nil {
		return err
	}
	l.logger.Info("added location '%s' (%s)", location.Name, location.Alias)
	return nil
}

// -----------------------------------------------------------------------------

func (l *Locations) save() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return helpers.NewStorageError("location catalog encode failed", err)
	}
	if l.entries == nil {
		data = []byte("[]")
	}
	if err := os.WriteFile(l.file.Path(), data, 0644); err != nil {
		return helpers.NewStorageError("location catalog write failed", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func describeFilters(filters models.MLocationFilters) string {
	if len(filters) == 0 {
		return "the empty filter"
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		var criteria []string
		if f.Name != "" {
			criteria = append(criteria, "name="+f.Name)
		}
		if f.City != "" {
			criteria = append(criteria, "city="+f.City)
		}
		if f.State != "" {
			criteria = append(criteria, "state="+f.State)
		}
		if len(criteria) == 0 {
			criteria = append(criteria, "*")
		}
		parts = append(parts, strings.Join(criteria, ","))
	}
	return fmt.Sprintf("filter [%s]", strings.Join(parts, "; "))
}
