package storage

import (
	"strconv"
	"strings"
	"time"

	"weather-observer/src/helpers"
	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------
// Location validation
// -----------------------------------------------------------------------------

// ValidateLocation normalizes a location in place and checks its fields.
// Text fields are trimmed and must not be empty, the alias is lowercased,
// latitude and longitude must be decimals within range and the timezone must
// name an IANA zone (matched case-insensitively and canonicalized).
func ValidateLocation(location *models.MLocation) error {
	location.Name = strings.TrimSpace(location.Name)
	location.City = strings.TrimSpace(location.City)
	location.State = strings.TrimSpace(location.State)
	location.StateID = strings.TrimSpace(location.StateID)
	location.Alias = strings.ToLower(strings.TrimSpace(location.Alias))
	location.Latitude = strings.TrimSpace(location.Latitude)
	location.Longitude = strings.TrimSpace(location.Longitude)
	location.TZ = strings.TrimSpace(location.TZ)

	switch {
	case location.Name == "":
		return helpers.NewValidationError("location name cannot be empty")
	case location.City == "":
		return helpers.NewValidationError("location city cannot be empty")
	case location.State == "":
		return helpers.NewValidationError("location state cannot be empty")
	case location.StateID == "":
		return helpers.NewValidationError("location state id cannot be empty")
	case location.Alias == "":
		return helpers.NewValidationError("location alias cannot be empty")
	}

	if err := validateCoordinate("latitude", location.Latitude, 90.0); err != nil {
		return err
	}
	if err := validateCoordinate("longitude", location.Longitude, 180.0); err != nil {
		return err
	}

	canonical, err := canonicalTZ(location.TZ)
	if err != nil {
		return err
	}
	location.TZ = canonical
	return nil
}

// -----------------------------------------------------------------------------

// validateCoordinate checks that the value is a decimal within [-limit, limit].
func validateCoordinate(name, value string, limit float64) error {
	if value == "" {
		return helpers.NewValidationError("location %s cannot be empty", name)
	}
	decimal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return helpers.NewValidationError("location %s '%s' is not a decimal", name, value)
	}
	if decimal < -limit || decimal > limit {
		return helpers.NewValidationError("location %s '%s' is out of range", name, value)
	}
	return nil
}

// -----------------------------------------------------------------------------

// canonicalTZ resolves a timezone name against the IANA database, first as
// given and then with each path segment title-cased so a lowercased name
// like "america/new_york" still resolves.
func canonicalTZ(tz string) (string, error) {
	if tz == "" {
		return "", helpers.NewValidationError("location timezone cannot be empty")
	}
	if location, err := time.LoadLocation(tz); err == nil {
		return location.String(), nil
	}
	if location, err := time.LoadLocation(titleCaseTZ(tz)); err == nil {
		return location.String(), nil
	}
	if upper := strings.ToUpper(tz); upper == "UTC" || upper == "GMT" {
		return upper, nil
	}
	return "", helpers.NewValidationError("location timezone '%s' is unknown", tz)
}

// -----------------------------------------------------------------------------

// titleCaseTZ rebuilds an IANA name from a case-mangled one, title-casing
// each word of each path segment ("america/north_dakota/new_salem" becomes
// "America/North_Dakota/New_Salem").
func titleCaseTZ(tz string) string {
	segments := strings.Split(tz, "/")
	for i, segment := range segments {
		words := strings.Split(segment, "_")
		for j, word := range words {
			if word == "" {
				continue
			}
			words[j] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
		segments[i] = strings.Join(words, "_")
	}
	return strings.Join(segments, "/")
}
