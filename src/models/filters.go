package models

import "strings"

// -----------------------------------------------------------------------------

// MLocationFilter narrows locations by name, city and state. Empty fields
// match everything; a `*` wildcard matches a prefix (`port*`), suffix
// (`*land`) or substring (`*or*`). Matching is case-insensitive.
type MLocationFilter struct {
	Name  string
	City  string
	State string
}

// MLocationFilters is a set of filters combined with OR semantics. An empty
// set matches every location.
type MLocationFilters []MLocationFilter

// -----------------------------------------------------------------------------

// IsEmpty reports whether the filter has no criteria at all.
func (f MLocationFilter) IsEmpty() bool {
	return f.Name == "" && f.City == "" && f.State == ""
}

// -----------------------------------------------------------------------------

// Matches reports whether the location satisfies every non-empty criterion
// of the filter. The name pattern is tried against both the location name
// and its alias; the state pattern is tried against the two letter state id
// and, when longer than two characters, the full state name.
func (f MLocationFilter) Matches(location MLocation) bool {
	if f.Name != "" && !patternMatch(f.Name, location.Name) && !patternMatch(f.Name, location.Alias) {
		return false
	}
	if f.City != "" && !patternMatch(f.City, location.City) {
		return false
	}
	if f.State != "" {
		stateID := patternMatch(f.State, location.StateID)
		stateName := len(f.State) > 2 && patternMatch(f.State, location.State)
		if !stateID && !stateName {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

// Match reports whether any filter in the set accepts the location. An empty
// set, or a set holding only empty filters, accepts every location.
func (fs MLocationFilters) Match(location MLocation) bool {
	if len(fs) == 0 {
		return true
	}
	for _, f := range fs {
		if f.IsEmpty() || f.Matches(location) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// patternMatch implements the case-insensitive wildcard comparison.
func patternMatch(pattern, value string) bool {
	pattern = strings.ToLower(pattern)
	value = strings.ToLower(value)
	switch {
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
		return strings.Contains(value, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(value, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(value, pattern[:len(pattern)-1])
	default:
		return pattern == value
	}
}

// -----------------------------------------------------------------------------

// MCityFilter narrows the US Cities reference database.
type MCityFilter struct {
	Name    string
	State   string
	ZipCode string
	Limit   int
}

// DefaultCityLimit caps city searches unless the filter asks otherwise.
const DefaultCityLimit = 25
