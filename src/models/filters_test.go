package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// -----------------------------------------------------------------------------

var kfalls = MLocation{
	Name:    "Klamath Falls, OR",
	City:    "Klamath Falls",
	State:   "Oregon",
	StateID: "OR",
	Alias:   "kfalls",
}

// -----------------------------------------------------------------------------

func TestFilterWildcards(t *testing.T) {
	cases := []struct {
		pattern string
		matches bool
	}{
		{"kfalls", true},
		{"KFALLS", true},
		{"klamath falls, or", true},
		{"*", true},
		{"klamath*", true},
		{"*falls", true},
		{"*falls*", true},
		{"*portland*", false},
		{"klamath", false},
	}
	for _, c := range cases {
		f := MLocationFilter{Name: c.pattern}
		assert.Equal(t, c.matches, f.Matches(kfalls), "pattern %q", c.pattern)
	}
}

// -----------------------------------------------------------------------------

func TestFilterState(t *testing.T) {
	assert.True(t, MLocationFilter{State: "or"}.Matches(kfalls))
	assert.True(t, MLocationFilter{State: "oregon"}.Matches(kfalls))
	assert.True(t, MLocationFilter{State: "ore*"}.Matches(kfalls))

	// two characters or fewer only match the state id
	assert.False(t, MLocationFilter{State: "o*"}.Matches(MLocation{State: "Ohio", StateID: "OH"}))
	assert.True(t, MLocationFilter{State: "oh"}.Matches(MLocation{State: "Ohio", StateID: "OH"}))
}

// -----------------------------------------------------------------------------

func TestFilterCriteriaCombine(t *testing.T) {
	f := MLocationFilter{City: "klamath*", State: "or"}
	assert.True(t, f.Matches(kfalls))

	f = MLocationFilter{City: "klamath*", State: "wa"}
	assert.False(t, f.Matches(kfalls))
}

// -----------------------------------------------------------------------------

func TestFilterSet(t *testing.T) {
	other := MLocation{Name: "Portland, OR", City: "Portland", State: "Oregon", StateID: "OR", Alias: "pdx"}

	// empty set matches everything
	assert.True(t, MLocationFilters{}.Match(kfalls))
	assert.True(t, MLocationFilters(nil).Match(other))

	// a set holding an empty filter matches everything
	assert.True(t, MLocationFilters{{}}.Match(kfalls))

	// filters OR together
	fs := MLocationFilters{{Name: "kfalls"}, {Name: "pdx"}}
	assert.True(t, fs.Match(kfalls))
	assert.True(t, fs.Match(other))
	assert.False(t, fs.Match(MLocation{Name: "Boise, ID", Alias: "boise"}))
}
