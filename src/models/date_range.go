package models

import (
	"fmt"
	"sort"
	"time"
)

// -----------------------------------------------------------------------------

// DateFormat is the canonical yyyy-mm-dd form used everywhere a date is
// stored or shown.
const DateFormat = "2006-01-02"

// -----------------------------------------------------------------------------

// MDateRange is an inclusive range of calendar dates.
type MDateRange struct {
	Start time.Time
	End   time.Time
}

// -----------------------------------------------------------------------------

// NewDateRange creates an inclusive date range, normalizing both ends to
// midnight UTC.
func NewDateRange(start, end time.Time) (MDateRange, error) {
	start = TruncateDate(start)
	end = TruncateDate(end)
	if end.Before(start) {
		return MDateRange{}, fmt.Errorf("date range end %s is before start %s",
			end.Format(DateFormat), start.Format(DateFormat))
	}
	return MDateRange{Start: start, End: end}, nil
}

// -----------------------------------------------------------------------------

// TruncateDate drops the time of day, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// -----------------------------------------------------------------------------

// Covers reports whether the date falls within the range, inclusive of both
// endpoints.
func (r MDateRange) Covers(date time.Time) bool {
	date = TruncateDate(date)
	return !date.Before(r.Start) && !date.After(r.End)
}

// -----------------------------------------------------------------------------

// IsOneDay reports whether the range holds a single date.
func (r MDateRange) IsOneDay() bool {
	return r.Start.Equal(r.End)
}

// -----------------------------------------------------------------------------

// TotalDays returns the number of dates covered by the range.
func (r MDateRange) TotalDays() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// -----------------------------------------------------------------------------

// Dates expands the range into the individual dates it covers, ascending.
func (r MDateRange) Dates() []time.Time {
	dates := make([]time.Time, 0, r.TotalDays())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// -----------------------------------------------------------------------------

func (r MDateRange) String() string {
	if r.IsOneDay() {
		return r.Start.Format(DateFormat)
	}
	return fmt.Sprintf("%s to %s", r.Start.Format(DateFormat), r.End.Format(DateFormat))
}

// -----------------------------------------------------------------------------

// BuildDateRanges collapses a set of dates into disjoint maximal runs of
// consecutive days, sorted ascending. Duplicates are ignored.
func BuildDateRanges(dates []time.Time) []MDateRange {
	if len(dates) == 0 {
		return nil
	}

	normalized := make([]time.Time, len(dates))
	for i, d := range dates {
		normalized[i] = TruncateDate(d)
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Before(normalized[j]) })

	var ranges []MDateRange
	start := normalized[0]
	end := normalized[0]
	for _, d := range normalized[1:] {
		switch {
		case d.Equal(end):
			// duplicate date
		case d.Equal(end.AddDate(0, 0, 1)):
			end = d
		default:
			ranges = append(ranges, MDateRange{Start: start, End: end})
			start = d
			end = d
		}
	}
	return append(ranges, MDateRange{Start: start, End: end})
}

// -----------------------------------------------------------------------------

// MHistoryDates pairs a location with the date ranges its history covers.
type MHistoryDates struct {
	Location   MLocation
	DateRanges []MDateRange
}
