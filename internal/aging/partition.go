package aging

import (
	"fmt"
	"time"
)

// Keys is the closed partition key space for bucket backfills. It is never
// extended dynamically.
var Keys = []string{"0", "1", "2", "3", "4", "5"}

// epochFloor is the lower bound of the unbounded tail's due-date window.
var epochFloor = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Range describes one aging-bucket partition: the exact day-count range that
// defines membership, and an approximate due-date window used only to scope
// the upstream fetch. The window is computed from the clock at resolve time
// while membership is recomputed at transform time, so a record inside the
// window can still fall outside the exact range; the exact range wins.
type Range struct {
	MinDays int
	MaxDays *int // nil for the unbounded 120+ tail
	// Approximate server-side fetch window, not an authoritative boundary.
	DueDateFrom time.Time
	DueDateTo   time.Time
}

// Contains reports whether a days-overdue count falls inside the partition's
// exact day range.
func (r Range) Contains(daysOverdue int) bool {
	if daysOverdue < r.MinDays {
		return false
	}
	return r.MaxDays == nil || daysOverdue <= *r.MaxDays
}

type dayRange struct {
	min int
	max *int // nil means no upper limit
}

var dayRanges = map[string]dayRange{
	"0": {min: 0, max: intPtr(0)},
	"1": {min: 1, max: intPtr(30)},
	"2": {min: 31, max: intPtr(60)},
	"3": {min: 61, max: intPtr(90)},
	"4": {min: 91, max: intPtr(120)},
	"5": {min: 121, max: nil},
}

func intPtr(v int) *int { return &v }

// DayRange returns the exact day-count range for a partition key.
func DayRange(key string) (minDays int, maxDays *int, ok bool) {
	r, ok := dayRanges[key]
	if !ok {
		return 0, nil, false
	}
	return r.min, r.max, true
}

// RangeFor resolves a partition key to its day range and the approximate
// due-date window, anchored at today.
//
// Key "0" looks a year ahead to capture current and future-due invoices.
// Key "5" reaches back to the epoch floor with no upper day limit. The
// remaining keys window [today-max, today-min].
func RangeFor(key string, today time.Time) (Range, error) {
	dr, ok := dayRanges[key]
	if !ok {
		return Range{}, fmt.Errorf("aging: unknown partition key %q", key)
	}

	r := Range{MinDays: dr.min, MaxDays: dr.max}
	switch key {
	case "0":
		r.DueDateFrom = today
		r.DueDateTo = today.AddDate(0, 0, 365)
	case "5":
		r.DueDateFrom = epochFloor
		r.DueDateTo = today.AddDate(0, 0, -120)
	default:
		r.DueDateFrom = today.AddDate(0, 0, -*dr.max)
		r.DueDateTo = today.AddDate(0, 0, -dr.min)
	}
	return r, nil
}
