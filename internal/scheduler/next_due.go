package scheduler

import "time"

// maxYear is the last year an RFC 3339 timestamp can express.
const maxYear = 9999

// maxIntervalDays keeps AddDate far from integer overflow; any larger
// interval lands beyond maxYear anyway.
const maxIntervalDays = 4_000_000

// NextDue returns now advanced by intervalDays calendar days in UTC. It
// reports false when the result cannot be represented in the timetable;
// callers then keep the previous due time.
func NextDue(now time.Time, intervalDays int) (time.Time, bool) {
	if intervalDays <= 0 || intervalDays > maxIntervalDays {
		return time.Time{}, false
	}
	next := now.UTC().AddDate(0, 0, intervalDays)
	if next.Year() > maxYear || next.Before(now) {
		return time.Time{}, false
	}
	return next, true
}
