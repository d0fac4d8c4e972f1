package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used for close and due dates
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date. RFC 3339 timestamps are accepted and
// truncated to their day. Empty or malformed input returns ok=false so callers
// can treat the date as absent.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, true
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// StartOfDay returns t's calendar day, read in t's own location, as midnight UTC.
// Results compare by calendar day regardless of t's zone.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the number of whole calendar days from now's day to date.
// Negative values mean date is in the past.
func DaysUntil(date time.Time, now time.Time) int {
	return int(StartOfDay(date).Sub(StartOfDay(now)).Hours() / 24)
}
