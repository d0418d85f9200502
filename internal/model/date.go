package model

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted and returned by the API.
const DateLayout = "2006-01-02"

var errBadDate = errors.New("invalid date")

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp
// and returns 00:00 UTC of the day as written.  The time of day of a
// timestamp is dropped: leaves are whole days.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, errBadDate
}

// StartOfDay truncates t to 00:00 UTC of the same day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
