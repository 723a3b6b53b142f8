package domain

import (
	"fmt"
	"strings"
	"time"
)

// Session anchor times used by daily-frequency pricing.
const (
	SessionOpenHour    = 9
	SessionOpenMinute  = 30
	SessionCloseHour   = 15
	SessionCloseMinute = 0
)

// Timestamp layouts accepted for order and quote times. All times are
// exchange wall-clock times carried in UTC.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// SessionDate truncates t to midnight of its calendar date.
func SessionDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SessionOpen returns the open anchor (09:30) of t's date.
func SessionOpen(t time.Time) time.Time {
	return SessionDate(t).Add(SessionOpenHour*time.Hour + SessionOpenMinute*time.Minute)
}

// SessionClose returns the close anchor (15:00) of t's date.
func SessionClose(t time.Time) time.Time {
	return SessionDate(t).Add(SessionCloseHour*time.Hour + SessionCloseMinute*time.Minute)
}

// NextSession returns the date of the next trading session after t,
// skipping weekends.
func NextSession(t time.Time) time.Time {
	next := SessionDate(t).AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// ParseTimestamp parses either a date ("2006-01-02") or a full timestamp
// ("2006-01-02 15:04:05", or RFC 3339). The boolean reports whether the
// input carried a time of day.
func ParseTimestamp(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true, nil
	}
	if t, err := time.ParseInLocation(DateLayout, s, time.UTC); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, &ValidationError{
		Message: fmt.Sprintf("timestamp %q must be %s or %s", s, DateLayout, DateTimeLayout),
	}
}

// FormatTimestamp renders t in the "2006-01-02 15:04:05" layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}
