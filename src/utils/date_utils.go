package utils

import "time"

const DateFormat = "2006-01-02"

// DateOnly truncates a timestamp to a UTC calendar date. All engine dates are
// date-only; wall-clock components must never influence a calculation.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}
