// Package timeutil provides UTC calendar-day helpers. Streaks and window
// resets are defined in whole UTC days, never local time.
package timeutil

import "time"

// StartOfDay returns midnight UTC of the given time's day.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// IsYesterday reports whether t falls on the UTC day immediately before
// the day of ref.
func IsYesterday(t, ref time.Time) bool {
	return SameDay(t, StartOfDay(ref).AddDate(0, 0, -1))
}

// DaysBetween returns the number of whole UTC days from a to b.
// Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)) / (24 * time.Hour))
}
