// Package clock provides time window helpers for rule evaluation.
// Keeping them in one place makes the inclusive boundary semantics
// testable independently of the rules that use them.
package clock

import "time"

// Now is the clock used across the application. Tests may override it.
var Now = time.Now

// WithinWindow reports whether t falls within plus or minus days of ref.
// Both boundaries are inclusive: a timestamp exactly days*24h away counts.
func WithinWindow(ref, t time.Time, days int) bool {
	d := time.Duration(days) * 24 * time.Hour
	diff := t.Sub(ref)
	if diff < 0 {
		diff = -diff
	}
	return diff <= d
}

// WithinTrailing reports whether t falls within the trailing window
// [ref - days, ref], boundaries inclusive.
func WithinTrailing(ref, t time.Time, days int) bool {
	d := time.Duration(days) * 24 * time.Hour
	diff := ref.Sub(t)
	return diff >= 0 && diff <= d
}

// BusinessDaysAgo returns the start of the day that is n business days
// before ref, skipping Saturdays and Sundays. Used for the rolling
// day-trade lookback.
func BusinessDaysAgo(ref time.Time, n int) time.Time {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	for n > 0 {
		day = day.AddDate(0, 0, -1)
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return day
}
