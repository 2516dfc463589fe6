package shared

import "time"

// MonthWindow is a closed calendar-month range [First, Last].
type MonthWindow struct {
	First time.Time
	Last  time.Time
}

// MonthOf returns the calendar month containing d, in d's location, truncated
// to day precision. Consumption availability resets on this boundary.
func MonthOf(d time.Time) MonthWindow {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	last := first.AddDate(0, 1, -1)
	return MonthWindow{First: first, Last: last}
}

// Contains reports whether day falls inside the window.
func (w MonthWindow) Contains(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(w.First) && !d.After(w.Last)
}

// DateOnly truncates t to midnight in its own location. Ledger arithmetic is
// day-granular; intra-day ordering comes from insertion order.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
