package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonthOf(t *testing.T) {
	w := MonthOf(time.Date(2025, time.April, 15, 13, 45, 0, 0, time.UTC))
	require.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), w.First)
	require.Equal(t, time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC), w.Last)

	// Leap February.
	w = MonthOf(time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC))
	require.Equal(t, 29, w.Last.Day())
}

func TestMonthWindowContains(t *testing.T) {
	w := MonthOf(time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC))
	require.True(t, w.Contains(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, w.Contains(time.Date(2025, time.April, 30, 23, 59, 0, 0, time.UTC)))
	require.False(t, w.Contains(time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)))
	require.False(t, w.Contains(time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDateOnly(t *testing.T) {
	d := DateOnly(time.Date(2025, time.April, 15, 23, 59, 59, 1, time.UTC))
	require.Equal(t, time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC), d)
	require.True(t, SameDay(d, d.Add(20*time.Hour)))
	require.False(t, SameDay(d, d.Add(25*time.Hour)))
}
