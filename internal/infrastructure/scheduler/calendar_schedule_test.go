package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeeklySchedule_Next(t *testing.T) {
	s := NewWeeklySchedule(time.Monday, 0)

	t.Run("midweek rolls to next monday", func(t *testing.T) {
		// Wednesday 2026-08-19.
		from := time.Date(2026, 8, 19, 15, 30, 0, 0, time.UTC)
		next := s.Next(from)
		assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), next)
		assert.Equal(t, time.Monday, next.Weekday())
	})

	t.Run("exactly at fire time rolls a full week", func(t *testing.T) {
		from := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC) // Monday 00:00
		next := s.Next(from)
		assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("monday before fire hour fires same day", func(t *testing.T) {
		s := NewWeeklySchedule(time.Monday, 6)
		from := time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC), s.Next(from))
	})
}

func TestMonthlySchedule_Next(t *testing.T) {
	s := NewMonthlySchedule(1, 0)

	t.Run("midmonth rolls to the first of next month", func(t *testing.T) {
		from := time.Date(2026, 8, 19, 15, 30, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("exactly at fire time rolls a full month", func(t *testing.T) {
		from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("december rolls into january", func(t *testing.T) {
		from := time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("day 31 clamps to short months", func(t *testing.T) {
		s := NewMonthlySchedule(31, 0)
		from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		// February 2026 has 28 days.
		assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), s.Next(from))
	})
}

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)
	from := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, from.Add(15*time.Minute), s.Next(from))
}

func TestIntervalSchedule_ClampsTinyIntervals(t *testing.T) {
	s := NewIntervalSchedule(0)
	assert.Equal(t, time.Second, s.Interval)
}

func TestSchedule_String(t *testing.T) {
	assert.Equal(t, "@weekly Monday 00:00", NewWeeklySchedule(time.Monday, 0).String())
	assert.Equal(t, "@monthly day 1 03:00", NewMonthlySchedule(1, 3).String())
}
