package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule fires a job at a fixed period from its previous run,
// unlike the calendar schedules which anchor to wall-clock boundaries.
// Used for the periodic storage health check.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a schedule firing every interval. Intervals
// under a second are raised to a second so a misconfigured job cannot
// spin the scheduler loop.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	if interval < time.Second {
		interval = time.Second
	}
	return &IntervalSchedule{
		Interval: interval,
	}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}
