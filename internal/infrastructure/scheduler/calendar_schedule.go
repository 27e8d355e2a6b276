package scheduler

import (
	"fmt"
	"time"
)

// WeeklySchedule runs a job once a week on a fixed weekday at a fixed hour.
type WeeklySchedule struct {
	Weekday time.Weekday
	Hour    int
}

// NewWeeklySchedule creates a new WeeklySchedule.
func NewWeeklySchedule(weekday time.Weekday, hour int) *WeeklySchedule {
	return &WeeklySchedule{Weekday: weekday, Hour: hour}
}

// Next returns the next occurrence of the weekday at the hour, strictly
// after t.
func (s *WeeklySchedule) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), s.Hour, 0, 0, 0, t.Location())
	for next.Weekday() != s.Weekday || !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// String returns the string representation of the schedule.
func (s *WeeklySchedule) String() string {
	return fmt.Sprintf("@weekly %s %02d:00", s.Weekday, s.Hour)
}

// MonthlySchedule runs a job once a month on a fixed day at a fixed hour.
// Days beyond the month's length clamp to its last day.
type MonthlySchedule struct {
	Day  int
	Hour int
}

// NewMonthlySchedule creates a new MonthlySchedule.
func NewMonthlySchedule(day, hour int) *MonthlySchedule {
	return &MonthlySchedule{Day: day, Hour: hour}
}

// Next returns the next occurrence of the day-of-month at the hour,
// strictly after t.
func (s *MonthlySchedule) Next(t time.Time) time.Time {
	year, month := t.Year(), t.Month()
	for i := 0; i < 13; i++ {
		day := s.Day
		if last := lastDayOfMonth(year, month); day > last {
			day = last
		}
		next := time.Date(year, month, day, s.Hour, 0, 0, 0, t.Location())
		if next.After(t) {
			return next
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return time.Time{}
}

// String returns the string representation of the schedule.
func (s *MonthlySchedule) String() string {
	return fmt.Sprintf("@monthly day %d %02d:00", s.Day, s.Hour)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
