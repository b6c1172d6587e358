package retention

import (
	"fmt"
	"time"
)

// Trigger decides when a job is due. Triggers are data, not code: adding a
// job never adds branching to the scheduler loop. All wall-clock triggers
// are evaluated in UTC, the fixed reference timezone.
type Trigger interface {
	// Due reports whether the trigger fires in the window (prev, now].
	Due(prev, now time.Time) bool
	Describe() string
}

// Daily fires once a day at the given hour.
type Daily struct {
	Hour int
}

func (d Daily) Due(prev, now time.Time) bool {
	prev, now = prev.UTC(), now.UTC()
	candidate := time.Date(prev.Year(), prev.Month(), prev.Day(), d.Hour, 0, 0, 0, time.UTC)
	if !candidate.After(prev) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return !candidate.After(now)
}

func (d Daily) Describe() string {
	return fmt.Sprintf("daily at %02d:00 UTC", d.Hour)
}

// Weekly fires once a week at the given day and hour.
type Weekly struct {
	Day  time.Weekday
	Hour int
}

func (w Weekly) Due(prev, now time.Time) bool {
	prev, now = prev.UTC(), now.UTC()
	candidate := time.Date(prev.Year(), prev.Month(), prev.Day(), w.Hour, 0, 0, 0, time.UTC)
	for candidate.Weekday() != w.Day || !candidate.After(prev) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return !candidate.After(now)
}

func (w Weekly) Describe() string {
	return fmt.Sprintf("weekly on %s at %02d:00 UTC", w.Day, w.Hour)
}

// Every fires at a fixed interval since the last firing.
type Every struct {
	Interval time.Duration
}

func (e Every) Due(prev, now time.Time) bool {
	return now.Sub(prev) >= e.Interval
}

func (e Every) Describe() string {
	return fmt.Sprintf("every %s", e.Interval)
}
