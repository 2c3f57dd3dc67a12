package session

import (
	"fmt"
	"time"
)

// Session is one training day. ID is the date's unix-millisecond timestamp
// at UTC midnight, matching the backend's dateId convention.
type Session struct {
	ID    int64
	Date  time.Time
	Label string
}

func New(date time.Time) Session {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return Session{
		ID:    day.UnixMilli(),
		Date:  day,
		Label: day.Format("2006-01-02"),
	}
}

// FromID rebuilds a session from its millisecond id.
func FromID(id int64) (Session, error) {
	if id <= 0 {
		return Session{}, fmt.Errorf("session id must be greater than zero, got %d", id)
	}
	return New(time.UnixMilli(id).UTC()), nil
}

// Generate lists every session day of the configured weekday from start
// through today inclusive, oldest first.
func Generate(start time.Time, weekday time.Weekday, now time.Time) []Session {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if startDay.After(today) {
		return nil
	}

	// Advance to the first occurrence of the target weekday.
	first := startDay
	for first.Weekday() != weekday {
		first = first.AddDate(0, 0, 1)
	}

	out := make([]Session, 0, int(today.Sub(first).Hours()/(24*7))+1)
	for day := first; !day.After(today); day = day.AddDate(0, 0, 7) {
		out = append(out, New(day))
	}
	return out
}
