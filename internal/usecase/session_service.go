package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jochuk/clubdesk/internal/domain/session"
)

// SessionService derives the training-day calendar. Sessions are not
// stored anywhere, they are generated from the configured start date and
// weekday, so every call sees the calendar as of "now".
type SessionService struct {
	start   time.Time
	weekday time.Weekday
	now     func() time.Time
}

func NewSessionService(start time.Time, weekday time.Weekday, now func() time.Time) *SessionService {
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		start:   start,
		weekday: weekday,
		now:     now,
	}
}

// List returns every session day through today, newest first.
func (s *SessionService) List(ctx context.Context) []session.Session {
	_, span := startUsecaseSpan(ctx, "usecase.SessionService.List")
	defer span.End()

	days := session.Generate(s.start, s.weekday, s.now())
	out := make([]session.Session, 0, len(days))
	for i := len(days) - 1; i >= 0; i-- {
		out = append(out, days[i])
	}
	return out
}

// Resolve maps a date id to a known session day. Ids that fall outside
// the calendar are not found.
func (s *SessionService) Resolve(ctx context.Context, dateID int64) (session.Session, error) {
	_, span := startUsecaseSpan(ctx, "usecase.SessionService.Resolve")
	defer span.End()

	resolved, err := session.FromID(dateID)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	for _, day := range session.Generate(s.start, s.weekday, s.now()) {
		if day.ID == resolved.ID {
			return day, nil
		}
	}
	return session.Session{}, fmt.Errorf("%w: no session on %s", ErrNotFound, resolved.Label)
}
