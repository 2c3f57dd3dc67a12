package usecase

import (
	"errors"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2024, time.November, 27, 14, 30, 0, 0, time.UTC)
}

func TestSessionService_ListNewestFirst(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC)
	svc := NewSessionService(start, time.Saturday, fixedNow)

	days := svc.List(t.Context())
	if len(days) != 4 {
		t.Fatalf("expected 4 saturdays through 2024-11-27, got %d", len(days))
	}
	if days[0].Label != "2024-11-23" || days[3].Label != "2024-11-02" {
		t.Fatalf("expected newest first, got %s .. %s", days[0].Label, days[3].Label)
	}
	for i := 1; i < len(days); i++ {
		if days[i].ID >= days[i-1].ID {
			t.Fatalf("ids must descend, got %d then %d", days[i-1].ID, days[i].ID)
		}
	}
}

func TestSessionService_Resolve(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC)
	svc := NewSessionService(start, time.Saturday, fixedNow)

	day, err := svc.Resolve(t.Context(), testDateID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if day.Label != "2024-11-02" {
		t.Fatalf("unexpected session: %+v", day)
	}

	// A Wednesday is not on the calendar.
	wednesday := time.Date(2024, time.November, 6, 0, 0, 0, 0, time.UTC).UnixMilli()
	if _, err := svc.Resolve(t.Context(), wednesday); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an off-calendar day, got %v", err)
	}

	if _, err := svc.Resolve(t.Context(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for a zero id, got %v", err)
	}
}
