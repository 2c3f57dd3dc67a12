package session

import (
	"testing"
	"time"
)

func TestGenerate_OnlyTargetWeekday(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC) // a Friday
	now := time.Date(2024, 11, 30, 12, 0, 0, 0, time.UTC)

	sessions := Generate(start, time.Saturday, now)
	if len(sessions) != 5 {
		t.Fatalf("expected 5 saturdays in window, got %d", len(sessions))
	}
	for _, s := range sessions {
		if s.Date.Weekday() != time.Saturday {
			t.Fatalf("non-saturday session generated: %s", s.Date)
		}
	}
	if sessions[0].Label != "2024-11-02" {
		t.Fatalf("unexpected first session: %s", sessions[0].Label)
	}
	if sessions[4].Label != "2024-11-30" {
		t.Fatalf("unexpected last session: %s", sessions[4].Label)
	}
}

func TestGenerate_StartAfterNowIsEmpty(t *testing.T) {
	t.Parallel()

	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := Generate(start, time.Saturday, now); got != nil {
		t.Fatalf("expected nil, got %d sessions", len(got))
	}
}

func TestSessionIDRoundTrip(t *testing.T) {
	t.Parallel()

	s := New(time.Date(2025, 3, 8, 15, 30, 0, 0, time.UTC))
	if s.Date.Hour() != 0 {
		t.Fatalf("session date not normalized to midnight: %s", s.Date)
	}

	back, err := FromID(s.ID)
	if err != nil {
		t.Fatalf("FromID error: %v", err)
	}
	if !back.Date.Equal(s.Date) || back.ID != s.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, s)
	}
}

func TestFromID_RejectsNonPositive(t *testing.T) {
	t.Parallel()

	if _, err := FromID(0); err == nil {
		t.Fatalf("expected error for id 0")
	}
	if _, err := FromID(-5); err == nil {
		t.Fatalf("expected error for negative id")
	}
}
