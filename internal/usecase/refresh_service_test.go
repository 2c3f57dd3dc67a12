package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/jochuk/clubdesk/external/clubapi"
	"github.com/jochuk/clubdesk/internal/domain/scoring"
	"github.com/jochuk/clubdesk/internal/platform/logging"
)

func newRefreshService(t *testing.T, club *fakeClubBackend, feeAPI *fakeFeeAPI, cfg RefreshConfig) (*RefreshService, *fakeSheetSnapshots) {
	t.Helper()

	start := time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC)
	snapshots := newFakeSheetSnapshots()
	attendance := NewAttendanceService(club, NewSheetStore(), snapshots, scoring.DefaultRules(), logging.NewNop())
	fee := NewFeeService(feeAPI, nil, nil, logging.NewNop())
	sessions := NewSessionService(start, time.Saturday, fixedNow)
	return NewRefreshService(attendance, fee, sessions, snapshots, nil, cfg, logging.NewNop()), snapshots
}

func TestRefreshService_WarmsSheetsAndLedger(t *testing.T) {
	club := newFakeClubBackend()
	club.players = []clubapi.Player{{ID: 1, Name: "Alice"}}

	svc, _ := newRefreshService(t, club, seedFeeAPI(), RefreshConfig{Sessions: 2, MaxWorkers: 2})

	result, err := svc.Run(t.Context(), RefreshInput{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	// Two sheet tasks plus the ledger task.
	if result.TaskCount != 3 {
		t.Fatalf("expected 3 tasks, got %d", result.TaskCount)
	}
	if result.SuccessCount != 3 || result.FailedCount != 0 {
		t.Fatalf("expected all tasks to succeed: %+v", result)
	}
	if len(result.Tasks) != 3 {
		t.Fatalf("expected 3 task rows, got %d", len(result.Tasks))
	}
	// Results come back sorted by target.
	if result.Tasks[0].Target != "ledger" {
		t.Fatalf("expected the ledger task first, got %q", result.Tasks[0].Target)
	}
	if result.Tasks[1].Target != "sheet:2024-11-16" || result.Tasks[2].Target != "sheet:2024-11-23" {
		t.Fatalf("unexpected sheet targets: %q, %q", result.Tasks[1].Target, result.Tasks[2].Target)
	}
	if result.Tasks[1].Records != 1 {
		t.Fatalf("expected the warmed sheet to report its rows, got %d", result.Tasks[1].Records)
	}
}

func TestRefreshService_ReportsFailedTasks(t *testing.T) {
	club := newFakeClubBackend()
	club.listPlayersErr = errors.New("backend down")
	feeAPI := seedFeeAPI()

	svc, _ := newRefreshService(t, club, feeAPI, RefreshConfig{Sessions: 1, MaxWorkers: 1})

	result, err := svc.Run(t.Context(), RefreshInput{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.FailedCount != 1 || result.SuccessCount != 1 {
		t.Fatalf("expected one failed sheet and one warmed ledger: %+v", result)
	}
	for _, row := range result.Tasks {
		if row.Status == refreshStatusFailed && row.Message == "" {
			t.Fatalf("failed task must carry its error: %+v", row)
		}
	}
}

func TestRefreshService_PrunesOffCalendarSnapshots(t *testing.T) {
	club := newFakeClubBackend()
	club.players = []clubapi.Player{{ID: 1, Name: "Alice"}}

	svc, snapshots := newRefreshService(t, club, seedFeeAPI(), RefreshConfig{Sessions: 1, MaxWorkers: 1})

	ctx := t.Context()
	// testDateID falls on the calendar; the Wednesday date does not.
	offCalendar := int64(1730851200000)
	if err := snapshots.Save(ctx, testDateID, nil); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	if err := snapshots.Save(ctx, offCalendar, nil); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	if _, err := svc.Run(ctx, RefreshInput{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok, _ := snapshots.Load(ctx, offCalendar); ok {
		t.Fatal("expected the off-calendar snapshot to be dropped")
	}
	if _, ok, _ := snapshots.Load(ctx, testDateID); !ok {
		t.Fatal("expected the calendar snapshot to survive")
	}
}

func TestNormalizeRefreshWorkerCount(t *testing.T) {
	t.Parallel()

	if got := normalizeRefreshWorkerCount(0, 0, 5); got != 1 {
		t.Fatalf("no preference defaults to 1, got %d", got)
	}
	if got := normalizeRefreshWorkerCount(0, 4, 5); got != 4 {
		t.Fatalf("configured default applies, got %d", got)
	}
	if got := normalizeRefreshWorkerCount(99, 4, 50); got != refreshMaxWorkerCap {
		t.Fatalf("cap applies, got %d", got)
	}
	if got := normalizeRefreshWorkerCount(4, 0, 2); got != 2 {
		t.Fatalf("worker count never exceeds tasks, got %d", got)
	}
}
