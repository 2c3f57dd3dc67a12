package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jochuk/clubdesk/external/clubapi"
	"github.com/jochuk/clubdesk/internal/domain/fees"
	"github.com/jochuk/clubdesk/internal/domain/roster"
	"github.com/jochuk/clubdesk/internal/domain/scoring"
	"github.com/jochuk/clubdesk/internal/platform/cache"
	"github.com/jochuk/clubdesk/internal/platform/logging"
	"github.com/jochuk/clubdesk/internal/usecase"
)

// sessionDateID is the UTC-midnight millisecond id for 2024-11-02, the
// first Saturday the test calendar generates.
const sessionDateID = int64(1730505600000)

const testJobToken = "warmup-token"

func fixedTestNow() time.Time {
	return time.Date(2024, time.November, 27, 14, 30, 0, 0, time.UTC)
}

// stubBackend implements every backend call the services need, seeded
// with a small roster, one recorded session, and a two-entry ledger.
type stubBackend struct {
	players []clubapi.Player
	records map[int64][]clubapi.PlayerRecord
	days    map[int64]clubapi.DayRecord
	fees    []clubapi.MembershipFee
	exps    []clubapi.Expense

	nextID  int64
	created []clubapi.PlayerRecord
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		players: []clubapi.Player{
			{ID: 1, Name: "Alice"},
			{ID: 2, Name: "Bob"},
		},
		records: map[int64][]clubapi.PlayerRecord{
			sessionDateID: {
				{ID: 100, PlayerID: 1, TeamID: 10, DateID: sessionDateID, Attendance: true},
			},
		},
		days: map[int64]clubapi.DayRecord{
			sessionDateID: {
				DateID: sessionDateID,
				Teams: []clubapi.Team{
					{ID: 10, TeamName: "Red"},
					{ID: 11, TeamName: "Blue"},
				},
			},
		},
		fees: []clubapi.MembershipFee{
			{ID: 1, Date: "2024-11-01", Type: "INCOME", Title: "November dues", Amount: 30000, Payer: "Alice"},
		},
		exps: []clubapi.Expense{
			{ID: 2, Date: "2024-11-09", Amount: 12000, Description: "Pitch rental"},
		},
		nextID: 500,
	}
}

func (b *stubBackend) ListPlayers(context.Context) ([]clubapi.Player, error) {
	return append([]clubapi.Player(nil), b.players...), nil
}

func (b *stubBackend) ListPlayerRecords(_ context.Context, dateID int64) ([]clubapi.PlayerRecord, error) {
	return append([]clubapi.PlayerRecord(nil), b.records[dateID]...), nil
}

func (b *stubBackend) CreatePlayerRecord(_ context.Context, record clubapi.PlayerRecord) error {
	b.created = append(b.created, record)
	b.records[record.DateID] = append(b.records[record.DateID], record)
	return nil
}

func (b *stubBackend) GetDayRecord(_ context.Context, dateID int64) (clubapi.DayRecord, error) {
	return b.days[dateID], nil
}

func (b *stubBackend) CreateMatch(_ context.Context, input clubapi.MatchInput) (clubapi.Match, error) {
	b.nextID++
	return clubapi.Match{
		ID:         b.nextID,
		MatchDate:  input.MatchDate,
		MatchOrder: input.MatchOrder,
		TeamID:     input.TeamID,
		Team1Score: input.Team1Score,
		Team2Score: input.Team2Score,
	}, nil
}

func (b *stubBackend) UpdateMatch(_ context.Context, matchID int64, input clubapi.MatchInput) (clubapi.Match, error) {
	return clubapi.Match{
		ID:         matchID,
		MatchDate:  input.MatchDate,
		MatchOrder: input.MatchOrder,
		TeamID:     input.TeamID,
		Team1Score: input.Team1Score,
		Team2Score: input.Team2Score,
	}, nil
}

func (b *stubBackend) DeleteMatch(context.Context, int64) error { return nil }

func (b *stubBackend) CreateTeam(_ context.Context, teamName string) (clubapi.Team, error) {
	b.nextID++
	return clubapi.Team{ID: b.nextID, TeamName: teamName}, nil
}

func (b *stubBackend) AddTeamPlayer(context.Context, clubapi.TeamPlayer) error { return nil }

func (b *stubBackend) ListMembershipFees(context.Context) ([]clubapi.MembershipFee, error) {
	return append([]clubapi.MembershipFee(nil), b.fees...), nil
}

func (b *stubBackend) ListExpenses(context.Context) ([]clubapi.Expense, error) {
	return append([]clubapi.Expense(nil), b.exps...), nil
}

func (b *stubBackend) CreateExpense(_ context.Context, input clubapi.ExpenseInput) (clubapi.Expense, error) {
	b.nextID++
	expense := clubapi.Expense{
		ID:          b.nextID,
		Date:        input.Date,
		Amount:      input.Amount,
		Description: input.Description,
	}
	b.exps = append(b.exps, expense)
	return expense, nil
}

type stubSheetSnapshots struct{}

func (stubSheetSnapshots) Save(context.Context, int64, []roster.PlayerStat) error {
	return nil
}

func (stubSheetSnapshots) Load(context.Context, int64) ([]roster.PlayerStat, bool, error) {
	return nil, false, nil
}

func (stubSheetSnapshots) Dates(context.Context) ([]int64, error) {
	return nil, nil
}

func (stubSheetSnapshots) Delete(context.Context, int64) error {
	return nil
}

type stubLedgerSnapshots struct{}

func (stubLedgerSnapshots) Save(context.Context, []fees.Fee, []fees.Expense) error {
	return nil
}

func (stubLedgerSnapshots) Load(context.Context) ([]fees.Fee, []fees.Expense, bool, error) {
	return nil, nil, false, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	backend := newStubBackend()
	logger := logging.NewNop()
	cacheStore := cache.NewStore(time.Minute)

	start := time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC)
	sessions := usecase.NewSessionService(start, time.Saturday, fixedTestNow)
	attendance := usecase.NewAttendanceService(backend, usecase.NewSheetStore(), stubSheetSnapshots{}, scoring.DefaultRules(), logger)
	members := usecase.NewMemberService(backend, cacheStore, nil, logger)
	matches := usecase.NewMatchService(backend, logger)
	fee := usecase.NewFeeService(backend, stubLedgerSnapshots{}, cacheStore, logger)
	overview := usecase.NewOverviewService(members, fee, matches, sessions, logger)
	refresh := usecase.NewRefreshService(attendance, fee, sessions, stubSheetSnapshots{}, cacheStore, usecase.RefreshConfig{Sessions: 1, MaxWorkers: 1}, logger)

	handler := NewHandler(attendance, members, sessions, matches, fee, overview, refresh, logger)
	return NewRouter(handler, logger, []string{"*"}, testJobToken)
}

func doJSON(t *testing.T, router http.Handler, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for key, value := range header {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope map[string]any
	if rec.Body.Len() > 0 {
		if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("unmarshal response body: %v", err)
		}
	}
	return rec, envelope
}

func dataObject(t *testing.T, envelope map[string]any) map[string]any {
	t.Helper()
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", envelope["data"])
	}
	return data
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	data := dataObject(t, envelope)
	if data["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", data["status"])
	}
	if got := rec.Header().Get("X-Request-ID"); got == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func TestRouter_ListSessionsNewestFirst(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodGet, "/v1/sessions", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	items, ok := envelope["data"].([]any)
	if !ok || len(items) != 4 {
		t.Fatalf("expected 4 sessions, got %v", envelope["data"])
	}
	first := items[0].(map[string]any)
	last := items[3].(map[string]any)
	if first["label"] != "2024-11-23" || last["label"] != "2024-11-02" {
		t.Fatalf("unexpected session order: first=%v last=%v", first["label"], last["label"])
	}
}

func TestRouter_GetSheet(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodGet, "/v1/sessions/1730505600000/sheet", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := dataObject(t, envelope)
	rows, ok := data["rows"].([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("expected 2 sheet rows, got %v", data["rows"])
	}

	// Alice has a backend record, so she leads the sheet with a point.
	top := rows[0].(map[string]any)
	if top["name"] != "Alice" {
		t.Fatalf("expected Alice first, got %v", top["name"])
	}
	if got, _ := top["attendance"].(float64); got != 1 {
		t.Fatalf("expected attendance 1 for Alice, got %v", top["attendance"])
	}
}

func TestRouter_GetSheetOffCalendar(t *testing.T) {
	router := newTestRouter(t)

	// 2024-11-06 is a Wednesday; the calendar only has Saturdays.
	rec, envelope := doJSON(t, router, http.MethodGet, "/v1/sessions/1730851200000/sheet", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if _, ok := envelope["error"]; !ok {
		t.Fatalf("expected error object in response")
	}
}

func TestRouter_ToggleAttendance(t *testing.T) {
	router := newTestRouter(t)

	if rec, _ := doJSON(t, router, http.MethodGet, "/v1/sessions/1730505600000/sheet", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("sheet build failed: %d", rec.Code)
	}

	rec, envelope := doJSON(t, router, http.MethodPost, "/v1/sessions/1730505600000/sheet/attendance/2/toggle", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := dataObject(t, envelope)
	rows := data["rows"].([]any)
	for _, raw := range rows {
		row := raw.(map[string]any)
		if row["name"] == "Bob" {
			if got, _ := row["attendance"].(float64); got != 1 {
				t.Fatalf("expected Bob toggled to attending, got %v", row["attendance"])
			}
			return
		}
	}
	t.Fatalf("Bob missing from sheet rows")
}

func TestRouter_ToggleAttendanceUnknownPlayer(t *testing.T) {
	router := newTestRouter(t)

	if rec, _ := doJSON(t, router, http.MethodGet, "/v1/sessions/1730505600000/sheet", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("sheet build failed: %d", rec.Code)
	}

	rec, _ := doJSON(t, router, http.MethodPost, "/v1/sessions/1730505600000/sheet/attendance/99/toggle", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRouter_UpdateSheetPlayerRejectsUnknownField(t *testing.T) {
	router := newTestRouter(t)

	if rec, _ := doJSON(t, router, http.MethodGet, "/v1/sessions/1730505600000/sheet", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("sheet build failed: %d", rec.Code)
	}

	rec, _ := doJSON(t, router, http.MethodPatch, "/v1/sessions/1730505600000/sheet/players/1",
		`{"field":"goals","value":2,"bogus":true}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_CreateExpense(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/v1/expenses",
		`{"date":"2024-11-20","amount":5000,"description":"Match balls"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data := dataObject(t, envelope)
	if data["description"] != "Match balls" {
		t.Fatalf("unexpected description: %v", data["description"])
	}
}

func TestRouter_CreateExpenseRejectsZeroAmount(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/v1/expenses",
		`{"amount":0,"description":"nothing"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_RefreshJobRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/v1/internal/jobs/refresh", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRouter_RefreshJobRunsWithToken(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/v1/internal/jobs/refresh", "",
		map[string]string{"X-Internal-Job-Token": testJobToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := dataObject(t, envelope)
	if got, _ := data["failed_count"].(float64); got != 0 {
		t.Fatalf("expected no failed tasks, got %v", data["failed_count"])
	}
	if got, _ := data["task_count"].(float64); got != 2 {
		t.Fatalf("expected 2 tasks (1 sheet + ledger), got %v", data["task_count"])
	}
}

func TestRouter_Overview(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodGet, "/v1/overview", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	data := dataObject(t, envelope)
	if got, _ := data["memberCount"].(float64); got != 2 {
		t.Fatalf("expected 2 members, got %v", data["memberCount"])
	}
	if got, _ := data["feeBalance"].(float64); got != 18000 {
		t.Fatalf("expected balance 18000, got %v", data["feeBalance"])
	}
	latest, ok := data["latestSession"].(map[string]any)
	if !ok || latest["label"] != "2024-11-23" {
		t.Fatalf("unexpected latest session: %v", data["latestSession"])
	}
}

func TestRouter_CreateMatchDerivesResults(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/v1/sessions/1730505600000/matches",
		`{"matchOrder":1,"team1Score":3,"team2Score":1}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data := dataObject(t, envelope)
	if data["team1Result"] != "WIN" || data["team2Result"] != "LOSE" {
		t.Fatalf("unexpected results: %v / %v", data["team1Result"], data["team2Result"])
	}
	if data["team1Name"] != "Red" || data["team2Name"] != "Blue" {
		t.Fatalf("unexpected team names: %v / %v", data["team1Name"], data["team2Name"])
	}
}
