package clubapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jochuk/clubdesk/internal/platform/logging"
	"github.com/jochuk/clubdesk/internal/platform/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 0,
		Logger:     logging.NewNop(),
	})
	return client, server
}

func TestListPlayers_DecodesRoster(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/players" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Alice"},{"id":2,"name":"Bob"}]`))
	}))

	players, err := client.ListPlayers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got=%d", len(players))
	}
	if players[0].Name != "Alice" || players[1].ID != 2 {
		t.Fatalf("unexpected players: %+v", players)
	}
}

func TestListPlayerRecords_NotFoundMeansEmpty(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no records", http.StatusNotFound)
	}))

	records, err := client.ListPlayerRecords(context.Background(), 1730505600000)
	if err != nil {
		t.Fatalf("expected 404 to be treated as empty, got error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got=%d", len(records))
	}
}

func TestListPlayerRecords_PassesDateIDQuery(t *testing.T) {
	t.Parallel()

	var gotDateID atomic.Value
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDateID.Store(r.URL.Query().Get("dateId"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"playerId":7,"teamId":3,"dateId":1730505600000,"attendance":true}]`))
	}))

	records, err := client.ListPlayerRecords(context.Background(), 1730505600000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := gotDateID.Load(); got != "1730505600000" {
		t.Fatalf("expected dateId query 1730505600000, got=%v", got)
	}
	if len(records) != 1 || records[0].PlayerID != 7 || !records[0].Attendance {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestGetRaw_ServerErrorCarriesStatusAndBody(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad input", http.StatusBadRequest)
	}))

	_, err := client.ListMatches(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}

	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Type != ErrorTypeServer {
		t.Fatalf("expected server error type, got=%s", apiErr.Type)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got=%d", apiErr.Status)
	}
	if apiErr.Body == "" {
		t.Fatal("expected the response body to be captured")
	}
}

func TestGetRaw_NetworkFailureClassified(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Timeout: time.Second,
		Logger:  logging.NewNop(),
	})
	server.Close()

	_, err := client.ListPlayers(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsType(err, ErrorTypeNetwork) {
		t.Fatalf("expected network error type, got: %v", err)
	}
}

func TestGetRaw_HTMLBodyOnSuccessIsParseError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>login</body></html>"))
	}))

	_, err := client.ListPlayers(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsType(err, ErrorTypeParse) {
		t.Fatalf("expected parse error type, got: %v", err)
	}
}

func TestGetRaw_MalformedJSONIsParseError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":`))
	}))

	_, err := client.ListPlayers(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsType(err, ErrorTypeParse) {
		t.Fatalf("expected parse error type, got: %v", err)
	}
}

func TestExecuteGet_RetriesTransientStatusThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 1,
		Logger:     logging.NewNop(),
	})

	players, err := client.ListPlayers(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got error: %v", err)
	}
	if players == nil {
		t.Fatal("expected an empty roster, got nil")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got=%d", got)
	}
}

func TestExecuteGet_DoesNotRetryClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		Logger:     logging.NewNop(),
	})

	if _, err := client.ListPlayers(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt for 400, got=%d", got)
	}
}

func TestCircuitBreaker_OpensAfterFailuresAndRejects(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
		Logger:  logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	if _, err := client.ListPlayers(context.Background()); err == nil {
		t.Fatal("expected the first call to fail")
	}

	_, err := client.ListPlayers(context.Background())
	if err == nil {
		t.Fatal("expected the breaker to reject the second call")
	}
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit-open error, got: %v", err)
	}
}

func TestSendJSON_PostsAttendeeRow(t *testing.T) {
	t.Parallel()

	var gotBody atomic.Value
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(string(body))
		w.WriteHeader(http.StatusCreated)
	}))

	err := client.CreatePlayerRecord(context.Background(), PlayerRecord{
		PlayerID:   7,
		TeamID:     3,
		DateID:     1730505600000,
		Attendance: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, _ := gotBody.Load().(string)
	for _, want := range []string{`"playerId":7`, `"teamId":3`, `"attendance":true`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected request body to contain %s, got: %s", want, body)
		}
	}
}

func TestUpdateMatch_HitsMatchPath(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/matches/42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"matchOrder":1,"team1Score":2,"team2Score":1,"team1Result":"WIN","team2Result":"LOSE"}`))
	}))

	match, err := client.UpdateMatch(context.Background(), 42, MatchInput{MatchOrder: 1, Team1Score: 2, Team2Score: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match.ID != 42 || match.Team1Result != "WIN" {
		t.Fatalf("unexpected match: %+v", match)
	}
}

func TestDeleteMatch_AcceptsEmptyBody(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/matches/9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.DeleteMatch(context.Background(), 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListMembershipFees_SupportsBareArrayAndEnvelope(t *testing.T) {
	t.Parallel()

	bare, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"title":"November dues","amount":10000}]`))
	}))
	fees, err := bare.ListMembershipFees(context.Background())
	if err != nil {
		t.Fatalf("bare array: unexpected error: %v", err)
	}
	if len(fees) != 1 || fees[0].Amount != 10000 {
		t.Fatalf("bare array: unexpected fees: %+v", fees)
	}

	wrapped, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fees":[{"id":2,"title":"December dues","amount":12000}]}`))
	}))
	fees, err = wrapped.ListMembershipFees(context.Background())
	if err != nil {
		t.Fatalf("envelope: unexpected error: %v", err)
	}
	if len(fees) != 1 || fees[0].ID != 2 {
		t.Fatalf("envelope: unexpected fees: %+v", fees)
	}
}

func TestGetDayRecord_NotFoundYieldsEmptyDay(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no record", http.StatusNotFound)
	}))

	day, err := client.GetDayRecord(context.Background(), 1730505600000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.DateID != 1730505600000 {
		t.Fatalf("expected the requested date id on the empty record, got=%d", day.DateID)
	}
	if len(day.Teams) != 0 || len(day.Matches) != 0 {
		t.Fatalf("expected an empty day record, got: %+v", day)
	}
}

func TestValidation_RejectsNonPositiveIDs(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{BaseURL: "http://localhost:0", Logger: logging.NewNop()})

	if _, err := client.ListPlayerRecords(context.Background(), 0); err == nil {
		t.Fatal("expected an error for date id 0")
	}
	if err := client.DeleteMatch(context.Background(), -1); err == nil {
		t.Fatal("expected an error for negative match id")
	}
	if _, err := client.CreateTeam(context.Background(), "   "); err == nil {
		t.Fatal("expected an error for blank team name")
	}
}
