package clubapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/jochuk/clubdesk/internal/platform/logging"
	"github.com/jochuk/clubdesk/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
)

const maxBodyBytes = 6 << 20

var errClubAPITransient = crerr.New("club api transient failure")

// ErrCircuitOpen is returned while the circuit breaker is rejecting
// requests. Callers map it to their own unavailability signal.
var ErrCircuitOpen = crerr.New("club api circuit open")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the remote club backend. Every call funnels through one
// request helper so failures come back as a uniform *APIError.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// ListPlayers returns the full club roster.
func (c *Client) ListPlayers(ctx context.Context) ([]Player, error) {
	var out []Player
	if err := c.getJSON(ctx, "/players", nil, &out); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return out, nil
}

// ListPlayerRecords returns the attendee rows for one session. The backend
// answers 404 when nothing has been saved for the date yet; that is "no
// data", not an error.
func (c *Client) ListPlayerRecords(ctx context.Context, dateID int64) ([]PlayerRecord, error) {
	if dateID <= 0 {
		return nil, &APIError{Type: ErrorTypeUnknown, Message: fmt.Sprintf("date id must be greater than zero, got %d", dateID)}
	}

	query := url.Values{}
	query.Set("dateId", strconv.FormatInt(dateID, 10))

	var out []PlayerRecord
	err := c.getJSON(ctx, "/player-records", query, &out)
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.Status == http.StatusNotFound {
			return []PlayerRecord{}, nil
		}
		return nil, fmt.Errorf("list player records date_id=%d: %w", dateID, err)
	}
	return out, nil
}

// CreatePlayerRecord persists one attendee row.
func (c *Client) CreatePlayerRecord(ctx context.Context, record PlayerRecord) error {
	if record.PlayerID <= 0 || record.DateID <= 0 {
		return &APIError{Type: ErrorTypeUnknown, Message: "player id and date id are required"}
	}
	if err := c.sendJSON(ctx, http.MethodPost, "/player-records", record, nil); err != nil {
		return fmt.Errorf("create player record player_id=%d date_id=%d: %w", record.PlayerID, record.DateID, err)
	}
	return nil
}

// ListMatches returns every stored match, results and team names resolved.
func (c *Client) ListMatches(ctx context.Context) ([]Match, error) {
	var out []Match
	if err := c.getJSON(ctx, "/matches", nil, &out); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return out, nil
}

func (c *Client) CreateMatch(ctx context.Context, input MatchInput) (Match, error) {
	var out Match
	if err := c.sendJSON(ctx, http.MethodPost, "/matches", input, &out); err != nil {
		return Match{}, fmt.Errorf("create match order=%d: %w", input.MatchOrder, err)
	}
	return out, nil
}

func (c *Client) UpdateMatch(ctx context.Context, matchID int64, input MatchInput) (Match, error) {
	if matchID <= 0 {
		return Match{}, &APIError{Type: ErrorTypeUnknown, Message: fmt.Sprintf("match id must be greater than zero, got %d", matchID)}
	}
	var out Match
	if err := c.sendJSON(ctx, http.MethodPut, "/matches/"+strconv.FormatInt(matchID, 10), input, &out); err != nil {
		return Match{}, fmt.Errorf("update match id=%d: %w", matchID, err)
	}
	return out, nil
}

func (c *Client) DeleteMatch(ctx context.Context, matchID int64) error {
	if matchID <= 0 {
		return &APIError{Type: ErrorTypeUnknown, Message: fmt.Sprintf("match id must be greater than zero, got %d", matchID)}
	}
	if err := c.sendJSON(ctx, http.MethodDelete, "/matches/"+strconv.FormatInt(matchID, 10), nil, nil); err != nil {
		return fmt.Errorf("delete match id=%d: %w", matchID, err)
	}
	return nil
}

// CreateTeam registers a session team and returns its backend id.
func (c *Client) CreateTeam(ctx context.Context, teamName string) (Team, error) {
	name := strings.TrimSpace(teamName)
	if name == "" {
		return Team{}, &APIError{Type: ErrorTypeUnknown, Message: "team name is required"}
	}
	var out Team
	if err := c.sendJSON(ctx, http.MethodPost, "/teams", map[string]string{"teamName": name}, &out); err != nil {
		return Team{}, fmt.Errorf("create team %q: %w", name, err)
	}
	if out.TeamName == "" {
		out.TeamName = name
	}
	return out, nil
}

func (c *Client) AddTeamPlayer(ctx context.Context, link TeamPlayer) error {
	if link.TeamID <= 0 || link.PlayerID <= 0 {
		return &APIError{Type: ErrorTypeUnknown, Message: "team id and player id are required"}
	}
	if err := c.sendJSON(ctx, http.MethodPost, "/team-players", link, nil); err != nil {
		return fmt.Errorf("add team player team_id=%d player_id=%d: %w", link.TeamID, link.PlayerID, err)
	}
	return nil
}

// GetDayRecord returns the teams and matches of one session. 404 means the
// day has no saved data yet and yields an empty record.
func (c *Client) GetDayRecord(ctx context.Context, dateID int64) (DayRecord, error) {
	if dateID <= 0 {
		return DayRecord{}, &APIError{Type: ErrorTypeUnknown, Message: fmt.Sprintf("date id must be greater than zero, got %d", dateID)}
	}

	var out DayRecord
	err := c.getJSON(ctx, "/records/"+strconv.FormatInt(dateID, 10), nil, &out)
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.Status == http.StatusNotFound {
			return DayRecord{DateID: dateID}, nil
		}
		return DayRecord{}, fmt.Errorf("get day record date_id=%d: %w", dateID, err)
	}
	if out.DateID == 0 {
		out.DateID = dateID
	}
	return out, nil
}

// ListMembershipFees returns the fee ledger. The endpoint has returned both
// a bare array and a {fees:[...]} wrapper across backend revisions.
func (c *Client) ListMembershipFees(ctx context.Context) ([]MembershipFee, error) {
	raw, err := c.getRaw(ctx, "/membershipfees", nil)
	if err != nil {
		return nil, fmt.Errorf("list membership fees: %w", err)
	}

	var out []MembershipFee
	if err := sonic.Unmarshal(raw, &out); err == nil {
		return out, nil
	}
	var wrapped membershipFeesEnvelope
	if err := sonic.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("list membership fees: %w", c.parseError("/membershipfees", raw, err))
	}
	return wrapped.Fees, nil
}

func (c *Client) ListExpenses(ctx context.Context) ([]Expense, error) {
	raw, err := c.getRaw(ctx, "/expenses", nil)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	var out []Expense
	if err := sonic.Unmarshal(raw, &out); err == nil {
		return out, nil
	}
	var wrapped expensesEnvelope
	if err := sonic.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("list expenses: %w", c.parseError("/expenses", raw, err))
	}
	return wrapped.Expenses, nil
}

func (c *Client) CreateExpense(ctx context.Context, input ExpenseInput) (Expense, error) {
	var out Expense
	if err := c.sendJSON(ctx, http.MethodPost, "/expenses", input, &out); err != nil {
		return Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, target any) error {
	raw, err := c.getRaw(ctx, path, query)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return c.parseError(path, raw, err)
	}
	return nil
}

// getRaw runs a GET with the circuit breaker in front, concurrent callers
// for the same URL deduplicated, and transient failures retried.
func (c *Client) getRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.allow(ctx); err != nil {
		return nil, err
	}

	fullURL, err := c.buildURL(path, query)
	if err != nil {
		return nil, err
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeGet(ctx, fullURL)
		c.recordCircuitResult(reqErr)
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, &APIError{Type: ErrorTypeUnknown, Message: fmt.Sprintf("unexpected response payload type %T", out), URL: fullURL}
	}
	return raw, nil
}

func (c *Client) executeGet(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, &APIError{Type: ErrorTypeUnknown, Message: "build request: " + err.Error(), URL: fullURL}
		}
		req.Header.Set("accept", "application/json")

		raw, done, reqErr := c.roundTrip(req, fullURL)
		if done {
			return raw, reqErr
		}
		lastErr = reqErr

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = &APIError{Type: ErrorTypeUnknown, Message: "request failed", URL: fullURL}
	}
	c.logger.WarnContext(ctx, "club api request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

// roundTrip performs one attempt. done=false means the error is transient
// and the caller may retry.
func (c *Client) roundTrip(req *http.Request, fullURL string) ([]byte, bool, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := &APIError{Type: ErrorTypeNetwork, Message: "send request: " + err.Error(), URL: fullURL}
		return nil, false, crerr.Mark(apiErr, errClubAPITransient)
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	if readErr != nil {
		apiErr := &APIError{Type: ErrorTypeNetwork, Message: "read response body: " + readErr.Error(), URL: fullURL}
		return nil, false, crerr.Mark(apiErr, errClubAPITransient)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if looksLikeHTML(resp.Header.Get("Content-Type"), raw) {
			return nil, true, &APIError{
				Type:    ErrorTypeParse,
				Message: "received HTML instead of JSON; check CLUB_API_BASE_URL",
				Status:  resp.StatusCode,
				URL:     fullURL,
				Body:    abbreviateBody(raw),
			}
		}
		return raw, true, nil
	}

	apiErr := &APIError{
		Type:    ErrorTypeServer,
		Message: "backend returned an error",
		Status:  resp.StatusCode,
		URL:     fullURL,
		Body:    abbreviateBody(raw),
	}
	if isRetryableStatus(resp.StatusCode) {
		return nil, false, crerr.Mark(apiErr, errClubAPITransient)
	}
	return nil, true, apiErr
}

// sendJSON performs a write. Writes are never retried: a timed-out POST may
// still have landed, and the post-save reconcile re-reads server truth.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload, target any) error {
	if err := c.allow(ctx); err != nil {
		return err
	}

	fullURL, err := c.buildURL(path, nil)
	if err != nil {
		return err
	}

	var bodyText string
	var bodyReader io.Reader
	if payload != nil {
		body, marshalErr := sonic.Marshal(payload)
		if marshalErr != nil {
			return &APIError{Type: ErrorTypeUnknown, Message: "marshal request body: " + marshalErr.Error(), URL: fullURL}
		}
		bodyText = truncateForLog(string(body), 4096)
		bodyReader = strings.NewReader(string(body))
	}

	c.logger.DebugContext(ctx, "club api write",
		"method", method,
		"url", fullURL,
		"curl_preview", buildCurlPreview(method, fullURL, bodyText),
	)

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return &APIError{Type: ErrorTypeUnknown, Message: "build request: " + err.Error(), URL: fullURL}
	}
	req.Header.Set("accept", "application/json")
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := &APIError{Type: ErrorTypeNetwork, Message: "send request: " + err.Error(), URL: fullURL}
		marked := crerr.Mark(apiErr, errClubAPITransient)
		c.recordCircuitResult(marked)
		return marked
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	if readErr != nil {
		apiErr := &APIError{Type: ErrorTypeNetwork, Message: "read response body: " + readErr.Error(), URL: fullURL}
		marked := crerr.Mark(apiErr, errClubAPITransient)
		c.recordCircuitResult(marked)
		return marked
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Type:    ErrorTypeServer,
			Message: "backend rejected " + method + " " + path,
			Status:  resp.StatusCode,
			URL:     fullURL,
			Body:    abbreviateBody(raw),
		}
		var out error = apiErr
		if isRetryableStatus(resp.StatusCode) {
			out = crerr.Mark(apiErr, errClubAPITransient)
		}
		c.recordCircuitResult(out)
		return out
	}
	c.recordCircuitResult(nil)

	if target == nil || len(raw) == 0 {
		return nil
	}
	if looksLikeHTML(resp.Header.Get("Content-Type"), raw) {
		return &APIError{
			Type:    ErrorTypeParse,
			Message: "received HTML instead of JSON; check CLUB_API_BASE_URL",
			Status:  resp.StatusCode,
			URL:     fullURL,
			Body:    abbreviateBody(raw),
		}
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return c.parseError(path, raw, err)
	}
	return nil
}

func (c *Client) allow(ctx context.Context) error {
	if !c.circuitEnabled {
		return nil
	}
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "club api circuit breaker rejected request", "state", c.breaker.State())
		return fmt.Errorf("%w: club backend is temporarily unavailable", ErrCircuitOpen)
	}
	return nil
}

func (c *Client) recordCircuitResult(err error) {
	if !c.circuitEnabled || c.breaker == nil {
		return
	}
	if err == nil {
		c.breaker.RecordSuccess()
		return
	}
	if crerr.Is(err, errClubAPITransient) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	if c.baseURL == "" {
		return "", &APIError{Type: ErrorTypeUnknown, Message: "base URL is not configured"}
	}
	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}
	return fullURL, nil
}

func (c *Client) parseError(path string, raw []byte, cause error) error {
	if looksLikeHTML("", raw) {
		return &APIError{
			Type:    ErrorTypeParse,
			Message: "received HTML instead of JSON; check CLUB_API_BASE_URL",
			URL:     c.baseURL + path,
			Body:    abbreviateBody(raw),
		}
	}
	return &APIError{
		Type:    ErrorTypeParse,
		Message: "decode response: " + cause.Error(),
		URL:     c.baseURL + path,
		Body:    abbreviateBody(raw),
	}
}

func looksLikeHTML(contentType string, raw []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "<!DOCTYPE") ||
		strings.HasPrefix(trimmed, "<!doctype") ||
		strings.HasPrefix(trimmed, "<html")
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func buildCurlPreview(method, fullURL, body string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}

	appendPart("curl")
	appendPart("-X")
	appendPart(method)
	appendPart(shellQuote(fullURL))
	if body != "" {
		appendPart("-H")
		appendPart(shellQuote("Content-Type: application/json"))
		appendPart("-d")
		appendPart(shellQuote(body))
	}

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}

func abbreviateBody(raw []byte) string {
	return truncateForLog(strings.TrimSpace(string(raw)), 512)
}
