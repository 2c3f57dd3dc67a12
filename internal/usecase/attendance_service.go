package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jochuk/clubdesk/external/clubapi"
	"github.com/jochuk/clubdesk/internal/domain/match"
	"github.com/jochuk/clubdesk/internal/domain/roster"
	"github.com/jochuk/clubdesk/internal/domain/scoring"
	"github.com/jochuk/clubdesk/internal/platform/logging"
	"github.com/jochuk/clubdesk/internal/platform/resilience"
	"github.com/sourcegraph/conc/pool"
)

// Stat field names accepted by UpdateStat.
const (
	StatFieldGoals      = "goals"
	StatFieldAssists    = "assists"
	StatFieldCleanSheet = "cleanSheet"
	StatFieldMOM        = "mom"
)

type attendanceBackend interface {
	ListPlayers(ctx context.Context) ([]clubapi.Player, error)
	ListPlayerRecords(ctx context.Context, dateID int64) ([]clubapi.PlayerRecord, error)
	CreatePlayerRecord(ctx context.Context, record clubapi.PlayerRecord) error
	GetDayRecord(ctx context.Context, dateID int64) (clubapi.DayRecord, error)
}

type sheetSnapshotStore interface {
	Save(ctx context.Context, dateID int64, rows []roster.PlayerStat) error
	Load(ctx context.Context, dateID int64) ([]roster.PlayerStat, bool, error)
}

// Sheet is the working state for one session: the visible stat rows plus
// the shadow attendance map that decides what a save persists. All access
// goes through its mutex; the service never hands out the live slices.
type Sheet struct {
	DateID int64

	mu     sync.Mutex
	rows   []roster.PlayerStat
	shadow map[int64]roster.AttendanceState
	saving bool
}

// Rows returns a copy of the sheet rows in display order.
func (s *Sheet) Rows() []roster.PlayerStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]roster.PlayerStat, len(s.rows))
	copy(out, s.rows)
	return out
}

// Shadow returns a copy of the shadow attendance map.
func (s *Sheet) Shadow() map[int64]roster.AttendanceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]roster.AttendanceState, len(s.shadow))
	for id, state := range s.shadow {
		out[id] = state
	}
	return out
}

// SheetStore holds the built sheet per session. Sheets are installed under
// the date id they were built for, so a slow build for a previous session
// can never replace another session's sheet.
type SheetStore struct {
	mu     sync.RWMutex
	sheets map[int64]*Sheet
}

func NewSheetStore() *SheetStore {
	return &SheetStore{sheets: make(map[int64]*Sheet)}
}

func (s *SheetStore) get(dateID int64) (*Sheet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sheet, ok := s.sheets[dateID]
	return sheet, ok
}

func (s *SheetStore) install(sheet *Sheet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheet.DateID] = sheet
}

// AttendanceService is the reconciliation engine: it blends the backend's
// attendee records (closed world: no record means did not attend) with the
// locally edited stat tallies and shadow attendance state.
type AttendanceService struct {
	api       attendanceBackend
	sheets    *SheetStore
	snapshots sheetSnapshotStore
	rules     scoring.Rules
	logger    *logging.Logger
	flight    resilience.SingleFlight
}

func NewAttendanceService(
	api attendanceBackend,
	sheets *SheetStore,
	snapshots sheetSnapshotStore,
	rules scoring.Rules,
	logger *logging.Logger,
) *AttendanceService {
	if sheets == nil {
		sheets = NewSheetStore()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AttendanceService{
		api:       api,
		sheets:    sheets,
		snapshots: snapshots,
		rules:     rules,
		logger:    logger,
	}
}

// BuildSheet assembles the sheet for one session. A nil roster selects
// every backend player at the default position. Concurrent builds for the
// same session are deduplicated; a cancelled build never installs.
func (s *AttendanceService) BuildSheet(ctx context.Context, dateID int64, entries []roster.Entry) (*Sheet, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AttendanceService.BuildSheet")
	defer span.End()

	if dateID <= 0 {
		return nil, fmt.Errorf("%w: date id must be greater than zero", ErrInvalidInput)
	}

	out, err, _ := s.flight.Do("sheet:"+strconv.FormatInt(dateID, 10), func() (any, error) {
		return s.buildSheet(ctx, dateID, entries)
	})
	if err != nil {
		return nil, err
	}

	sheet, ok := out.(*Sheet)
	if !ok {
		return nil, fmt.Errorf("unexpected sheet build result type %T", out)
	}
	return sheet, nil
}

func (s *AttendanceService) buildSheet(ctx context.Context, dateID int64, entries []roster.Entry) (*Sheet, error) {
	players, err := s.api.ListPlayers(ctx)
	if err != nil {
		return s.sheetFromSnapshot(ctx, dateID, fmt.Errorf("list players: %w", err))
	}

	records, err := s.api.ListPlayerRecords(ctx, dateID)
	if err != nil {
		return s.sheetFromSnapshot(ctx, dateID, fmt.Errorf("list player records: %w", err))
	}

	if entries == nil {
		entries = make([]roster.Entry, 0, len(players))
		for _, p := range players {
			entries = append(entries, roster.Entry{Name: p.Name, Position: roster.PositionMidfielder})
		}
	}

	idByName := make(map[string]int64, len(players))
	for _, p := range players {
		name := strings.TrimSpace(p.Name)
		if name == "" || p.ID <= 0 {
			continue
		}
		if _, exists := idByName[name]; !exists {
			idByName[name] = p.ID
		}
	}

	teamByPlayer := make(map[int64]int64, len(records))
	attended := make(map[int64]bool, len(records))
	for _, record := range records {
		attended[record.PlayerID] = true
		if record.TeamID > 0 {
			teamByPlayer[record.PlayerID] = record.TeamID
		}
	}

	teamNames, matches := s.loadDayContext(ctx, dateID)

	sheet := &Sheet{
		DateID: dateID,
		rows:   make([]roster.PlayerStat, 0, len(entries)),
		shadow: make(map[int64]roster.AttendanceState, len(entries)),
	}

	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		playerID, ok := idByName[name]
		if !ok {
			s.logger.WarnContext(ctx, "dropping roster entry with no backend player",
				"player_name", entry.Name,
				"date_id", dateID,
			)
			continue
		}

		position := entry.Position
		if _, ok := roster.AllPositions[position]; !ok {
			position = roster.PositionMidfielder
		}

		row := roster.PlayerStat{
			ID:       playerID,
			Name:     name,
			Position: position,
		}
		if attended[playerID] {
			row.Attendance = 1
			if teamName, ok := teamNames[teamByPlayer[playerID]]; ok {
				record := match.TeamRecord(matches, teamName)
				row.Wins = record.Wins
				row.Draws = record.Draws
				row.Loses = record.Loses
			}
		}
		row.TotalPoint = s.totalPoint(row)

		sheet.rows = append(sheet.rows, row)
		sheet.shadow[playerID] = roster.AttendanceState{
			PlayerName: name,
			Attendance: row.Attendance > 0,
		}
	}

	roster.SortStats(sheet.rows)

	// A build superseded by a session switch must not land.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.sheets.install(sheet)
	s.saveSnapshot(ctx, sheet)
	return sheet, nil
}

// sheetFromSnapshot restores the last known sheet when the backend is
// unreachable. Without a usable snapshot the remote error stands.
func (s *AttendanceService) sheetFromSnapshot(ctx context.Context, dateID int64, cause error) (*Sheet, error) {
	if s.snapshots == nil {
		return nil, cause
	}

	rows, ok, err := s.snapshots.Load(ctx, dateID)
	if err != nil || !ok {
		if err != nil {
			s.logger.WarnContext(ctx, "sheet snapshot read failed", "date_id", dateID, "error", err)
		}
		return nil, cause
	}

	s.logger.WarnContext(ctx, "serving sheet from snapshot after remote failure",
		"date_id", dateID,
		"error", cause,
	)

	sheet := &Sheet{
		DateID: dateID,
		rows:   rows,
		shadow: make(map[int64]roster.AttendanceState, len(rows)),
	}
	for _, row := range rows {
		sheet.shadow[row.ID] = roster.AttendanceState{
			PlayerName: row.Name,
			Attendance: row.Attendance > 0,
		}
	}
	roster.SortStats(sheet.rows)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.sheets.install(sheet)
	return sheet, nil
}

func (s *AttendanceService) loadDayContext(ctx context.Context, dateID int64) (map[int64]string, []match.Score) {
	day, err := s.api.GetDayRecord(ctx, dateID)
	if err != nil {
		s.logger.WarnContext(ctx, "day record unavailable, building sheet without team results",
			"date_id", dateID,
			"error", err,
		)
		return nil, nil
	}

	teamNames := make(map[int64]string, len(day.Teams))
	for _, team := range day.Teams {
		teamNames[team.ID] = team.TeamName
	}

	matches := make([]match.Score, 0, len(day.Matches))
	for _, m := range day.Matches {
		matches = append(matches, scoreFromBackendMatch(m))
	}
	return teamNames, matches
}

// Sheet returns the built sheet for a session, if any.
func (s *AttendanceService) Sheet(dateID int64) (*Sheet, bool) {
	return s.sheets.get(dateID)
}

// Toggle flips one player's attendance in the shadow map and the visible
// row in the same locked step, then re-points and re-sorts.
func (s *AttendanceService) Toggle(ctx context.Context, dateID, playerID int64) error {
	_, span := startUsecaseSpan(ctx, "usecase.AttendanceService.Toggle")
	defer span.End()

	sheet, ok := s.sheets.get(dateID)
	if !ok {
		return fmt.Errorf("%w: no sheet built for date_id=%d", ErrNotFound, dateID)
	}

	sheet.mu.Lock()
	defer sheet.mu.Unlock()

	state, ok := sheet.shadow[playerID]
	if !ok {
		return fmt.Errorf("%w: player %d is not on the sheet", ErrNotFound, playerID)
	}

	state.Attendance = !state.Attendance
	sheet.shadow[playerID] = state

	for i := range sheet.rows {
		if sheet.rows[i].ID != playerID {
			continue
		}
		if state.Attendance {
			sheet.rows[i].Attendance = 1
		} else {
			sheet.rows[i].Attendance = 0
		}
		sheet.rows[i].TotalPoint = s.totalPoint(sheet.rows[i])
		break
	}

	roster.SortStats(sheet.rows)
	return nil
}

// ToggleAll sets every row to the inverse of "everyone is attending":
// a fully attended sheet empties, anything else fills. Binary flip only.
func (s *AttendanceService) ToggleAll(ctx context.Context, dateID int64) error {
	_, span := startUsecaseSpan(ctx, "usecase.AttendanceService.ToggleAll")
	defer span.End()

	sheet, ok := s.sheets.get(dateID)
	if !ok {
		return fmt.Errorf("%w: no sheet built for date_id=%d", ErrNotFound, dateID)
	}

	sheet.mu.Lock()
	defer sheet.mu.Unlock()

	allAttended := len(sheet.rows) > 0
	for _, row := range sheet.rows {
		if row.Attendance <= 0 {
			allAttended = false
			break
		}
	}

	target := !allAttended
	for i := range sheet.rows {
		if target {
			sheet.rows[i].Attendance = 1
		} else {
			sheet.rows[i].Attendance = 0
		}
		sheet.rows[i].TotalPoint = s.totalPoint(sheet.rows[i])

		state := sheet.shadow[sheet.rows[i].ID]
		state.Attendance = target
		sheet.shadow[sheet.rows[i].ID] = state
	}

	roster.SortStats(sheet.rows)
	return nil
}

// UpdateStat sets one editable tally. Values clamp to zero; the total
// point is recomputed and the sheet re-sorted.
func (s *AttendanceService) UpdateStat(ctx context.Context, dateID, playerID int64, field string, value int) error {
	_, span := startUsecaseSpan(ctx, "usecase.AttendanceService.UpdateStat")
	defer span.End()

	sheet, ok := s.sheets.get(dateID)
	if !ok {
		return fmt.Errorf("%w: no sheet built for date_id=%d", ErrNotFound, dateID)
	}

	if value < 0 {
		value = 0
	}

	sheet.mu.Lock()
	defer sheet.mu.Unlock()

	for i := range sheet.rows {
		if sheet.rows[i].ID != playerID {
			continue
		}
		switch field {
		case StatFieldGoals:
			sheet.rows[i].Goals = value
		case StatFieldAssists:
			sheet.rows[i].Assists = value
		case StatFieldCleanSheet:
			sheet.rows[i].CleanSheet = value
		case StatFieldMOM:
			sheet.rows[i].MOM = value
		default:
			return fmt.Errorf("%w: unknown stat field %q", ErrInvalidInput, field)
		}
		sheet.rows[i].TotalPoint = s.totalPoint(sheet.rows[i])
		roster.SortStats(sheet.rows)
		return nil
	}

	return fmt.Errorf("%w: player %d is not on the sheet", ErrNotFound, playerID)
}

// UpdatePosition changes the display position without re-pointing.
func (s *AttendanceService) UpdatePosition(ctx context.Context, dateID, playerID int64, position roster.Position) error {
	_, span := startUsecaseSpan(ctx, "usecase.AttendanceService.UpdatePosition")
	defer span.End()

	sheet, ok := s.sheets.get(dateID)
	if !ok {
		return fmt.Errorf("%w: no sheet built for date_id=%d", ErrNotFound, dateID)
	}
	if _, ok := roster.AllPositions[position]; !ok {
		return fmt.Errorf("%w: unknown position %q", ErrInvalidInput, position)
	}

	sheet.mu.Lock()
	defer sheet.mu.Unlock()

	for i := range sheet.rows {
		if sheet.rows[i].ID == playerID {
			sheet.rows[i].Position = position
			return nil
		}
	}
	return fmt.Errorf("%w: player %d is not on the sheet", ErrNotFound, playerID)
}

// SaveAll persists one record per shadow-attending player, concurrently
// with an all-or-nothing join, then re-fetches server truth and
// reconciles. Completed creates are never rolled back.
func (s *AttendanceService) SaveAll(ctx context.Context, dateID int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.AttendanceService.SaveAll")
	defer span.End()

	sheet, ok := s.sheets.get(dateID)
	if !ok {
		return fmt.Errorf("%w: no sheet built for date_id=%d", ErrNotFound, dateID)
	}

	attendees, err := s.beginSave(sheet)
	if err != nil {
		return err
	}
	defer s.endSave(sheet)

	teamID, err := s.resolveSaveTeam(ctx, dateID)
	if err != nil {
		return err
	}

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()
	for _, playerID := range attendees {
		playerID := playerID
		p.Go(func(ctx context.Context) error {
			record := clubapi.PlayerRecord{
				PlayerID:   playerID,
				TeamID:     teamID,
				DateID:     dateID,
				Attendance: true,
			}
			if err := s.api.CreatePlayerRecord(ctx, record); err != nil {
				return fmt.Errorf("save attendance player_id=%d: %w", playerID, err)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return fmt.Errorf("save attendance date_id=%d: %w", dateID, err)
	}

	records, err := s.api.ListPlayerRecords(ctx, dateID)
	if err != nil {
		return fmt.Errorf("re-fetch records after save date_id=%d: %w", dateID, err)
	}
	s.reconcile(sheet, records)
	s.saveSnapshot(ctx, sheet)
	return nil
}

func (s *AttendanceService) beginSave(sheet *Sheet) ([]int64, error) {
	sheet.mu.Lock()
	defer sheet.mu.Unlock()

	if sheet.saving {
		return nil, fmt.Errorf("%w: a save is already in progress for date_id=%d", ErrInvalidInput, sheet.DateID)
	}
	if len(sheet.rows) == 0 {
		return nil, fmt.Errorf("%w: sheet is empty", ErrInvalidInput)
	}

	// The shadow map, not the display value, decides what gets saved.
	attendees := make([]int64, 0, len(sheet.shadow))
	for _, row := range sheet.rows {
		if state, ok := sheet.shadow[row.ID]; ok && state.Attendance {
			attendees = append(attendees, row.ID)
		}
	}
	if len(attendees) == 0 {
		return nil, fmt.Errorf("%w: no attending players to save", ErrInvalidInput)
	}

	sheet.saving = true
	return attendees, nil
}

func (s *AttendanceService) endSave(sheet *Sheet) {
	sheet.mu.Lock()
	sheet.saving = false
	sheet.mu.Unlock()
}

func (s *AttendanceService) resolveSaveTeam(ctx context.Context, dateID int64) (int64, error) {
	day, err := s.api.GetDayRecord(ctx, dateID)
	if err != nil {
		return 0, fmt.Errorf("resolve session team date_id=%d: %w", dateID, err)
	}
	if len(day.Teams) == 0 {
		return 0, fmt.Errorf("%w: session %d has no team to record attendance against", ErrInvalidInput, dateID)
	}
	return day.Teams[0].ID, nil
}

// Reconcile merges a fresh server record list into the sheet: recorded
// players become attending (server truth), unrecorded rows keep their
// client state. Running it twice with the same records changes nothing.
func (s *AttendanceService) Reconcile(ctx context.Context, dateID int64, records []clubapi.PlayerRecord) error {
	_, span := startUsecaseSpan(ctx, "usecase.AttendanceService.Reconcile")
	defer span.End()

	sheet, ok := s.sheets.get(dateID)
	if !ok {
		return fmt.Errorf("%w: no sheet built for date_id=%d", ErrNotFound, dateID)
	}
	s.reconcile(sheet, records)
	return nil
}

func (s *AttendanceService) reconcile(sheet *Sheet, records []clubapi.PlayerRecord) {
	recorded := make(map[int64]bool, len(records))
	for _, record := range records {
		recorded[record.PlayerID] = true
	}

	sheet.mu.Lock()
	defer sheet.mu.Unlock()

	for i := range sheet.rows {
		if !recorded[sheet.rows[i].ID] {
			continue
		}
		sheet.rows[i].Attendance = 1
		sheet.rows[i].TotalPoint = s.totalPoint(sheet.rows[i])

		state := sheet.shadow[sheet.rows[i].ID]
		state.Attendance = true
		sheet.shadow[sheet.rows[i].ID] = state
	}

	roster.SortStats(sheet.rows)
}

func (s *AttendanceService) totalPoint(row roster.PlayerStat) int {
	return scoring.TotalPoint(s.rules, row.Attendance, row.Goals, row.Assists, row.CleanSheet, row.MOM)
}

func (s *AttendanceService) saveSnapshot(ctx context.Context, sheet *Sheet) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, sheet.DateID, sheet.Rows()); err != nil {
		s.logger.WarnContext(ctx, "sheet snapshot write failed",
			"date_id", sheet.DateID,
			"error", err,
		)
	}
}
