package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jochuk/clubdesk/internal/domain/roster"
	"github.com/jochuk/clubdesk/internal/domain/session"
	"github.com/jochuk/clubdesk/internal/usecase"
)

type sessionDTO struct {
	DateID int64  `json:"dateId"`
	Date   string `json:"date"`
	Label  string `json:"label"`
}

type playerStatDTO struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Attendance int    `json:"attendance"`
	Goals      int    `json:"goals"`
	Assists    int    `json:"assists"`
	CleanSheet int    `json:"cleanSheet"`
	MOM        int    `json:"mom"`
	Wins       int    `json:"wins"`
	Draws      int    `json:"draws"`
	Loses      int    `json:"loses"`
	TotalPoint int    `json:"totalPoint"`
}

type sheetDTO struct {
	DateID int64           `json:"dateId"`
	Rows   []playerStatDTO `json:"rows"`
}

type updateSheetPlayerRequest struct {
	Field    string `json:"field" validate:"omitempty,oneof=goals assists cleanSheet mom"`
	Value    *int   `json:"value"`
	Position string `json:"position" validate:"omitempty,oneof=FW MF DF GK"`
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSessions")
	defer span.End()

	days := h.sessionService.List(ctx)
	items := make([]sessionDTO, 0, len(days))
	for _, day := range days {
		items = append(items, sessionToDTO(day))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetSheet(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSheet")
	defer span.End()

	dateID, err := h.resolveSessionID(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	sheet, err := h.attendanceService.BuildSheet(ctx, dateID, rosterFromQuery(r))
	if err != nil {
		h.logger.WarnContext(ctx, "build sheet failed", "date_id", dateID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sheetToDTO(sheet))
}

func (h *Handler) ToggleAttendance(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ToggleAttendance")
	defer span.End()

	dateID, err := pathInt64(r, "dateID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	playerID, err := pathInt64(r, "playerID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.attendanceService.Toggle(ctx, dateID, playerID); err != nil {
		h.logger.WarnContext(ctx, "toggle attendance failed", "date_id", dateID, "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.writeSheet(ctx, w, dateID)
}

func (h *Handler) ToggleAllAttendance(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ToggleAllAttendance")
	defer span.End()

	dateID, err := pathInt64(r, "dateID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.attendanceService.ToggleAll(ctx, dateID); err != nil {
		h.logger.WarnContext(ctx, "toggle all attendance failed", "date_id", dateID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.writeSheet(ctx, w, dateID)
}

func (h *Handler) UpdateSheetPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateSheetPlayer")
	defer span.End()

	dateID, err := pathInt64(r, "dateID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	playerID, err := pathInt64(r, "playerID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req updateSheetPlayerRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	hasField := strings.TrimSpace(req.Field) != ""
	hasPosition := strings.TrimSpace(req.Position) != ""
	switch {
	case hasField == hasPosition:
		writeError(ctx, w, fmt.Errorf("%w: exactly one of field or position is required", usecase.ErrInvalidInput))
		return
	case hasField:
		if req.Value == nil {
			writeError(ctx, w, fmt.Errorf("%w: value is required for a stat edit", usecase.ErrInvalidInput))
			return
		}
		err = h.attendanceService.UpdateStat(ctx, dateID, playerID, req.Field, *req.Value)
	default:
		err = h.attendanceService.UpdatePosition(ctx, dateID, playerID, roster.Position(req.Position))
	}
	if err != nil {
		h.logger.WarnContext(ctx, "update sheet player failed", "date_id", dateID, "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.writeSheet(ctx, w, dateID)
}

func (h *Handler) SaveSheet(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SaveSheet")
	defer span.End()

	dateID, err := pathInt64(r, "dateID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.attendanceService.SaveAll(ctx, dateID); err != nil {
		h.logger.WarnContext(ctx, "save sheet failed", "date_id", dateID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.writeSheet(ctx, w, dateID)
}

func (h *Handler) resolveSessionID(ctx context.Context, r *http.Request) (int64, error) {
	dateID, err := pathInt64(r, "dateID")
	if err != nil {
		return 0, err
	}
	day, err := h.sessionService.Resolve(ctx, dateID)
	if err != nil {
		return 0, err
	}
	return day.ID, nil
}

func (h *Handler) writeSheet(ctx context.Context, w http.ResponseWriter, dateID int64) {
	sheet, ok := h.attendanceService.Sheet(dateID)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: no sheet built for date_id=%d", usecase.ErrNotFound, dateID))
		return
	}
	writeSuccess(ctx, w, http.StatusOK, sheetToDTO(sheet))
}

// rosterFromQuery narrows the sheet to the picked players. Entries come as
// repeated "Name" or "Name:POS" values; no parameter selects everyone.
func rosterFromQuery(r *http.Request) []roster.Entry {
	values := r.URL.Query()["roster"]
	if len(values) == 0 {
		return nil
	}

	entries := make([]roster.Entry, 0, len(values))
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			name := item
			position := roster.PositionMidfielder
			if idx := strings.LastIndex(item, ":"); idx > 0 {
				name = strings.TrimSpace(item[:idx])
				position = roster.Position(strings.ToUpper(strings.TrimSpace(item[idx+1:])))
			}
			entries = append(entries, roster.Entry{Name: name, Position: position})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return entries
}

func sessionToDTO(day session.Session) sessionDTO {
	return sessionDTO{
		DateID: day.ID,
		Date:   day.Date.UTC().Format(time.RFC3339),
		Label:  day.Label,
	}
}

func sheetToDTO(sheet *usecase.Sheet) sheetDTO {
	rows := sheet.Rows()
	out := sheetDTO{
		DateID: sheet.DateID,
		Rows:   make([]playerStatDTO, 0, len(rows)),
	}
	for _, row := range rows {
		out.Rows = append(out.Rows, playerStatDTO{
			ID:         row.ID,
			Name:       row.Name,
			Position:   string(row.Position),
			Attendance: row.Attendance,
			Goals:      row.Goals,
			Assists:    row.Assists,
			CleanSheet: row.CleanSheet,
			MOM:        row.MOM,
			Wins:       row.Wins,
			Draws:      row.Draws,
			Loses:      row.Loses,
			TotalPoint: row.TotalPoint,
		})
	}
	return out
}
