package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/jochuk/clubdesk/internal/domain/match"
	"github.com/jochuk/clubdesk/internal/usecase"
)

type sessionTeamDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type matchScoreDTO struct {
	ID          int64  `json:"id"`
	MatchOrder  int    `json:"matchOrder"`
	Team1Name   string `json:"team1Name"`
	Team1Score  int    `json:"team1Score"`
	Team1Result string `json:"team1Result"`
	Team2Name   string `json:"team2Name"`
	Team2Score  int    `json:"team2Score"`
	Team2Result string `json:"team2Result"`
}

type sessionRecordsDTO struct {
	DateID  int64            `json:"dateId"`
	Teams   []sessionTeamDTO `json:"teams"`
	Matches []matchScoreDTO  `json:"matches"`
}

type matchSubmissionRequest struct {
	MatchOrder int `json:"matchOrder" validate:"required,gt=0"`
	Team1Score int `json:"team1Score" validate:"gte=0"`
	Team2Score int `json:"team2Score" validate:"gte=0"`
}

type updateMatchRequest struct {
	DateID     int64 `json:"dateId" validate:"required,gt=0"`
	MatchOrder int   `json:"matchOrder" validate:"required,gt=0"`
	Team1Score int   `json:"team1Score" validate:"gte=0"`
	Team2Score int   `json:"team2Score" validate:"gte=0"`
}

type teamSetupRequest struct {
	Teams []teamSetupItem `json:"teams" validate:"required,min=1,max=2,dive"`
}

type teamSetupItem struct {
	Name      string  `json:"name" validate:"required,max=50"`
	PlayerIDs []int64 `json:"playerIds" validate:"dive,gt=0"`
}

func (h *Handler) GetSessionRecords(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSessionRecords")
	defer span.End()

	dateID, err := pathInt64(r, "dateID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	records, err := h.matchService.Records(ctx, dateID)
	if err != nil {
		h.logger.WarnContext(ctx, "get session records failed", "date_id", dateID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sessionRecordsToDTO(records))
}

func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateMatch")
	defer span.End()

	dateID, err := pathInt64(r, "dateID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req matchSubmissionRequest
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

	score, err := h.matchService.CreateMatch(ctx, usecase.MatchSubmission{
		DateID:     dateID,
		MatchOrder: req.MatchOrder,
		Team1Score: req.Team1Score,
		Team2Score: req.Team2Score,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create match failed", "date_id", dateID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, matchScoreToDTO(score))
}

func (h *Handler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateMatch")
	defer span.End()

	matchID, err := pathInt64(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req updateMatchRequest
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

	score, err := h.matchService.UpdateMatch(ctx, matchID, usecase.MatchSubmission{
		DateID:     req.DateID,
		MatchOrder: req.MatchOrder,
		Team1Score: req.Team1Score,
		Team2Score: req.Team2Score,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchScoreToDTO(score))
}

func (h *Handler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteMatch")
	defer span.End()

	matchID, err := pathInt64(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.matchService.DeleteMatch(ctx, matchID); err != nil {
		h.logger.WarnContext(ctx, "delete match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) SetupSessionTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetupSessionTeams")
	defer span.End()

	dateID, err := pathInt64(r, "dateID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req teamSetupRequest
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

	setups := make([]usecase.TeamSetup, 0, len(req.Teams))
	for _, item := range req.Teams {
		setups = append(setups, usecase.TeamSetup{
			Name:      item.Name,
			PlayerIDs: item.PlayerIDs,
		})
	}

	teams, err := h.matchService.SetupTeams(ctx, dateID, setups)
	if err != nil {
		h.logger.WarnContext(ctx, "setup session teams failed", "date_id", dateID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]sessionTeamDTO, 0, len(teams))
	for _, team := range teams {
		items = append(items, sessionTeamDTO{ID: team.ID, Name: team.Name})
	}
	writeSuccess(ctx, w, http.StatusCreated, items)
}

func sessionRecordsToDTO(records usecase.SessionRecords) sessionRecordsDTO {
	out := sessionRecordsDTO{
		DateID:  records.DateID,
		Teams:   make([]sessionTeamDTO, 0, len(records.Teams)),
		Matches: make([]matchScoreDTO, 0, len(records.Matches)),
	}
	for _, team := range records.Teams {
		out.Teams = append(out.Teams, sessionTeamDTO{ID: team.ID, Name: team.Name})
	}
	for _, score := range records.Matches {
		out.Matches = append(out.Matches, matchScoreToDTO(score))
	}
	return out
}

func matchScoreToDTO(score match.Score) matchScoreDTO {
	return matchScoreDTO{
		ID:          score.ID,
		MatchOrder:  score.MatchOrder,
		Team1Name:   score.Team1Name,
		Team1Score:  score.Team1Score,
		Team1Result: string(score.Team1Result),
		Team2Name:   score.Team2Name,
		Team2Score:  score.Team2Score,
		Team2Result: string(score.Team2Result),
	}
}
