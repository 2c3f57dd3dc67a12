package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/jochuk/clubdesk/external/clubapi"
	"github.com/jochuk/clubdesk/internal/domain/match"
	"github.com/jochuk/clubdesk/internal/domain/session"
	"github.com/jochuk/clubdesk/internal/platform/logging"
)

type matchBackend interface {
	GetDayRecord(ctx context.Context, dateID int64) (clubapi.DayRecord, error)
	CreateMatch(ctx context.Context, input clubapi.MatchInput) (clubapi.Match, error)
	UpdateMatch(ctx context.Context, matchID int64, input clubapi.MatchInput) (clubapi.Match, error)
	DeleteMatch(ctx context.Context, matchID int64) error
	CreateTeam(ctx context.Context, teamName string) (clubapi.Team, error)
	AddTeamPlayer(ctx context.Context, link clubapi.TeamPlayer) error
}

// SessionTeam is one of a session's (at most two) teams.
type SessionTeam struct {
	ID   int64
	Name string
}

// SessionRecords bundles everything recorded for one training day.
type SessionRecords struct {
	DateID  int64
	Teams   []SessionTeam
	Matches []match.Score
}

// MatchSubmission is a score entry for one match of a session. Team sides
// are the session's registered teams in order.
type MatchSubmission struct {
	DateID     int64
	MatchOrder int
	Team1Score int
	Team2Score int
}

// TeamSetup registers one team and its players for a session.
type TeamSetup struct {
	Name      string
	PlayerIDs []int64
}

// Sessions register at most two teams.
const maxTeamsPerSession = 2

type MatchService struct {
	api    matchBackend
	logger *logging.Logger
}

func NewMatchService(api matchBackend, logger *logging.Logger) *MatchService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchService{api: api, logger: logger}
}

// Records returns the teams and match scores recorded for a session. A day
// with nothing recorded yet returns empty slices, not an error.
func (s *MatchService) Records(ctx context.Context, dateID int64) (SessionRecords, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Records")
	defer span.End()

	if dateID <= 0 {
		return SessionRecords{}, fmt.Errorf("%w: date id must be greater than zero", ErrInvalidInput)
	}

	day, err := s.api.GetDayRecord(ctx, dateID)
	if err != nil {
		return SessionRecords{}, fmt.Errorf("load day record date_id=%d: %w", dateID, err)
	}

	out := SessionRecords{
		DateID:  dateID,
		Teams:   make([]SessionTeam, 0, len(day.Teams)),
		Matches: make([]match.Score, 0, len(day.Matches)),
	}
	for _, team := range day.Teams {
		out.Teams = append(out.Teams, SessionTeam{ID: team.ID, Name: team.TeamName})
	}
	for _, m := range day.Matches {
		out.Matches = append(out.Matches, scoreFromBackendMatch(m))
	}
	return out, nil
}

// CreateMatch validates a score entry against the session's registered
// teams, derives both results, and posts it.
func (s *MatchService) CreateMatch(ctx context.Context, sub MatchSubmission) (match.Score, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.CreateMatch")
	defer span.End()

	team1, team2, err := s.resolveSessionTeams(ctx, sub.DateID)
	if err != nil {
		return match.Score{}, err
	}
	if err := match.ValidateInput(team1.Name, sub.Team1Score, team2.Name, sub.Team2Score, sub.MatchOrder); err != nil {
		return match.Score{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	day, err := session.FromID(sub.DateID)
	if err != nil {
		return match.Score{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	created, err := s.api.CreateMatch(ctx, clubapi.MatchInput{
		MatchDate:  day.Label,
		MatchOrder: sub.MatchOrder,
		TeamID:     team1.ID,
		Team1Score: sub.Team1Score,
		Team2Score: sub.Team2Score,
	})
	if err != nil {
		return match.Score{}, fmt.Errorf("create match date_id=%d: %w", sub.DateID, err)
	}

	return s.scoreFromWrite(created, team1.Name, team2.Name, sub), nil
}

// UpdateMatch replaces a stored score entry.
func (s *MatchService) UpdateMatch(ctx context.Context, matchID int64, sub MatchSubmission) (match.Score, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.UpdateMatch")
	defer span.End()

	if matchID <= 0 {
		return match.Score{}, fmt.Errorf("%w: match id must be greater than zero", ErrInvalidInput)
	}
	team1, team2, err := s.resolveSessionTeams(ctx, sub.DateID)
	if err != nil {
		return match.Score{}, err
	}
	if err := match.ValidateInput(team1.Name, sub.Team1Score, team2.Name, sub.Team2Score, sub.MatchOrder); err != nil {
		return match.Score{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	day, err := session.FromID(sub.DateID)
	if err != nil {
		return match.Score{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	updated, err := s.api.UpdateMatch(ctx, matchID, clubapi.MatchInput{
		MatchDate:  day.Label,
		MatchOrder: sub.MatchOrder,
		TeamID:     team1.ID,
		Team1Score: sub.Team1Score,
		Team2Score: sub.Team2Score,
	})
	if err != nil {
		return match.Score{}, fmt.Errorf("update match id=%d: %w", matchID, err)
	}

	score := s.scoreFromWrite(updated, team1.Name, team2.Name, sub)
	if score.ID == 0 {
		score.ID = matchID
	}
	return score, nil
}

// DeleteMatch removes a score entry permanently. There is no soft delete.
func (s *MatchService) DeleteMatch(ctx context.Context, matchID int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.DeleteMatch")
	defer span.End()

	if matchID <= 0 {
		return fmt.Errorf("%w: match id must be greater than zero", ErrInvalidInput)
	}
	if err := s.api.DeleteMatch(ctx, matchID); err != nil {
		return fmt.Errorf("delete match id=%d: %w", matchID, err)
	}
	return nil
}

// SetupTeams creates the session's teams and registers their players.
// A session holds at most two teams; re-running against a session that
// already has teams is rejected so duplicates never pile up.
func (s *MatchService) SetupTeams(ctx context.Context, dateID int64, setups []TeamSetup) ([]SessionTeam, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.SetupTeams")
	defer span.End()

	if dateID <= 0 {
		return nil, fmt.Errorf("%w: date id must be greater than zero", ErrInvalidInput)
	}
	if len(setups) == 0 || len(setups) > maxTeamsPerSession {
		return nil, fmt.Errorf("%w: a session takes 1 or %d teams, got %d", ErrInvalidInput, maxTeamsPerSession, len(setups))
	}
	seen := make(map[string]struct{}, len(setups))
	for _, setup := range setups {
		name := strings.TrimSpace(setup.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: team name is required", ErrInvalidInput)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate team name %q", ErrInvalidInput, name)
		}
		seen[name] = struct{}{}
	}

	day, err := s.api.GetDayRecord(ctx, dateID)
	if err != nil {
		return nil, fmt.Errorf("load day record date_id=%d: %w", dateID, err)
	}
	if len(day.Teams)+len(setups) > maxTeamsPerSession {
		return nil, fmt.Errorf("%w: session %d already has %d team(s)", ErrInvalidInput, dateID, len(day.Teams))
	}

	sessionDay, err := session.FromID(dateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	out := make([]SessionTeam, 0, len(setups))
	for _, setup := range setups {
		team, err := s.api.CreateTeam(ctx, strings.TrimSpace(setup.Name))
		if err != nil {
			return nil, fmt.Errorf("create team %q date_id=%d: %w", setup.Name, dateID, err)
		}

		for _, playerID := range setup.PlayerIDs {
			if playerID <= 0 {
				return nil, fmt.Errorf("%w: player id must be greater than zero", ErrInvalidInput)
			}
			link := clubapi.TeamPlayer{
				TeamID:   team.ID,
				PlayerID: playerID,
				JoinedAt: sessionDay.Label,
			}
			if err := s.api.AddTeamPlayer(ctx, link); err != nil {
				return nil, fmt.Errorf("register player %d to team %d: %w", playerID, team.ID, err)
			}
		}

		out = append(out, SessionTeam{ID: team.ID, Name: team.TeamName})
	}
	return out, nil
}

func (s *MatchService) resolveSessionTeams(ctx context.Context, dateID int64) (SessionTeam, SessionTeam, error) {
	if dateID <= 0 {
		return SessionTeam{}, SessionTeam{}, fmt.Errorf("%w: date id must be greater than zero", ErrInvalidInput)
	}

	day, err := s.api.GetDayRecord(ctx, dateID)
	if err != nil {
		return SessionTeam{}, SessionTeam{}, fmt.Errorf("load day record date_id=%d: %w", dateID, err)
	}
	if len(day.Teams) < 2 {
		return SessionTeam{}, SessionTeam{}, fmt.Errorf("%w: session %d needs two registered teams before a match can be scored", ErrInvalidInput, dateID)
	}

	team1 := SessionTeam{ID: day.Teams[0].ID, Name: day.Teams[0].TeamName}
	team2 := SessionTeam{ID: day.Teams[1].ID, Name: day.Teams[1].TeamName}
	return team1, team2, nil
}

// scoreFromWrite builds the response row for a write. The backend echoes
// scores but not always names or results, so both are filled locally.
func (s *MatchService) scoreFromWrite(m clubapi.Match, team1Name, team2Name string, sub MatchSubmission) match.Score {
	score := scoreFromBackendMatch(m)
	if score.Team1Name == "" {
		score.Team1Name = team1Name
	}
	if score.Team2Name == "" {
		score.Team2Name = team2Name
	}
	score.MatchOrder = sub.MatchOrder
	score.Team1Score = sub.Team1Score
	score.Team2Score = sub.Team2Score
	score.Team1Result, score.Team2Result = match.DeriveResults(sub.Team1Score, sub.Team2Score)
	return score
}

func scoreFromBackendMatch(m clubapi.Match) match.Score {
	return match.Score{
		ID:          m.ID,
		MatchOrder:  m.MatchOrder,
		Team1Name:   m.Team1Name,
		Team1Score:  m.Team1Score,
		Team1Result: match.Result(m.Team1Result),
		Team2Name:   m.Team2Name,
		Team2Score:  m.Team2Score,
		Team2Result: match.Result(m.Team2Result),
	}
}
