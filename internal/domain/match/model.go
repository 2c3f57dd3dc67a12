package match

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of one side of a match.
type Result string

const (
	ResultWin  Result = "WIN"
	ResultDraw Result = "DRAW"
	ResultLose Result = "LOSE"
)

var (
	ErrNegativeScore  = errors.New("score cannot be negative")
	ErrEmptyTeamName  = errors.New("team name is required")
	ErrSameTeamTwice  = errors.New("a match needs two distinct teams")
	ErrInvalidOrder   = errors.New("match order must be greater than zero")
	ErrInvalidMatchID = errors.New("match id must be greater than zero")
)

// Score is a finished match between two session teams. Results are derived
// from the scores, never stored independently of them.
type Score struct {
	ID          int64
	DateID      int64
	MatchDate   time.Time
	MatchOrder  int
	Team1ID     int64
	Team1Name   string
	Team1Score  int
	Team1Result Result
	Team2ID     int64
	Team2Name   string
	Team2Score  int
	Team2Result Result
}

// Record is a team's aggregate over a set of matches.
type Record struct {
	Wins  int
	Draws int
	Loses int
}

// DeriveResults maps a score pair to the two sides' outcomes. Exactly one
// of win/lose, lose/win or draw/draw comes back for any input.
func DeriveResults(team1Score, team2Score int) (Result, Result) {
	switch {
	case team1Score > team2Score:
		return ResultWin, ResultLose
	case team1Score < team2Score:
		return ResultLose, ResultWin
	default:
		return ResultDraw, ResultDraw
	}
}

// ValidateInput checks a match submission before anything is derived or sent
// to the backend.
func ValidateInput(team1Name string, team1Score int, team2Name string, team2Score int, matchOrder int) error {
	if team1Score < 0 || team2Score < 0 {
		return fmt.Errorf("%w: %d vs %d", ErrNegativeScore, team1Score, team2Score)
	}
	name1 := strings.TrimSpace(team1Name)
	name2 := strings.TrimSpace(team2Name)
	if name1 == "" || name2 == "" {
		return ErrEmptyTeamName
	}
	if name1 == name2 {
		return fmt.Errorf("%w: %q", ErrSameTeamTwice, name1)
	}
	if matchOrder <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOrder, matchOrder)
	}
	return nil
}

// TeamRecord tallies wins/draws/loses for the named team across the given
// matches, reading the pre-derived result of whichever side the team was on.
// A team with no matches gets a zero record, that is not an error.
func TeamRecord(matches []Score, teamName string) Record {
	name := strings.TrimSpace(teamName)
	var rec Record
	if name == "" {
		return rec
	}

	for _, m := range matches {
		var side Result
		switch {
		case strings.TrimSpace(m.Team1Name) == name:
			side = m.Team1Result
		case strings.TrimSpace(m.Team2Name) == name:
			side = m.Team2Result
		default:
			continue
		}

		switch side {
		case ResultWin:
			rec.Wins++
		case ResultDraw:
			rec.Draws++
		case ResultLose:
			rec.Loses++
		}
	}
	return rec
}
