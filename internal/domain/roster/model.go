package roster

import (
	"fmt"
	"sort"
	"strings"
)

// Position represents the display position on the attendance sheet.
type Position string

const (
	PositionForward    Position = "FW"
	PositionMidfielder Position = "MF"
	PositionDefender   Position = "DF"
	PositionGoalkeeper Position = "GK"
)

var AllPositions = map[Position]struct{}{
	PositionForward:    {},
	PositionMidfielder: {},
	PositionDefender:   {},
	PositionGoalkeeper: {},
}

// Entry is a roster selection for one session: a player name plus the
// position shown on the sheet. Backend ids are resolved later by name.
type Entry struct {
	Name     string
	Position Position
}

// PlayerStat is one row of a session's attendance sheet. Attendance is
// 0 or 1: the backend stores only attendees, so a missing record means
// the player did not attend, never "unknown".
type PlayerStat struct {
	ID         int64
	Name       string
	Position   Position
	Attendance int
	Goals      int
	Assists    int
	CleanSheet int
	MOM        int
	Wins       int
	Draws      int
	Loses      int
	TotalPoint int
}

// AttendanceState is the checkbox layer kept next to the stat rows. It is
// keyed by player id and decides what gets persisted on save, independent
// of the displayed attendance count.
type AttendanceState struct {
	PlayerName string
	Attendance bool
}

func (p PlayerStat) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("player id must be greater than zero")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("player name is required")
	}
	if p.Attendance < 0 || p.Attendance > 1 {
		return fmt.Errorf("attendance must be 0 or 1, got %d", p.Attendance)
	}
	if p.Goals < 0 || p.Assists < 0 || p.CleanSheet < 0 || p.MOM < 0 {
		return fmt.Errorf("stat tallies cannot be negative")
	}
	return nil
}

// SortStats orders rows for the leaderboard: players with attendance first,
// then total point descending, then player id ascending so equal rows always
// land in the same order.
func SortStats(rows []PlayerStat) {
	sort.SliceStable(rows, func(i, j int) bool {
		attendedI := rows[i].Attendance > 0
		attendedJ := rows[j].Attendance > 0
		if attendedI != attendedJ {
			return attendedI
		}
		if rows[i].TotalPoint != rows[j].TotalPoint {
			return rows[i].TotalPoint > rows[j].TotalPoint
		}
		return rows[i].ID < rows[j].ID
	})
}
