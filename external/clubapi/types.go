package clubapi

import "time"

// Player is a roster row from GET /players.
type Player struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlayerRecord is one persisted attendee row. The backend stores only
// attendees, so listing a session returns present players exclusively.
type PlayerRecord struct {
	ID         int64 `json:"id,omitempty"`
	PlayerID   int64 `json:"playerId"`
	TeamID     int64 `json:"teamId"`
	DateID     int64 `json:"dateId"`
	Attendance bool  `json:"attendance"`
}

// Match is a stored match score. Results and team names are resolved by
// the backend on reads; writes carry scores only.
type Match struct {
	ID          int64  `json:"id"`
	MatchDate   string `json:"matchDate"`
	MatchOrder  int    `json:"matchOrder"`
	TeamID      int64  `json:"teamId"`
	Team1ID     int64  `json:"team1Id"`
	Team1Name   string `json:"team1Name"`
	Team1Score  int    `json:"team1Score"`
	Team1Result string `json:"team1Result"`
	Team2ID     int64  `json:"team2Id"`
	Team2Name   string `json:"team2Name"`
	Team2Score  int    `json:"team2Score"`
	Team2Result string `json:"team2Result"`
}

// MatchInput is the write payload for POST/PUT /matches.
type MatchInput struct {
	MatchDate  string `json:"matchDate"`
	MatchOrder int    `json:"matchOrder"`
	TeamID     int64  `json:"teamId"`
	Team1Score int    `json:"team1Score"`
	Team2Score int    `json:"team2Score"`
}

// Team is a per-session team created through POST /teams.
type Team struct {
	ID       int64  `json:"id"`
	TeamName string `json:"teamName"`
}

// TeamPlayer links a player to a session team.
type TeamPlayer struct {
	TeamID   int64  `json:"teamId"`
	PlayerID int64  `json:"playerId"`
	JoinedAt string `json:"joinedAt"`
}

// DayRecord is the per-session aggregate from GET /records/{dateId}.
type DayRecord struct {
	DateID  int64   `json:"dateId"`
	Teams   []Team  `json:"teams"`
	Matches []Match `json:"matches"`
}

// MembershipFee is one row of GET /membershipfees.
type MembershipFee struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Amount int64  `json:"amount"`
	Payer  string `json:"payer"`
}

// Expense is one row of GET /expenses.
type Expense struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// ExpenseInput is the write payload for POST /expenses.
type ExpenseInput struct {
	Date        string `json:"date"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// The fee endpoints have been observed returning both a bare array and a
// wrapped object, so list decoding tries the wrapper when the array form
// fails.
type membershipFeesEnvelope struct {
	Fees []MembershipFee `json:"fees"`
}

type expensesEnvelope struct {
	Expenses []Expense `json:"expenses"`
}
