package httpapi

import (
	"testing"
	"time"

	"github.com/jochuk/clubdesk/internal/domain/fees"
	"github.com/jochuk/clubdesk/internal/domain/match"
	"github.com/jochuk/clubdesk/internal/domain/session"
	"github.com/jochuk/clubdesk/internal/usecase"
	"github.com/stretchr/testify/require"
)

func TestSessionToDTO(t *testing.T) {
	day := session.New(time.Date(2024, time.November, 2, 0, 0, 0, 0, time.UTC))

	dto := sessionToDTO(day)

	require.Equal(t, int64(1730505600000), dto.DateID)
	require.Equal(t, "2024-11-02", dto.Label)
	require.Equal(t, "2024-11-02T00:00:00Z", dto.Date)
}

func TestMatchScoreToDTO(t *testing.T) {
	dto := matchScoreToDTO(match.Score{
		ID:          42,
		MatchOrder:  2,
		Team1Name:   "Red",
		Team1Score:  1,
		Team1Result: match.ResultLose,
		Team2Name:   "Blue",
		Team2Score:  3,
		Team2Result: match.ResultWin,
	})

	require.Equal(t, int64(42), dto.ID)
	require.Equal(t, "LOSE", dto.Team1Result)
	require.Equal(t, "WIN", dto.Team2Result)
	require.Equal(t, "Red", dto.Team1Name)
	require.Equal(t, "Blue", dto.Team2Name)
}

func TestFeeToDTO(t *testing.T) {
	dto := feeToDTO(fees.Fee{
		ID:     7,
		Date:   time.Date(2024, time.November, 9, 0, 0, 0, 0, time.UTC),
		Type:   fees.TypeExpense,
		Title:  "Pitch rental",
		Amount: 12000,
	})

	require.Equal(t, "2024-11-09", dto.Date)
	require.Equal(t, "EXPENSE", dto.Type)
	require.Equal(t, int64(12000), dto.Amount)
	require.Empty(t, dto.Payer)
}

func TestSessionRecordsToDTO_EmptyDay(t *testing.T) {
	dto := sessionRecordsToDTO(usecase.SessionRecords{DateID: 1730505600000})

	require.Equal(t, int64(1730505600000), dto.DateID)
	require.Empty(t, dto.Teams)
	require.Empty(t, dto.Matches)
}
