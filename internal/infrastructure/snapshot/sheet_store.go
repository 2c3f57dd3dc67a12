package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/jochuk/clubdesk/internal/domain/roster"
	"github.com/jochuk/clubdesk/internal/platform/logging"
	qb "github.com/jochuk/clubdesk/internal/platform/querybuilder"
)

// SheetStore keeps the last known attendance sheet per session so the
// dashboard still renders when the backend is unreachable.
type SheetStore struct {
	db     *sqlx.DB
	logger *logging.Logger
}

func NewSheetStore(db *sqlx.DB, logger *logging.Logger) *SheetStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &SheetStore{db: db, logger: logger}
}

type sheetSnapshotModel struct {
	DateID  int64  `db:"date_id"`
	Payload string `db:"payload"`
	SavedAt string `db:"saved_at"`
}

// Save overwrites the snapshot for one session.
func (s *SheetStore) Save(ctx context.Context, dateID int64, rows []roster.PlayerStat) error {
	if dateID <= 0 {
		return fmt.Errorf("date id must be greater than zero, got %d", dateID)
	}
	if rows == nil {
		rows = []roster.PlayerStat{}
	}

	payload, err := sonic.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal sheet snapshot date_id=%d: %w", dateID, err)
	}

	model := sheetSnapshotModel{
		DateID:  dateID,
		Payload: string(payload),
		SavedAt: time.Now().UTC().Format(time.RFC3339),
	}

	query, args, err := qb.InsertModel("sheet_snapshots", model, `ON CONFLICT(date_id)
DO UPDATE SET
    payload = excluded.payload,
    saved_at = excluded.saved_at`)
	if err != nil {
		return fmt.Errorf("build upsert sheet snapshot query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert sheet snapshot date_id=%d: %w", dateID, err)
	}
	return nil
}

// Load returns the stored sheet for a session. A missing or unreadable
// snapshot reports ok=false rather than an error: the snapshot is a best
// effort fallback, never a source of truth.
func (s *SheetStore) Load(ctx context.Context, dateID int64) ([]roster.PlayerStat, bool, error) {
	if dateID <= 0 {
		return nil, false, fmt.Errorf("date id must be greater than zero, got %d", dateID)
	}

	query, args, err := qb.Select("date_id", "payload", "saved_at").
		From("sheet_snapshots").
		Where(qb.Eq("date_id", dateID)).
		ToSQL()
	if err != nil {
		return nil, false, fmt.Errorf("build select sheet snapshot query: %w", err)
	}

	var model sheetSnapshotModel
	if err := s.db.GetContext(ctx, &model, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load sheet snapshot date_id=%d: %w", dateID, err)
	}

	var rows []roster.PlayerStat
	if err := sonic.Unmarshal([]byte(model.Payload), &rows); err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt sheet snapshot",
			"date_id", dateID,
			"error", err,
		)
		return nil, false, nil
	}
	return rows, true, nil
}

// Dates lists the sessions that have a snapshot, newest first.
func (s *SheetStore) Dates(ctx context.Context) ([]int64, error) {
	query, _, err := qb.Select("date_id").
		From("sheet_snapshots").
		OrderBy("date_id DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list sheet snapshot dates query: %w", err)
	}

	var dates []int64
	if err := s.db.SelectContext(ctx, &dates, query); err != nil {
		return nil, fmt.Errorf("list sheet snapshot dates: %w", err)
	}
	return dates, nil
}

func (s *SheetStore) Delete(ctx context.Context, dateID int64) error {
	if dateID <= 0 {
		return fmt.Errorf("date id must be greater than zero, got %d", dateID)
	}

	query, args, err := qb.DeleteFrom("sheet_snapshots").
		Where(qb.Eq("date_id", dateID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete sheet snapshot query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete sheet snapshot date_id=%d: %w", dateID, err)
	}
	return nil
}
