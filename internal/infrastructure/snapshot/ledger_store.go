package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/jochuk/clubdesk/internal/domain/fees"
	"github.com/jochuk/clubdesk/internal/platform/logging"
	qb "github.com/jochuk/clubdesk/internal/platform/querybuilder"
)

// ledgerRowID pins the ledger snapshot to a single row.
const ledgerRowID = 1

// LedgerStore keeps the last fetched fee ledger for offline fallback.
type LedgerStore struct {
	db     *sqlx.DB
	logger *logging.Logger
}

func NewLedgerStore(db *sqlx.DB, logger *logging.Logger) *LedgerStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &LedgerStore{db: db, logger: logger}
}

type ledgerSnapshotModel struct {
	ID              int64  `db:"id"`
	FeesPayload     string `db:"fees_payload"`
	ExpensesPayload string `db:"expenses_payload"`
	SavedAt         string `db:"saved_at"`
}

func (s *LedgerStore) Save(ctx context.Context, feeRows []fees.Fee, expenseRows []fees.Expense) error {
	if feeRows == nil {
		feeRows = []fees.Fee{}
	}
	if expenseRows == nil {
		expenseRows = []fees.Expense{}
	}

	feesPayload, err := sonic.Marshal(feeRows)
	if err != nil {
		return fmt.Errorf("marshal fee snapshot: %w", err)
	}
	expensesPayload, err := sonic.Marshal(expenseRows)
	if err != nil {
		return fmt.Errorf("marshal expense snapshot: %w", err)
	}

	model := ledgerSnapshotModel{
		ID:              ledgerRowID,
		FeesPayload:     string(feesPayload),
		ExpensesPayload: string(expensesPayload),
		SavedAt:         time.Now().UTC().Format(time.RFC3339),
	}

	query, args, err := qb.InsertModel("ledger_snapshots", model, `ON CONFLICT(id)
DO UPDATE SET
    fees_payload = excluded.fees_payload,
    expenses_payload = excluded.expenses_payload,
    saved_at = excluded.saved_at`)
	if err != nil {
		return fmt.Errorf("build upsert ledger snapshot query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert ledger snapshot: %w", err)
	}
	return nil
}

// Load returns the stored ledger. Missing or unreadable snapshots report
// ok=false without an error.
func (s *LedgerStore) Load(ctx context.Context) ([]fees.Fee, []fees.Expense, bool, error) {
	query, args, err := qb.Select("id", "fees_payload", "expenses_payload", "saved_at").
		From("ledger_snapshots").
		Where(qb.Eq("id", ledgerRowID)).
		ToSQL()
	if err != nil {
		return nil, nil, false, fmt.Errorf("build select ledger snapshot query: %w", err)
	}

	var model ledgerSnapshotModel
	if err := s.db.GetContext(ctx, &model, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("load ledger snapshot: %w", err)
	}

	var feeRows []fees.Fee
	var expenseRows []fees.Expense
	if err := sonic.Unmarshal([]byte(model.FeesPayload), &feeRows); err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt fee snapshot", "error", err)
		return nil, nil, false, nil
	}
	if err := sonic.Unmarshal([]byte(model.ExpensesPayload), &expenseRows); err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt expense snapshot", "error", err)
		return nil, nil, false, nil
	}
	return feeRows, expenseRows, true, nil
}
