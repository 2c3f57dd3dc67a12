package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jochuk/clubdesk/external/clubapi"
	"github.com/jochuk/clubdesk/internal/domain/fees"
	"github.com/jochuk/clubdesk/internal/platform/cache"
	"github.com/jochuk/clubdesk/internal/platform/logging"
)

type feeBackend interface {
	ListMembershipFees(ctx context.Context) ([]clubapi.MembershipFee, error)
	ListExpenses(ctx context.Context) ([]clubapi.Expense, error)
	CreateExpense(ctx context.Context, input clubapi.ExpenseInput) (clubapi.Expense, error)
}

type ledgerSnapshotStore interface {
	Save(ctx context.Context, ledger []fees.Fee, expenses []fees.Expense) error
	Load(ctx context.Context) ([]fees.Fee, []fees.Expense, bool, error)
}

const cacheKeyLedger = "fees:ledger"

// FeeSummary is the treasury page payload: running balance plus the
// per-month breakdown, newest month first.
type FeeSummary struct {
	Balance int64
	Months  []fees.MonthlySummary
}

// ExpenseSubmission is a new spend entry.
type ExpenseSubmission struct {
	Date        time.Time
	Amount      int64
	Description string
}

type ledgerData struct {
	ledger   []fees.Fee
	expenses []fees.Expense
}

// FeeService merges membership fees and expenses into one ledger. The
// remote backend is the source of truth; the snapshot store only serves
// the last known ledger when the backend is unreachable.
type FeeService struct {
	api       feeBackend
	snapshots ledgerSnapshotStore
	cache     *cache.Store
	logger    *logging.Logger
}

func NewFeeService(api feeBackend, snapshots ledgerSnapshotStore, cacheStore *cache.Store, logger *logging.Logger) *FeeService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FeeService{
		api:       api,
		snapshots: snapshots,
		cache:     cacheStore,
		logger:    logger,
	}
}

// Ledger returns the merged fee ledger, date descending.
func (s *FeeService) Ledger(ctx context.Context) ([]fees.Fee, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeeService.Ledger")
	defer span.End()

	data, err := s.loadCached(ctx)
	if err != nil {
		return nil, err
	}
	return data.ledger, nil
}

// Expenses returns the raw expense rows, date descending.
func (s *FeeService) Expenses(ctx context.Context) ([]fees.Expense, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeeService.Expenses")
	defer span.End()

	data, err := s.loadCached(ctx)
	if err != nil {
		return nil, err
	}
	return data.expenses, nil
}

// Summary returns the overall balance and monthly breakdown.
func (s *FeeService) Summary(ctx context.Context) (FeeSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeeService.Summary")
	defer span.End()

	data, err := s.loadCached(ctx)
	if err != nil {
		return FeeSummary{}, err
	}
	return FeeSummary{
		Balance: fees.Balance(data.ledger),
		Months:  fees.GroupByMonth(data.ledger),
	}, nil
}

// CreateExpense records a spend and drops the cached ledger so the next
// read re-fetches.
func (s *FeeService) CreateExpense(ctx context.Context, sub ExpenseSubmission) (fees.Expense, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeeService.CreateExpense")
	defer span.End()

	if sub.Amount <= 0 {
		return fees.Expense{}, fmt.Errorf("%w: expense amount must be greater than zero", ErrInvalidInput)
	}
	if strings.TrimSpace(sub.Description) == "" {
		return fees.Expense{}, fmt.Errorf("%w: expense description is required", ErrInvalidInput)
	}
	date := sub.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	created, err := s.api.CreateExpense(ctx, clubapi.ExpenseInput{
		Date:        date.UTC().Format("2006-01-02"),
		Amount:      sub.Amount,
		Description: strings.TrimSpace(sub.Description),
	})
	if err != nil {
		return fees.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	if s.cache != nil {
		s.cache.Delete(ctx, cacheKeyLedger)
	}

	out := fees.Expense{
		ID:          created.ID,
		Date:        s.parseFeeDate(ctx, created.Date, created.ID),
		Amount:      created.Amount,
		Description: created.Description,
	}
	if out.Amount == 0 {
		out.Amount = sub.Amount
	}
	if out.Description == "" {
		out.Description = strings.TrimSpace(sub.Description)
	}
	return out, nil
}

func (s *FeeService) loadCached(ctx context.Context) (ledgerData, error) {
	if s.cache == nil {
		return s.load(ctx)
	}

	value, err := s.cache.GetOrLoad(ctx, cacheKeyLedger, func(ctx context.Context) (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return ledgerData{}, err
	}
	data, ok := value.(ledgerData)
	if !ok {
		return ledgerData{}, fmt.Errorf("unexpected cached ledger type %T", value)
	}
	return data, nil
}

func (s *FeeService) load(ctx context.Context) (ledgerData, error) {
	rows, err := s.api.ListMembershipFees(ctx)
	if err != nil {
		return s.ledgerFromSnapshot(ctx, fmt.Errorf("list membership fees: %w", err))
	}
	expenseRows, err := s.api.ListExpenses(ctx)
	if err != nil {
		return s.ledgerFromSnapshot(ctx, fmt.Errorf("list expenses: %w", err))
	}

	data := ledgerData{
		ledger:   make([]fees.Fee, 0, len(rows)+len(expenseRows)),
		expenses: make([]fees.Expense, 0, len(expenseRows)),
	}
	for _, row := range rows {
		data.ledger = append(data.ledger, fees.Fee{
			ID:     row.ID,
			Date:   s.parseFeeDate(ctx, row.Date, row.ID),
			Type:   normalizeFeeType(row.Type),
			Title:  row.Title,
			Amount: row.Amount,
			Payer:  row.Payer,
		})
	}
	for _, row := range expenseRows {
		expense := fees.Expense{
			ID:          row.ID,
			Date:        s.parseFeeDate(ctx, row.Date, row.ID),
			Amount:      row.Amount,
			Description: row.Description,
		}
		data.expenses = append(data.expenses, expense)
		data.ledger = append(data.ledger, fees.FromExpense(expense))
	}

	sortLedger(data.ledger)
	sort.SliceStable(data.expenses, func(i, j int) bool {
		if !data.expenses[i].Date.Equal(data.expenses[j].Date) {
			return data.expenses[i].Date.After(data.expenses[j].Date)
		}
		return data.expenses[i].ID > data.expenses[j].ID
	})

	s.saveSnapshot(ctx, data)
	return data, nil
}

// ledgerFromSnapshot serves the last known ledger when the backend fails.
func (s *FeeService) ledgerFromSnapshot(ctx context.Context, cause error) (ledgerData, error) {
	if s.snapshots == nil {
		return ledgerData{}, cause
	}

	ledger, expenses, ok, err := s.snapshots.Load(ctx)
	if err != nil || !ok {
		if err != nil {
			s.logger.WarnContext(ctx, "ledger snapshot read failed", "error", err)
		}
		return ledgerData{}, cause
	}

	s.logger.WarnContext(ctx, "serving fee ledger from snapshot after remote failure", "error", cause)
	sortLedger(ledger)
	return ledgerData{ledger: ledger, expenses: expenses}, nil
}

func (s *FeeService) saveSnapshot(ctx context.Context, data ledgerData) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, data.ledger, data.expenses); err != nil {
		s.logger.WarnContext(ctx, "ledger snapshot write failed", "error", err)
	}
}

// parseFeeDate tolerates the two date shapes the backend has produced.
// Unparseable dates degrade to the zero time with a warning, they never
// fail the whole ledger.
func (s *FeeService) parseFeeDate(ctx context.Context, raw string, rowID int64) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC()
	}
	s.logger.WarnContext(ctx, "unparseable ledger date", "row_id", rowID, "date", raw)
	return time.Time{}
}

func normalizeFeeType(raw string) fees.Type {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(fees.TypeExpense):
		return fees.TypeExpense
	default:
		return fees.TypeIncome
	}
}

func sortLedger(ledger []fees.Fee) {
	sort.SliceStable(ledger, func(i, j int) bool {
		if !ledger[i].Date.Equal(ledger[j].Date) {
			return ledger[i].Date.After(ledger[j].Date)
		}
		return ledger[i].ID > ledger[j].ID
	})
}
