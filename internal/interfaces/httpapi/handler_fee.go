package httpapi

import (
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jochuk/clubdesk/internal/domain/fees"
	"github.com/jochuk/clubdesk/internal/usecase"
)

type feeDTO struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Amount int64  `json:"amount"`
	Payer  string `json:"payer,omitempty"`
}

type expenseDTO struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type monthlySummaryDTO struct {
	Month   string   `json:"month"`
	Income  int64    `json:"income"`
	Expense int64    `json:"expense"`
	Net     int64    `json:"net"`
	Fees    []feeDTO `json:"fees"`
}

type feeSummaryDTO struct {
	Balance int64               `json:"balance"`
	Months  []monthlySummaryDTO `json:"months"`
}

type createExpenseRequest struct {
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"required,max=200"`
}

func (h *Handler) GetFeeSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFeeSummary")
	defer span.End()

	summary, err := h.feeService.Summary(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get fee summary failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := feeSummaryDTO{
		Balance: summary.Balance,
		Months:  make([]monthlySummaryDTO, 0, len(summary.Months)),
	}
	for _, month := range summary.Months {
		out.Months = append(out.Months, monthlySummaryToDTO(month))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) ListFees(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFees")
	defer span.End()

	ledger, err := h.feeService.Ledger(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list fees failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]feeDTO, 0, len(ledger))
	for _, f := range ledger {
		items = append(items, feeToDTO(f))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListExpenses")
	defer span.End()

	expenses, err := h.feeService.Expenses(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list expenses failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]expenseDTO, 0, len(expenses))
	for _, e := range expenses {
		items = append(items, expenseDTO{
			ID:          e.ID,
			Date:        e.Date.Format("2006-01-02"),
			Amount:      e.Amount,
			Description: e.Description,
		})
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateExpense")
	defer span.End()

	var req createExpenseRequest
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

	submission := usecase.ExpenseSubmission{
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Date != "" {
		date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: invalid date %q", usecase.ErrInvalidInput, req.Date))
			return
		}
		submission.Date = date
	}

	expense, err := h.feeService.CreateExpense(ctx, submission)
	if err != nil {
		h.logger.WarnContext(ctx, "create expense failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, expenseDTO{
		ID:          expense.ID,
		Date:        expense.Date.Format("2006-01-02"),
		Amount:      expense.Amount,
		Description: expense.Description,
	})
}

func monthlySummaryToDTO(month fees.MonthlySummary) monthlySummaryDTO {
	out := monthlySummaryDTO{
		Month:   month.Month,
		Income:  month.Income,
		Expense: month.Expense,
		Net:     month.Net,
		Fees:    make([]feeDTO, 0, len(month.Fees)),
	}
	for _, f := range month.Fees {
		out.Fees = append(out.Fees, feeToDTO(f))
	}
	return out
}

func feeToDTO(f fees.Fee) feeDTO {
	return feeDTO{
		ID:     f.ID,
		Date:   f.Date.Format("2006-01-02"),
		Type:   string(f.Type),
		Title:  f.Title,
		Amount: f.Amount,
		Payer:  f.Payer,
	}
}
