package fees

import (
	"sort"
	"strings"
	"time"
)

// Type splits ledger entries into money in and money out.
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

// Fee is one ledger entry: a membership payment or a club expense.
type Fee struct {
	ID     int64
	Date   time.Time
	Type   Type
	Title  string
	Amount int64
	Payer  string
}

// Expense is a spend record from the backend's expenses endpoint.
type Expense struct {
	ID          int64
	Date        time.Time
	Amount      int64
	Description string
}

// MonthlySummary aggregates one calendar month of the ledger.
type MonthlySummary struct {
	Month   string // YYYY-MM
	Income  int64
	Expense int64
	Net     int64
	Fees    []Fee
}

// Balance is total income minus total expense over the whole ledger.
func Balance(ledger []Fee) int64 {
	var total int64
	for _, f := range ledger {
		switch f.Type {
		case TypeIncome:
			total += f.Amount
		case TypeExpense:
			total -= f.Amount
		}
	}
	return total
}

// GroupByMonth buckets the ledger into YYYY-MM summaries, newest month
// first. Entries inside a month keep date-descending order.
func GroupByMonth(ledger []Fee) []MonthlySummary {
	byMonth := make(map[string]*MonthlySummary)
	for _, f := range ledger {
		key := f.Date.Format("2006-01")
		bucket, ok := byMonth[key]
		if !ok {
			bucket = &MonthlySummary{Month: key}
			byMonth[key] = bucket
		}
		switch f.Type {
		case TypeIncome:
			bucket.Income += f.Amount
		case TypeExpense:
			bucket.Expense += f.Amount
		}
		bucket.Fees = append(bucket.Fees, f)
	}

	out := make([]MonthlySummary, 0, len(byMonth))
	for _, bucket := range byMonth {
		bucket.Net = bucket.Income - bucket.Expense
		sort.SliceStable(bucket.Fees, func(i, j int) bool {
			if !bucket.Fees[i].Date.Equal(bucket.Fees[j].Date) {
				return bucket.Fees[i].Date.After(bucket.Fees[j].Date)
			}
			return bucket.Fees[i].ID > bucket.Fees[j].ID
		})
		out = append(out, *bucket)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.Compare(out[i].Month, out[j].Month) > 0
	})
	return out
}

// FromExpense converts a backend expense row into a ledger entry.
func FromExpense(e Expense) Fee {
	return Fee{
		ID:     e.ID,
		Date:   e.Date,
		Type:   TypeExpense,
		Title:  e.Description,
		Amount: e.Amount,
	}
}
