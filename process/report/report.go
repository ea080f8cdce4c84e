package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"ledger/models"
	"ledger/pkg/store"
)

// Source is the part of the payment repository the report reads.
type Source interface {
	List(ctx context.Context, f store.PaymentFilter) ([]models.Payment, error)
	Balance(ctx context.Context, f store.PaymentFilter) (store.Totals, error)
}

// Monthly is the income/expense summary of one calendar month.
type Monthly struct {
	Month  string
	From   models.Date
	To     models.Date
	Totals store.Totals
	Rows   []models.Payment
}

// MonthRange returns the first and last day of month (YYYY-MM).
func MonthRange(month string) (models.Date, models.Date, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return models.Date{}, models.Date{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return models.Date{Time: start}, models.Date{Time: start.AddDate(0, 1, -1)}, nil
}

// Build collects the month's totals and rows, oldest first.
func Build(ctx context.Context, src Source, month string) (*Monthly, error) {
	from, to, err := MonthRange(month)
	if err != nil {
		return nil, err
	}
	f := store.PaymentFilter{DateFrom: &from, DateTo: &to, SortByDate: true}
	totals, err := src.Balance(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	rows, err := src.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("fetch rows failed: %w", err)
	}
	// List is newest first
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return &Monthly{Month: month, From: from, To: to, Totals: totals, Rows: rows}, nil
}

// Write prints the summary and, with list set, one pipe separated line per payment.
func (m *Monthly) Write(w io.Writer, list bool) {
	fmt.Fprintf(w, "Report for month=%s (%s..%s):\n", m.Month, m.From, m.To)
	fmt.Fprintf(w, "  records=%d income=%s expense=%s balance=%s\n",
		len(m.Rows), m.Totals.Income.StringFixed(2), m.Totals.Expense.StringFixed(2), m.Totals.Balance.StringFixed(2))
	if !list {
		return
	}
	for _, r := range m.Rows {
		fmt.Fprintf(w, "%d|%s|%s|%s|%s|%s\n",
			r.ID, r.Date, r.OperationType, r.Amount.StringFixed(2), r.Category, deref(r.DealName))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
