package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"billfold/internal/core"
	"billfold/internal/store"
)

// ErrDuplicatePayment is returned when a bill already has an expense
// referencing it dated in the current month.
var ErrDuplicatePayment = errors.New("bill already paid for this month")

// IsPaid reports whether any expense referencing this bill is dated in
// the month identified by label. Generated payments and manually
// recorded bill-linked expenses both count, matching the dashboard's
// paid figure.
func IsPaid(bill core.Bill, label string, expenses []core.Expense) bool {
	for _, e := range expenses {
		if e.BillID == "" || e.BillID != bill.ID {
			continue
		}
		if core.SameMonthLabel(e.Date.Time, label) {
			return true
		}
	}
	return false
}

// DueDay returns the day-of-month a bill is pinned to. Bills written
// before the due day was stored fall back to the creation day, then 1.
func DueDay(b core.Bill) int {
	if b.DueDay > 0 {
		return b.DueDay
	}
	if !b.CreatedAt.IsZero() {
		return b.CreatedAt.Day()
	}
	return 1
}

// BillService resolves recurring-bill payments into generated expense
// records.
type BillService struct {
	ledger *LedgerService
	store  store.Store
}

func NewBillService(ledger *LedgerService, st store.Store) *BillService {
	return &BillService{
		ledger: ledger,
		store:  st,
	}
}

// MarkPaid records a payment for a bill in the month containing now.
// At most one payment per bill per month label is accepted; the store's
// uniqueness guard backs up the read-then-write check, so two
// concurrent calls still produce a single expense.
func (s *BillService) MarkPaid(ctx context.Context, billID string, now time.Time) (core.Expense, error) {
	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load bills: %w", err)
	}

	var bill core.Bill
	found := false
	for _, b := range bills {
		if b.ID == billID {
			bill = b
			found = true
			break
		}
	}
	if !found {
		return core.Expense{}, fmt.Errorf("bill %s: %w", billID, store.ErrNotFound)
	}

	label := core.MonthLabel(now)

	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expenses: %w", err)
	}
	if IsPaid(bill, label, expenses) {
		return core.Expense{}, ErrDuplicatePayment
	}

	expense := core.Expense{
		Name:      bill.Name,
		Amount:    bill.Amount,
		Date:      core.NewDate(now.Year(), int(now.Month()), now.Day()),
		Category:  bill.Category,
		Recurring: true,
		Generated: true,
		BillID:    bill.ID,
		PaidFor:   label,
	}

	id, err := s.ledger.AddExpense(ctx, expense)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost the race to a concurrent payment.
			return core.Expense{}, ErrDuplicatePayment
		}
		return core.Expense{}, fmt.Errorf("record payment: %w", err)
	}
	expense.ID = id

	slog.InfoContext(ctx, "Bill marked paid",
		"bill_id", bill.ID,
		"bill_name", bill.Name,
		"month", label,
		"expense_id", id)

	return expense, nil
}
