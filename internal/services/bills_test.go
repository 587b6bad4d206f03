package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"billfold/internal/core"
	"billfold/internal/store"
	"billfold/internal/store/memory"
)

func newTestBillService(t *testing.T) (*BillService, store.Store) {
	t.Helper()
	st := memory.New()
	ledger := NewLedgerService(st, nil)
	return NewBillService(ledger, st), st
}

func insertBill(t *testing.T, st store.Store, b core.Bill) string {
	t.Helper()
	id, err := st.InsertBill(context.Background(), b)
	if err != nil {
		t.Fatalf("insert bill: %v", err)
	}
	return id
}

func TestIsPaid(t *testing.T) {
	bill := core.Bill{ID: "b1"}
	expenses := []core.Expense{
		{Generated: true, BillID: "b1", PaidFor: "Mar 2026", Date: core.NewDate(2026, 3, 10)},
		{BillID: "b2", Date: core.NewDate(2026, 3, 5)}, // manual but bill-linked
		{Date: core.NewDate(2026, 3, 5)},               // unlinked
	}

	if !IsPaid(bill, "Mar 2026", expenses) {
		t.Fatalf("expected paid")
	}
	if IsPaid(bill, "Apr 2026", expenses) {
		t.Fatalf("expected unpaid in other month")
	}
	// A manually recorded expense referencing the bill counts too; the
	// paid flag must agree with the dashboard's paid-this-month figure.
	if !IsPaid(core.Bill{ID: "b2"}, "Mar 2026", expenses) {
		t.Fatalf("bill-linked manual expense must count as payment")
	}
	if IsPaid(core.Bill{ID: "b3"}, "Mar 2026", expenses) {
		t.Fatalf("unlinked expense must not count")
	}
	if IsPaid(core.Bill{}, "Mar 2026", expenses) {
		t.Fatalf("bill without id must never match")
	}
}

func TestDueDay(t *testing.T) {
	created := time.Date(2026, time.January, 17, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		b    core.Bill
		want int
	}{
		{core.Bill{DueDay: 5, CreatedAt: created}, 5},
		{core.Bill{DueDay: 0, CreatedAt: created}, 17},
		{core.Bill{}, 1},
	}
	for i, tc := range cases {
		if got := DueDay(tc.b); got != tc.want {
			t.Fatalf("case %d expected %d, got %d", i, tc.want, got)
		}
	}
}

func TestMarkPaid(t *testing.T) {
	svc, st := newTestBillService(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	billID := insertBill(t, st, core.Bill{
		Name:      "rent",
		Amount:    core.Money{Cents: 90000},
		Category:  core.CategoryHousing,
		Frequency: core.Monthly,
		DueDay:    1,
		CreatedAt: now.AddDate(0, -2, 0),
	})

	expense, err := svc.MarkPaid(ctx, billID, now)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if expense.ID == "" {
		t.Fatalf("expected generated expense id")
	}
	if expense.Name != "rent" || expense.Amount.Cents != 90000 || expense.Category != core.CategoryHousing {
		t.Fatalf("expense does not mirror the bill: %+v", expense)
	}
	if !expense.Recurring || !expense.Generated {
		t.Fatalf("expected recurring generated expense, got %+v", expense)
	}
	if expense.BillID != billID || expense.PaidFor != "Mar 2026" {
		t.Fatalf("wrong back-reference: %+v", expense)
	}
	if !expense.Date.Equal(core.NewDate(2026, 3, 10).Time) {
		t.Fatalf("expected payment dated at now, got %v", expense.Date)
	}

	expenses, err := st.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected 1 stored expense, got %d", len(expenses))
	}
}

func TestMarkPaidTwiceSameMonth(t *testing.T) {
	svc, st := newTestBillService(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	billID := insertBill(t, st, core.Bill{
		Name:      "netflix",
		Amount:    core.Money{Cents: 1299},
		Category:  core.CategorySubscriptions,
		Frequency: core.Monthly,
		DueDay:    5,
		CreatedAt: now,
	})

	if _, err := svc.MarkPaid(ctx, billID, now); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if _, err := svc.MarkPaid(ctx, billID, now.AddDate(0, 0, 5)); !errors.Is(err, ErrDuplicatePayment) {
		t.Fatalf("expected ErrDuplicatePayment, got %v", err)
	}

	// Next month opens a new payment window.
	if _, err := svc.MarkPaid(ctx, billID, now.AddDate(0, 1, 0)); err != nil {
		t.Fatalf("next month payment: %v", err)
	}

	expenses, err := st.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(expenses))
	}
}

func TestMarkPaidBlockedByLinkedExpense(t *testing.T) {
	svc, st := newTestBillService(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	billID := insertBill(t, st, core.Bill{
		Name:      "rent",
		Amount:    core.Money{Cents: 50000},
		Category:  core.CategoryHousing,
		Frequency: core.Monthly,
		DueDay:    1,
		CreatedAt: now,
	})

	// Manually recorded this month's rent, referencing the bill.
	if _, err := st.InsertExpense(ctx, core.Expense{
		Name:     "rent",
		Amount:   core.Money{Cents: 50000},
		Date:     core.NewDate(2026, 3, 3),
		Category: core.CategoryHousing,
		BillID:   billID,
	}); err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	if _, err := svc.MarkPaid(ctx, billID, now); !errors.Is(err, ErrDuplicatePayment) {
		t.Fatalf("expected ErrDuplicatePayment for already-covered bill, got %v", err)
	}

	expenses, err := st.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected no second payment, got %d expenses", len(expenses))
	}
}

func TestMarkPaidUnknownBill(t *testing.T) {
	svc, _ := newTestBillService(t)

	_, err := svc.MarkPaid(context.Background(), "missing", time.Now())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
