package services

import (
	"context"
	"testing"
	"time"

	"billfold/internal/core"
	"billfold/internal/store/memory"
)

func TestAddIncomeValidates(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil)

	_, err := svc.AddIncome(context.Background(), core.Income{
		Client: "",
		Amount: core.Money{Cents: 100},
		Date:   core.NewDate(2026, 3, 1),
		Type:   core.IncomeRetainer,
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestAddBillDefaults(t *testing.T) {
	st := memory.New()
	svc := NewLedgerService(st, nil)
	ctx := context.Background()
	now := time.Date(2026, time.March, 17, 10, 0, 0, 0, time.UTC)

	id, err := svc.AddBill(ctx, core.Bill{
		Name:     "rent",
		Amount:   core.Money{Cents: 90000},
		Category: core.CategoryHousing,
	}, now)
	if err != nil {
		t.Fatalf("add bill: %v", err)
	}

	bills, err := st.ListBills(ctx)
	if err != nil {
		t.Fatalf("list bills: %v", err)
	}
	if len(bills) != 1 || bills[0].ID != id {
		t.Fatalf("expected stored bill, got %+v", bills)
	}
	b := bills[0]
	if b.Frequency != core.Monthly {
		t.Fatalf("expected monthly default, got %q", b.Frequency)
	}
	if b.DueDay != 17 {
		t.Fatalf("expected due day from creation date, got %d", b.DueDay)
	}
	if !b.CreatedAt.Equal(now) {
		t.Fatalf("expected CreatedAt defaulted to now, got %v", b.CreatedAt)
	}
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil)
	ctx := context.Background()

	if err := svc.DeleteIncome(ctx, "missing"); err != nil {
		t.Fatalf("delete income: %v", err)
	}
	if err := svc.DeleteExpense(ctx, "missing"); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	if err := svc.DeleteBill(ctx, "missing"); err != nil {
		t.Fatalf("delete bill: %v", err)
	}
}

func TestDeleteBillLeavesGeneratedExpenses(t *testing.T) {
	st := memory.New()
	svc := NewLedgerService(st, nil)
	ctx := context.Background()

	billID, err := st.InsertBill(ctx, core.Bill{
		Name: "rent", Amount: core.Money{Cents: 1}, Category: core.CategoryHousing, Frequency: core.Monthly, DueDay: 1,
	})
	if err != nil {
		t.Fatalf("insert bill: %v", err)
	}
	if _, err := st.InsertExpense(ctx, core.Expense{
		Name: "rent", Amount: core.Money{Cents: 1}, Date: core.NewDate(2026, 3, 1),
		Category: core.CategoryHousing, Generated: true, BillID: billID, PaidFor: "Mar 2026",
	}); err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	if err := svc.DeleteBill(ctx, billID); err != nil {
		t.Fatalf("delete bill: %v", err)
	}

	expenses, err := st.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 1 || expenses[0].BillID != billID {
		t.Fatalf("generated expense should survive bill deletion, got %+v", expenses)
	}
}
