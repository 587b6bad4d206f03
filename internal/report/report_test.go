package report

import (
	"testing"
	"time"

	"billfold/internal/core"
)

func date(y, m, d int) core.Date { return core.NewDate(y, m, d) }

func TestAverageIncomeCents(t *testing.T) {
	if got := AverageIncomeCents(nil); got != 0 {
		t.Fatalf("empty expected 0, got %v", got)
	}
	incomes := []core.Income{
		{Amount: core.Money{Cents: 1000}},
		{Amount: core.Money{Cents: 2000}},
	}
	if got := AverageIncomeCents(incomes); got != 1500 {
		t.Fatalf("expected 1500, got %v", got)
	}
}

func TestAverageExpenseCents(t *testing.T) {
	if got := AverageExpenseCents(nil); got != 0 {
		t.Fatalf("empty expected 0, got %v", got)
	}
	expenses := []core.Expense{
		{Amount: core.Money{Cents: 999}},
		{Amount: core.Money{Cents: 1}},
		{Amount: core.Money{Cents: 500}},
	}
	if got := AverageExpenseCents(expenses); got != 500 {
		t.Fatalf("expected 500, got %v", got)
	}
}

func TestTotalDues(t *testing.T) {
	bills := []core.Bill{
		{Name: "rent", Amount: core.Money{Cents: 90000}, Frequency: core.Monthly},
		{Name: "cleaner", Amount: core.Money{Cents: 5000}, Frequency: core.Weekly},
		{Name: "netflix", Amount: core.Money{Cents: 1299}}, // no frequency counts as monthly
	}
	if got := TotalDues(bills, core.Monthly); got.Cents != 91299 {
		t.Fatalf("monthly expected 91299, got %d", got.Cents)
	}
	if got := TotalDues(bills, core.Weekly); got.Cents != 5000 {
		t.Fatalf("weekly expected 5000, got %d", got.Cents)
	}
	if got := TotalDues(bills, ""); got.Cents != 91299 {
		t.Fatalf("empty filter expected monthly total, got %d", got.Cents)
	}
}

func TestPaidThisMonth(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	expenses := []core.Expense{
		{Amount: core.Money{Cents: 1000}, Date: date(2026, 3, 1), BillID: "b1"},
		{Amount: core.Money{Cents: 2000}, Date: date(2026, 3, 10), BillID: "b2"},
		{Amount: core.Money{Cents: 4000}, Date: date(2026, 2, 28), BillID: "b1"}, // previous month
		{Amount: core.Money{Cents: 8000}, Date: date(2026, 3, 12)},               // not bill-linked
	}
	if got := PaidThisMonth(expenses, now); got.Cents != 3000 {
		t.Fatalf("expected 3000, got %d", got.Cents)
	}
}

func TestDuesSummary(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	bills := []core.Bill{
		{Name: "rent", Amount: core.Money{Cents: 10000}, Frequency: core.Monthly},
	}
	expenses := []core.Expense{
		{Amount: core.Money{Cents: 2500}, Date: date(2026, 3, 1), BillID: "b1"},
	}

	d := DuesSummary(bills, expenses, core.Monthly, now)
	if d.TotalDues.Cents != 10000 || d.Paid.Cents != 2500 {
		t.Fatalf("unexpected totals: %+v", d)
	}
	if d.Remaining.Cents != 7500 {
		t.Fatalf("expected remaining 7500, got %d", d.Remaining.Cents)
	}
	if d.Progress != 25 {
		t.Fatalf("expected progress 25, got %v", d.Progress)
	}
}

func TestDuesSummaryOverpaid(t *testing.T) {
	// Remaining goes negative and progress past 100; nothing clamps.
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	bills := []core.Bill{
		{Name: "rent", Amount: core.Money{Cents: 1000}, Frequency: core.Monthly},
	}
	expenses := []core.Expense{
		{Amount: core.Money{Cents: 1500}, Date: date(2026, 3, 2), BillID: "b1"},
	}

	d := DuesSummary(bills, expenses, core.Monthly, now)
	if d.Remaining.Cents != -500 {
		t.Fatalf("expected remaining -500, got %d", d.Remaining.Cents)
	}
	if d.Progress != 150 {
		t.Fatalf("expected progress 150, got %v", d.Progress)
	}
}

func TestDuesSummaryZeroDues(t *testing.T) {
	d := DuesSummary(nil, nil, core.Monthly, time.Now())
	if d.Progress != 0 {
		t.Fatalf("expected progress 0, got %v", d.Progress)
	}
}

func TestPeriodRange(t *testing.T) {
	// 2026-03-04 is a Wednesday.
	wed := time.Date(2026, time.March, 4, 15, 30, 0, 0, time.UTC)

	start, end := PeriodRange(PeriodMonthly, wed)
	if !start.Equal(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monthly start: %v", start)
	}
	if !end.Equal(time.Date(2026, time.March, 31, 23, 59, 59, 999000000, time.UTC)) {
		t.Fatalf("monthly end: %v", end)
	}

	start, end = PeriodRange(PeriodWeekly, wed)
	if !start.Equal(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("weekly start: %v", start)
	}
	if !end.Equal(time.Date(2026, time.March, 8, 23, 59, 59, 999000000, time.UTC)) {
		t.Fatalf("weekly end: %v", end)
	}

	// Sunday belongs to the week that started the previous Monday.
	sun := time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC)
	start, _ = PeriodRange(PeriodWeekly, sun)
	if !start.Equal(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("sunday weekly start: %v", start)
	}

	start, end = PeriodRange(PeriodDaily, wed)
	if !start.Equal(time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("daily start: %v", start)
	}
	if !end.Equal(time.Date(2026, time.March, 4, 23, 59, 59, 999000000, time.UTC)) {
		t.Fatalf("daily end: %v", end)
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	snap := core.Snapshot{
		Incomes: []core.Income{
			{ID: "i1", Client: "Acme", Amount: core.Money{Cents: 100000}, Date: date(2026, 3, 1)},
			{ID: "i2", Client: "Globex", Amount: core.Money{Cents: 50000}, Date: date(2026, 2, 20)}, // outside window
		},
		Expenses: []core.Expense{
			{ID: "e1", Name: "groceries", Amount: core.Money{Cents: 4500}, Date: date(2026, 3, 10)},
			{ID: "e2", Name: "rent", Amount: core.Money{Cents: 90000}, Date: date(2026, 3, 2)},
		},
	}

	r := Build(snap, PeriodMonthly, now)
	if len(r.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(r.Transactions))
	}
	// Newest first.
	if r.Transactions[0].ID != "e1" || r.Transactions[1].ID != "e2" || r.Transactions[2].ID != "i1" {
		t.Fatalf("unexpected order: %v %v %v",
			r.Transactions[0].ID, r.Transactions[1].ID, r.Transactions[2].ID)
	}
	if r.Transactions[2].Kind != KindIncome || r.Transactions[2].Label != "Acme" {
		t.Fatalf("unexpected income line: %+v", r.Transactions[2])
	}
	if r.TotalIncome.Cents != 100000 {
		t.Fatalf("total income: %d", r.TotalIncome.Cents)
	}
	if r.TotalExpense.Cents != 94500 {
		t.Fatalf("total expense: %d", r.TotalExpense.Cents)
	}
	if r.NetCashflow.Cents != r.TotalIncome.Cents-r.TotalExpense.Cents {
		t.Fatalf("net cashflow: %d", r.NetCashflow.Cents)
	}
}

func TestBuildEmptySnapshot(t *testing.T) {
	r := Build(core.Snapshot{}, PeriodDaily, time.Now())
	if len(r.Transactions) != 0 || r.NetCashflow.Cents != 0 {
		t.Fatalf("expected empty report, got %+v", r)
	}
}

func TestPeriodValid(t *testing.T) {
	for _, p := range []Period{PeriodMonthly, PeriodWeekly, PeriodDaily} {
		if !p.Valid() {
			t.Fatalf("%q expected valid", p)
		}
	}
	if Period("yearly").Valid() {
		t.Fatalf("yearly expected invalid")
	}
}
