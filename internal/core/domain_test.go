package core

import (
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2026, 1, 1), true},
		{NewDate(2026, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestFrequencyNormalize(t *testing.T) {
	if got := Frequency("").Normalize(); got != Monthly {
		t.Fatalf("empty frequency expected monthly, got %q", got)
	}
	if got := Weekly.Normalize(); got != Weekly {
		t.Fatalf("weekly expected unchanged, got %q", got)
	}
}

func TestIncomeValidate(t *testing.T) {
	good := Income{
		Client: "Acme",
		Amount: Money{Cents: 150000},
		Date:   NewDate(2026, 3, 1),
		Type:   IncomeRetainer,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Income{
		{Client: "  ", Amount: Money{Cents: 1}, Date: NewDate(2026, 3, 1), Type: IncomeRetainer},
		{Client: strings.Repeat("x", 201), Amount: Money{Cents: 1}, Date: NewDate(2026, 3, 1), Type: IncomeRetainer},
		{Client: "Acme", Amount: Money{Cents: 0}, Date: NewDate(2026, 3, 1), Type: IncomeRetainer},
		{Client: "Acme", Amount: Money{Cents: 1}, Date: Date{}, Type: IncomeRetainer},
		{Client: "Acme", Amount: Money{Cents: 1}, Date: NewDate(2026, 3, 1), Type: "salary"},
	}
	for i, in := range bads {
		if err := in.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Name:     "groceries",
		Amount:   Money{Cents: 4599},
		Date:     NewDate(2026, 3, 2),
		Category: CategoryFood,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	generated := good
	generated.Generated = true
	generated.BillID = "bill-1"
	generated.PaidFor = "Mar 2026"
	if err := generated.Validate(); err != nil {
		t.Fatalf("generated expected ok, got %v", err)
	}

	bads := []Expense{
		{Name: "", Amount: Money{Cents: 1}, Date: NewDate(2026, 3, 2), Category: CategoryFood},
		{Name: "a", Amount: Money{Cents: 0}, Date: NewDate(2026, 3, 2), Category: CategoryFood},
		{Name: "a", Amount: Money{Cents: 1}, Date: Date{}, Category: CategoryFood},
		{Name: "a", Amount: Money{Cents: 1}, Date: NewDate(2026, 3, 2), Category: "misc"},
		{Name: "a", Amount: Money{Cents: 1}, Date: NewDate(2026, 3, 2), Category: CategoryFood, Generated: true}, // generated without bill
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBillValidate(t *testing.T) {
	good := Bill{
		Name:      "rent",
		Amount:    Money{Cents: 90000},
		Category:  CategoryHousing,
		Frequency: Monthly,
		DueDay:    1,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// Empty frequency normalizes to monthly during validation.
	noFreq := good
	noFreq.Frequency = ""
	if err := noFreq.Validate(); err != nil {
		t.Fatalf("empty frequency expected ok, got %v", err)
	}

	bads := []Bill{
		{Name: " ", Amount: Money{Cents: 1}, Category: CategoryHousing, Frequency: Monthly, DueDay: 1},
		{Name: "rent", Amount: Money{Cents: 0}, Category: CategoryHousing, Frequency: Monthly, DueDay: 1},
		{Name: "rent", Amount: Money{Cents: 1}, Category: "misc", Frequency: Monthly, DueDay: 1},
		{Name: "rent", Amount: Money{Cents: 1}, Category: CategoryHousing, Frequency: "yearly", DueDay: 1},
		{Name: "rent", Amount: Money{Cents: 1}, Category: CategoryHousing, Frequency: Monthly, DueDay: 32},
		{Name: "rent", Amount: Money{Cents: 1}, Category: CategoryHousing, Frequency: Monthly, DueDay: -1},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMonthLabel(t *testing.T) {
	ts := time.Date(2026, time.November, 5, 10, 0, 0, 0, time.UTC)
	if got := MonthLabel(ts); got != "Nov 2026" {
		t.Fatalf("expected %q, got %q", "Nov 2026", got)
	}
	if !SameMonthLabel(time.Date(2026, time.November, 28, 0, 0, 0, 0, time.UTC), "Nov 2026") {
		t.Fatalf("expected same month")
	}
	if SameMonthLabel(time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), "Nov 2026") {
		t.Fatalf("expected different month")
	}
}
