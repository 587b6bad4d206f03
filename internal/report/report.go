// Package report computes derived dashboard figures from a record
// snapshot. Every function is pure: state comes in as values, the clock
// comes in as an explicit timestamp, and nothing is mutated.
package report

import (
	"sort"
	"time"

	"billfold/internal/core"
)

const (
	PeriodMonthly Period = "monthly"
	PeriodWeekly  Period = "weekly"
	PeriodDaily   Period = "daily"
)

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

type (
	// Period selects the date window of a transaction report.
	Period string

	// TransactionKind tags a report line as income or expense. A line is
	// always explicitly one or the other, never inferred from its fields.
	TransactionKind string

	// Transaction is a single line of a period report.
	Transaction struct {
		Kind   TransactionKind
		ID     string
		Label  string
		Amount core.Money
		Date   time.Time
	}

	// Report is the period-filtered transaction history with totals.
	Report struct {
		Period       Period
		Start        time.Time
		End          time.Time
		Transactions []Transaction
		TotalIncome  core.Money
		TotalExpense core.Money
		NetCashflow  core.Money
	}

	// Dues summarizes the recurring obligations for one frequency filter.
	// Remaining and Progress are deliberately unclamped: overpaying past
	// the filtered total drives Remaining negative and Progress past 100.
	Dues struct {
		TotalDues core.Money
		Paid      core.Money
		Remaining core.Money
		Progress  float64
	}
)

func (p Period) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodWeekly, PeriodDaily:
		return true
	}
	return false
}

// AverageIncomeCents is the lifetime average over every income entry, in
// cents. Zero entries yield zero. This is not a rolling monthly figure.
func AverageIncomeCents(incomes []core.Income) float64 {
	if len(incomes) == 0 {
		return 0
	}
	var sum int64
	for _, in := range incomes {
		sum += in.Amount.Cents
	}
	return float64(sum) / float64(len(incomes))
}

// AverageExpenseCents is the lifetime average over every expense entry,
// in cents.
func AverageExpenseCents(expenses []core.Expense) float64 {
	if len(expenses) == 0 {
		return 0
	}
	var sum int64
	for _, e := range expenses {
		sum += e.Amount.Cents
	}
	return float64(sum) / float64(len(expenses))
}

// TotalDues sums the bills whose frequency matches the filter. Bills
// without a frequency count as monthly.
func TotalDues(bills []core.Bill, freq core.Frequency) core.Money {
	freq = freq.Normalize()
	var sum int64
	for _, b := range bills {
		if b.Frequency.Normalize() == freq {
			sum += b.Amount.Cents
		}
	}
	return core.Money{Cents: sum}
}

// PaidThisMonth sums bill-linked expenses dated in the current month.
// It ignores the frequency filter on purpose: paid state always tracks
// the monthly cycle, whatever dues filter the caller selected.
func PaidThisMonth(expenses []core.Expense, now time.Time) core.Money {
	label := core.MonthLabel(now)
	var sum int64
	for _, e := range expenses {
		if e.BillID == "" {
			continue
		}
		if core.SameMonthLabel(e.Date.Time, label) {
			sum += e.Amount.Cents
		}
	}
	return core.Money{Cents: sum}
}

// DuesSummary combines the filtered dues total with the current month's
// payments.
func DuesSummary(bills []core.Bill, expenses []core.Expense, freq core.Frequency, now time.Time) Dues {
	total := TotalDues(bills, freq)
	paid := PaidThisMonth(expenses, now)

	d := Dues{
		TotalDues: total,
		Paid:      paid,
		Remaining: core.Money{Cents: total.Cents - paid.Cents},
	}
	if total.Cents > 0 {
		d.Progress = float64(paid.Cents) / float64(total.Cents) * 100
	}
	return d
}

// PeriodRange resolves a period selector to an inclusive [start, end]
// window around now. The weekly window runs Monday through Sunday, with
// Sunday counting as the seventh day of its own week. now is taken by
// value; nothing here advances or rewinds a shared clock.
func PeriodRange(p Period, now time.Time) (start, end time.Time) {
	loc := now.Location()
	year, month, day := now.Date()

	switch p {
	case PeriodWeekly:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(year, month, day, 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7).Add(-time.Millisecond)
	case PeriodDaily:
		start = time.Date(year, month, day, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1).Add(-time.Millisecond)
	default: // monthly
		start = time.Date(year, month, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0).Add(-time.Millisecond)
	}
	return start, end
}

// Build assembles the period-filtered transaction report for a snapshot.
// Lines are ordered newest first.
func Build(snap core.Snapshot, p Period, now time.Time) Report {
	start, end := PeriodRange(p, now)

	r := Report{
		Period: p,
		Start:  start,
		End:    end,
	}

	for _, in := range snap.Incomes {
		if !inRange(in.Date.Time, start, end) {
			continue
		}
		r.Transactions = append(r.Transactions, Transaction{
			Kind:   KindIncome,
			ID:     in.ID,
			Label:  in.Client,
			Amount: in.Amount,
			Date:   in.Date.Time,
		})
		r.TotalIncome.Cents += in.Amount.Cents
	}
	for _, e := range snap.Expenses {
		if !inRange(e.Date.Time, start, end) {
			continue
		}
		r.Transactions = append(r.Transactions, Transaction{
			Kind:   KindExpense,
			ID:     e.ID,
			Label:  e.Name,
			Amount: e.Amount,
			Date:   e.Date.Time,
		})
		r.TotalExpense.Cents += e.Amount.Cents
	}

	sort.SliceStable(r.Transactions, func(i, j int) bool {
		return r.Transactions[i].Date.After(r.Transactions[j].Date)
	})

	r.NetCashflow = core.Money{Cents: r.TotalIncome.Cents - r.TotalExpense.Cents}
	return r
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
