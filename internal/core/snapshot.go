package core

import "time"

// Snapshot is the full record state observed at one moment. Aggregations
// take a snapshot by value and never reach back to the store, so a
// snapshot can be recomputed over freely as new ones arrive.
type Snapshot struct {
	Incomes  []Income
	Expenses []Expense
	Bills    []Bill
}

// MonthLabel renders the month-year grouping key for a point in time,
// e.g. "Nov 2025". Generated payments are keyed by this label.
func MonthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}

// SameMonthLabel reports whether t falls in the month identified by label.
func SameMonthLabel(t time.Time, label string) bool {
	return MonthLabel(t) == label
}
