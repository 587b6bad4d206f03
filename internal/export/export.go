// Package export mirrors ledger records to an external spreadsheet.
package export

import (
	"context"
	"time"
)

// Row is one transaction line in the mirror sheet.
type Row struct {
	Kind     string
	ID       string
	Label    string
	Amount   float64
	Date     time.Time
	Category string
}

// RowWriter appends rows to the mirror and returns a reference to the
// written range.
type RowWriter interface {
	Append(ctx context.Context, row Row) (string, error)
}

// IDLister is implemented by writers that can report the record IDs
// already present in the mirror, so a restarted worker can skip them.
type IDLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}
