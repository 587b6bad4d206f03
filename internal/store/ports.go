// Package store defines the record-store port and the snapshot
// subscription machinery shared by its backends. A store holds the three
// record collections of a single user namespace and delivers the full
// current state to subscribers on every change.
package store

import (
	"context"
	"errors"

	"billfold/internal/core"
)

var (
	// ErrNotFound is returned by deletes of unknown ids. Callers treat
	// it as a no-op.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an insert collides with a uniqueness
	// guard, e.g. a second generated payment for the same bill and month.
	ErrConflict = errors.New("record conflicts with an existing record")
)

// Store is the record-store port. Lists return defensive copies in their
// contract order: incomes and expenses newest first, bills by name.
// Records are immutable once inserted; the only mutation is deletion.
type Store interface {
	ListIncomes(ctx context.Context) ([]core.Income, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListBills(ctx context.Context) ([]core.Bill, error)

	InsertIncome(ctx context.Context, in core.Income) (string, error)
	InsertExpense(ctx context.Context, e core.Expense) (string, error)
	InsertBill(ctx context.Context, b core.Bill) (string, error)

	DeleteIncome(ctx context.Context, id string) error
	DeleteExpense(ctx context.Context, id string) error
	DeleteBill(ctx context.Context, id string) error

	// LoadSnapshot reads all three collections at once.
	LoadSnapshot(ctx context.Context) (core.Snapshot, error)

	// Subscribe registers for full-snapshot delivery. Every successful
	// mutation produces a new snapshot; consumers replace their local
	// view wholesale. The subscription ends when ctx is done or Cancel
	// is called.
	Subscribe(ctx context.Context) *Subscription

	Close() error
}
