// Package sqlite is the embedded record-store backend. One database file
// holds the three record collections; every successful mutation reloads
// the user's snapshot and fans it out to subscribers.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"billfold/internal/core"
	"billfold/internal/store"
)

const dateLayout = "2006-01-02"

type Repository struct {
	db     *sql.DB
	userID string
	hub    *store.Hub
}

var _ store.Store = (*Repository)(nil)

func New(dbPath, userID string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:     db,
		userID: userID,
		hub:    store.NewHub(),
	}, nil
}

func (r *Repository) Close() error {
	r.hub.CloseAll()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, client, amount_cents, entry_date, income_type
		 FROM incomes WHERE user_id = ? ORDER BY entry_date DESC, created_at DESC`,
		r.userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var (
			in      core.Income
			dateStr string
			typ     string
		)
		if err := rows.Scan(&in.ID, &in.Client, &in.Amount.Cents, &dateStr, &typ); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.Date, err = parseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("income %s: %w", in.ID, err)
		}
		in.Type = core.IncomeType(typ)
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return out, nil
}

func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, amount_cents, entry_date, category, recurring, generated, bill_id, paid_for
		 FROM expenses WHERE user_id = ? ORDER BY entry_date DESC, created_at DESC`,
		r.userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e        core.Expense
			dateStr  string
			category string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Amount.Cents, &dateStr, &category,
			&e.Recurring, &e.Generated, &e.BillID, &e.PaidFor); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date, err = parseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		e.Category = core.Category(category)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (r *Repository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, amount_cents, category, frequency, due_day, created_at
		 FROM bills WHERE user_id = ? ORDER BY name ASC`,
		r.userID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var out []core.Bill
	for rows.Next() {
		var (
			b         core.Bill
			category  string
			frequency string
			createdAt string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Amount.Cents, &category, &frequency, &b.DueDay, &createdAt); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		b.Category = core.Category(category)
		b.Frequency = core.Frequency(frequency)
		b.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("bill %s: parse created_at: %w", b.ID, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return out, nil
}

func (r *Repository) LoadSnapshot(ctx context.Context) (core.Snapshot, error) {
	incomes, err := r.ListIncomes(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	expenses, err := r.ListExpenses(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	bills, err := r.ListBills(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{Incomes: incomes, Expenses: expenses, Bills: bills}, nil
}

func (r *Repository) InsertIncome(ctx context.Context, in core.Income) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (id, user_id, client, amount_cents, entry_date, income_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, r.userID, in.Client, in.Amount.Cents, in.Date.Format(dateLayout), string(in.Type))
	if err != nil {
		return "", fmt.Errorf("insert income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", id,
		"client", in.Client,
		"amount_cents", in.Amount.Cents)

	r.notify(ctx)
	return id, nil
}

func (r *Repository) InsertExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, name, amount_cents, entry_date, category, recurring, generated, bill_id, paid_for)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.userID, e.Name, e.Amount.Cents, e.Date.Format(dateLayout), string(e.Category),
		e.Recurring, e.Generated, e.BillID, e.PaidFor)
	if err != nil {
		if isUniqueViolation(err) {
			return "", store.ErrConflict
		}
		return "", fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"name", e.Name,
		"amount_cents", e.Amount.Cents,
		"generated", e.Generated)

	r.notify(ctx)
	return id, nil
}

func (r *Repository) InsertBill(ctx context.Context, b core.Bill) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (id, user_id, name, amount_cents, category, frequency, due_day, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.userID, b.Name, b.Amount.Cents, string(b.Category),
		string(b.Frequency.Normalize()), b.DueDay, b.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill saved",
		"id", id,
		"name", b.Name,
		"frequency", string(b.Frequency.Normalize()),
		"due_day", b.DueDay)

	r.notify(ctx)
	return id, nil
}

func (r *Repository) DeleteIncome(ctx context.Context, id string) error {
	return r.deleteFrom(ctx, "incomes", id)
}

func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	return r.deleteFrom(ctx, "expenses", id)
}

// DeleteBill removes the bill only. Generated expenses keep their bill
// reference and become orphans.
func (r *Repository) DeleteBill(ctx context.Context, id string) error {
	return r.deleteFrom(ctx, "bills", id)
}

func (r *Repository) deleteFrom(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE id = ? AND user_id = ?", id, r.userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	r.notify(ctx)
	return nil
}

func (r *Repository) Subscribe(ctx context.Context) *store.Subscription {
	return r.hub.Subscribe(ctx)
}

// notify reloads the snapshot and fans it out. Delivery is best effort:
// a failed reload is logged, not surfaced to the mutating caller whose
// write already succeeded.
func (r *Repository) notify(ctx context.Context) {
	snap, err := r.LoadSnapshot(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load snapshot for broadcast", "error", err)
		return
	}
	r.hub.Broadcast(snap)
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse entry date: %w", err)
	}
	return core.Date{Time: t}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
