// Package worker processes queued ledger events into the spreadsheet
// mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"billfold/internal/amqp"
	"billfold/internal/core"
	"billfold/internal/export"
	"billfold/internal/store"
)

// ExportWorker appends inserted ledger records to the mirror sheet.
// The mirror is append-only, so delete events are acknowledged and
// skipped.
type ExportWorker struct {
	store     store.Store
	writer    export.RowWriter
	batchSize int

	mu       sync.Mutex
	exported map[string]struct{}
}

func NewExportWorker(st store.Store, writer export.RowWriter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{
		store:     st,
		writer:    writer,
		batchSize: batchSize,
		exported:  make(map[string]struct{}),
	}
}

// HandleLedgerEvent processes one queued mutation. The record is
// re-read from the store rather than trusted from the message, so the
// mirror always reflects what was actually saved.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"collection", msg.Collection,
		"action", msg.Action,
		"id", msg.ID)

	if msg.Action == amqp.ActionDeleted {
		slog.InfoContext(ctx, "Mirror is append-only, skipping delete event",
			"collection", msg.Collection, "id", msg.ID)
		return nil
	}

	row, ok, err := w.resolveRow(ctx, msg.Collection, msg.ID)
	if err != nil {
		return fmt.Errorf("resolve record %s/%s: %w", msg.Collection, msg.ID, err)
	}
	if !ok {
		// Deleted between publish and consume. Nothing to mirror.
		slog.WarnContext(ctx, "Record gone before export, skipping",
			"collection", msg.Collection, "id", msg.ID)
		return nil
	}

	return w.appendRow(ctx, row)
}

// SeedExported loads the record IDs already present in the mirror and
// marks them exported, so a restarted worker does not append the whole
// ledger again. Writers that cannot list their rows are left unseeded.
func (w *ExportWorker) SeedExported(ctx context.Context) (int, error) {
	lister, ok := w.writer.(export.IDLister)
	if !ok {
		return 0, nil
	}

	ids, err := lister.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list mirrored ids: %w", err)
	}

	w.mu.Lock()
	for _, id := range ids {
		w.exported[id] = struct{}{}
	}
	w.mu.Unlock()
	return len(ids), nil
}

// Sweep mirrors any records the worker has not exported yet, up to the
// batch size. This is the backup path for lost queue messages.
func (w *ExportWorker) Sweep(ctx context.Context) (int, error) {
	snap, err := w.store.LoadSnapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}

	rows := make([]export.Row, 0, len(snap.Incomes)+len(snap.Expenses))
	for _, in := range snap.Incomes {
		rows = append(rows, incomeRow(in))
	}
	for _, e := range snap.Expenses {
		rows = append(rows, expenseRow(e))
	}

	appended := 0
	for _, row := range rows {
		if appended >= w.batchSize {
			break
		}
		if w.alreadyExported(row.ID) {
			continue
		}
		if err := w.appendRow(ctx, row); err != nil {
			return appended, err
		}
		appended++
	}

	if appended > 0 {
		slog.InfoContext(ctx, "Sweep mirrored records", "count", appended)
	}
	return appended, nil
}

func (w *ExportWorker) resolveRow(ctx context.Context, collection, id string) (export.Row, bool, error) {
	switch collection {
	case amqp.CollectionIncomes:
		incomes, err := w.store.ListIncomes(ctx)
		if err != nil {
			return export.Row{}, false, err
		}
		for _, in := range incomes {
			if in.ID == id {
				return incomeRow(in), true, nil
			}
		}
		return export.Row{}, false, nil
	case amqp.CollectionExpenses:
		expenses, err := w.store.ListExpenses(ctx)
		if err != nil {
			return export.Row{}, false, err
		}
		for _, e := range expenses {
			if e.ID == id {
				return expenseRow(e), true, nil
			}
		}
		return export.Row{}, false, nil
	case amqp.CollectionBills:
		// Bill templates are not transactions; the mirror only carries
		// money that moved.
		return export.Row{}, false, nil
	default:
		return export.Row{}, false, fmt.Errorf("unknown collection %q", collection)
	}
}

func (w *ExportWorker) appendRow(ctx context.Context, row export.Row) error {
	if w.alreadyExported(row.ID) {
		return nil
	}

	ref, err := w.writer.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}
	w.markExported(row.ID)

	slog.InfoContext(ctx, "Mirrored record",
		"id", row.ID,
		"kind", row.Kind,
		"ref", ref,
		"amount", row.Amount)
	return nil
}

func (w *ExportWorker) alreadyExported(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.exported[id]
	return ok
}

func (w *ExportWorker) markExported(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exported[id] = struct{}{}
}

func incomeRow(in core.Income) export.Row {
	return export.Row{
		Kind:     "income",
		ID:       in.ID,
		Label:    in.Client,
		Amount:   in.Amount.Float64(),
		Date:     in.Date.Time,
		Category: string(in.Type),
	}
}

func expenseRow(e core.Expense) export.Row {
	return export.Row{
		Kind:     "expense",
		ID:       e.ID,
		Label:    e.Name,
		Amount:   e.Amount.Float64(),
		Date:     e.Date.Time,
		Category: string(e.Category),
	}
}
