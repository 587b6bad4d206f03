package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"billfold/internal/core"
	"billfold/internal/services"
)

type snapshotJSON struct {
	Incomes  []incomeJSON  `json:"incomes"`
	Expenses []expenseJSON `json:"expenses"`
	Bills    []billJSON    `json:"bills"`
}

func toSnapshotJSON(snap core.Snapshot, label string) snapshotJSON {
	out := snapshotJSON{
		Incomes:  make([]incomeJSON, 0, len(snap.Incomes)),
		Expenses: make([]expenseJSON, 0, len(snap.Expenses)),
		Bills:    make([]billJSON, 0, len(snap.Bills)),
	}
	for _, in := range snap.Incomes {
		out.Incomes = append(out.Incomes, toIncomeJSON(in))
	}
	for _, e := range snap.Expenses {
		out.Expenses = append(out.Expenses, toExpenseJSON(e))
	}
	for _, b := range snap.Bills {
		out.Bills = append(out.Bills, toBillJSON(b, services.IsPaid(b, label, snap.Expenses)))
	}
	return out
}

// handleStream pushes full snapshots over server-sent events. The
// first event carries the current state; every store mutation after
// that delivers a fresh snapshot. Missed intermediate states are fine,
// the client always converges on the latest.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, kindWriteError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()

	initial, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Snapshot load error", "error", err)
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to load records")
		return
	}

	sub := s.store.Subscribe(ctx)
	defer sub.Cancel()

	if err := writeSnapshotEvent(w, flusher, initial); err != nil {
		slog.WarnContext(ctx, "Stream write failed", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap, open := <-sub.C:
			if !open {
				return
			}
			if err := writeSnapshotEvent(w, flusher, snap); err != nil {
				slog.WarnContext(ctx, "Stream write failed", "error", err)
				return
			}
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, flusher http.Flusher, snap core.Snapshot) error {
	label := core.MonthLabel(time.Now())
	payload, err := json.Marshal(toSnapshotJSON(snap, label))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
