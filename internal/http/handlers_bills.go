package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"billfold/internal/core"
	"billfold/internal/services"
)

type billRequest struct {
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	Category  string `json:"category"`
	Frequency string `json:"frequency"`
	DueDay    int    `json:"due_day"`
}

type billJSON struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Frequency string  `json:"frequency"`
	DueDay    int     `json:"due_day"`
	Paid      bool    `json:"paid"`
}

type payRequest struct {
	BillID string `json:"bill_id"`
}

func toBillJSON(b core.Bill, paid bool) billJSON {
	return billJSON{
		ID:        b.ID,
		Name:      b.Name,
		Amount:    b.Amount.Float64(),
		Category:  string(b.Category),
		Frequency: string(b.Frequency.Normalize()),
		DueDay:    services.DueDay(b),
		Paid:      paid,
	}
}

func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listBills(w, r)
	case http.MethodPost:
		s.createBill(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// listBills returns bill templates with their paid state for the
// current month. An optional frequency query narrows the list; the
// paid flag is always against the current month label regardless of
// cadence.
func (s *Server) listBills(w http.ResponseWriter, r *http.Request) {
	freq, _, ok := parseFrequency(r)
	if !ok {
		writeError(w, http.StatusBadRequest, kindBadRequest, "frequency must be monthly, weekly, or daily")
		return
	}

	snap, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot load error", "error", err)
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to load bills")
		return
	}

	label := core.MonthLabel(time.Now())
	out := make([]billJSON, 0, len(snap.Bills))
	for _, b := range snap.Bills {
		if freq != "" && b.Frequency.Normalize() != freq {
			continue
		}
		out = append(out, toBillJSON(b, services.IsPaid(b, label, snap.Expenses)))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, kindValidation, "invalid amount")
		return
	}

	bill := core.Bill{
		Name:      sanitizeInput(req.Name),
		Amount:    core.Money{Cents: cents},
		Category:  core.Category(sanitizeInput(req.Category)),
		Frequency: core.Frequency(sanitizeInput(req.Frequency)),
		DueDay:    req.DueDay,
	}

	id, err := s.ledger.AddBill(r.Context(), bill, time.Now())
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, kindValidation, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Bill create error", "error", err)
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to save bill")
		return
	}

	bill.ID = id
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now()
	}
	s.logger.LogRecordSaved(r.Context(), "bills", id, bill.Amount.Cents)
	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, toBillJSON(bill, false))
}

// handlePayBill resolves a recurring bill into a generated expense for
// the current month. A second payment in the same month gets 409.
func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, "invalid request body")
		return
	}
	if req.BillID == "" {
		writeError(w, http.StatusBadRequest, kindBadRequest, "missing bill_id")
		return
	}

	expense, err := s.bills.MarkPaid(r.Context(), req.BillID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicatePayment):
			writeError(w, http.StatusConflict, kindDuplicatePayment, "bill already paid for this month")
		case notFound(err):
			writeError(w, http.StatusNotFound, kindNotFound, "bill not found")
		default:
			slog.ErrorContext(r.Context(), "Mark paid error", "error", err, "bill_id", req.BillID)
			writeError(w, http.StatusInternalServerError, kindWriteError, "failed to record payment")
		}
		return
	}

	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, toExpenseJSON(expense))
}

func (s *Server) handleBillByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := pathID(r.URL.Path, "/api/bills/")
	if id == "" {
		writeError(w, http.StatusBadRequest, kindBadRequest, "missing bill id")
		return
	}

	if err := s.ledger.DeleteBill(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Bill delete error", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to delete bill")
		return
	}

	s.invalidateCaches()
	w.WriteHeader(http.StatusNoContent)
}
