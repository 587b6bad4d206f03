package http

import (
	"log/slog"
	"net/http"
	"time"

	"billfold/internal/core"
)

type expenseRequest struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

type expenseJSON struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
	Category  string  `json:"category"`
	Recurring bool    `json:"recurring"`
	Generated bool    `json:"generated"`
	BillID    string  `json:"bill_id,omitempty"`
	PaidFor   string  `json:"paid_for,omitempty"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:        e.ID,
		Name:      e.Name,
		Amount:    e.Amount.Float64(),
		Date:      e.Date.Format("2006-01-02"),
		Category:  string(e.Category),
		Recurring: e.Recurring,
		Generated: e.Generated,
		BillID:    e.BillID,
		PaidFor:   e.PaidFor,
	}
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listExpenses(w, r)
	case http.MethodPost:
		s.createExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.store.ListExpenses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense list error", "error", err)
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to load expenses")
		return
	}

	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// createExpense records a manual expense. Generated payment records
// only ever come from the bill payment endpoint.
func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, kindValidation, "invalid amount")
		return
	}

	now := time.Now()
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if req.Date != "" {
		date, err = parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, kindValidation, "date must be YYYY-MM-DD")
			return
		}
	}

	expense := core.Expense{
		Name:     sanitizeInput(req.Name),
		Amount:   core.Money{Cents: cents},
		Date:     date,
		Category: core.Category(sanitizeInput(req.Category)),
	}

	id, err := s.ledger.AddExpense(r.Context(), expense)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, kindValidation, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Expense create error", "error", err)
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to save expense")
		return
	}

	expense.ID = id
	s.logger.LogRecordSaved(r.Context(), "expenses", id, expense.Amount.Cents)
	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, toExpenseJSON(expense))
}

func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := pathID(r.URL.Path, "/api/expenses/")
	if id == "" {
		writeError(w, http.StatusBadRequest, kindBadRequest, "missing expense id")
		return
	}

	if err := s.ledger.DeleteExpense(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Expense delete error", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to delete expense")
		return
	}

	s.invalidateCaches()
	w.WriteHeader(http.StatusNoContent)
}
