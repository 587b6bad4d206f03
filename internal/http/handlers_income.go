package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"billfold/internal/core"
	"billfold/internal/store"
)

type incomeRequest struct {
	Client string `json:"client"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Type   string `json:"type"`
}

type incomeJSON struct {
	ID     string  `json:"id"`
	Client string  `json:"client"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Type   string  `json:"type"`
}

func toIncomeJSON(in core.Income) incomeJSON {
	return incomeJSON{
		ID:     in.ID,
		Client: in.Client,
		Amount: in.Amount.Float64(),
		Date:   in.Date.Format("2006-01-02"),
		Type:   string(in.Type),
	}
}

func (s *Server) handleIncomes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listIncomes(w, r)
	case http.MethodPost:
		s.createIncome(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.store.ListIncomes(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Income list error", "error", err)
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to load incomes")
		return
	}

	out := make([]incomeJSON, 0, len(incomes))
	for _, in := range incomes {
		out = append(out, toIncomeJSON(in))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
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

	income := core.Income{
		Client: sanitizeInput(req.Client),
		Amount: core.Money{Cents: cents},
		Date:   date,
		Type:   core.IncomeType(sanitizeInput(req.Type)),
	}

	id, err := s.ledger.AddIncome(r.Context(), income)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, kindValidation, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Income create error", "error", err)
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to save income")
		return
	}

	income.ID = id
	s.logger.LogRecordSaved(r.Context(), "incomes", id, income.Amount.Cents)
	s.invalidateCaches()
	writeJSON(w, http.StatusCreated, toIncomeJSON(income))
}

func (s *Server) handleIncomeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := pathID(r.URL.Path, "/api/incomes/")
	if id == "" {
		writeError(w, http.StatusBadRequest, kindBadRequest, "missing income id")
		return
	}

	if err := s.ledger.DeleteIncome(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Income delete error", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to delete income")
		return
	}

	s.invalidateCaches()
	w.WriteHeader(http.StatusNoContent)
}

// isValidationError reports whether err stems from record validation
// rather than the store.
func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrEmptyClient) ||
		errors.Is(err, core.ErrEmptyName) ||
		errors.Is(err, core.ErrUnknownType) ||
		errors.Is(err, core.ErrUnknownCategory) ||
		errors.Is(err, core.ErrUnknownFrequency)
}

// notFound reports whether err is a missing-record error.
func notFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
