package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"billfold/internal/core"
	applog "billfold/internal/log"
	"billfold/internal/report"
)

type transactionJSON struct {
	Kind   string  `json:"kind"`
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

type reportJSON struct {
	Period       string            `json:"period"`
	Start        string            `json:"start"`
	End          string            `json:"end"`
	Transactions []transactionJSON `json:"transactions"`
	TotalIncome  float64           `json:"total_income"`
	TotalExpense float64           `json:"total_expense"`
	NetCashflow  float64           `json:"net_cashflow"`
}

type duesJSON struct {
	TotalDues float64 `json:"total_dues"`
	Paid      float64 `json:"paid"`
	Remaining float64 `json:"remaining"`
	Progress  float64 `json:"progress"`
}

type dashboardResponse struct {
	MonthLabel     string     `json:"month_label"`
	Report         reportJSON `json:"report"`
	Dues           duesJSON   `json:"dues"`
	AverageIncome  float64    `json:"average_income"`
	AverageExpense float64    `json:"average_expense"`
}

func dashboardCacheKey(p report.Period, freq string) string {
	return string(p) + "|" + freq
}

// parsePeriod reads the period query parameter, defaulting to monthly.
func parsePeriod(r *http.Request) (report.Period, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("period"))
	if v == "" {
		return report.PeriodMonthly, true
	}
	p := report.Period(v)
	return p, p.Valid()
}

// parseFrequency reads the dues frequency filter. Empty leaves the
// bill listing unfiltered, but dues totals normalize it to monthly, so
// it shares the monthly cache key.
func parseFrequency(r *http.Request) (core.Frequency, string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("frequency"))
	if v == "" {
		return "", "monthly", true
	}
	f := core.Frequency(v)
	return f, v, f.Valid()
}

func toReportJSON(rep report.Report) reportJSON {
	out := reportJSON{
		Period:       string(rep.Period),
		Start:        rep.Start.Format("2006-01-02"),
		End:          rep.End.Format("2006-01-02"),
		Transactions: make([]transactionJSON, 0, len(rep.Transactions)),
		TotalIncome:  rep.TotalIncome.Float64(),
		TotalExpense: rep.TotalExpense.Float64(),
		NetCashflow:  rep.NetCashflow.Float64(),
	}
	for _, tx := range rep.Transactions {
		out.Transactions = append(out.Transactions, transactionJSON{
			Kind:   string(tx.Kind),
			ID:     tx.ID,
			Label:  tx.Label,
			Amount: tx.Amount.Float64(),
			Date:   tx.Date.Format("2006-01-02"),
		})
	}
	return out
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	period, ok := parsePeriod(r)
	if !ok {
		writeError(w, http.StatusBadRequest, kindBadRequest, "period must be monthly, weekly, or daily")
		return
	}
	freq, freqLabel, ok := parseFrequency(r)
	if !ok {
		writeError(w, http.StatusBadRequest, kindBadRequest, "frequency must be monthly, weekly, or daily")
		return
	}

	key := dashboardCacheKey(period, freqLabel)
	if cached, found := s.dashboardCache.Get(key); found {
		slog.DebugContext(r.Context(), "Dashboard cache hit", "period", period, "frequency", freqLabel)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	snap, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		s.logger.LogError(r.Context(), "Snapshot load failed", err,
			applog.ComponentHTTP, applog.OpRead, applog.NewFields())
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to load records")
		return
	}

	now := time.Now()
	rep := report.Build(snap, period, now)
	dues := report.DuesSummary(snap.Bills, snap.Expenses, freq, now)

	resp := dashboardResponse{
		MonthLabel: core.MonthLabel(now),
		Report:     toReportJSON(rep),
		Dues: duesJSON{
			TotalDues: dues.TotalDues.Float64(),
			Paid:      dues.Paid.Float64(),
			Remaining: dues.Remaining.Float64(),
			Progress:  dues.Progress,
		},
		AverageIncome:  report.AverageIncomeCents(snap.Incomes) / 100,
		AverageExpense: report.AverageExpenseCents(snap.Expenses) / 100,
	}

	s.dashboardCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	period, ok := parsePeriod(r)
	if !ok {
		writeError(w, http.StatusBadRequest, kindBadRequest, "period must be monthly, weekly, or daily")
		return
	}

	if cached, found := s.reportCache.Get(string(period)); found {
		slog.DebugContext(r.Context(), "Report cache hit", "period", period)
		writeJSON(w, http.StatusOK, toReportJSON(cached))
		return
	}

	snap, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		s.logger.LogError(r.Context(), "Snapshot load failed", err,
			applog.ComponentHTTP, applog.OpRead, applog.NewFields())
		writeError(w, http.StatusInternalServerError, kindWriteError, "failed to load records")
		return
	}

	rep := report.Build(snap, period, time.Now())
	s.reportCache.Set(string(period), rep)
	writeJSON(w, http.StatusOK, toReportJSON(rep))
}
