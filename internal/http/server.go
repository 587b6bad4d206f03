// Package http exposes the JSON API for the ledger: record CRUD,
// period reports, the bill payment endpoint, and the live snapshot
// stream.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"billfold/internal/cache"
	applog "billfold/internal/log"
	"billfold/internal/report"
	"billfold/internal/services"
	"billfold/internal/store"
)

type Server struct {
	http.Server

	ledger *services.LedgerService
	bills  *services.BillService
	store  store.Store

	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *applog.StructuredLogger

	// Dashboard responses are cheap to rebuild but hot; a short TTL
	// keeps repeated polling off the store.
	dashboardCache *cache.LRUCache[dashboardResponse]
	reportCache    *cache.LRUCache[report.Report]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, ledger *services.LedgerService, bills *services.BillService, st store.Store) *Server {
	mux := http.NewServeMux()
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentHTTP,
	})

	requestID := applog.RequestIDMiddleware(func(*http.Request) string {
		return generateRequestID()
	})

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: applog.Middleware(logger)(requestID(mux)),
		},
		ledger:         ledger,
		bills:          bills,
		store:          st,
		rateLimiter:    newRateLimiter(),
		metrics:        &securityMetrics{},
		logger:         applog.NewStructuredLogger(logger),
		dashboardCache: cache.NewLRUCache[dashboardResponse](50, 30*time.Second),
		reportCache:    cache.NewLRUCache[report.Report](50, 30*time.Second),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.dashboardCache)
	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("/api/report", s.withMiddleware(s.handleReport))
	mux.HandleFunc("/api/incomes", s.withMiddleware(s.handleIncomes))
	mux.HandleFunc("/api/incomes/", s.withMiddleware(s.handleIncomeByID))
	mux.HandleFunc("/api/expenses", s.withMiddleware(s.handleExpenses))
	mux.HandleFunc("/api/expenses/", s.withMiddleware(s.handleExpenseByID))
	mux.HandleFunc("/api/bills", s.withMiddleware(s.handleBills))
	mux.HandleFunc("/api/bills/pay", s.withMiddleware(s.handlePayBill))
	mux.HandleFunc("/api/bills/", s.withMiddleware(s.handleBillByID))
	mux.HandleFunc("/api/stream", s.withMiddleware(s.handleStream))

	return s
}

// withMiddleware adds security headers, rate limiting, and request
// logging to a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		ctx := r.Context()

		s.logger.LogHTTPStart(ctx, r, clientIP)

		// Rate limit mutations only; reads and the stream are cheap.
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			if !s.rateLimiter.allow(clientIP, s.metrics) {
				slog.WarnContext(ctx, "Rate limit exceeded",
					applog.FieldClientIP, clientIP,
					applog.FieldMethod, r.Method,
					applog.FieldPath, r.URL.Path,
					applog.FieldComponent, applog.ComponentRateLimit)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, kindRateLimited, "rate limit exceeded, try again later")
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.logger.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
// Flush is forwarded so the stream handler works through the wrapper.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListBills(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateCaches drops the cached aggregates after a mutation.
func (s *Server) invalidateCaches() {
	for _, p := range []report.Period{report.PeriodMonthly, report.PeriodWeekly, report.PeriodDaily} {
		s.reportCache.Delete(string(p))
		s.dashboardCache.Delete(dashboardCacheKey(p, "monthly"))
		s.dashboardCache.Delete(dashboardCacheKey(p, "weekly"))
		s.dashboardCache.Delete(dashboardCacheKey(p, "daily"))
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
