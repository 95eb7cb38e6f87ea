// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/middleware/ratelimit"
	"conti/internal/middleware/security"
	"conti/internal/middleware/trace"
)

// Ledger is the part of the ledger service the API calls.
type Ledger interface {
	Search(ctx context.Context, p ledger.SearchParams) (ledger.SearchResult, error)
	SearchAll(ctx context.Context, p ledger.SearchParams) (ledger.SearchResult, error)
	Reconcile(ctx context.Context, accountID int64) (ledger.Report, error)
	Accounts(ctx context.Context) ([]core.Account, error)
	Categories(ctx context.Context) ([]core.Category, error)
	EnsureCategory(ctx context.Context, name string) (int64, error)
	OpenLedger(ctx context.Context, path string) (uint64, error)
	Current() (generation uint64, label string, open bool)
}

// ExportPublisher queues export jobs for the worker.
type ExportPublisher interface {
	PublishExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error
}

// Config holds the server settings that are not collaborators.
type Config struct {
	Addr            string
	DefaultPageSize int
	RateLimit       ratelimit.Config
}

type Server struct {
	http.Server
	ledger  Ledger
	exports ExportPublisher
	logger  *log.Logger

	pageSize int

	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	rateLimiter      *ratelimit.Limiter
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware. exports may be nil, in which case
// POST /api/exports answers 503.
func NewServer(cfg Config, l Ledger, exports ExportPublisher, logger *log.Logger) *Server {
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit = ratelimit.DefaultConfig()
	}

	detector := security.NewDetector()
	s := &Server{
		ledger:           l,
		exports:          exports,
		logger:           logger.WithComponent(log.ComponentHTTP),
		pageSize:         cfg.DefaultPageSize,
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		rateLimiter:      ratelimit.NewLimiter(cfg.RateLimit),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/accounts", s.handleAccounts)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/reconciliation", s.handleReconciliation)

	mux.HandleFunc("GET /api/exports/transactions.csv", s.handleTransactionsCSV)
	mux.HandleFunc("GET /api/exports/reconciliation.csv", s.handleReconciliationCSV)
	mux.HandleFunc("POST /api/exports", s.handleEnqueueExport)

	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/session", s.handleOpenLedger)
	mux.HandleFunc("GET /api/", s.handleUnknownAPI)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// chain wraps h so that the logger is in the context first, then the
// request id, then headers, detection and rate limiting.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(h)
	h = s.securityDetector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return log.Middleware(s.logger)(h)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
		Header("Retry-After", "60").
		Write(w)
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
