package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// appMetrics counts API operations for /metrics.
type appMetrics struct {
	uptime          time.Time
	searches        int64
	reconciliations int64
	csvExports      int64
	exportsQueued   int64
	failures        int64
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": timestamp(),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}).Write(w)
}

func (s *Server) handleUnknownAPI(w http.ResponseWriter, r *http.Request) {
	NotFoundError("no such endpoint: " + r.URL.Path).Write(w)
}

// handleReady reports whether a ledger is open. The export queue is
// optional and never makes the server unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if gen, label, open := s.ledger.Current(); open {
		checks["ledger"] = map[string]any{
			"status":     "ok",
			"ledger":     label,
			"generation": gen,
		}
	} else {
		checks["ledger"] = "failed: no ledger open"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.exports != nil {
		checks["exports"] = "ok"
	} else {
		checks["exports"] = "not_configured"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": timestamp(),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	generation, _, _ := s.ledger.Current()

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	gauge("http_response_time_avg_microseconds", "Average response time", traceMetrics.AverageResponseTime)
	counter("ledger_searches_total", "Total transaction searches", atomic.LoadInt64(&s.appMetrics.searches))
	counter("ledger_reconciliations_total", "Total reconciliation reports", atomic.LoadInt64(&s.appMetrics.reconciliations))
	counter("ledger_csv_exports_total", "Total CSV documents served", atomic.LoadInt64(&s.appMetrics.csvExports))
	counter("ledger_exports_queued_total", "Total export jobs queued", atomic.LoadInt64(&s.appMetrics.exportsQueued))
	counter("ledger_failures_total", "Total failed ledger operations", atomic.LoadInt64(&s.appMetrics.failures))
	gauge("ledger_generation", "Current ledger session generation", int64(generation))
	counter("rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

// fail writes the error response for a failed ledger operation. The
// service has already logged it.
func (s *Server) fail(w http.ResponseWriter, err error) {
	atomic.AddInt64(&s.appMetrics.failures, 1)
	ErrorFor(err).Write(w)
}
