package http

import (
	"bytes"
	"net/http"
	"strconv"
	"sync/atomic"

	"conti/internal/amqp"
	"conti/internal/export"
	"conti/internal/ledger"
	"conti/internal/log"
)

// handleTransactionsCSV exports every row matching the filter. Paging
// params are ignored.
func (s *Server) handleTransactionsCSV(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	res, err := s.ledger.SearchAll(r.Context(), ParseSearchParams(query))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeCSV(w, r, "transactions.csv", export.FromSearch("Transactions", res, ParseColumns(query)))
}

func (s *Server) handleReconciliationCSV(w http.ResponseWriter, r *http.Request) {
	accountID := parseAccountID(r)
	rep, err := s.ledger.Reconcile(r.Context(), accountID)
	if err != nil {
		s.fail(w, err)
		return
	}
	name := "reconciliation-" + strconv.FormatInt(accountID, 10) + ".csv"
	s.writeCSV(w, r, name, export.FromReport(rep, ParseColumns(r.URL.Query())))
}

// writeCSV renders into memory first so a failure still yields a clean 500.
func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, filename string, doc export.Document) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, doc); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV render failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		InternalServerError("export failed").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.csvExports, 1)
	attachment(w, "text/csv; charset=utf-8", filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type exportRequest struct {
	Kind      amqp.ExportKind     `json:"kind"`
	Format    amqp.ExportFormat   `json:"format"`
	AccountID int64               `json:"account_id"`
	Columns   []string            `json:"columns"`
	Filter    ledger.SearchParams `json:"filter"`
}

// handleEnqueueExport queues an export job and answers 202 with its id.
func (s *Server) handleEnqueueExport(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		ServiceUnavailableError("export queue not configured").Write(w)
		return
	}

	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if req.Kind == "" {
		req.Kind = amqp.ExportSearch
	}

	msg := amqp.NewExportRequestMessage(req.Kind, req.Format)
	msg.AccountID = req.AccountID
	msg.Columns = req.Columns
	msg.Filter = req.Filter
	if err := msg.Validate(); err != nil {
		s.fail(w, err)
		return
	}

	if err := s.exports.PublishExportRequest(r.Context(), msg); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export enqueue failed",
			log.FieldJobID, msg.JobID,
			log.FieldError, err)
		s.fail(w, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.exportsQueued, 1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Export queued",
		log.FieldJobID, msg.JobID,
		log.FieldFormat, string(msg.Format))

	NewJSONResponse().Status(http.StatusAccepted).Body(map[string]any{
		"job_id": msg.JobID,
		"kind":   msg.Kind,
		"format": msg.Format,
	}).Write(w)
}
