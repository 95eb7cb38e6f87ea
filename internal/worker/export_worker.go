package worker

import (
	"context"
	"fmt"
	"log/slog"

	"conti/internal/amqp"
	"conti/internal/export"
	"conti/internal/ledger"
)

// Ledger is the part of the ledger service an export needs.
type Ledger interface {
	SearchAll(ctx context.Context, p ledger.SearchParams) (ledger.SearchResult, error)
	Reconcile(ctx context.Context, accountID int64) (ledger.Report, error)
}

// ExportWorker renders export requests taken from the queue. The document is
// computed from the current ledger at handling time, never from data carried
// in the message.
type ExportWorker struct {
	ledger  Ledger
	writers map[amqp.ExportFormat]export.Writer
}

func NewExportWorker(l Ledger, writers map[amqp.ExportFormat]export.Writer) *ExportWorker {
	return &ExportWorker{ledger: l, writers: writers}
}

// HandleExportRequest processes a single export request message.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	slog.InfoContext(ctx, "Processing export request",
		"job_id", msg.JobID,
		"kind", msg.Kind,
		"format", msg.Format)

	writer, ok := w.writers[msg.Format]
	if !ok {
		return fmt.Errorf("%w: no writer configured for %s", amqp.ErrInvalidExport, msg.Format)
	}

	doc, err := w.build(ctx, msg)
	if err != nil {
		return err
	}

	ref, err := writer.Write(ctx, exportName(msg), doc)
	if err != nil {
		return fmt.Errorf("write %s export: %w", msg.Format, err)
	}

	slog.InfoContext(ctx, "Export written",
		"job_id", msg.JobID,
		"ref", ref,
		"rows", len(doc.Rows))
	return nil
}

func (w *ExportWorker) build(ctx context.Context, msg *amqp.ExportRequestMessage) (export.Document, error) {
	switch msg.Kind {
	case amqp.ExportReconciliation:
		rep, err := w.ledger.Reconcile(ctx, msg.AccountID)
		if err != nil {
			return export.Document{}, fmt.Errorf("reconcile account %d: %w", msg.AccountID, err)
		}
		return export.FromReport(rep, msg.Columns), nil
	case amqp.ExportSearch:
		res, err := w.ledger.SearchAll(ctx, msg.Filter)
		if err != nil {
			return export.Document{}, fmt.Errorf("search: %w", err)
		}
		return export.FromSearch("Transactions", res, msg.Columns), nil
	default:
		return export.Document{}, fmt.Errorf("%w: unknown kind %q", amqp.ErrInvalidExport, msg.Kind)
	}
}

// exportName is unique per job so retries overwrite their own output.
func exportName(msg *amqp.ExportRequestMessage) string {
	if msg.Kind == amqp.ExportReconciliation {
		return fmt.Sprintf("reconciliation-%d-%s", msg.AccountID, msg.JobID)
	}
	return "transactions-" + msg.JobID
}
