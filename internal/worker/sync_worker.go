package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vfms/internal/amqp"
	"vfms/internal/ledger"
	applog "vfms/internal/log"
	"vfms/internal/sheets"
)

// SummarySource produces the compliance summary that is exported.
type SummarySource interface {
	GlobalSummary(ctx context.Context) ([]ledger.HouseholdSummary, error)
}

// LedgerSyncWorker mirrors ledger events into the spreadsheet: payments are
// appended as they arrive and the summary sheet is rewritten on demand.
type LedgerSyncWorker struct {
	payments sheets.PaymentWriter
	summary  sheets.SummaryWriter
	source   SummarySource
	now      func() time.Time
}

func NewLedgerSyncWorker(payments sheets.PaymentWriter, summary sheets.SummaryWriter, source SummarySource) *LedgerSyncWorker {
	return &LedgerSyncWorker{
		payments: payments,
		summary:  summary,
		source:   source,
		now:      time.Now,
	}
}

// HandleEvent processes one ledger event from AMQP. A returned error makes
// the consumer requeue the message.
func (w *LedgerSyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", ev.ID,
		"event_type", ev.Type,
		applog.FieldHouseholdID, ev.HouseholdID)

	switch ev.Type {
	case amqp.EventPaymentRecorded:
		if len(ev.Payments) == 0 {
			slog.WarnContext(ctx, "Payment event without payments, skipping", "event_id", ev.ID)
			return nil
		}
		ref, err := w.payments.AppendPayments(ctx, ev.Payments)
		if err != nil {
			return fmt.Errorf("append payments to sheets: %w", err)
		}
		slog.InfoContext(ctx, "Successfully synced payments",
			"event_id", ev.ID,
			applog.FieldHouseholdID, ev.HouseholdID,
			"count", len(ev.Payments),
			"sheets_ref", ref)
		return nil
	case amqp.EventDuesGenerated, amqp.EventLinksRepaired:
		// New or relinked dues change every household's totals.
		return w.ExportSummary(ctx)
	default:
		slog.WarnContext(ctx, "Unknown ledger event type, skipping", "event_id", ev.ID, "event_type", ev.Type)
		return nil
	}
}

// ExportSummary rewrites the compliance summary sheet from current data.
func (w *LedgerSyncWorker) ExportSummary(ctx context.Context) error {
	rows, err := w.source.GlobalSummary(ctx)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	if err := w.summary.WriteSummary(ctx, rows, w.now()); err != nil {
		return fmt.Errorf("write summary to sheets: %w", err)
	}
	slog.InfoContext(ctx, "Summary exported", "households", len(rows))
	return nil
}

// RunSummaryExporter exports the summary on every tick until ctx ends.
// Failures are logged and retried on the next tick.
func (w *LedgerSyncWorker) RunSummaryExporter(ctx context.Context, interval time.Duration) error {
	if err := w.ExportSummary(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial summary export failed",
			applog.FieldOperation, applog.OpExport,
			applog.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.ExportSummary(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic summary export failed",
					applog.FieldOperation, applog.OpExport,
					applog.FieldError, err)
			}
		}
	}
}
