package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"vfms/internal/cli"
	applog "vfms/internal/log"
	"vfms/internal/metrics"
	"vfms/internal/services"
	"vfms/internal/sheets"
	gsheet "vfms/internal/sheets/google"
	mem "vfms/internal/sheets/memory"
	"vfms/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)

	logger.Info("Starting ledger-worker")

	if err := cfg.RequireAMQP(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer cli.CloseBackend(logger, res)
	if res.AMQP == nil {
		logger.Error("AMQP broker unreachable", "url_set", cfg.AMQPURL != "")
		os.Exit(1)
	}

	var exporter sheets.Exporter
	if cfg.GoogleSpreadsheetID != "" {
		gs, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			PaymentsSheet: cfg.GooglePaymentsSheet,
			SummarySheet:  cfg.GoogleSummarySheet,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = gs
		logger.WithComponent(applog.ComponentSheets).Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = mem.New()
		logger.Info("Google Sheets disabled - events are recorded in memory only")
	}

	compliance := services.NewComplianceService(res.Store, metrics.New())
	syncWorker := worker.NewLedgerSyncWorker(exporter, exporter, compliance)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return res.AMQP.Consume(gctx, syncWorker.HandleEvent)
	})
	g.Go(func() error {
		return syncWorker.RunSummaryExporter(gctx, cfg.SummaryExportInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Ledger-worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Ledger-worker shutdown complete")
}
