package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"vfms/internal/cli"
	apphttp "vfms/internal/http"
	applog "vfms/internal/log"
	"vfms/internal/metrics"
	"vfms/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer cli.CloseBackend(logger, res)

	m := metrics.New()
	ledgerSvc := services.NewLedgerService(res.Store, res.Publisher, m)
	processor := services.NewRecurringProcessor(res.Store, res.Publisher, m)

	// Generated funds written before links existed are repaired before any
	// expansion runs, so gap filling sees them as existing months.
	if rep, err := processor.RepairLinks(ctx); err != nil {
		logger.LogError(ctx, "Link repair failed", err, applog.OpRepairLinks, nil)
	} else if rep.Repaired > 0 {
		logger.Info("Repaired recurring links", "repaired", rep.Repaired)
	}
	if created, err := processor.ProcessTemplates(ctx, time.Now(), services.HorizonFor(cfg.GenerationHorizon)); err != nil {
		logger.LogError(ctx, "Startup template expansion failed", err, applog.OpExpand, nil)
	} else {
		logger.Info("Startup template expansion complete", "created", created)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Ledger:     ledgerSvc,
		Recurring:  processor,
		Compliance: services.NewComplianceService(res.Store, m),
		Expenses:   services.NewExpenseService(res.Store),
		Metrics:    m,
	}, logger)
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.LogError(shutdownCtx, "Server shutdown error", err, applog.OpShutdown, nil)
		}
	}()

	logger.Info("Starting vfms server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
