package main

import (
	"context"
	"os"
	"time"

	"vfms/internal/cli"
	applog "vfms/internal/log"
	"vfms/internal/metrics"
	"vfms/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentRecurring)

	logger.Info("Starting recurring-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer cli.CloseBackend(logger, res)
	if res.Publisher == nil {
		logger.Info("AMQP disabled - generated dues will not be announced")
	}

	processor := services.NewRecurringProcessor(res.Store, res.Publisher, metrics.New())
	scheduler := services.NewGenerationScheduler(processor, services.SchedulerConfig{
		Interval:      cfg.RecurringInterval,
		Horizon:       services.HorizonFor(cfg.GenerationHorizon),
		RepairOnStart: true,
	})

	logger.Info("Recurring generation configured",
		"interval", cfg.RecurringInterval,
		"horizon", cfg.GenerationHorizon,
		"backend", cfg.DataBackend)

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start generation scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler did not stop cleanly", "error", err)
	}
	logger.Info("Recurring-worker shutdown complete")
}
