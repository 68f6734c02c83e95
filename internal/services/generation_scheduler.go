package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SchedulerConfig holds configuration for the generation scheduler.
type SchedulerConfig struct {
	// Interval between generation runs (default: 1h).
	Interval time.Duration

	// Horizon decides how far each run generates (default: CurrentMonth).
	Horizon Horizon

	// RepairOnStart runs RepairLinks once before the first generation.
	RepairOnStart bool
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:      time.Hour,
		Horizon:       CurrentMonth{},
		RepairOnStart: true,
	}
}

// GenerationScheduler runs template expansion on a ticker.
type GenerationScheduler struct {
	processor *RecurringProcessor
	config    SchedulerConfig
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewGenerationScheduler(processor *RecurringProcessor, config SchedulerConfig) *GenerationScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if config.Horizon == nil {
		config.Horizon = CurrentMonth{}
	}
	return &GenerationScheduler{
		processor: processor,
		config:    config,
		now:       time.Now,
	}
}

// Start begins the loop. Returns an error if already running.
func (s *GenerationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("generation scheduler is already running")
	}
	if s.processor == nil {
		s.mu.Unlock()
		return fmt.Errorf("generation scheduler has no processor")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if s.config.RepairOnStart {
		if _, err := s.processor.RepairLinks(ctx); err != nil {
			slog.WarnContext(ctx, "Link repair failed at startup", "error", err)
		}
	}

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Generation scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (s *GenerationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Generation scheduler stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Generation scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *GenerationScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce performs a single generation pass.
func (s *GenerationScheduler) RunOnce(ctx context.Context) (int, error) {
	return s.processor.ProcessTemplates(ctx, s.now(), s.config.Horizon)
}

func (s *GenerationScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *GenerationScheduler) tick(ctx context.Context) {
	created, err := s.RunOnce(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Template generation failed", "error", err)
		return
	}
	slog.DebugContext(ctx, "Template generation tick", "created", created)
}
