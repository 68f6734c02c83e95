package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vfms/internal/amqp"
	applog "vfms/internal/log"
	"vfms/internal/storage"
	"vfms/internal/storage/memory"
	"vfms/internal/storage/sqlite"
)

type DefaultFactory struct {
	logger *slog.Logger
	// dialAMQP is replaced in tests.
	dialAMQP func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, dialAMQP: amqp.NewClient}
}

// Create opens the record store for config and connects to the broker when
// one is configured. A broker that cannot be reached is logged and the
// result carries no publisher.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		store, err = f.createMemoryStore(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Store: store}
	if config.AMQPURL != "" {
		client, err := f.dialAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.AMQP = client
			// Assigned only when non-nil so the interface never holds a typed nil.
			res.Publisher = client
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if res.AMQP != nil {
			errs = append(errs, res.AMQP.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (storage.Store, error) {
	store, err := sqlite.New(config.SQLiteDBPath, f.storeLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	seed, err := storage.LoadSeed(config.SeedFile, f.logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	if err := storage.SeedIfEmpty(ctx, store, seed, f.logger); err != nil {
		store.Close()
		return nil, fmt.Errorf("seed SQLite store: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return store, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) (storage.Store, error) {
	if config.SeedFile == "" {
		f.logger.Info("Initialized memory backend with default dataset")
		return memory.New(storage.DefaultSnapshot()), nil
	}
	store, err := memory.Open(config.SeedFile, f.storeLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	f.logger.Info("Initialized memory backend", "snapshot", config.SeedFile)
	return store, nil
}

func (f *DefaultFactory) storeLogger() *slog.Logger {
	return f.logger.With(applog.FieldComponent, applog.ComponentStorage)
}
