package backend

import (
	"context"

	"vfms/internal/amqp"
	"vfms/internal/services"
	"vfms/internal/storage"
)

// CleanupFunc releases the resources opened by a factory.
type CleanupFunc func() error

// Result holds the record store and the optional event publisher.
type Result struct {
	Store storage.Store
	// Publisher is nil when no broker is configured.
	Publisher services.Publisher
	// AMQP is the broker client behind Publisher, for consumers.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string
	SeedFile     string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
