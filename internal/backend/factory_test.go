package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"vfms/internal/amqp"
	"vfms/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", SeedFile: "seed.json"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.SeedFile != "seed.json" {
		t.Errorf("config = %+v", cfg)
	}
	cfg, err = FromAppConfig(&config.Config{})
	if err != nil || cfg.Type != MemoryBackend {
		t.Errorf("empty backend = %+v, %v", cfg, err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
		{"unknown", Config{Type: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_MemoryBackend(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.Create(context.Background(), Config{Type: MemoryBackend, SeedFile: filepath.Join(t.TempDir(), "seed.json")})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	if res.Publisher != nil || res.AMQP != nil {
		t.Error("no broker configured, publisher must be nil")
	}
	households, err := res.Store.Households().GetAll(context.Background())
	if err != nil || len(households) != 2 {
		t.Errorf("households = %+v, %v", households, err)
	}
}

func TestFactory_SQLiteBackendIsSeeded(t *testing.T) {
	f := NewFactory(nil)
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "vfms.db")}
	res, err := f.Create(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	funds, err := res.Store.Funds().GetAll(context.Background())
	if err != nil || len(funds) != 4 {
		t.Errorf("funds = %d, %v", len(funds), err)
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup: %v", err)
	}
}

func TestFactory_UnreachableBrokerIsOptional(t *testing.T) {
	f := NewFactory(nil)
	f.dialAMQP = func(string, string, string) (*amqp.Client, error) {
		return nil, errors.New("connection refused")
	}
	res, err := f.Create(context.Background(), Config{
		Type:         MemoryBackend,
		AMQPURL:      "amqp://localhost:1/",
		AMQPExchange: "vfms",
		AMQPQueue:    "ledger_events",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()
	if res.Publisher != nil {
		t.Error("publisher must be nil when the broker is unreachable")
	}
}
