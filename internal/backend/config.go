package backend

import (
	"errors"
	"fmt"
	"strings"

	"vfms/internal/config"
)

// FromAppConfig picks the store and broker settings out of the process
// configuration. An empty DATA_BACKEND means the memory store.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	kind := BackendType(strings.ToLower(strings.TrimSpace(appConfig.DataBackend)))
	if kind == "" {
		kind = MemoryBackend
	}
	cfg := Config{
		Type:         kind,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		SeedFile:     appConfig.SeedFile,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if !c.Type.IsValid() {
		errs = append(errs, fmt.Errorf("unsupported backend %q", c.Type))
	}
	if c.Type == SQLiteBackend && strings.TrimSpace(c.SQLiteDBPath) == "" {
		errs = append(errs, errors.New("sqlite backend needs a database path"))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("broker exchange and queue must be set with a broker url"))
	}
	return errors.Join(errs...)
}
