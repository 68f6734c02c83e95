package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Record store
	DataBackend  string
	SQLiteDBPath string
	// SeedFile is the JSON snapshot of the memory backend and the initial
	// dataset of an empty sqlite database.
	SeedFile string

	// AMQP (optional; events are not published when AMQPURL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export (optional)
	GoogleSpreadsheetID string
	GooglePaymentsSheet string
	GoogleSummarySheet  string

	// Workers
	RecurringInterval     time.Duration
	SummaryExportInterval time.Duration
	GenerationHorizon     string

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validBackends   = []string{"memory", "sqlite"}
	validHorizons   = []string{"current_month", "year_end"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json", "console"}
)

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:  strings.ToLower(getEnv("DATA_BACKEND", "memory")),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/vfms.db"),
		SeedFile:     getEnv("SEED_FILE", "./data/seed.json"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "vfms"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GooglePaymentsSheet: getEnv("GOOGLE_PAYMENTS_SHEET", "Payments"),
		GoogleSummarySheet:  getEnv("GOOGLE_SUMMARY_SHEET", "Summary"),

		RecurringInterval:     getEnvDuration("RECURRING_INTERVAL", time.Hour),
		SummaryExportInterval: getEnvDuration("SUMMARY_EXPORT_INTERVAL", 15*time.Minute),
		GenerationHorizon:     strings.ToLower(getEnv("GENERATION_HORIZON", "current_month")),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if strings.TrimSpace(c.GooglePaymentsSheet) == "" {
			errors = append(errors, "Google payments sheet name is required when a spreadsheet is configured")
		}
		if strings.TrimSpace(c.GoogleSummarySheet) == "" {
			errors = append(errors, "Google summary sheet name is required when a spreadsheet is configured")
		}
	}

	if c.RecurringInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 minute", c.RecurringInterval))
	} else if c.RecurringInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at most 24 hours", c.RecurringInterval))
	}
	if c.SummaryExportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid summary export interval %v: must be at least 1 second", c.SummaryExportInterval))
	}

	if !slices.Contains(validHorizons, c.GenerationHorizon) {
		errors = append(errors, fmt.Sprintf("invalid generation horizon '%s': must be one of %v", c.GenerationHorizon, validHorizons))
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// RequireAMQP reports an error when no broker is configured. Worker
// processes that consume events call it after Validate.
func (c *Config) RequireAMQP() error {
	if c.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
