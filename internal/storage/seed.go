package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"vfms/internal/core"
)

// Snapshot is the full record set, as found in a seed file.
type Snapshot struct {
	Households []core.Household `json:"families"`
	Funds      []core.Fund      `json:"funds"`
	Payments   []core.Payment   `json:"transactions"`
	Expenses   []core.Expense   `json:"expenses"`
	Cashiers   []core.Cashier   `json:"cashiers"`
}

type rawSnapshot struct {
	Households json.RawMessage `json:"families"`
	Funds      json.RawMessage `json:"funds"`
	Payments   json.RawMessage `json:"transactions"`
	Expenses   json.RawMessage `json:"expenses"`
	Cashiers   json.RawMessage `json:"cashiers"`
}

// DefaultSnapshot is the dataset a fresh installation starts with.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Households: []core.Household{
			{
				ID:       "FAM001",
				HeadName: "Ramasamy",
				Members: []core.Member{
					{Name: "Ramasamy", Age: 65, DOB: core.NewDate(1959, 1, 1), Gender: "Male", Mobile: "9876543210"},
					{Name: "Lakshmi", Age: 60, DOB: core.NewDate(1964, 5, 20), Gender: "Female"},
				},
			},
			{
				ID:       "FAM002",
				HeadName: "Murugan",
				Members: []core.Member{
					{Name: "Murugan", Age: 45, DOB: core.NewDate(1979, 8, 15), Gender: "Male", Mobile: "9876543211"},
					{Name: "Valli", Age: 40, DOB: core.NewDate(1984, 3, 10), Gender: "Female"},
					{Name: "Karthik", Age: 18, DOB: core.NewDate(2006, 7, 22), Gender: "Male", Mobile: "9876543333"},
				},
			},
		},
		Funds: []core.Fund{
			{ID: "FUND001", Title: "Temple Festival", Amount: core.Rupees(500), Type: "OneTime", Classification: core.ClassificationEvent, CreatedDate: core.NewDate(2023, 10, 1), IsPublic: true},
			{ID: "FUND002", Title: "Water Tank Maintenance", Amount: core.Rupees(100), Type: "Monthly", Classification: core.ClassificationMonthly, IsMandatory: true, CreatedDate: core.NewDate(2023, 11, 1), IsPublic: true},
			{ID: "FUND000", Title: "General Village Fund", Type: "Donation", Classification: core.ClassificationGeneral, CreatedDate: core.NewDate(2023, 1, 1), IsPublic: true},
			{ID: "FUND003", Title: "Funeral Assistance (Muthu)", Amount: core.Rupees(200), Type: "OneTime", Classification: core.ClassificationDeathFund, CreatedDate: core.NewDate(2023, 11, 20), IsPublic: true, AffectedFamilyID: "FAM002"},
		},
		Payments: []core.Payment{},
		Expenses: []core.Expense{},
		Cashiers: []core.Cashier{
			{ID: "CASH001", Name: "Ramesh", Mobile: "9876543210"},
			{ID: "CASH002", Name: "Suresh", Mobile: "9123456789"},
		},
	}
}

// DecodeSnapshot reads each collection on its own. A collection that is
// missing, null or does not parse is replaced by the matching collection of
// fallback and the problem is logged.
func DecodeSnapshot(data []byte, fallback Snapshot, logger *slog.Logger) Snapshot {
	if logger == nil {
		logger = slog.Default()
	}
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("Seed data unreadable, using defaults", "error", err)
		return fallback
	}
	return Snapshot{
		Households: decodeCollection(raw.Households, fallback.Households, "families", logger),
		Funds:      decodeCollection(raw.Funds, fallback.Funds, "funds", logger),
		Payments:   decodeCollection(raw.Payments, fallback.Payments, "transactions", logger),
		Expenses:   decodeCollection(raw.Expenses, fallback.Expenses, "expenses", logger),
		Cashiers:   decodeCollection(raw.Cashiers, fallback.Cashiers, "cashiers", logger),
	}
}

func decodeCollection[T any](raw json.RawMessage, fallback []T, name string, logger *slog.Logger) []T {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warn("Collection unreadable, using defaults", "collection", name, "error", err)
		return fallback
	}
	if out == nil {
		return fallback
	}
	return out
}

// LoadSeed reads a seed file. A missing path yields the default dataset.
func LoadSeed(path string, logger *slog.Logger) (Snapshot, error) {
	if path == "" {
		return DefaultSnapshot(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read seed file: %w", err)
	}
	return DecodeSnapshot(data, DefaultSnapshot(), logger), nil
}

// SeedIfEmpty fills each empty collection of s from snap. Collections that
// already hold records are left alone.
func SeedIfEmpty(ctx context.Context, s Store, snap Snapshot, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := seedCollection(ctx, s.Households(), snap.Households, "families", logger); err != nil {
		return err
	}
	if err := seedCollection(ctx, s.Funds(), snap.Funds, "funds", logger); err != nil {
		return err
	}
	if err := seedCollection(ctx, s.Cashiers(), snap.Cashiers, "cashiers", logger); err != nil {
		return err
	}
	if err := seedCollection(ctx, s.Expenses(), snap.Expenses, "expenses", logger); err != nil {
		return err
	}
	existing, err := s.Payments().GetAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 && len(snap.Payments) > 0 {
		if _, err := s.Payments().Append(ctx, snap.Payments...); err != nil {
			return fmt.Errorf("seed transactions: %w", err)
		}
		logger.InfoContext(ctx, "Seeded collection", "collection", "transactions", "count", len(snap.Payments))
	}
	return nil
}

func seedCollection[T any](ctx context.Context, repo Repository[T], items []T, name string, logger *slog.Logger) error {
	existing, err := repo.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 || len(items) == 0 {
		return nil
	}
	for _, it := range items {
		if err := repo.Put(ctx, it); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}
	logger.InfoContext(ctx, "Seeded collection", "collection", name, "count", len(items))
	return nil
}
