// Package memory is an in-process sheets exporter used when no spreadsheet
// is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"vfms/internal/core"
	"vfms/internal/ledger"
	"vfms/internal/sheets"
)

var _ sheets.Exporter = (*Recorder)(nil)

type Recorder struct {
	mu          sync.Mutex
	payments    []core.Payment
	summary     []ledger.HouseholdSummary
	generatedAt time.Time
	exports     int
}

func New() *Recorder {
	return &Recorder{}
}

// AppendPayments stores the payments and returns a synthetic row reference.
func (r *Recorder) AppendPayments(_ context.Context, payments []core.Payment) (string, error) {
	for _, p := range payments {
		if err := p.Validate(); err != nil {
			return "", err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	start := len(r.payments) + 1
	r.payments = append(r.payments, payments...)
	return fmt.Sprintf("mem:%d-%d", start, len(r.payments)), nil
}

func (r *Recorder) WriteSummary(_ context.Context, rows []ledger.HouseholdSummary, generatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = slices.Clone(rows)
	r.generatedAt = generatedAt
	r.exports++
	return nil
}

func (r *Recorder) Payments() []core.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.payments)
}

// Summary returns the last written summary, when it was generated and how
// many summaries were written in total.
func (r *Recorder) Summary() ([]ledger.HouseholdSummary, time.Time, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.summary), r.generatedAt, r.exports
}
