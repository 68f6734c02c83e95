package services

import (
	"context"
	"sync"
	"testing"

	"vfms/internal/amqp"
	"vfms/internal/core"
	"vfms/internal/storage"
	"vfms/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []*amqp.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.LedgerEvent(nil), p.events...)
}

// scenarioStore holds H1..H3 and the two funds used across ledger tests:
// F1 500 mandatory due 2024-01-01, F2 300 optional due 2024-06-01.
func scenarioStore(t *testing.T) *memory.Store {
	t.Helper()
	return memory.New(storage.Snapshot{
		Households: []core.Household{
			{ID: "H1", HeadName: "Ramasamy"},
			{ID: "H2", HeadName: "Murugan"},
			{ID: "H3", HeadName: "Kannan"},
		},
		Funds: []core.Fund{
			{ID: "F1", Title: "Temple Festival", Amount: core.Rupees(500), IsMandatory: true, Deadline: core.NewDate(2024, 1, 1)},
			{ID: "F2", Title: "Water Tank", Amount: core.Rupees(300), Deadline: core.NewDate(2024, 6, 1)},
		},
	})
}

func paymentsFor(t *testing.T, s storage.Store, householdID string) []core.Payment {
	t.Helper()
	all, err := s.Payments().GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var out []core.Payment
	for _, p := range all {
		if p.FamilyID == householdID {
			out = append(out, p)
		}
	}
	return out
}
