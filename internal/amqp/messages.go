package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vfms/internal/core"
)

type EventType string

const (
	EventPaymentRecorded EventType = "payment_recorded"
	EventDuesGenerated   EventType = "dues_generated"
	EventLinksRepaired   EventType = "links_repaired"
)

// LedgerEvent announces a change to the ledger. Payment events carry the
// stored Payment records so consumers never need to read the store back.
type LedgerEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	HouseholdID string         `json:"householdId,omitempty"`
	TemplateID  string         `json:"templateId,omitempty"`
	Payments    []core.Payment `json:"payments,omitempty"`
	FundIDs     []string       `json:"fundIds,omitempty"`
	Message     string         `json:"message,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

func newEvent(t EventType) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}

// NewPaymentRecorded builds the event for one accepted allocation.
func NewPaymentRecorded(householdID string, payments []core.Payment, message string) *LedgerEvent {
	ev := newEvent(EventPaymentRecorded)
	ev.HouseholdID = householdID
	ev.Payments = payments
	ev.Message = message
	return ev
}

func NewDuesGenerated(templateID string, fundIDs []string) *LedgerEvent {
	ev := newEvent(EventDuesGenerated)
	ev.TemplateID = templateID
	ev.FundIDs = fundIDs
	return ev
}

func NewLinksRepaired(fundIDs []string) *LedgerEvent {
	ev := newEvent(EventLinksRepaired)
	ev.FundIDs = fundIDs
	return ev
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventPaymentRecorded, EventDuesGenerated, EventLinksRepaired:
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return &ev, nil
}
