package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"vfms/internal/amqp"
	"vfms/internal/core"
	"vfms/internal/ledger"
	applog "vfms/internal/log"
	"vfms/internal/metrics"
)

func TestLedgerService_Allocate(t *testing.T) {
	tests := []struct {
		name      string
		amount    core.Money
		wantLines []ledger.Line
		wantAfter core.Money
		wantErr   error
	}{
		{
			name:   "pays the mandatory due first",
			amount: core.Rupees(500),
			wantLines: []ledger.Line{
				{FundID: "F1", FundTitle: "Temple Festival", Amount: core.Rupees(500), Status: ledger.LineCleared},
			},
			wantAfter: core.Rupees(300),
		},
		{
			name:   "spills into the optional due",
			amount: core.Rupees(600),
			wantLines: []ledger.Line{
				{FundID: "F1", FundTitle: "Temple Festival", Amount: core.Rupees(500), Status: ledger.LineCleared},
				{FundID: "F2", FundTitle: "Water Tank", Amount: core.Rupees(100), Status: ledger.LinePartial},
			},
			wantAfter: core.Rupees(200),
		},
		{
			name:    "rejects overpayment",
			amount:  core.Rupees(900),
			wantErr: core.ErrAmountExceedsPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := scenarioStore(t)
			pub := &recordingPublisher{}
			svc := NewLedgerService(store, pub, metrics.New())

			got, err := svc.Allocate(context.Background(), AllocationRequest{HouseholdID: "H1", Amount: tt.amount})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if n := len(paymentsFor(t, store, "H1")); n != 0 {
					t.Fatalf("rejected allocation wrote %d payments", n)
				}
				if len(pub.Events()) != 0 {
					t.Fatalf("rejected allocation published an event")
				}
				return
			}
			if err != nil {
				t.Fatalf("Allocate: %v", err)
			}
			if len(got.Lines) != len(tt.wantLines) {
				t.Fatalf("lines = %+v", got.Lines)
			}
			for i := range got.Lines {
				if got.Lines[i] != tt.wantLines[i] {
					t.Errorf("line %d = %+v, want %+v", i, got.Lines[i], tt.wantLines[i])
				}
			}
			if got.RemainingDuesAfter != tt.wantAfter {
				t.Errorf("remaining = %s, want %s", got.RemainingDuesAfter, tt.wantAfter)
			}

			stored := paymentsFor(t, store, "H1")
			if len(stored) != len(tt.wantLines) {
				t.Fatalf("stored %d payments, want %d", len(stored), len(tt.wantLines))
			}
			for i, p := range stored {
				if p.FundID != tt.wantLines[i].FundID || p.Amount != tt.wantLines[i].Amount {
					t.Errorf("payment %d = %+v", i, p)
				}
				if p.Method != core.MethodCash || p.Details != "Cash Payment" || p.ID == "" {
					t.Errorf("payment %d method/details/id = %s %q %q", i, p.Method, p.Details, p.ID)
				}
			}

			events := pub.Events()
			if len(events) != 1 || events[0].Type != amqp.EventPaymentRecorded || len(events[0].Payments) != len(stored) {
				t.Errorf("unexpected events %+v", events)
			}
		})
	}
}

func TestLedgerService_AllocationLogFields(t *testing.T) {
	tests := []struct {
		name   string
		amount core.Money
		msg    string
		want   map[string]any
	}{
		{
			name:   "accepted",
			amount: core.Rupees(500),
			msg:    "Payment allocated",
			want: map[string]any{
				applog.FieldHouseholdID: "H1",
				applog.FieldAmountCents: float64(50000),
			},
		},
		{
			name:   "rejected",
			amount: core.Rupees(900),
			msg:    "Allocation rejected",
			want: map[string]any{
				applog.FieldHouseholdID: "H1",
				applog.FieldAmountCents: float64(90000),
				applog.FieldOperation:   applog.OpAllocate,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			prev := slog.Default()
			slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
			defer slog.SetDefault(prev)

			svc := NewLedgerService(scenarioStore(t), nil, metrics.New())
			_, _ = svc.Allocate(context.Background(), AllocationRequest{HouseholdID: "H1", Amount: tt.amount})

			var found map[string]any
			for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
				var rec map[string]any
				if json.Unmarshal(line, &rec) == nil && rec["msg"] == tt.msg {
					found = rec
				}
			}
			if found == nil {
				t.Fatalf("no %q record in %s", tt.msg, buf.String())
			}
			for k, v := range tt.want {
				if found[k] != v {
					t.Errorf("%s = %v, want %v", k, found[k], v)
				}
			}
		})
	}
}

func TestLedgerService_AllocatePreconditions(t *testing.T) {
	svc := NewLedgerService(scenarioStore(t), nil, nil)
	ctx := context.Background()

	if _, err := svc.Allocate(ctx, AllocationRequest{HouseholdID: "NOPE", Amount: core.Rupees(10)}); !errors.Is(err, core.ErrHouseholdNotFound) {
		t.Errorf("expected ErrHouseholdNotFound, got %v", err)
	}
	if _, err := svc.Allocate(ctx, AllocationRequest{HouseholdID: "H1"}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.Allocate(ctx, AllocationRequest{HouseholdID: "H1", Amount: core.Rupees(10), Method: "CHEQUE"}); !errors.Is(err, core.ErrInvalidMethod) {
		t.Errorf("expected ErrInvalidMethod, got %v", err)
	}
}

func TestLedgerService_AllocateManualUPI(t *testing.T) {
	store := scenarioStore(t)
	svc := NewLedgerService(store, nil, nil)

	got, err := svc.Allocate(context.Background(), AllocationRequest{
		HouseholdID:    "H2",
		Amount:         core.Rupees(300),
		UPIID:          "murugan@okbank",
		AllowedFundIDs: []string{"F2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Lines) != 1 || got.Lines[0].FundID != "F2" || got.Lines[0].Status != ledger.LineCleared {
		t.Fatalf("lines = %+v", got.Lines)
	}
	if !got.FullyCleared || got.Message != "All Dues Cleared Successfully!" {
		t.Errorf("plan = %+v", got.Plan)
	}
	p := paymentsFor(t, store, "H2")[0]
	if p.Method != core.MethodUPI || p.Details != "UPI: murugan@okbank" {
		t.Errorf("payment = %+v", p)
	}
}

func TestLedgerService_PublishFailureKeepsPayment(t *testing.T) {
	store := scenarioStore(t)
	pub := &recordingPublisher{err: amqp.ErrCircuitOpen}
	svc := NewLedgerService(store, pub, metrics.New())

	if _, err := svc.Allocate(context.Background(), AllocationRequest{HouseholdID: "H1", Amount: core.Rupees(100)}); err != nil {
		t.Fatalf("publish failure must not fail the allocation: %v", err)
	}
	if n := len(paymentsFor(t, store, "H1")); n != 1 {
		t.Fatalf("expected 1 payment, got %d", n)
	}
}

func TestLedgerService_StatusUnknownHousehold(t *testing.T) {
	svc := NewLedgerService(scenarioStore(t), nil, nil)
	dues, err := svc.Status(context.Background(), "NOPE")
	if err != nil {
		t.Fatal(err)
	}
	if len(dues) != 2 {
		t.Fatalf("expected every fund, got %d", len(dues))
	}
	for _, d := range dues {
		if d.Status != core.DuePending || d.PendingAmount != d.Fund.Amount {
			t.Errorf("due = %+v", d)
		}
	}
}

func TestLedgerService_ConcurrentAllocationsCannotOverpay(t *testing.T) {
	// Pending is 800; each call asks for 500, so at most one may succeed.
	for round := 0; round < 20; round++ {
		store := scenarioStore(t)
		svc := NewLedgerService(store, nil, nil)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		start := make(chan struct{})
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = svc.Allocate(context.Background(), AllocationRequest{HouseholdID: "H1", Amount: core.Rupees(500)})
			}(i)
		}
		close(start)
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, core.ErrAmountExceedsPending):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 {
			t.Fatalf("round %d: %d allocations succeeded, want exactly 1", round, succeeded)
		}

		var total core.Money
		for _, p := range paymentsFor(t, store, "H1") {
			total = total.Add(p.Amount)
		}
		if total != core.Rupees(500) {
			t.Fatalf("round %d: total paid %s", round, total)
		}
	}
}

func TestKeyedMutexReleasesKeys(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("H1")
	unlock()
	if len(k.locks) != 0 {
		t.Errorf("expected no retained locks, have %d", len(k.locks))
	}
}
