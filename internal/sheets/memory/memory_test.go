package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"vfms/internal/core"
	"vfms/internal/ledger"
)

func TestRecorderAppendPayments(t *testing.T) {
	r := New()
	ctx := context.Background()
	p := core.Payment{ID: "p1", FamilyID: "FAM001", FundID: "FUND001", Amount: core.Rupees(10), Method: core.MethodCash}

	ref, err := r.AppendPayments(ctx, []core.Payment{p, p})
	if err != nil || ref != "mem:1-2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, err = r.AppendPayments(ctx, []core.Payment{p})
	if err != nil || ref != "mem:3-3" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if len(r.Payments()) != 3 {
		t.Errorf("payments = %d", len(r.Payments()))
	}

	bad := p
	bad.Amount = core.Money{}
	if _, err := r.AppendPayments(ctx, []core.Payment{bad}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if len(r.Payments()) != 3 {
		t.Error("invalid payment was stored")
	}
}

func TestRecorderWriteSummary(t *testing.T) {
	r := New()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []ledger.HouseholdSummary{{Household: core.Household{ID: "FAM001"}, ComplianceRate: 100}}

	for i := 0; i < 2; i++ {
		if err := r.WriteSummary(context.Background(), rows, at); err != nil {
			t.Fatal(err)
		}
	}
	got, gotAt, n := r.Summary()
	if len(got) != 1 || !gotAt.Equal(at) || n != 2 {
		t.Errorf("summary = %+v at %v, exports %d", got, gotAt, n)
	}
}
