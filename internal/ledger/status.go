// Package ledger derives due status, payment allocation plans and compliance
// reports from plain fund and payment records. Nothing in here touches storage.
package ledger

import (
	"vfms/internal/core"
)

type pairKey struct {
	familyID string
	fundID   string
}

// paidIndex sums payments per (household, fund) pair.
func paidIndex(payments []core.Payment) map[pairKey]core.Money {
	idx := make(map[pairKey]core.Money, len(payments))
	for _, p := range payments {
		k := pairKey{familyID: p.FamilyID, fundID: p.FundID}
		idx[k] = idx[k].Add(p.Amount)
	}
	return idx
}

// Due derives the status of one fund given what has been paid against it.
func Due(fund core.Fund, paid core.Money) core.DueStatus {
	pending := fund.Amount.Sub(paid)
	if pending.Cents < 0 {
		pending = core.Money{}
	}
	state := core.DuePending
	switch {
	case paid.Cents >= fund.Amount.Cents:
		state = core.DuePaid
	case paid.Cents > 0:
		state = core.DuePartial
	}
	return core.DueStatus{
		Fund:          fund,
		PaidAmount:    paid,
		PendingAmount: pending,
		Status:        state,
	}
}

// Status returns one DueStatus per payable fund, in fund order, for the
// household. Templates are skipped. An unknown household simply has no
// payments and every fund shows fully pending.
func Status(funds []core.Fund, payments []core.Payment, householdID string) []core.DueStatus {
	idx := paidIndex(payments)
	out := make([]core.DueStatus, 0, len(funds))
	for _, f := range funds {
		if !f.Payable() {
			continue
		}
		out = append(out, Due(f, idx[pairKey{familyID: householdID, fundID: f.ID}]))
	}
	return out
}
