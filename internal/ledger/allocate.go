package ledger

import (
	"fmt"

	"vfms/internal/core"
)

type LineStatus string

const (
	LineCleared LineStatus = "Cleared"
	LinePartial LineStatus = "Partial"
)

// Line is the part of a payment applied to one fund.
type Line struct {
	FundID    string     `json:"fundId"`
	FundTitle string     `json:"fundTitle"`
	Amount    core.Money `json:"amountApplied"`
	Status    LineStatus `json:"lineStatus"`
}

// Plan is the outcome of splitting one amount across a household's dues.
type Plan struct {
	Lines              []Line     `json:"allocationLines"`
	OriginalAmount     core.Money `json:"originalAmount"`
	TotalPending       core.Money `json:"totalPending"`
	RemainingDuesAfter core.Money `json:"remainingDuesAfter"`
	FullyCleared       bool       `json:"fullyCleared"`
	Message            string     `json:"message"`
}

// PlanAllocation splits amount across the pending dues. A nil allowedFundIDs
// considers every due; any other value, empty included, restricts the plan
// to the listed funds. The amount must not exceed the
// total pending over the considered set; nothing is planned otherwise.
func PlanAllocation(dues []core.DueStatus, amount core.Money, allowedFundIDs []string) (Plan, error) {
	if amount.Cents <= 0 {
		return Plan{}, core.ErrInvalidAmount
	}

	var allowed map[string]struct{}
	if allowedFundIDs != nil {
		allowed = make(map[string]struct{}, len(allowedFundIDs))
		for _, id := range allowedFundIDs {
			allowed[id] = struct{}{}
		}
	}

	pending := make([]core.DueStatus, 0, len(dues))
	var total core.Money
	for _, d := range dues {
		if allowed != nil {
			if _, ok := allowed[d.Fund.ID]; !ok {
				continue
			}
		}
		if d.PendingAmount.Cents <= 0 {
			continue
		}
		pending = append(pending, d)
		total = total.Add(d.PendingAmount)
	}

	if amount.Cents > total.Cents {
		return Plan{}, &core.AmountExceedsPendingError{Requested: amount, Pending: total}
	}

	SortDues(pending)

	remaining := amount
	lines := make([]Line, 0, len(pending))
	for _, d := range pending {
		if remaining.Cents == 0 {
			break
		}
		applied := remaining.Min(d.PendingAmount)
		status := LinePartial
		if applied == d.PendingAmount {
			status = LineCleared
		}
		lines = append(lines, Line{
			FundID:    d.Fund.ID,
			FundTitle: d.Fund.Title,
			Amount:    applied,
			Status:    status,
		})
		remaining = remaining.Sub(applied)
	}

	after := total.Sub(amount)
	plan := Plan{
		Lines:              lines,
		OriginalAmount:     amount,
		TotalPending:       total,
		RemainingDuesAfter: after,
		FullyCleared:       after.Cents == 0,
	}
	plan.Message = allocationMessage(plan)
	return plan, nil
}

func allocationMessage(p Plan) string {
	if p.FullyCleared {
		return "All Dues Cleared Successfully!"
	}
	return fmt.Sprintf("Payment Recorded. Remaining Dues: %s", p.RemainingDuesAfter)
}
