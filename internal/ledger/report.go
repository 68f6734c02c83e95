package ledger

import (
	"vfms/internal/core"
)

// HouseholdSummary is one row of the global compliance summary.
type HouseholdSummary struct {
	Household      core.Household `json:"household"`
	TotalDue       core.Money     `json:"totalDue"`
	TotalPaid      core.Money     `json:"totalPaid"`
	TotalPending   core.Money     `json:"totalPending"`
	ComplianceRate float64        `json:"complianceRate"`
}

// HouseholdDue pairs a household with its status on a single fund.
type HouseholdDue struct {
	Household core.Household `json:"household"`
	Due       core.DueStatus `json:"due"`
}

type FundReport struct {
	FundID  string         `json:"fundId"`
	Paid    []HouseholdDue `json:"paid"`
	Partial []HouseholdDue `json:"partial"`
	Unpaid  []HouseholdDue `json:"unpaid"`
	All     []HouseholdDue `json:"all"`
}

// ComplianceRate is paid over due as a percentage, kept within 0..100.
// A household owing nothing is fully compliant.
func ComplianceRate(due, paid core.Money) float64 {
	if due.Cents <= 0 {
		return 100
	}
	rate := float64(paid.Cents) / float64(due.Cents) * 100
	switch {
	case rate < 0:
		return 0
	case rate > 100:
		return 100
	}
	return rate
}

// GlobalSummary totals every household's dues in household order.
func GlobalSummary(households []core.Household, funds []core.Fund, payments []core.Payment) []HouseholdSummary {
	idx := paidIndex(payments)
	out := make([]HouseholdSummary, 0, len(households))
	for _, h := range households {
		s := HouseholdSummary{Household: h}
		for _, f := range funds {
			if !f.Payable() {
				continue
			}
			d := Due(f, idx[pairKey{familyID: h.ID, fundID: f.ID}])
			s.TotalDue = s.TotalDue.Add(f.Amount)
			s.TotalPaid = s.TotalPaid.Add(d.PaidAmount)
			s.TotalPending = s.TotalPending.Add(d.PendingAmount)
		}
		s.ComplianceRate = ComplianceRate(s.TotalDue, s.TotalPaid)
		out = append(out, s)
	}
	return out
}

// BuildFundReport buckets every household by its status on one fund. All
// lists every household in household order.
func BuildFundReport(fund core.Fund, households []core.Household, payments []core.Payment) FundReport {
	idx := paidIndex(payments)
	r := FundReport{
		FundID:  fund.ID,
		Paid:    []HouseholdDue{},
		Partial: []HouseholdDue{},
		Unpaid:  []HouseholdDue{},
		All:     make([]HouseholdDue, 0, len(households)),
	}
	for _, h := range households {
		hd := HouseholdDue{Household: h, Due: Due(fund, idx[pairKey{familyID: h.ID, fundID: fund.ID}])}
		switch hd.Due.Status {
		case core.DuePaid:
			r.Paid = append(r.Paid, hd)
		case core.DuePartial:
			r.Partial = append(r.Partial, hd)
		default:
			r.Unpaid = append(r.Unpaid, hd)
		}
		r.All = append(r.All, hd)
	}
	return r
}

// Balance is payments received for the fund minus approved expenses.
func Balance(fundID string, payments []core.Payment, expenses []core.Expense) core.FundBalance {
	b := core.FundBalance{FundID: fundID}
	for _, p := range payments {
		if p.FundID == fundID {
			b.Income = b.Income.Add(p.Amount)
		}
	}
	for _, e := range expenses {
		if e.FundID == fundID && e.Status == core.ExpenseApproved {
			b.Expense = b.Expense.Add(e.Amount)
		}
	}
	b.Balance = b.Income.Sub(b.Expense)
	return b
}
