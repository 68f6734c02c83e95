package core

// DueState is the derived payment state of one fund for one household.
type DueState string

const (
	DuePending DueState = "Pending"
	DuePartial DueState = "Partial"
	DuePaid    DueState = "Paid"
)

// DueStatus is recomputed from Funds and Payments on every read.
type DueStatus struct {
	Fund          Fund     `json:"fund"`
	PaidAmount    Money    `json:"paidAmount"`
	PendingAmount Money    `json:"pendingAmount"`
	Status        DueState `json:"status"`
}

// FundBalance is cash collected against a fund minus approved spend.
type FundBalance struct {
	FundID  string `json:"fundId"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
	Balance Money  `json:"balance"`
}
