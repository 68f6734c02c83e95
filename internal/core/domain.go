package core

import (
	"errors"
	"strings"
	"time"
)

const (
	ClassificationGeneral   Classification = "General"
	ClassificationMonthly   Classification = "Monthly"
	ClassificationDeathFund Classification = "Death Fund"
	ClassificationEvent     Classification = "Event"
	ClassificationDonation  Classification = "Donation"
)

const (
	PriorityHigh   Priority = "High"
	PriorityNormal Priority = "Normal"
	PriorityLow    Priority = "Low"
)

const (
	MethodCash PaymentMethod = "CASH"
	MethodUPI  PaymentMethod = "UPI"
)

const (
	ExpensePending  ExpenseStatus = "Pending"
	ExpenseApproved ExpenseStatus = "Approved"
	ExpenseRejected ExpenseStatus = "Rejected"
)

type (
	Classification string
	Priority       string
	PaymentMethod  string
	ExpenseStatus  string

	Member struct {
		Name   string `json:"name"`
		Age    int    `json:"age,omitempty"`
		DOB    Date   `json:"dob"`
		Gender string `json:"gender,omitempty"`
		Mobile string `json:"mobile,omitempty"`
		Photo  string `json:"photo,omitempty"`
	}

	// Household is the billing unit. ID is the only key Payments join on.
	Household struct {
		ID       string   `json:"id"`
		HeadName string   `json:"headName"`
		Members  []Member `json:"members"`
	}

	Payment struct {
		ID        string        `json:"id"`
		FamilyID  string        `json:"familyId"`
		FundID    string        `json:"fundId"`
		Amount    Money         `json:"amount"`
		Date      time.Time     `json:"date"`
		Method    PaymentMethod `json:"method"`
		Details   string        `json:"details"`
		CreatedAt time.Time     `json:"createdAt"`
	}

	Expense struct {
		ID        string        `json:"id"`
		FundID    string        `json:"fundId"`
		CashierID string        `json:"cashierId,omitempty"`
		Amount    Money         `json:"amount"`
		Purpose   string        `json:"purpose,omitempty"`
		Status    ExpenseStatus `json:"status"`
		IsPublic  bool          `json:"isPublic"`
		Date      time.Time     `json:"date"`
	}

	Cashier struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Mobile string `json:"mobile,omitempty"`
	}
)

var (
	ErrEmptyID       = errors.New("empty id")
	ErrEmptyHeadName = errors.New("empty head name")
	ErrEmptyTitle    = errors.New("empty title")
	ErrInvalidMethod = errors.New("invalid payment method")
	ErrInvalidStatus = errors.New("invalid expense status")
)

// Rank orders priorities for allocation: High=3, Normal=2, Low=1, anything else 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Head returns the member designated as head of the household. The member
// whose name matches HeadName wins; otherwise the first member is used.
func (h Household) Head() (Member, bool) {
	for _, m := range h.Members {
		if strings.EqualFold(strings.TrimSpace(m.Name), strings.TrimSpace(h.HeadName)) {
			return m, true
		}
	}
	if len(h.Members) > 0 {
		return h.Members[0], true
	}
	return Member{}, false
}

func (h Household) Validate() error {
	if strings.TrimSpace(h.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(h.HeadName) == "" {
		return ErrEmptyHeadName
	}
	return nil
}

func (m PaymentMethod) Validate() error {
	switch m {
	case MethodCash, MethodUPI:
		return nil
	default:
		return ErrInvalidMethod
	}
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.FamilyID) == "" || strings.TrimSpace(p.FundID) == "" {
		return ErrEmptyID
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	return p.Method.Validate()
}

func (s ExpenseStatus) Validate() error {
	switch s {
	case ExpensePending, ExpenseApproved, ExpenseRejected:
		return nil
	default:
		return ErrInvalidStatus
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.FundID) == "" {
		return ErrEmptyID
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return e.Status.Validate()
}

func (c Cashier) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("empty cashier name")
	}
	return nil
}

// ResolveMethod picks the payment method and the details string stored with
// the Payment. With no explicit method a UPI id implies UPI, otherwise cash.
func ResolveMethod(method PaymentMethod, upiID string) (PaymentMethod, string, error) {
	upiID = strings.TrimSpace(upiID)
	if method == "" {
		method = MethodCash
		if upiID != "" {
			method = MethodUPI
		}
	}
	switch method {
	case MethodCash:
		return MethodCash, "Cash Payment", nil
	case MethodUPI:
		if upiID == "" {
			return MethodUPI, "UPI", nil
		}
		return MethodUPI, "UPI: " + upiID, nil
	default:
		return "", "", ErrInvalidMethod
	}
}
