package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vfms/internal/core"
	applog "vfms/internal/log"
	"vfms/internal/storage"
)

// ExpenseService records fund spending and moves it through approval.
type ExpenseService struct {
	store storage.Store
	now   func() time.Time
}

func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store, now: time.Now}
}

// Record stores a new expense as Pending against an existing fund.
func (s *ExpenseService) Record(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Amount.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.requireFund(ctx, e.FundID); err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.New().String()
	e.Status = core.ExpensePending
	if e.Date.IsZero() {
		e.Date = s.now().UTC()
	}
	if err := s.store.Expenses().Put(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense recorded",
		"expense_id", e.ID,
		applog.FieldFundID, e.FundID,
		"cashier_id", e.CashierID,
		applog.FieldAmountCents, e.Amount.Cents)
	return e, nil
}

func (s *ExpenseService) SetStatus(ctx context.Context, id string, status core.ExpenseStatus) (core.Expense, error) {
	if err := status.Validate(); err != nil {
		return core.Expense{}, err
	}
	return s.update(ctx, id, func(e *core.Expense) { e.Status = status })
}

func (s *ExpenseService) SetVisibility(ctx context.Context, id string, public bool) (core.Expense, error) {
	return s.update(ctx, id, func(e *core.Expense) { e.IsPublic = public })
}

// List returns the expenses of one fund, or all of them when fundID is empty.
func (s *ExpenseService) List(ctx context.Context, fundID string) ([]core.Expense, error) {
	all, err := s.store.Expenses().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	if fundID == "" {
		return all, nil
	}
	out := make([]core.Expense, 0)
	for _, e := range all {
		if e.FundID == fundID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *ExpenseService) update(ctx context.Context, id string, fn func(*core.Expense)) (core.Expense, error) {
	all, err := s.store.Expenses().GetAll(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expenses: %w", err)
	}
	for _, e := range all {
		if e.ID != id {
			continue
		}
		fn(&e)
		if err := s.store.Expenses().Put(ctx, e); err != nil {
			return core.Expense{}, fmt.Errorf("save expense: %w", err)
		}
		slog.InfoContext(ctx, "Expense updated",
			"expense_id", e.ID,
			"status", e.Status,
			"is_public", e.IsPublic)
		return e, nil
	}
	return core.Expense{}, fmt.Errorf("%w: %s", core.ErrExpenseNotFound, id)
}

func (s *ExpenseService) requireFund(ctx context.Context, fundID string) error {
	funds, err := s.store.Funds().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load funds: %w", err)
	}
	for _, f := range funds {
		if f.ID == fundID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", core.ErrFundNotFound, fundID)
}
