package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vfms/internal/amqp"
	"vfms/internal/core"
	"vfms/internal/ledger"
	applog "vfms/internal/log"
	"vfms/internal/metrics"
	"vfms/internal/storage"
)

// LedgerService answers due status and records allocated payments.
type LedgerService struct {
	store     storage.Store
	publisher Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
	locks     *keyedMutex
}

func NewLedgerService(store storage.Store, publisher Publisher, m *metrics.Metrics) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
		locks:     newKeyedMutex(),
	}
}

// AllocationRequest is one lump payment from a household. A nil
// AllowedFundIDs means every due is eligible; an empty list selects nothing.
type AllocationRequest struct {
	HouseholdID    string
	Amount         core.Money
	Method         core.PaymentMethod
	UPIID          string
	AllowedFundIDs []string
}

// Allocation is an accepted plan together with the payments written for it.
type Allocation struct {
	ledger.Plan
	HouseholdID string         `json:"householdId"`
	Payments    []core.Payment `json:"payments"`
}

func (s *LedgerService) Households(ctx context.Context) ([]core.Household, error) {
	return s.store.Households().GetAll(ctx)
}

func (s *LedgerService) Funds(ctx context.Context) ([]core.Fund, error) {
	return s.store.Funds().GetAll(ctx)
}

// Household looks a household up by id.
func (s *LedgerService) Household(ctx context.Context, id string) (core.Household, error) {
	hs, err := s.store.Households().GetAll(ctx)
	if err != nil {
		return core.Household{}, err
	}
	for _, h := range hs {
		if h.ID == id {
			return h, nil
		}
	}
	return core.Household{}, fmt.Errorf("%w: %s", core.ErrHouseholdNotFound, id)
}

// Status returns the household's due status for every payable fund. An
// unknown household is not an error; all its dues show as pending.
func (s *LedgerService) Status(ctx context.Context, householdID string) ([]core.DueStatus, error) {
	defer s.metrics.ObserveSince("status", time.Now())

	funds, err := s.store.Funds().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load funds: %w", err)
	}
	payments, err := s.store.Payments().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return ledger.Status(funds, payments, householdID), nil
}

// Payments lists the household's payment history in recording order.
func (s *LedgerService) Payments(ctx context.Context, householdID string) ([]core.Payment, error) {
	all, err := s.store.Payments().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	out := make([]core.Payment, 0)
	for _, p := range all {
		if p.FamilyID == householdID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Allocate splits the amount across the household's pending dues and writes
// one Payment per touched due. Calls for the same household run one at a
// time so two racing payments cannot both pass the pending check. Nothing
// is written when the request is rejected.
func (s *LedgerService) Allocate(ctx context.Context, req AllocationRequest) (*Allocation, error) {
	defer s.metrics.ObserveSince(applog.OpAllocate, time.Now())

	if req.Amount.Cents <= 0 {
		s.metrics.RecordAllocation(metrics.ResultRejected, 0)
		return nil, core.ErrInvalidAmount
	}
	method, details, err := core.ResolveMethod(req.Method, req.UPIID)
	if err != nil {
		s.metrics.RecordAllocation(metrics.ResultRejected, 0)
		return nil, err
	}
	if _, err := s.Household(ctx, req.HouseholdID); err != nil {
		s.metrics.RecordAllocation(metrics.ResultRejected, 0)
		return nil, err
	}

	unlock := s.locks.Lock(req.HouseholdID)
	defer unlock()

	dues, err := s.Status(ctx, req.HouseholdID)
	if err != nil {
		s.metrics.RecordAllocation(metrics.ResultFailed, 0)
		return nil, err
	}

	plan, err := ledger.PlanAllocation(dues, req.Amount, req.AllowedFundIDs)
	if err != nil {
		s.metrics.RecordAllocation(metrics.ResultRejected, 0)
		slog.InfoContext(ctx, "Allocation rejected", applog.NewFields().
			WithOperation(applog.OpAllocate).
			WithHousehold(req.HouseholdID).
			WithAmount(req.Amount.Cents).
			WithError(err).
			ToSlice()...)
		return nil, err
	}

	now := s.now().UTC()
	payments := make([]core.Payment, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		payments = append(payments, core.Payment{
			FamilyID: req.HouseholdID,
			FundID:   line.FundID,
			Amount:   line.Amount,
			Date:     now,
			Method:   method,
			Details:  details,
		})
	}
	stored, err := s.store.Payments().Append(ctx, payments...)
	if err != nil {
		s.metrics.RecordAllocation(metrics.ResultFailed, 0)
		return nil, fmt.Errorf("record payments: %w", err)
	}
	s.metrics.RecordAllocation(metrics.ResultAccepted, req.Amount.Cents)

	slog.InfoContext(ctx, "Payment allocated",
		applog.FieldHouseholdID, req.HouseholdID,
		applog.FieldAmountCents, req.Amount.Cents,
		"lines", len(plan.Lines),
		"method", method,
		"remaining_cents", plan.RemainingDuesAfter.Cents)

	s.publish(ctx, amqp.NewPaymentRecorded(req.HouseholdID, stored, plan.Message))

	return &Allocation{Plan: plan, HouseholdID: req.HouseholdID, Payments: stored}, nil
}

// publish never fails the caller; the payment is already stored.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	publishEvent(ctx, s.publisher, s.metrics, ev)
}

func publishEvent(ctx context.Context, p Publisher, m *metrics.Metrics, ev *amqp.LedgerEvent) {
	if p == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping ledger event", "event_type", ev.Type)
		return
	}
	err := p.Publish(ctx, ev)
	m.RecordPublish(err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event_id", ev.ID,
			"event_type", ev.Type,
			applog.FieldError, err)
	}
}
