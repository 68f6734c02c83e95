package services

import (
	"context"
	"fmt"
	"time"

	"vfms/internal/core"
	"vfms/internal/ledger"
	"vfms/internal/metrics"
	"vfms/internal/storage"
)

// ComplianceService produces read-only reports over all households.
type ComplianceService struct {
	store   storage.Store
	metrics *metrics.Metrics
}

func NewComplianceService(store storage.Store, m *metrics.Metrics) *ComplianceService {
	return &ComplianceService{store: store, metrics: m}
}

func (s *ComplianceService) GlobalSummary(ctx context.Context) ([]ledger.HouseholdSummary, error) {
	defer s.metrics.ObserveSince("global_summary", time.Now())

	households, err := s.store.Households().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load households: %w", err)
	}
	funds, err := s.store.Funds().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load funds: %w", err)
	}
	payments, err := s.store.Payments().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return ledger.GlobalSummary(households, funds, payments), nil
}

func (s *ComplianceService) FundReport(ctx context.Context, fundID string) (ledger.FundReport, error) {
	defer s.metrics.ObserveSince("fund_report", time.Now())

	fund, err := s.fund(ctx, fundID)
	if err != nil {
		return ledger.FundReport{}, err
	}
	households, err := s.store.Households().GetAll(ctx)
	if err != nil {
		return ledger.FundReport{}, fmt.Errorf("load households: %w", err)
	}
	payments, err := s.store.Payments().GetAll(ctx)
	if err != nil {
		return ledger.FundReport{}, fmt.Errorf("load payments: %w", err)
	}
	return ledger.BuildFundReport(fund, households, payments), nil
}

// FundBalance is income received for the fund minus approved expenses.
func (s *ComplianceService) FundBalance(ctx context.Context, fundID string) (core.FundBalance, error) {
	if _, err := s.fund(ctx, fundID); err != nil {
		return core.FundBalance{}, err
	}
	payments, err := s.store.Payments().GetAll(ctx)
	if err != nil {
		return core.FundBalance{}, fmt.Errorf("load payments: %w", err)
	}
	expenses, err := s.store.Expenses().GetAll(ctx)
	if err != nil {
		return core.FundBalance{}, fmt.Errorf("load expenses: %w", err)
	}
	return ledger.Balance(fundID, payments, expenses), nil
}

func (s *ComplianceService) fund(ctx context.Context, fundID string) (core.Fund, error) {
	funds, err := s.store.Funds().GetAll(ctx)
	if err != nil {
		return core.Fund{}, fmt.Errorf("load funds: %w", err)
	}
	for _, f := range funds {
		if f.ID == fundID {
			return f, nil
		}
	}
	return core.Fund{}, fmt.Errorf("%w: %s", core.ErrFundNotFound, fundID)
}
