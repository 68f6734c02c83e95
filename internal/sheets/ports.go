// Package sheets defines the outbound spreadsheet export ports.
package sheets

import (
	"context"
	"time"

	"vfms/internal/core"
	"vfms/internal/ledger"
)

type (
	// PaymentWriter appends recorded payments to the payments log sheet.
	PaymentWriter interface {
		AppendPayments(ctx context.Context, payments []core.Payment) (rowRef string, err error)
	}

	// SummaryWriter replaces the compliance summary sheet.
	SummaryWriter interface {
		WriteSummary(ctx context.Context, rows []ledger.HouseholdSummary, generatedAt time.Time) error
	}

	Exporter interface {
		PaymentWriter
		SummaryWriter
	}
)
