// Package storage defines the Record Store: five typed collections behind one
// interface so the ledger services never see the storage technology.
package storage

import (
	"context"

	"vfms/internal/core"
)

// Repository is a keyed collection of records. GetAll returns records in
// insertion order; Put inserts or replaces by id.
type Repository[T any] interface {
	GetAll(ctx context.Context) ([]T, error)
	Put(ctx context.Context, v T) error
	Delete(ctx context.Context, id string) error
}

// PaymentLog is append-only. Put refuses to overwrite an existing id and
// Delete always fails with core.ErrPaymentImmutable.
type PaymentLog interface {
	Repository[core.Payment]
	// Append writes every payment or none of them. Missing ids and
	// timestamps are filled in and the stored records are returned.
	Append(ctx context.Context, payments ...core.Payment) ([]core.Payment, error)
}

// Store defines the interface for the household fund records.
type Store interface {
	Households() Repository[core.Household]
	Funds() Repository[core.Fund]
	Payments() PaymentLog
	Expenses() Repository[core.Expense]
	Cashiers() Repository[core.Cashier]

	// Close releases any resources held by the store.
	Close() error
}
