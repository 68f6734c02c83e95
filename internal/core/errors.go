package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrHouseholdNotFound    = errors.New("family not found")
	ErrFundNotFound         = errors.New("fund not found")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrNotTemplate          = errors.New("fund is not a monthly template")
	ErrExpenseNotFound      = errors.New("expense not found")
	ErrAmountExceedsPending = errors.New("amount exceeds total pending dues")
	ErrPaymentImmutable     = errors.New("payments cannot be modified or deleted")
	ErrStoreRead            = errors.New("store read failed")
	ErrStoreWrite           = errors.New("store write failed")
)

// AmountExceedsPendingError carries both sides of a rejected allocation.
type AmountExceedsPendingError struct {
	Requested Money
	Pending   Money
}

func (e *AmountExceedsPendingError) Error() string {
	return fmt.Sprintf("amount %s exceeds total pending dues %s", e.Requested, e.Pending)
}

func (e *AmountExceedsPendingError) Unwrap() error {
	return ErrAmountExceedsPending
}
