/*
errors.go - Centralized error types for the booking engine

PURPOSE:
  All precondition violations are reported as typed failures before any
  mutation or ledger call occurs. Callers branch on error kind with
  errors.Is / errors.As; refund and payment correctness is safety-critical,
  so a generic catch-all error is never enough.

ERROR CATEGORIES:
  1. Precondition errors - business rule violations (client errors)
  2. Storage errors - persistence failures surfaced from the store

SEE ALSO:
  - ledger.go: Wraps persistence failures as StorageError
  - agency package: Raises the precondition errors
*/
package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateReservation is returned when a client already holds a
	// non-canceled reservation for the arrangement.
	ErrDuplicateReservation = errors.New("arrangement is already reserved")

	// ErrCancellationUnavailable is returned when a reservation can no
	// longer be canceled (deadline passed or not active).
	ErrCancellationUnavailable = errors.New("reservation cannot be canceled")

	// ErrInsufficientFunds is returned when the client balance cannot cover
	// a required payment.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrArrangementNotOnOffer is returned when booking a trip whose
	// departure date is not in the future.
	ErrArrangementNotOnOffer = errors.New("arrangement is not on offer")

	// ErrReservationNotActive is returned when paying into a reservation
	// whose cached status is not ACTIVE.
	ErrReservationNotActive = errors.New("reservation is not active")

	// ErrNegativeAmount is returned when a transfer amount is negative.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrStorageFailure wraps persistence failures. After a storage failure
	// mid-transfer, in-memory balances may be inconsistent with the
	// persisted store; callers must surface this instead of retrying.
	ErrStorageFailure = errors.New("storage failure")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrArrangementNotFound is returned when a referenced arrangement
	// doesn't exist.
	ErrArrangementNotFound = errors.New("arrangement not found")

	// ErrReservationNotFound is returned when a referenced reservation
	// doesn't exist.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrClientNotFound is returned when a referenced client doesn't exist.
	ErrClientNotFound = errors.New("client not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports a balance shortage in enough detail to tell
// the operator which payment could not be covered.
type InsufficientFundsError struct {
	AccountID AccountID
	Available Money
	Required  Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: available %s, required %s, short %s",
		e.AccountID, e.Available, e.Required, e.Required.Sub(e.Available))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// StorageError wraps a store failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return ErrStorageFailure
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is a precondition violation rather
// than an infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateReservation) ||
		errors.Is(err, ErrCancellationUnavailable) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrArrangementNotOnOffer) ||
		errors.Is(err, ErrReservationNotActive) ||
		errors.Is(err, ErrNegativeAmount)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrArrangementNotFound) ||
		errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrClientNotFound)
}
