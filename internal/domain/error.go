package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrPackageInactive    = errors.New("package is not active")
	ErrPaymentNotPending  = errors.New("payment is not pending")
	ErrRouterUnreachable  = errors.New("router unreachable")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
)

// DuplicatePendingError rejects a second concurrent push-payment request for a
// device that already has an unexpired pending activation. It carries the
// checkout request id of the original attempt so the portal can keep polling it.
type DuplicatePendingError struct {
	CheckoutRequestID string
}

func (e *DuplicatePendingError) Error() string {
	return fmt.Sprintf("payment already in progress (checkout request %s)", e.CheckoutRequestID)
}

// ActivationExpiredError means a success callback arrived after the pending
// activation record's TTL lapsed. The payment stays recorded as succeeded but
// ungranted; remediation is an operator action, never an automatic retry.
type ActivationExpiredError struct {
	CheckoutRequestID string
	PaymentID         string
}

func (e *ActivationExpiredError) Error() string {
	return fmt.Sprintf("activation window expired for checkout request %s (payment %s)", e.CheckoutRequestID, e.PaymentID)
}
