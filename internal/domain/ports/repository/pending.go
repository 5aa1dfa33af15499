package repository

import (
	"context"
	"time"

	"captive-wifi-billing/internal/domain/model"
)

// PendingActivationStore is the TTL-expiring correlation store bridging
// "payment requested" and "payment confirmed". Backed by any expiring
// key-value medium; durability beyond the TTL window is not required.
type PendingActivationStore interface {
	Put(ctx context.Context, rec *model.PendingActivation, ttl time.Duration) error
	// Get returns domain.ErrNotFound when absent or expired.
	Get(ctx context.Context, checkoutRequestID string) (*model.PendingActivation, error)
	Delete(ctx context.Context, checkoutRequestID string) error
	// HasPendingFor is the duplicate-submission guard: it reports whether the
	// device already has an unexpired pending activation and, if so, the
	// checkout request id of the original attempt.
	HasPendingFor(ctx context.Context, deviceMAC string) (string, bool, error)
}
