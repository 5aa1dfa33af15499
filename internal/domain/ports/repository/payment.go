package repository

import (
	"context"
	"time"

	"captive-wifi-billing/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByCheckoutRequestID(ctx context.Context, tx Tx, checkoutID string) (*model.Payment, error)
	// SetProviderRefs stores the provider correlation ids after a successful push request.
	SetProviderRefs(ctx context.Context, tx Tx, id, merchantRequestID, checkoutRequestID string) error
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus) error
	// MarkResultIfPending applies a terminal status, receipt, and raw callback
	// payload only when the current status is 'pending'. Returns false when the
	// payment was already terminal, which the callback handler treats as a
	// duplicate-delivery no-op.
	MarkResultIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, receipt *string, rawCallback []byte, paidAt *time.Time) (bool, error)
}
