package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending" // push issued; awaiting provider callback
	PaymentStatusSuccess PaymentStatus = "success" // provider confirmed via callback
	PaymentStatusFailed  PaymentStatus = "failed"  // provider declined, push rejected, or transport failure
)

// Payment records a push-payment attempt. The status transitions to a terminal
// state exactly once, driven solely by the provider callback (or synchronously
// on push-request failure).
type Payment struct {
	ID                string // UUID
	Phone             string // canonical international format, e.g. 2547XXXXXXXX
	Amount            int64  // whole shillings
	PackageID         string
	DeviceMAC         string
	Status            PaymentStatus
	MerchantRequestID string
	CheckoutRequestID string  // provider correlation id; links the callback to this row
	Receipt           *string // provider receipt number, set on success
	RawCallback       []byte  // raw callback payload, retained for dispute resolution
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PaidAt            *time.Time
}

// Terminal reports whether the payment has reached a final status.
func (p *Payment) Terminal() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusFailed
}
