package adapter

import "context"

// PushResult is the provider's synchronous answer to a push-payment request.
// A non-nil result with Accepted=false means the HTTP transaction succeeded
// but the provider declined; that is surfaced as ProviderDeclinedError by the
// implementation, never as a transport error.
type PushResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	Description       string
}

// PushPaymentGateway drives the mobile-money push-payment protocol.
type PushPaymentGateway interface {
	// RequestPush obtains a bearer credential from the provider and issues an
	// STK push to the payer's phone. Amount is in whole currency units.
	RequestPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*PushResult, error)
}
