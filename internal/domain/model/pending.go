package model

import "time"

// PendingActivation bridges the gap between "payment requested" and "payment
// confirmed": it is keyed by the provider's checkout request id and carries
// everything the activator needs once the callback arrives. Records are never
// mutated after creation; they are deleted on activation or expire by TTL.
type PendingActivation struct {
	CheckoutRequestID string    `json:"checkout_request_id"`
	DeviceMAC         string    `json:"device_mac"`
	PackageID         string    `json:"package_id"`
	RouterID          string    `json:"router_id"`
	Phone             string    `json:"phone"`
	Amount            int64     `json:"amount"`
	CreatedAt         time.Time `json:"created_at"`
}

// PendingActivationTTL bounds the window between a push request and its
// callback. A callback after this window is an operator-remediation case.
const PendingActivationTTL = 10 * time.Minute
