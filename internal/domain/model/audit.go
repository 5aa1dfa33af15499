package model

import "time"

// AuditRecord is one append-only entry covering a privileged router operation
// or a payment state transition. Never updated or deleted.
type AuditRecord struct {
	ID        string // ULID, sortable by creation time
	Actor     string // "system", admin identifier, or "callback"
	Operation string // e.g. "router.grant_access", "payment.success"
	Resource  string // router id, payment id, ...
	Params    map[string]string
	Success   bool
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}
