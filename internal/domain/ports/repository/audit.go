package repository

import (
	"context"

	"captive-wifi-billing/internal/domain/model"
)

// AuditRepository is a write-only sink; the reporting surface reads the table
// directly and is outside this service.
type AuditRepository interface {
	Append(ctx context.Context, tx Tx, rec *model.AuditRecord) error
}
