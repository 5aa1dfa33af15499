package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ AuditSink = (*auditSink)(nil)

// AuditSink records privileged router operations and payment state transitions.
// Recording is fire-and-forget: a failed write must never make the billing or
// activation path less available.
type AuditSink interface {
	Record(ctx context.Context, rec *model.AuditRecord)
}

type auditSink struct {
	repo repository.AuditRepository
	log  *zerolog.Logger
}

func NewAuditSink(repo repository.AuditRepository, logger *zerolog.Logger) *auditSink {
	return &auditSink{repo: repo, log: logger}
}

func (s *auditSink) Record(ctx context.Context, rec *model.AuditRecord) {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if err := s.repo.Append(ctx, nil, rec); err != nil {
		s.log.Error().Err(err).
			Str("operation", rec.Operation).
			Str("resource", rec.Resource).
			Msg("audit write failed; record dropped")
	}
}
