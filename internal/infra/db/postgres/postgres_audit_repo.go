package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/repository"
)

var _ repository.AuditRepository = (*auditRepo)(nil)

type auditRepo struct{ pool *pgxpool.Pool }

func NewAuditRepo(pool *pgxpool.Pool) *auditRepo {
	return &auditRepo{pool: pool}
}

// Append writes one router_operation_logs row. The table is append-only; no
// update or delete path exists in this service.
func (r *auditRepo) Append(ctx context.Context, tx repository.Tx, rec *model.AuditRecord) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO router_operation_logs (id, actor, operation, resource, params, success, error, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err = execSQL(ctx, r.pool, tx, q, rec.ID, rec.Actor, rec.Operation, rec.Resource, params, rec.Success, rec.Error, rec.Duration.Milliseconds(), rec.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
