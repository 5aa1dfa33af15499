package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*sessionRepo)(nil)

type sessionRepo struct{ pool *pgxpool.Pool }

func NewSessionRepo(pool *pgxpool.Pool) *sessionRepo {
	return &sessionRepo{pool: pool}
}

const sessionCols = `id, device_mac, package_id, payment_id, router_id, start_time, end_time, active, created_at, updated_at`

func scanSession(row pgx.Row) (*model.Session, error) {
	s := &model.Session{}
	if err := row.Scan(&s.ID, &s.DeviceMAC, &s.PackageID, &s.PaymentID, &s.RouterID, &s.StartTime, &s.EndTime, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *sessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Session) error {
	const q = `
INSERT INTO sessions (` + sessionCols + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET active=$8, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.DeviceMAC, s.PackageID, s.PaymentID, s.RouterID, s.StartTime, s.EndTime, s.Active, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *sessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) FindActiveByDevice(ctx context.Context, tx repository.Tx, deviceMAC string) (*model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE device_mac=$1 AND active AND end_time > NOW() ORDER BY end_time DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, deviceMAC)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	const q = `UPDATE sessions SET active=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, active)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *sessionRepo) ListActiveExpiredBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE active AND end_time < $1 ORDER BY end_time ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		s := new(model.Session)
		if err := rows.Scan(&s.ID, &s.DeviceMAC, &s.PackageID, &s.PaymentID, &s.RouterID, &s.StartTime, &s.EndTime, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	return out, nil
}
