package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/repository"
)

var _ repository.PackageRepository = (*packageRepo)(nil)

type packageRepo struct{ pool *pgxpool.Pool }

func NewPackageRepo(pool *pgxpool.Pool) *packageRepo {
	return &packageRepo{pool: pool}
}

const packageCols = `id, name, duration_minutes, price_kes, rate_limit, active, created_at, updated_at`

func scanPackage(row pgx.Row) (*model.Package, error) {
	p := &model.Package{}
	if err := row.Scan(&p.ID, &p.Name, &p.DurationMinutes, &p.PriceKES, &p.RateLimit, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *packageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	const q = `
INSERT INTO packages (` + packageCols + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$2, duration_minutes=$3, price_kes=$4, rate_limit=$5, active=$6, updated_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.DurationMinutes, p.PriceKES, p.RateLimit, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *packageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	const q = `SELECT ` + packageCols + ` FROM packages WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPackage(row)
}

func (r *packageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Package, error) {
	const q = `SELECT ` + packageCols + ` FROM packages WHERE active ORDER BY price_kes ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Package
	for rows.Next() {
		p := new(model.Package)
		if err := rows.Scan(&p.ID, &p.Name, &p.DurationMinutes, &p.PriceKES, &p.RateLimit, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *packageRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	const q = `UPDATE packages SET active=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, active)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
