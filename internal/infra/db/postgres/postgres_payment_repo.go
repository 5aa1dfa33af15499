package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentCols = `id, phone, amount, package_id, device_mac, status, merchant_request_id, checkout_request_id, receipt, raw_callback, created_at, updated_at, paid_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.Phone, &p.Amount, &p.PackageID, &p.DeviceMAC, &p.Status, &p.MerchantRequestID, &p.CheckoutRequestID, &p.Receipt, &p.RawCallback, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentCols + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  phone=$2, amount=$3, package_id=$4, device_mac=$5, status=$6, merchant_request_id=$7,
  checkout_request_id=$8, receipt=$9, raw_callback=$10, updated_at=$12, paid_at=$13;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Phone, p.Amount, p.PackageID, p.DeviceMAC, p.Status, p.MerchantRequestID, p.CheckoutRequestID, p.Receipt, p.RawCallback, p.CreatedAt, p.UpdatedAt, p.PaidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByCheckoutRequestID(ctx context.Context, tx repository.Tx, checkoutID string) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE checkout_request_id=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, checkoutID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) SetProviderRefs(ctx context.Context, tx repository.Tx, id, merchantRequestID, checkoutRequestID string) error {
	const q = `UPDATE payments SET merchant_request_id=$2, checkout_request_id=$3, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, merchantRequestID, checkoutRequestID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		// checkout_request_id is unique; a collision means the provider
		// handed out a checkout id we already track.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) error {
	const q = `UPDATE payments SET status=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// MarkResultIfPending atomically applies a terminal status only when the
// current status is 'pending'. The zero-row case is the duplicate-callback
// no-op path, not an error.
func (r *paymentRepo) MarkResultIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, receipt *string, rawCallback []byte, paidAt *time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET status = $2,
       receipt = COALESCE($3, receipt),
       raw_callback = COALESCE($4, raw_callback),
       paid_at = COALESCE($5, paid_at),
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), receipt, rawCallback, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() == 1, nil
}
