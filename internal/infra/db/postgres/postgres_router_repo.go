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

var _ repository.RouterRepository = (*routerRepo)(nil)

type routerRepo struct{ pool *pgxpool.Pool }

func NewRouterRepo(pool *pgxpool.Pool) *routerRepo {
	return &routerRepo{pool: pool}
}

const credCols = `router_id, host, port, username, encrypted_secret, timeout_seconds, last_seen_at, reachable, updated_at`

func (r *routerRepo) SaveCredential(ctx context.Context, tx repository.Tx, c *model.RouterCredential) error {
	const q = `
INSERT INTO router_credentials (` + credCols + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (router_id) DO UPDATE SET
  host=$2, port=$3, username=$4, encrypted_secret=$5, timeout_seconds=$6, updated_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, c.RouterID, c.Host, c.Port, c.Username, c.EncryptedSecret, c.TimeoutSeconds, c.LastSeenAt, c.Reachable, c.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *routerRepo) FindCredential(ctx context.Context, tx repository.Tx, routerID string) (*model.RouterCredential, error) {
	const q = `SELECT ` + credCols + ` FROM router_credentials WHERE router_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, routerID)
	if err != nil {
		return nil, err
	}
	c := &model.RouterCredential{}
	if err := row.Scan(&c.RouterID, &c.Host, &c.Port, &c.Username, &c.EncryptedSecret, &c.TimeoutSeconds, &c.LastSeenAt, &c.Reachable, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

// PatchCredential updates only the fields present in the patch. COALESCE keeps
// the stored value for nil fields, so no sentinel comparisons happen anywhere.
func (r *routerRepo) PatchCredential(ctx context.Context, tx repository.Tx, routerID string, patch *model.RouterCredentialPatch) error {
	if patch == nil {
		return domain.ErrInvalidArgument
	}
	const q = `
UPDATE router_credentials
   SET host = COALESCE($2, host),
       port = COALESCE($3, port),
       username = COALESCE($4, username),
       encrypted_secret = COALESCE($5, encrypted_secret),
       timeout_seconds = COALESCE($6, timeout_seconds),
       updated_at = NOW()
 WHERE router_id = $1;`

	_, err := execSQL(ctx, r.pool, tx, q, routerID, patch.Host, patch.Port, patch.Username, patch.Secret, patch.TimeoutSeconds)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *routerRepo) SetReachability(ctx context.Context, tx repository.Tx, routerID string, reachable bool, at time.Time) error {
	const q = `UPDATE router_credentials SET reachable=$2, last_seen_at=CASE WHEN $2 THEN $3 ELSE last_seen_at END, updated_at=NOW() WHERE router_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, routerID, reachable, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *routerRepo) SaveSyncStatus(ctx context.Context, tx repository.Tx, s *model.RouterSyncStatus) error {
	const q = `
INSERT INTO router_sync_status (router_id, status, synced_count, error_detail, synced_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (router_id) DO UPDATE SET status=$2, synced_count=$3, error_detail=$4, synced_at=$5;`

	_, err := execSQL(ctx, r.pool, tx, q, s.RouterID, s.Status, s.SyncedCount, s.ErrorDetail, s.SyncedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *routerRepo) FindSyncStatus(ctx context.Context, tx repository.Tx, routerID string) (*model.RouterSyncStatus, error) {
	const q = `SELECT router_id, status, synced_count, error_detail, synced_at FROM router_sync_status WHERE router_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, routerID)
	if err != nil {
		return nil, err
	}
	s := &model.RouterSyncStatus{}
	if err := row.Scan(&s.RouterID, &s.Status, &s.SyncedCount, &s.ErrorDetail, &s.SyncedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
