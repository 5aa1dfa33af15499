package repository

import (
	"context"
	"time"

	"captive-wifi-billing/internal/domain/model"
)

type SessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Session) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Session, error)
	// FindActiveByDevice returns the newest active session for a device, or
	// domain.ErrNotFound.
	FindActiveByDevice(ctx context.Context, tx Tx, deviceMAC string) (*model.Session, error)
	SetActive(ctx context.Context, tx Tx, id string, active bool) error
	// ListActiveExpiredBefore returns active sessions whose end time has passed,
	// for the expiry sweep.
	ListActiveExpiredBefore(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Session, error)
}
