package repository

import (
	"context"
	"time"

	"captive-wifi-billing/internal/domain/model"
)

type RouterRepository interface {
	SaveCredential(ctx context.Context, tx Tx, c *model.RouterCredential) error
	FindCredential(ctx context.Context, tx Tx, routerID string) (*model.RouterCredential, error)
	// PatchCredential applies a partial update; nil patch fields are untouched.
	// The Secret field arrives already encrypted.
	PatchCredential(ctx context.Context, tx Tx, routerID string, patch *model.RouterCredentialPatch) error
	// SetReachability records the outcome of the latest control-channel attempt.
	SetReachability(ctx context.Context, tx Tx, routerID string, reachable bool, at time.Time) error

	SaveSyncStatus(ctx context.Context, tx Tx, s *model.RouterSyncStatus) error
	FindSyncStatus(ctx context.Context, tx Tx, routerID string) (*model.RouterSyncStatus, error)
}
