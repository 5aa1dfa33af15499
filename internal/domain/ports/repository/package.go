package repository

import (
	"context"

	"captive-wifi-billing/internal/domain/model"
)

type PackageRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Package) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Package, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Package, error)
	// SetActive flips the status flag. Packages are never deleted while
	// sessions reference them.
	SetActive(ctx context.Context, tx Tx, id string, active bool) error
}
