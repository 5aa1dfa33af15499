package usecase

import (
	"context"

	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PackageUseCase = (*packageUC)(nil)

// PackageUseCase exposes the catalog to the captive-portal client. Catalog
// editing lives in the administrative surface outside this service.
type PackageUseCase interface {
	ListActive(ctx context.Context) ([]*model.Package, error)
	FindByID(ctx context.Context, id string) (*model.Package, error)
}

type packageUC struct {
	packages repository.PackageRepository
}

func NewPackageUseCase(packages repository.PackageRepository) *packageUC {
	return &packageUC{packages: packages}
}

func (u *packageUC) ListActive(ctx context.Context) ([]*model.Package, error) {
	return u.packages.ListActive(ctx, nil)
}

func (u *packageUC) FindByID(ctx context.Context, id string) (*model.Package, error) {
	return u.packages.FindByID(ctx, nil, id)
}
