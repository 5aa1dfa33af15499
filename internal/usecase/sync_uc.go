package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/repository"
	"captive-wifi-billing/internal/infra/metrics"
)

// Compile-time check
var _ SyncUseCase = (*syncUC)(nil)

// SyncUseCase reconciles the billing package catalog against a router's
// access-profile set. Per-package failures are accumulated, never fatal to
// the batch.
type SyncUseCase interface {
	SyncPackages(ctx context.Context, routerID, actor string) *SyncResult
}

type SyncResult struct {
	Success     bool     `json:"success"`
	SyncedCount int      `json:"synced_count"`
	Errors      []string `json:"errors,omitempty"`
	// Orphans are pkg_* profiles on the router with no matching active
	// package. They are reported, not removed: sessions may still reference
	// the profile name.
	Orphans []string `json:"orphans,omitempty"`
}

type syncUC struct {
	packages repository.PackageRepository
	routers  repository.RouterRepository
	gateway  RouterUseCase
	log      *zerolog.Logger
}

func NewSyncUseCase(packages repository.PackageRepository, routers repository.RouterRepository, gateway RouterUseCase, logger *zerolog.Logger) *syncUC {
	return &syncUC{packages: packages, routers: routers, gateway: gateway, log: logger}
}

func (u *syncUC) SyncPackages(ctx context.Context, routerID, actor string) *SyncResult {
	result := &SyncResult{}

	pkgs, err := u.packages.ListActive(ctx, nil)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list packages: %v", err))
		u.persistStatus(ctx, routerID, result)
		return result
	}

	existing, err := u.gateway.ListAccessProfiles(ctx, routerID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list router profiles: %v", err))
		u.persistStatus(ctx, routerID, result)
		return result
	}

	wanted := make(map[string]bool, len(pkgs))
	for _, pkg := range pkgs {
		wanted[pkg.ProfileName()] = true
		profile := model.AccessProfile{
			Name:                  pkg.ProfileName(),
			SessionTimeoutSeconds: pkg.SessionTimeoutSeconds(),
			RateLimit:             pkg.RateLimit,
		}
		if err := u.gateway.UpsertAccessProfile(ctx, routerID, profile, actor); err != nil {
			metrics.IncSyncPackage("failed")
			result.Errors = append(result.Errors, fmt.Sprintf("package %s: %v", pkg.ID, err))
			continue
		}
		metrics.IncSyncPackage("synced")
		result.SyncedCount++
	}

	for _, p := range existing {
		if !wanted[p.Name] {
			result.Orphans = append(result.Orphans, p.Name)
		}
	}
	if len(result.Orphans) > 0 {
		u.log.Warn().Str("router_id", routerID).Strs("profiles", result.Orphans).
			Msg("orphaned access profiles on router; left in place")
	}

	result.Success = len(result.Errors) == 0
	u.persistStatus(ctx, routerID, result)
	return result
}

// persistStatus writes the per-router sync record after the batch completes,
// independent of individual package outcomes.
func (u *syncUC) persistStatus(ctx context.Context, routerID string, result *SyncResult) {
	status := "success"
	if len(result.Errors) > 0 {
		status = "failed"
	}
	rec := &model.RouterSyncStatus{
		RouterID:    routerID,
		Status:      status,
		SyncedCount: result.SyncedCount,
		ErrorDetail: strings.Join(result.Errors, "; "),
		SyncedAt:    time.Now(),
	}
	if err := u.routers.SaveSyncStatus(ctx, nil, rec); err != nil {
		u.log.Error().Err(err).Str("router_id", routerID).Msg("failed to persist sync status")
	}
}
