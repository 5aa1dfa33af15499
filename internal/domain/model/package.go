package model

import (
	"time"

	"captive-wifi-billing/internal/domain"
)

// Package is a purchasable access package with a fixed duration and price in
// whole shillings. Packages referenced by sessions are never deleted;
// deactivation is a status flag only.
type Package struct {
	ID              string
	Name            string
	DurationMinutes int    // 0 means unlimited session time on the router
	PriceKES        int64  // whole shillings, integer to avoid float errors
	RateLimit       string // RouterOS rate-limit string, e.g. "5M/5M"; empty = none
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *Package) IsZero() bool { return p == nil || p.ID == "" }

// ProfileName derives the router-side access-profile name for this package.
func (p *Package) ProfileName() string { return "pkg_" + p.ID }

// SessionTimeoutSeconds converts the package duration to the router profile's
// session-timeout attribute. Zero means no timeout.
func (p *Package) SessionTimeoutSeconds() int { return p.DurationMinutes * 60 }

// NewPackage validates and constructs a package.
func NewPackage(id, name string, durationMinutes int, priceKES int64, rateLimit string) (*Package, error) {
	if id == "" || name == "" || durationMinutes < 0 || priceKES <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Package{
		ID:              id,
		Name:            name,
		DurationMinutes: durationMinutes,
		PriceKES:        priceKES,
		RateLimit:       rateLimit,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
