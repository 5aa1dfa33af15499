package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/repository"
	"captive-wifi-billing/internal/infra/metrics"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// ActivationUseCase turns a confirmed payment into a provisioned, time-bounded
// network session.
type ActivationUseCase interface {
	// Activate requires payment.Status == success. On gateway failure the
	// session row persists inactive and the payment is never reverted.
	Activate(ctx context.Context, payment *model.Payment) (*model.Session, error)
	// ActiveSessionForDevice returns the device's current session, or
	// domain.ErrNotFound.
	ActiveSessionForDevice(ctx context.Context, deviceMAC string) (*model.Session, error)
}

type activationUC struct {
	pending  repository.PendingActivationStore
	packages repository.PackageRepository
	sessions repository.SessionRepository
	gateway  RouterUseCase
	log      *zerolog.Logger
}

func NewActivationUseCase(pending repository.PendingActivationStore, packages repository.PackageRepository, sessions repository.SessionRepository, gateway RouterUseCase, logger *zerolog.Logger) *activationUC {
	return &activationUC{pending: pending, packages: packages, sessions: sessions, gateway: gateway, log: logger}
}

func (u *activationUC) Activate(ctx context.Context, payment *model.Payment) (*model.Session, error) {
	if payment == nil || payment.Status != model.PaymentStatusSuccess {
		return nil, domain.ErrPaymentNotPending
	}

	rec, err := u.pending.Get(ctx, payment.CheckoutRequestID)
	if err != nil {
		if err == domain.ErrNotFound {
			// TTL expired or never existed: the payment stays recorded but
			// ungranted; an operator completes it manually.
			metrics.IncActivation("window_expired")
			return nil, &domain.ActivationExpiredError{
				CheckoutRequestID: payment.CheckoutRequestID,
				PaymentID:         payment.ID,
			}
		}
		// Transient store trouble: keep the pending record for a retry.
		return nil, fmt.Errorf("resolve pending activation: %w", err)
	}

	pkg, err := u.packages.FindByID(ctx, nil, rec.PackageID)
	if err != nil {
		return nil, fmt.Errorf("resolve package %s: %w", rec.PackageID, err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        uuid.NewString(),
		DeviceMAC: rec.DeviceMAC,
		PackageID: pkg.ID,
		PaymentID: payment.ID,
		RouterID:  rec.RouterID,
		StartTime: now,
		EndTime:   now.Add(time.Duration(pkg.DurationMinutes) * time.Minute),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.sessions.Save(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	grant := u.gateway.GrantAccess(ctx, rec.RouterID, rec.DeviceMAC, pkg.ProfileName(), "callback")
	if !grant.Success {
		// The session row persists but inactive; the payment is not lost and
		// an operator can retry the grant.
		if err := u.sessions.SetActive(ctx, nil, session.ID, false); err != nil {
			u.log.Error().Err(err).Str("session_id", session.ID).Msg("failed to deactivate session after grant failure")
		}
		session.Active = false
		metrics.IncActivation("grant_failed")
		u.deletePending(ctx, payment.CheckoutRequestID)
		return session, fmt.Errorf("grant access: %s", grant.Message)
	}

	metrics.IncActivation("granted")
	u.deletePending(ctx, payment.CheckoutRequestID)
	return session, nil
}

func (u *activationUC) deletePending(ctx context.Context, checkoutID string) {
	if err := u.pending.Delete(ctx, checkoutID); err != nil {
		u.log.Warn().Err(err).Str("checkout_request_id", checkoutID).Msg("failed to delete pending activation; TTL will reap it")
	}
}

func (u *activationUC) ActiveSessionForDevice(ctx context.Context, deviceMAC string) (*model.Session, error) {
	mac, err := model.NormalizeMAC(deviceMAC)
	if err != nil {
		return nil, err
	}
	return u.sessions.FindActiveByDevice(ctx, nil, mac)
}
