package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/adapter"
	"captive-wifi-billing/internal/domain/ports/repository"
	"captive-wifi-billing/internal/infra/logging"
	"captive-wifi-billing/internal/infra/metrics"
	"captive-wifi-billing/internal/infra/mpesa"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// RequestPush issues a push payment for the chosen package and records the
	// pending activation. Returns a *domain.DuplicatePendingError when the
	// device already has one in flight.
	RequestPush(ctx context.Context, phone, packageID, deviceMAC, routerID string) (*PushResponse, error)
	// HandleCallback processes the provider's asynchronous result. It never
	// returns an error: internal failures are logged and absorbed so the
	// webhook can always acknowledge the provider.
	HandleCallback(ctx context.Context, raw []byte) *CallbackOutcome
	StatusByCheckoutID(ctx context.Context, checkoutID string) (*model.Payment, error)
}

type PushResponse struct {
	PaymentID         string `json:"payment_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	CustomerMessage   string `json:"customer_message,omitempty"`
}

type CallbackOutcome struct {
	Outcome           string // success|failed|duplicate|unknown|malformed
	CheckoutRequestID string
	PaymentID         string
	Session           *model.Session
}

type paymentUC struct {
	payments   repository.PaymentRepository
	packages   repository.PackageRepository
	pending    repository.PendingActivationStore
	gateway    adapter.PushPaymentGateway
	activator  ActivationUseCase
	audit      AuditSink
	tm         repository.TransactionManager
	pendingTTL time.Duration
	log        *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	packages repository.PackageRepository,
	pending repository.PendingActivationStore,
	gateway adapter.PushPaymentGateway,
	activator ActivationUseCase,
	audit AuditSink,
	tm repository.TransactionManager,
	pendingTTL time.Duration,
	logger *zerolog.Logger,
) *paymentUC {
	if pendingTTL <= 0 {
		pendingTTL = model.PendingActivationTTL
	}
	return &paymentUC{
		payments:   payments,
		packages:   packages,
		pending:    pending,
		gateway:    gateway,
		activator:  activator,
		audit:      audit,
		tm:         tm,
		pendingTTL: pendingTTL,
		log:        logger,
	}
}

// markTerminal applies a terminal payment transition inside a transaction so
// the row lock serializes concurrent deliveries of the same callback; the
// conditional update then makes the loser a no-op.
func (u *paymentUC) markTerminal(ctx context.Context, id string, status model.PaymentStatus, receipt *string, raw []byte, paidAt *time.Time) (bool, error) {
	updated := false
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		updated, err = u.payments.MarkResultIfPending(ctx, tx, id, status, receipt, raw, paidAt)
		return err
	})
	return updated, err
}

func (u *paymentUC) RequestPush(ctx context.Context, phone, packageID, deviceMAC, routerID string) (*PushResponse, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.RequestPush")()

	msisdn, err := model.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	mac, err := model.NormalizeMAC(deviceMAC)
	if err != nil {
		return nil, err
	}
	if routerID == "" {
		return nil, domain.ErrInvalidArgument
	}

	pkg, err := u.packages.FindByID(ctx, nil, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.Active {
		return nil, domain.ErrPackageInactive
	}

	// At most one non-expired pending activation per device.
	if checkoutID, exists, err := u.pending.HasPendingFor(ctx, mac); err != nil {
		return nil, err
	} else if exists {
		metrics.IncStkPush("duplicate")
		return nil, &domain.DuplicatePendingError{CheckoutRequestID: checkoutID}
	}

	now := time.Now()
	payment := &model.Payment{
		ID:        uuid.NewString(),
		Phone:     msisdn,
		Amount:    pkg.PriceKES,
		PackageID: pkg.ID,
		DeviceMAC: mac,
		Status:    model.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.payments.Save(ctx, nil, payment); err != nil {
		return nil, err
	}

	res, err := u.gateway.RequestPush(ctx, msisdn, pkg.PriceKES, "WIFI-"+pkg.ID, pkg.Name)
	if err != nil {
		// Never leave the row pending on a synchronous failure: the provider
		// has not accepted the push, so no callback will arrive for it.
		if dbErr := u.payments.UpdateStatus(ctx, nil, payment.ID, model.PaymentStatusFailed); dbErr != nil {
			u.log.Error().Err(dbErr).Str("payment_id", payment.ID).Msg("failed to mark payment failed after push error")
		}
		metrics.IncStkPush("error")
		metrics.IncPayment("failed")
		u.auditPayment(ctx, payment.ID, "payment.push_failed", false, err.Error())
		return nil, err
	}

	if err := u.payments.SetProviderRefs(ctx, nil, payment.ID, res.MerchantRequestID, res.CheckoutRequestID); err != nil {
		u.log.Error().Err(err).Str("payment_id", payment.ID).Msg("failed to store provider refs")
	}

	rec := &model.PendingActivation{
		CheckoutRequestID: res.CheckoutRequestID,
		DeviceMAC:         mac,
		PackageID:         pkg.ID,
		RouterID:          routerID,
		Phone:             msisdn,
		Amount:            pkg.PriceKES,
		CreatedAt:         now,
	}
	if err := u.pending.Put(ctx, rec, u.pendingTTL); err != nil {
		// The push is already out; the callback will land in the expired-window
		// path and an operator completes it. Log loudly, do not fail the request.
		u.log.Error().Err(err).Str("checkout_request_id", res.CheckoutRequestID).Msg("failed to store pending activation")
	}

	metrics.IncStkPush("accepted")
	metrics.IncPayment("pending")
	u.auditPayment(ctx, payment.ID, "payment.push_requested", true, "")

	u.log.Info().
		Str("payment_id", payment.ID).
		Str("checkout_request_id", res.CheckoutRequestID).
		Str("package_id", pkg.ID).
		Str("device_mac", mac).
		Msg("push payment requested")

	return &PushResponse{
		PaymentID:         payment.ID,
		CheckoutRequestID: res.CheckoutRequestID,
		CustomerMessage:   res.Description,
	}, nil
}

// HandleCallback is the sole driver of payment terminal transitions. It is
// idempotent under duplicate delivery and absorbs all internal failures.
func (u *paymentUC) HandleCallback(ctx context.Context, raw []byte) *CallbackOutcome {
	cb, err := mpesa.ParseCallback(raw)
	if err != nil {
		metrics.IncCallback("malformed")
		u.log.Warn().Err(err).Msg("discarding malformed payment callback")
		return &CallbackOutcome{Outcome: "malformed"}
	}

	out := &CallbackOutcome{CheckoutRequestID: cb.CheckoutRequestID}

	payment, err := u.payments.FindByCheckoutRequestID(ctx, nil, cb.CheckoutRequestID)
	if err != nil {
		metrics.IncCallback("unknown")
		u.log.Warn().Err(err).
			Str("checkout_request_id", cb.CheckoutRequestID).
			Msg("callback for unknown payment; ignoring")
		out.Outcome = "unknown"
		return out
	}
	out.PaymentID = payment.ID

	if !cb.Success() {
		updated, err := u.markTerminal(ctx, payment.ID, model.PaymentStatusFailed, nil, raw, nil)
		if err != nil {
			u.log.Error().Err(err).Str("payment_id", payment.ID).Msg("failed to record payment failure")
			out.Outcome = "failed"
			return out
		}
		if !updated {
			metrics.IncCallback("duplicate")
			out.Outcome = "duplicate"
			return out
		}
		metrics.IncCallback("failed")
		metrics.IncPayment("failed")
		u.auditPayment(ctx, payment.ID, "payment.failed", true, cb.ResultDesc)
		// Terminal failure: release the device's duplicate guard.
		if err := u.pending.Delete(ctx, cb.CheckoutRequestID); err != nil {
			u.log.Warn().Err(err).Str("checkout_request_id", cb.CheckoutRequestID).Msg("failed to delete pending activation")
		}
		u.log.Info().
			Str("payment_id", payment.ID).
			Int("result_code", cb.ResultCode).
			Str("result_desc", cb.ResultDesc).
			Msg("payment failed")
		out.Outcome = "failed"
		return out
	}

	receipt, _ := cb.Receipt()
	now := time.Now()
	var receiptPtr *string
	if receipt != "" {
		receiptPtr = &receipt
	}
	updated, err := u.markTerminal(ctx, payment.ID, model.PaymentStatusSuccess, receiptPtr, raw, &now)
	if err != nil {
		u.log.Error().Err(err).Str("payment_id", payment.ID).Msg("failed to record payment success")
		out.Outcome = "success"
		return out
	}
	if !updated {
		// Already terminal: duplicate delivery of the same callback.
		metrics.IncCallback("duplicate")
		out.Outcome = "duplicate"
		return out
	}

	metrics.IncCallback("success")
	metrics.IncPayment("success")
	u.auditPayment(ctx, payment.ID, "payment.success", true, "")

	// Cross-check the provider-confirmed metadata against the payment row.
	// A mismatch never blocks activation, but it is flagged for reconciliation.
	if amount, ok := cb.Amount(); ok && amount != payment.Amount {
		u.log.Warn().
			Str("payment_id", payment.ID).
			Int64("requested", payment.Amount).
			Int64("charged", amount).
			Msg("callback amount differs from requested amount")
		u.auditPayment(ctx, payment.ID, "payment.amount_mismatch",
			false, fmt.Sprintf("requested %d, charged %d", payment.Amount, amount))
	}
	if phone, ok := cb.Phone(); ok && phone != payment.Phone {
		u.log.Warn().
			Str("payment_id", payment.ID).
			Msg("callback phone differs from the number that requested the push")
		u.auditPayment(ctx, payment.ID, "payment.phone_mismatch",
			false, "paying number differs from requesting number")
	}

	payment.Status = model.PaymentStatusSuccess
	payment.Receipt = receiptPtr
	payment.PaidAt = &now

	session, err := u.activator.Activate(ctx, payment)
	if err != nil {
		// The payment stays succeeded regardless of provisioning outcome.
		u.log.Error().Err(err).
			Str("payment_id", payment.ID).
			Str("checkout_request_id", cb.CheckoutRequestID).
			Msg("activation after successful payment failed")
	}
	out.Outcome = "success"
	out.Session = session
	return out
}

func (u *paymentUC) StatusByCheckoutID(ctx context.Context, checkoutID string) (*model.Payment, error) {
	if checkoutID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.payments.FindByCheckoutRequestID(ctx, nil, checkoutID)
}

func (u *paymentUC) auditPayment(ctx context.Context, paymentID, op string, success bool, errMsg string) {
	actor := "portal"
	if op == "payment.success" || op == "payment.failed" {
		actor = "callback"
	}
	u.audit.Record(ctx, &model.AuditRecord{
		Actor:     actor,
		Operation: op,
		Resource:  paymentID,
		Success:   success,
		Error:     errMsg,
		CreatedAt: time.Now(),
	})
}
