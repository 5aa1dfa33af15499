package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"captive-wifi-billing/internal/domain/ports/repository"
	"captive-wifi-billing/internal/usecase"
)

// ExpiryWorker periodically deactivates sessions whose window has elapsed and
// revokes the device's router access. Failures are logged and retried on the
// next tick; a session stays active in the database until the sweep flips it.
type ExpiryWorker struct {
	cron     *cron.Cron
	sessions repository.SessionRepository
	gateway  usecase.RouterUseCase
	spec     string
	batch    int
	log      *zerolog.Logger
}

func NewExpiryWorker(spec string, sessions repository.SessionRepository, gateway usecase.RouterUseCase, logger *zerolog.Logger) *ExpiryWorker {
	if spec == "" {
		spec = "*/1 * * * *"
	}
	return &ExpiryWorker{
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		sessions: sessions,
		gateway:  gateway,
		spec:     spec,
		batch:    200,
		log:      logger,
	}
}

// Start registers and starts the sweep job.
func (w *ExpiryWorker) Start() error {
	if _, err := w.cron.AddFunc(w.spec, w.sweep); err != nil {
		return err
	}
	w.cron.Start()
	w.log.Info().Str("schedule", w.spec).Msg("session expiry sweep scheduled")
	return nil
}

// Stop stops scheduling and returns when the running job (if any) completes.
func (w *ExpiryWorker) Stop() {
	<-w.cron.Stop().Done()
}

func (w *ExpiryWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	expired, err := w.sessions.ListActiveExpiredBefore(ctx, nil, time.Now(), w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry sweep: listing expired sessions failed")
		return
	}
	if len(expired) == 0 {
		return
	}

	deactivated := 0
	for _, sess := range expired {
		// Revoke before flipping the flag so an unreachable router leaves the
		// session active and retried next tick.
		res := w.gateway.RevokeAccess(ctx, sess.RouterID, sess.DeviceMAC, "system")
		if !res.Success {
			w.log.Warn().
				Str("session_id", sess.ID).
				Str("router_id", sess.RouterID).
				Str("message", res.Message).
				Msg("expiry sweep: revoke failed; will retry")
			continue
		}
		if err := w.sessions.SetActive(ctx, nil, sess.ID, false); err != nil {
			w.log.Error().Err(err).Str("session_id", sess.ID).Msg("expiry sweep: deactivate failed")
			continue
		}
		deactivated++
	}
	w.log.Info().Int("expired", len(expired)).Int("deactivated", deactivated).Msg("expiry sweep finished")
}
