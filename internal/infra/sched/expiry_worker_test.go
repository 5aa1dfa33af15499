//go:build !integration

package sched

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/repository"
	"captive-wifi-billing/internal/usecase"
)

type memSessionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{data: map[string]*model.Session{}}
}

func (r *memSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) FindActiveByDevice(ctx context.Context, tx repository.Tx, deviceMAC string) (*model.Session, error) {
	return nil, domain.ErrNotFound
}

func (r *memSessionRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Active = active
	return nil
}

func (r *memSessionRepo) ListActiveExpiredBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Session
	for _, s := range r.data {
		if s.Active && s.EndTime.Before(cutoff) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// revokerStub implements the gateway surface the sweep needs; the remaining
// operations are unused.
type revokerStub struct {
	mu      sync.Mutex
	revoked []string
	fail    map[string]bool
}

func (s *revokerStub) RevokeAccess(ctx context.Context, routerID, deviceMAC, actor string) *usecase.RevokeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[deviceMAC] {
		return &usecase.RevokeResult{Success: false, Message: "router unreachable"}
	}
	s.revoked = append(s.revoked, routerID+"/"+deviceMAC)
	return &usecase.RevokeResult{Success: true, Count: 1}
}

func (s *revokerStub) TestConnection(ctx context.Context, routerID, actor string) *usecase.TestConnectionResult {
	return &usecase.TestConnectionResult{Success: true}
}

func (s *revokerStub) GrantAccess(ctx context.Context, routerID, deviceMAC, profileName, actor string) *usecase.GrantResult {
	return &usecase.GrantResult{Success: true}
}

func (s *revokerStub) UpsertAccessProfile(ctx context.Context, routerID string, profile model.AccessProfile, actor string) error {
	return nil
}

func (s *revokerStub) ListAccessProfiles(ctx context.Context, routerID string) ([]model.AccessProfile, error) {
	return nil, nil
}

func (s *revokerStub) UpdateCredential(ctx context.Context, routerID string, patch *model.RouterCredentialPatch) error {
	return nil
}

func testWorker(sessions repository.SessionRepository, gateway usecase.RouterUseCase) *ExpiryWorker {
	logger := zerolog.New(io.Discard)
	return NewExpiryWorker("*/1 * * * *", sessions, gateway, &logger)
}

func TestExpiryWorkerSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	seed := func(repo *memSessionRepo, id, mac string, end time.Time, active bool) {
		repo.Save(ctx, nil, &model.Session{
			ID: id, DeviceMAC: mac, RouterID: "R123",
			StartTime: end.Add(-time.Hour), EndTime: end, Active: active,
		})
	}

	t.Run("deactivates expired sessions and revokes access", func(t *testing.T) {
		repo := newMemSessionRepo()
		gw := &revokerStub{}
		seed(repo, "s-expired", "AA:BB:CC:DD:EE:FF", now.Add(-time.Minute), true)
		seed(repo, "s-live", "11:22:33:44:55:66", now.Add(time.Hour), true)
		seed(repo, "s-done", "22:22:33:44:55:66", now.Add(-time.Hour), false)

		testWorker(repo, gw).sweep()

		if s, _ := repo.FindByID(ctx, nil, "s-expired"); s.Active {
			t.Error("expected the expired session deactivated")
		}
		if s, _ := repo.FindByID(ctx, nil, "s-live"); !s.Active {
			t.Error("expected the live session untouched")
		}
		if len(gw.revoked) != 1 || gw.revoked[0] != "R123/AA:BB:CC:DD:EE:FF" {
			t.Errorf("unexpected revokes: %v", gw.revoked)
		}
	})

	t.Run("a failed revoke leaves the session active for the next tick", func(t *testing.T) {
		repo := newMemSessionRepo()
		gw := &revokerStub{fail: map[string]bool{"AA:BB:CC:DD:EE:FF": true}}
		seed(repo, "s-stuck", "AA:BB:CC:DD:EE:FF", now.Add(-time.Minute), true)

		worker := testWorker(repo, gw)
		worker.sweep()

		if s, _ := repo.FindByID(ctx, nil, "s-stuck"); !s.Active {
			t.Fatal("expected the session to stay active after a failed revoke")
		}

		// Router back: the next tick finishes the job.
		gw.fail = nil
		worker.sweep()
		if s, _ := repo.FindByID(ctx, nil, "s-stuck"); s.Active {
			t.Error("expected the retry to deactivate the session")
		}
	})

	t.Run("an empty sweep touches nothing", func(t *testing.T) {
		repo := newMemSessionRepo()
		gw := &revokerStub{}
		testWorker(repo, gw).sweep()
		if len(gw.revoked) != 0 {
			t.Errorf("expected no revokes, got %v", gw.revoked)
		}
	})
}
