//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/adapter"
	"captive-wifi-billing/internal/domain/ports/repository"
	"captive-wifi-billing/internal/usecase"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// -----------------------------
// Payment repository
// -----------------------------

type MockPaymentRepo struct {
	mu         sync.Mutex
	data       map[string]*model.Payment // by id
	byCheckout map[string]string         // checkout request id -> id

	SaveFunc                func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByIDFunc            func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	MarkResultIfPendingFunc func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, receipt *string, rawCallback []byte, paidAt *time.Time) (bool, error)
	UpdateStatusFunc        func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) error
}

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}, byCheckout: map[string]string{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.data[p.ID] = &cp
	if p.CheckoutRequestID != "" {
		r.byCheckout[p.CheckoutRequestID] = p.ID
	}
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) FindByCheckoutRequestID(ctx context.Context, tx repository.Tx, checkoutID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byCheckout[checkoutID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r.data[id]
	return &cp, nil
}

func (r *MockPaymentRepo) SetProviderRefs(ctx context.Context, tx repository.Tx, id, merchantRequestID, checkoutRequestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.MerchantRequestID = merchantRequestID
	p.CheckoutRequestID = checkoutRequestID
	r.byCheckout[checkoutRequestID] = id
	return nil
}

func (r *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) error {
	if r.UpdateStatusFunc != nil {
		return r.UpdateStatusFunc(ctx, tx, id, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	return nil
}

func (r *MockPaymentRepo) MarkResultIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, receipt *string, rawCallback []byte, paidAt *time.Time) (bool, error) {
	if r.MarkResultIfPendingFunc != nil {
		return r.MarkResultIfPendingFunc(ctx, tx, id, status, receipt, rawCallback, paidAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	p.Receipt = receipt
	p.RawCallback = rawCallback
	p.PaidAt = paidAt
	return true, nil
}

// Count reports the number of stored payments; used to assert the duplicate
// guard creates no second row.
func (r *MockPaymentRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// -----------------------------
// Package repository
// -----------------------------

type MockPackageRepo struct {
	mu   sync.Mutex
	data map[string]*model.Package

	FindByIDFunc   func(ctx context.Context, tx repository.Tx, id string) (*model.Package, error)
	ListActiveFunc func(ctx context.Context, tx repository.Tx) ([]*model.Package, error)
}

func NewMockPackageRepo() *MockPackageRepo {
	return &MockPackageRepo{data: map[string]*model.Package{}}
}

func (r *MockPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Package, error) {
	if r.ListActiveFunc != nil {
		return r.ListActiveFunc(ctx, tx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Package
	for _, p := range r.data {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPackageRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = active
	return nil
}

// -----------------------------
// Session repository
// -----------------------------

type MockSessionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Session

	SaveFunc func(ctx context.Context, tx repository.Tx, s *model.Session) error
}

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{data: map[string]*model.Session{}}
}

func (r *MockSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Session) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSessionRepo) FindActiveByDevice(ctx context.Context, tx repository.Tx, deviceMAC string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *model.Session
	for _, s := range r.data {
		if s.Active && s.DeviceMAC == deviceMAC {
			if newest == nil || s.StartTime.After(newest.StartTime) {
				newest = s
			}
		}
	}
	if newest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

func (r *MockSessionRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Active = active
	return nil
}

func (r *MockSessionRepo) ListActiveExpiredBefore(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Session
	for _, s := range r.data {
		if s.Active && s.EndTime.Before(cutoff) {
			cp := *s
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// -----------------------------
// Router repository
// -----------------------------

type MockRouterRepo struct {
	mu     sync.Mutex
	creds  map[string]*model.RouterCredential
	status map[string]*model.RouterSyncStatus

	FindCredentialFunc func(ctx context.Context, tx repository.Tx, routerID string) (*model.RouterCredential, error)
	SaveSyncStatusFunc func(ctx context.Context, tx repository.Tx, s *model.RouterSyncStatus) error
}

func NewMockRouterRepo() *MockRouterRepo {
	return &MockRouterRepo{creds: map[string]*model.RouterCredential{}, status: map[string]*model.RouterSyncStatus{}}
}

func (r *MockRouterRepo) SaveCredential(ctx context.Context, tx repository.Tx, c *model.RouterCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.creds[c.RouterID] = &cp
	return nil
}

func (r *MockRouterRepo) FindCredential(ctx context.Context, tx repository.Tx, routerID string) (*model.RouterCredential, error) {
	if r.FindCredentialFunc != nil {
		return r.FindCredentialFunc(ctx, tx, routerID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[routerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockRouterRepo) PatchCredential(ctx context.Context, tx repository.Tx, routerID string, patch *model.RouterCredentialPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[routerID]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Host != nil {
		c.Host = *patch.Host
	}
	if patch.Port != nil {
		c.Port = *patch.Port
	}
	if patch.Username != nil {
		c.Username = *patch.Username
	}
	if patch.Secret != nil {
		c.EncryptedSecret = *patch.Secret
	}
	if patch.TimeoutSeconds != nil {
		c.TimeoutSeconds = *patch.TimeoutSeconds
	}
	return nil
}

func (r *MockRouterRepo) SetReachability(ctx context.Context, tx repository.Tx, routerID string, reachable bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[routerID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Reachable = reachable
	c.LastSeenAt = &at
	return nil
}

func (r *MockRouterRepo) SaveSyncStatus(ctx context.Context, tx repository.Tx, s *model.RouterSyncStatus) error {
	if r.SaveSyncStatusFunc != nil {
		return r.SaveSyncStatusFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.status[s.RouterID] = &cp
	return nil
}

func (r *MockRouterRepo) FindSyncStatus(ctx context.Context, tx repository.Tx, routerID string) (*model.RouterSyncStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.status[routerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// -----------------------------
// Pending activation store
// -----------------------------

// MockPendingStore is an in-memory TTL store with a controllable clock so
// tests can expire the activation window without sleeping.
type MockPendingStore struct {
	mu      sync.Mutex
	recs    map[string]*model.PendingActivation // by checkout request id
	expires map[string]time.Time
	Now     func() time.Time

	PutFunc func(ctx context.Context, rec *model.PendingActivation, ttl time.Duration) error
	GetFunc func(ctx context.Context, checkoutRequestID string) (*model.PendingActivation, error)
}

func NewMockPendingStore() *MockPendingStore {
	return &MockPendingStore{
		recs:    map[string]*model.PendingActivation{},
		expires: map[string]time.Time{},
		Now:     time.Now,
	}
}

func (s *MockPendingStore) Put(ctx context.Context, rec *model.PendingActivation, ttl time.Duration) error {
	if s.PutFunc != nil {
		return s.PutFunc(ctx, rec, ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.recs[rec.CheckoutRequestID] = &cp
	s.expires[rec.CheckoutRequestID] = s.Now().Add(ttl)
	return nil
}

func (s *MockPendingStore) Get(ctx context.Context, checkoutRequestID string) (*model.PendingActivation, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx, checkoutRequestID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[checkoutRequestID]
	if !ok || s.Now().After(s.expires[checkoutRequestID]) {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MockPendingStore) Delete(ctx context.Context, checkoutRequestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, checkoutRequestID)
	delete(s.expires, checkoutRequestID)
	return nil
}

func (s *MockPendingStore) HasPendingFor(ctx context.Context, deviceMAC string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.recs {
		if rec.DeviceMAC == deviceMAC && !s.Now().After(s.expires[id]) {
			return id, true, nil
		}
	}
	return "", false, nil
}

// -----------------------------
// Push payment gateway
// -----------------------------

type MockPaymentGateway struct {
	mu    sync.Mutex
	calls int

	RequestPushFunc func(ctx context.Context, phone string, amount int64, accountReference, description string) (*adapter.PushResult, error)
}

func (g *MockPaymentGateway) RequestPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*adapter.PushResult, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.RequestPushFunc != nil {
		return g.RequestPushFunc(ctx, phone, amount, accountReference, description)
	}
	return &adapter.PushResult{
		MerchantRequestID: uuid.NewString(),
		CheckoutRequestID: "ws_CO_" + uuid.NewString(),
		Description:       "Success. Request accepted for processing",
	}, nil
}

func (g *MockPaymentGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// -----------------------------
// Router control channel
// -----------------------------

// MockRouterConn scripts the reply to each command by its first word.
type MockRouterConn struct {
	mu      sync.Mutex
	closed  bool
	history [][]string

	RunFunc func(ctx context.Context, words ...string) ([]adapter.RouterSentence, error)
}

func (c *MockRouterConn) Run(ctx context.Context, words ...string) ([]adapter.RouterSentence, error) {
	c.mu.Lock()
	c.history = append(c.history, words)
	c.mu.Unlock()
	if c.RunFunc != nil {
		return c.RunFunc(ctx, words...)
	}
	return nil, nil
}

func (c *MockRouterConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *MockRouterConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockRouterConn) Commands() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]string, len(c.history))
	copy(out, c.history)
	return out
}

type MockRouterDialer struct {
	mu    sync.Mutex
	conns []*MockRouterConn

	DialFunc func(ctx context.Context, addr, username, secret string, timeout time.Duration) (adapter.RouterConn, error)
	// NextRun scripts the Run behavior of every connection this dialer hands out.
	NextRun func(ctx context.Context, words ...string) ([]adapter.RouterSentence, error)
}

func (d *MockRouterDialer) Dial(ctx context.Context, addr, username, secret string, timeout time.Duration) (adapter.RouterConn, error) {
	if d.DialFunc != nil {
		return d.DialFunc(ctx, addr, username, secret, timeout)
	}
	conn := &MockRouterConn{RunFunc: d.NextRun}
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *MockRouterDialer) Conns() []*MockRouterConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockRouterConn, len(d.conns))
	copy(out, d.conns)
	return out
}

// -----------------------------
// Router use case (for activation/sync tests)
// -----------------------------

type MockRouterUC struct {
	mu sync.Mutex

	GrantCalls  []string // "routerID/deviceMAC/profile"
	RevokeCalls []string

	GrantAccessFunc         func(ctx context.Context, routerID, deviceMAC, profileName, actor string) *usecase.GrantResult
	RevokeAccessFunc        func(ctx context.Context, routerID, deviceMAC, actor string) *usecase.RevokeResult
	UpsertAccessProfileFunc func(ctx context.Context, routerID string, profile model.AccessProfile, actor string) error
	ListAccessProfilesFunc  func(ctx context.Context, routerID string) ([]model.AccessProfile, error)
}

func (m *MockRouterUC) TestConnection(ctx context.Context, routerID, actor string) *usecase.TestConnectionResult {
	return &usecase.TestConnectionResult{Success: true, Message: "connection ok"}
}

func (m *MockRouterUC) GrantAccess(ctx context.Context, routerID, deviceMAC, profileName, actor string) *usecase.GrantResult {
	m.mu.Lock()
	m.GrantCalls = append(m.GrantCalls, routerID+"/"+deviceMAC+"/"+profileName)
	m.mu.Unlock()
	if m.GrantAccessFunc != nil {
		return m.GrantAccessFunc(ctx, routerID, deviceMAC, profileName, actor)
	}
	return &usecase.GrantResult{Success: true, Message: "access granted"}
}

func (m *MockRouterUC) RevokeAccess(ctx context.Context, routerID, deviceMAC, actor string) *usecase.RevokeResult {
	m.mu.Lock()
	m.RevokeCalls = append(m.RevokeCalls, routerID+"/"+deviceMAC)
	m.mu.Unlock()
	if m.RevokeAccessFunc != nil {
		return m.RevokeAccessFunc(ctx, routerID, deviceMAC, actor)
	}
	return &usecase.RevokeResult{Success: true, Count: 1, Message: "removed 1 active entries"}
}

func (m *MockRouterUC) UpsertAccessProfile(ctx context.Context, routerID string, profile model.AccessProfile, actor string) error {
	if m.UpsertAccessProfileFunc != nil {
		return m.UpsertAccessProfileFunc(ctx, routerID, profile, actor)
	}
	return nil
}

func (m *MockRouterUC) ListAccessProfiles(ctx context.Context, routerID string) ([]model.AccessProfile, error) {
	if m.ListAccessProfilesFunc != nil {
		return m.ListAccessProfilesFunc(ctx, routerID)
	}
	return nil, nil
}

func (m *MockRouterUC) UpdateCredential(ctx context.Context, routerID string, patch *model.RouterCredentialPatch) error {
	return nil
}

// -----------------------------
// Transaction manager
// -----------------------------

// MockTxManager executes the function with a nil Tx, which repositories treat
// as the non-transactional path.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// -----------------------------
// Audit sink
// -----------------------------

type MockAuditSink struct {
	mu   sync.Mutex
	recs []*model.AuditRecord
}

func (s *MockAuditSink) Record(ctx context.Context, rec *model.AuditRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.recs = append(s.recs, &cp)
}

func (s *MockAuditSink) Records() []*model.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.AuditRecord, len(s.recs))
	copy(out, s.recs)
	return out
}

// -----------------------------
// Cipher (identity; router tests)
// -----------------------------

type plainCipher struct{}

func (plainCipher) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (plainCipher) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
