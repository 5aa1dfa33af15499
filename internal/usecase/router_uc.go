package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/adapter"
	"captive-wifi-billing/internal/domain/ports/repository"
	"captive-wifi-billing/internal/infra/metrics"
	"captive-wifi-billing/internal/infra/routeros"
)

// Compile-time check
var _ RouterUseCase = (*routerUC)(nil)

// RouterUseCase is the access-control gateway: every operation opens a fresh
// authenticated control channel, performs one logical transaction, and closes
// the connection on every exit path. Administrator-facing operations report
// failures as structured results, never as raw vendor errors.
type RouterUseCase interface {
	TestConnection(ctx context.Context, routerID, actor string) *TestConnectionResult
	GrantAccess(ctx context.Context, routerID, deviceMAC, profileName, actor string) *GrantResult
	RevokeAccess(ctx context.Context, routerID, deviceMAC, actor string) *RevokeResult
	UpsertAccessProfile(ctx context.Context, routerID string, profile model.AccessProfile, actor string) error
	ListAccessProfiles(ctx context.Context, routerID string) ([]model.AccessProfile, error)
	// UpdateCredential applies a partial credential update; the plaintext
	// secret (if present) is encrypted before it reaches storage.
	UpdateCredential(ctx context.Context, routerID string, patch *model.RouterCredentialPatch) error
}

type TestConnectionResult struct {
	Success  bool   `json:"success"`
	Identity string `json:"identity,omitempty"`
	Message  string `json:"message"`
}

type GrantResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RevokeResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// SecretCipher is the part of the encryption service the gateway needs.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// RouterDefaults carries deployment-wide control-channel settings.
type RouterDefaults struct {
	Port        int
	DialTimeout time.Duration
}

type routerUC struct {
	routers  repository.RouterRepository
	dialer   adapter.RouterDialer
	cipher   SecretCipher
	audit    AuditSink
	defaults RouterDefaults
	log      *zerolog.Logger
}

func NewRouterUseCase(routers repository.RouterRepository, dialer adapter.RouterDialer, cipher SecretCipher, audit AuditSink, defaults RouterDefaults, logger *zerolog.Logger) *routerUC {
	if defaults.Port == 0 {
		defaults.Port = 8729
	}
	if defaults.DialTimeout <= 0 {
		defaults.DialTimeout = 10 * time.Second
	}
	return &routerUC{routers: routers, dialer: dialer, cipher: cipher, audit: audit, defaults: defaults, log: logger}
}

// connect loads and decrypts the credential and dials. The plaintext secret
// exists only inside this call and is never logged.
func (u *routerUC) connect(ctx context.Context, routerID string) (adapter.RouterConn, error) {
	cred, err := u.routers.FindCredential(ctx, nil, routerID)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	secret, err := u.cipher.Decrypt(cred.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential: %w", err)
	}
	port := cred.Port
	if port == 0 {
		port = u.defaults.Port
	}
	timeout := u.defaults.DialTimeout
	if cred.TimeoutSeconds > 0 {
		timeout = time.Duration(cred.TimeoutSeconds) * time.Second
	}
	addr := fmt.Sprintf("%s:%d", cred.Host, port)
	conn, err := u.dialer.Dial(ctx, addr, cred.Username, secret, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRouterUnreachable, err)
	}
	return conn, nil
}

// run wraps one gateway operation: connect, execute, close, audit, metrics.
func (u *routerUC) run(ctx context.Context, routerID, op, actor string, params map[string]string, fn func(conn adapter.RouterConn) error) error {
	start := time.Now()
	var opErr error

	conn, err := u.connect(ctx, routerID)
	if err != nil {
		opErr = err
	} else {
		func() {
			defer conn.Close()
			opErr = fn(conn)
		}()
	}

	elapsed := time.Since(start)
	metrics.ObserveRouterOp(op, opErr == nil, elapsed)
	rec := &model.AuditRecord{
		Actor:     actor,
		Operation: op,
		Resource:  routerID,
		Params:    params,
		Success:   opErr == nil,
		Duration:  elapsed,
		CreatedAt: time.Now(),
	}
	if opErr != nil {
		rec.Error = opErr.Error()
	}
	u.audit.Record(ctx, rec)
	return opErr
}

// publicMessage maps internal errors to a vendor-agnostic message for callers.
func publicMessage(err error) string {
	if errors.Is(err, domain.ErrRouterUnreachable) {
		return "router unreachable"
	}
	if errors.Is(err, domain.ErrNotFound) {
		return "router not configured"
	}
	var devErr *routeros.DeviceError
	if errors.As(err, &devErr) {
		return "router rejected the command"
	}
	return "router operation failed"
}

func (u *routerUC) TestConnection(ctx context.Context, routerID, actor string) *TestConnectionResult {
	var identity string
	err := u.run(ctx, routerID, "router.test_connection", actor, nil, func(conn adapter.RouterConn) error {
		res, err := conn.Run(ctx, "/system/identity/print")
		if err != nil {
			return err
		}
		if len(res) > 0 {
			identity = res[0]["name"]
		}
		return nil
	})

	// Reachability is updated regardless of the command outcome.
	now := time.Now()
	if dbErr := u.routers.SetReachability(ctx, nil, routerID, err == nil, now); dbErr != nil {
		u.log.Warn().Err(dbErr).Str("router_id", routerID).Msg("failed to update router reachability")
	}

	if err != nil {
		return &TestConnectionResult{Success: false, Message: publicMessage(err)}
	}
	return &TestConnectionResult{Success: true, Identity: identity, Message: "connection ok"}
}

func (u *routerUC) GrantAccess(ctx context.Context, routerID, deviceMAC, profileName, actor string) *GrantResult {
	params := map[string]string{"device_mac": deviceMAC, "profile": profileName}
	err := u.run(ctx, routerID, "router.grant_access", actor, params, func(conn adapter.RouterConn) error {
		existing, err := conn.Run(ctx, "/ip/hotspot/user/print", "?name="+deviceMAC)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			// Reuse the existing entry; grant is idempotent.
			_, err = conn.Run(ctx, "/ip/hotspot/user/set",
				"=.id="+existing[0][".id"],
				"=profile="+profileName,
				"=disabled=no")
			return err
		}
		_, err = conn.Run(ctx, "/ip/hotspot/user/add",
			"=name="+deviceMAC,
			"=mac-address="+deviceMAC,
			"=profile="+profileName)
		return err
	})
	if err != nil {
		return &GrantResult{Success: false, Message: publicMessage(err)}
	}
	return &GrantResult{Success: true, Message: "access granted"}
}

func (u *routerUC) RevokeAccess(ctx context.Context, routerID, deviceMAC, actor string) *RevokeResult {
	count := 0
	params := map[string]string{"device_mac": deviceMAC}
	err := u.run(ctx, routerID, "router.revoke_access", actor, params, func(conn adapter.RouterConn) error {
		active, err := conn.Run(ctx, "/ip/hotspot/active/print", "?mac-address="+deviceMAC)
		if err != nil {
			return err
		}
		for _, entry := range active {
			if _, err := conn.Run(ctx, "/ip/hotspot/active/remove", "=.id="+entry[".id"]); err != nil {
				return err
			}
			count++
		}
		// Absence of any match is success with count 0, not an error.
		return nil
	})
	if err != nil {
		return &RevokeResult{Success: false, Count: count, Message: publicMessage(err)}
	}
	return &RevokeResult{Success: true, Count: count, Message: fmt.Sprintf("removed %d active entries", count)}
}

func (u *routerUC) UpsertAccessProfile(ctx context.Context, routerID string, profile model.AccessProfile, actor string) error {
	params := map[string]string{"profile": profile.Name}
	return u.run(ctx, routerID, "router.upsert_profile", actor, params, func(conn adapter.RouterConn) error {
		words := []string{
			"=session-timeout=" + fmt.Sprintf("%d", profile.SessionTimeoutSeconds),
		}
		if profile.RateLimit != "" {
			words = append(words, "=rate-limit="+profile.RateLimit)
		}

		existing, err := conn.Run(ctx, "/ip/hotspot/user/profile/print", "?name="+profile.Name)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			set := append([]string{"/ip/hotspot/user/profile/set", "=.id=" + existing[0][".id"]}, words...)
			_, err = conn.Run(ctx, set...)
			return err
		}
		add := append([]string{"/ip/hotspot/user/profile/add", "=name=" + profile.Name}, words...)
		_, err = conn.Run(ctx, add...)
		return err
	})
}

func (u *routerUC) ListAccessProfiles(ctx context.Context, routerID string) ([]model.AccessProfile, error) {
	var profiles []model.AccessProfile
	err := u.run(ctx, routerID, "router.list_profiles", "system", nil, func(conn adapter.RouterConn) error {
		res, err := conn.Run(ctx, "/ip/hotspot/user/profile/print")
		if err != nil {
			return err
		}
		for _, re := range res {
			name := re["name"]
			if !strings.HasPrefix(name, "pkg_") {
				continue
			}
			profiles = append(profiles, model.AccessProfile{
				Name:      name,
				RateLimit: re["rate-limit"],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (u *routerUC) UpdateCredential(ctx context.Context, routerID string, patch *model.RouterCredentialPatch) error {
	if patch == nil {
		return domain.ErrInvalidArgument
	}
	if patch.Secret != nil {
		enc, err := u.cipher.Encrypt(*patch.Secret)
		if err != nil {
			return fmt.Errorf("encrypt credential: %w", err)
		}
		patch = &model.RouterCredentialPatch{
			Host:           patch.Host,
			Port:           patch.Port,
			Username:       patch.Username,
			Secret:         &enc,
			TimeoutSeconds: patch.TimeoutSeconds,
		}
	}
	return u.routers.PatchCredential(ctx, nil, routerID, patch)
}
