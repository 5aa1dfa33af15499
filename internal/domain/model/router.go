package model

import "time"

// RouterCredential holds the control-channel login for one router. The secret
// is stored encrypted (AES-GCM, base64) and decrypted only for the lifetime of
// a single connection.
type RouterCredential struct {
	RouterID        string
	Host            string
	Port            int // 0 means the configured default (8729, API-SSL)
	Username        string
	EncryptedSecret string
	TimeoutSeconds  int // per-connection dial+IO limit; 0 means default
	LastSeenAt      *time.Time
	Reachable       bool
	UpdatedAt       time.Time
}

// RouterCredentialPatch is a partial update of a router credential. Nil fields
// are left untouched, so callers never need sentinel values.
type RouterCredentialPatch struct {
	Host           *string
	Port           *int
	Username       *string
	Secret         *string // plaintext; encrypted by the repository caller
	TimeoutSeconds *int
}

// AccessProfile is the router-side named policy derived from a package:
// pkg_<packageID>, carrying session-timeout and rate parameters.
type AccessProfile struct {
	Name                  string
	SessionTimeoutSeconds int    // 0 means unlimited
	RateLimit             string // empty means none
}

// RouterSyncStatus records the outcome of the last package sync per router.
type RouterSyncStatus struct {
	RouterID    string
	Status      string // "success" | "failed"
	SyncedCount int
	ErrorDetail string
	SyncedAt    time.Time
}
