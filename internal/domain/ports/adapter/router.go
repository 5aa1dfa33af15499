package adapter

import (
	"context"
	"time"
)

// RouterSentence is one reply sentence from the router control protocol,
// flattened to its attribute map.
type RouterSentence map[string]string

// RouterConn is a single authenticated control-channel session. The gateway
// opens one per operation and closes it on every exit path; connections are
// never pooled or reused.
type RouterConn interface {
	// Run executes one command (path-like verb plus attribute words) and
	// returns the reply sentences. A router-side rejection (!trap) is returned
	// as *routeros.DeviceError.
	Run(ctx context.Context, words ...string) ([]RouterSentence, error)
	Close() error
}

// RouterDialer establishes authenticated, encrypted control channels.
// The secret arrives already decrypted and must not outlive the call.
type RouterDialer interface {
	Dial(ctx context.Context, addr, username, secret string, timeout time.Duration) (RouterConn, error)
}
