package routeros

import (
	"bufio"
	"context"
	"crypto/md5"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"
	"time"

	"captive-wifi-billing/internal/domain/ports/adapter"
)

var _ adapter.RouterDialer = (*Dialer)(nil)
var _ adapter.RouterConn = (*Conn)(nil)

// DeviceError is a router-side command rejection (!trap or !fatal reply).
type DeviceError struct {
	Message  string
	Category string
	Fatal    bool
}

func (e *DeviceError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("router fatal: %s", e.Message)
	}
	if e.Category != "" {
		return fmt.Sprintf("router trap (%s): %s", e.Category, e.Message)
	}
	return fmt.Sprintf("router trap: %s", e.Message)
}

// Dialer opens API-SSL control channels. Router certificates are typically
// self-signed, so verification is configurable.
type Dialer struct {
	insecureSkipVerify bool
}

func NewDialer(insecureSkipVerify bool) *Dialer {
	return &Dialer{insecureSkipVerify: insecureSkipVerify}
}

// Conn is one authenticated control-channel session. Not safe for concurrent
// use; the gateway issues exactly one logical transaction per connection.
type Conn struct {
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration
}

// Dial establishes the TLS session and authenticates. The timeout bounds the
// whole dial+login exchange and every subsequent Run call.
func (d *Dialer) Dial(ctx context.Context, addr, username, secret string, timeout time.Duration) (adapter.RouterConn, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	td := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    &tls.Config{InsecureSkipVerify: d.insecureSkipVerify},
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	raw, err := td.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := &Conn{conn: raw, r: bufio.NewReader(raw), timeout: timeout}
	if err := c.login(ctx, username, secret); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

// login performs the post-6.43 plain login and falls back to the pre-6.43
// MD5 challenge when the router answers with =ret=.
func (c *Conn) login(ctx context.Context, username, secret string) error {
	reply, err := c.exchange(ctx, []string{"/login", "=name=" + username, "=password=" + secret})
	if err != nil {
		return err
	}
	ret, ok := reply.done["ret"]
	if !ok {
		return nil // plain login accepted
	}

	// Legacy challenge: response = "00" + hex(md5(0x00 + password + challenge)).
	challenge, err := hex.DecodeString(ret)
	if err != nil {
		return fmt.Errorf("invalid login challenge: %w", err)
	}
	h := md5.New()
	h.Write([]byte{0})
	h.Write([]byte(secret))
	h.Write(challenge)
	response := "00" + hex.EncodeToString(h.Sum(nil))
	_, err = c.exchange(ctx, []string{"/login", "=name=" + username, "=response=" + response})
	return err
}

type reply struct {
	re   []map[string]string
	done map[string]string
}

// exchange writes one sentence and reads reply sentences until !done.
func (c *Conn) exchange(ctx context.Context, words []string) (*reply, error) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if err := writeSentence(c.conn, words); err != nil {
		return nil, fmt.Errorf("write sentence: %w", err)
	}

	out := &reply{}
	var trap *DeviceError
	for {
		sentence, err := readSentence(c.r)
		if err != nil {
			return nil, fmt.Errorf("read sentence: %w", err)
		}
		if len(sentence) == 0 {
			continue
		}
		switch sentence[0] {
		case "!re":
			out.re = append(out.re, attrs(sentence[1:]))
		case "!trap":
			a := attrs(sentence[1:])
			trap = &DeviceError{Message: a["message"], Category: a["category"]}
		case "!fatal":
			msg := ""
			if len(sentence) > 1 {
				msg = sentence[1]
			}
			return nil, &DeviceError{Message: msg, Fatal: true}
		case "!done":
			out.done = attrs(sentence[1:])
			if trap != nil {
				return nil, trap
			}
			return out, nil
		default:
			return nil, fmt.Errorf("unexpected reply word %q", sentence[0])
		}
	}
}

// Run implements adapter.RouterConn.
func (c *Conn) Run(ctx context.Context, words ...string) ([]adapter.RouterSentence, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	rep, err := c.exchange(ctx, words)
	if err != nil {
		return nil, err
	}
	out := make([]adapter.RouterSentence, 0, len(rep.re))
	for _, re := range rep.re {
		out = append(out, adapter.RouterSentence(re))
	}
	return out, nil
}

func (c *Conn) Close() error { return c.conn.Close() }
