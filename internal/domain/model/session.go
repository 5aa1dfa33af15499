package model

import "time"

// Session is a time-bounded grant of network access for one device, created by
// the session activator on confirmed payment. Mutated only to flip Active to
// false on expiry or explicit disconnect; never re-activated.
type Session struct {
	ID        string // UUID
	DeviceMAC string
	PackageID string
	PaymentID string
	RouterID  string
	StartTime time.Time
	EndTime   time.Time // StartTime + package duration
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the session's window has elapsed at the given time.
func (s *Session) Expired(now time.Time) bool { return !now.Before(s.EndTime) }

// Remaining returns the remaining access time at the given instant, floored at zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.Expired(now) {
		return 0
	}
	return s.EndTime.Sub(now)
}
