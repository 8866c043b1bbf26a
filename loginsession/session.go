package loginsession

import "time"

// Mode distinguishes the two handshake variants sharing this store.
type Mode string

const (
	ModeQR   Mode = "qr"
	ModeCode Mode = "code"
)

// Status of a login session. Transitions are one-way:
// pending -> authorized, or pending -> expired. Terminal states never reset.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusExpired    Status = "expired"
)

// Session is one in-flight out-of-band login handshake, keyed by its
// correlation key (QR scene string or 6-digit verification code).
type Session struct {
	CorrelationKey string
	Mode           Mode
	Status         Status

	// ExternalIdentity is the provider-side user identifier (OpenID).
	// Set exactly once, on the pending -> authorized transition.
	ExternalIdentity string

	CreatedAt time.Time
}

// ExpiredAt reports whether the session has outlived ttl at the given time.
// Expiry is measured from creation, not last access.
func (s Session) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}
