package loginsession

import "time"

// Repo stores login sessions keyed by correlation key.
//
// Authorize and MarkExpired are conditional writes: they only move a session
// out of pending, and they must be atomic per key. The in-memory
// implementation guarantees this with a mutex; a multi-process deployment
// must back this interface with a store that supports conditional updates
// (compare-and-swap on status) or the one-way transition invariant breaks.
type Repo interface {
	// Create registers a fresh pending session under its correlation key.
	Create(session Session) error

	// Get retrieves a session without mutating it.
	Get(correlationKey string) (Session, error)

	// Authorize performs the pending -> authorized transition, recording the
	// provider-side identity. If the session is already terminal the stored
	// record is returned unchanged; the first write wins.
	Authorize(correlationKey, externalIdentity string) (Session, error)

	// MarkExpired performs the pending -> expired transition. Idempotent:
	// expiring an already-terminal session is a no-op.
	MarkExpired(correlationKey string) (Session, error)

	// Delete removes a session.
	Delete(correlationKey string) error

	// TakeAuthorized removes and returns an authorized session in one step,
	// making the identity handoff one-time: of two concurrent exchanges only
	// one gets the record. A non-authorized session is returned un-removed
	// alongside ErrSessionNotReady.
	TakeAuthorized(correlationKey string) (Session, error)

	// DeleteExpired removes sessions created before the cutoff and returns
	// how many were removed. Called by the janitor.
	DeleteExpired(cutoff time.Time) (int, error)
}
