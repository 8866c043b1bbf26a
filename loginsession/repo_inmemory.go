package loginsession

import (
	"fmt"
	"sync"
	"time"

	"github.com/tcmhub/wechat-login-bridge/internal/errors"
)

// InMemoryRepo is an in-memory implementation of Repo. Conditional
// transitions run under the write lock, which is what makes two concurrent
// webhook deliveries for the same key resolve to a single winner.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	nowTime  func() time.Time
}

// NewInMemoryRepo creates a new in-memory login session repository. The ttl
// is only consulted to decide whether an existing record still counts as
// live when a duplicate key is created.
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
		ttl:      ttl,
		nowTime:  time.Now,
	}
}

// WithNowTime overrides the clock (primarily for testing)
func (r *InMemoryRepo) WithNowTime(nowFunc func() time.Time) *InMemoryRepo {
	r.nowTime = nowFunc
	return r
}

// Create registers a fresh pending session
func (r *InMemoryRepo) Create(session Session) error {
	if session.CorrelationKey == "" {
		return fmt.Errorf("correlation key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A still-pending record under the same key is a caller bug; a terminal
	// or stale one is overwritten, which is the harmless collision case.
	if existing, ok := r.sessions[session.CorrelationKey]; ok {
		if existing.Status == StatusPending && !existing.ExpiredAt(r.nowTime(), r.ttl) {
			return errors.ErrDuplicateSession
		}
	}

	if session.Status == "" {
		session.Status = StatusPending
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = r.nowTime()
	}

	r.sessions[session.CorrelationKey] = session
	return nil
}

// Get retrieves a session by correlation key
func (r *InMemoryRepo) Get(correlationKey string) (Session, error) {
	if correlationKey == "" {
		return Session{}, fmt.Errorf("correlation key is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[correlationKey]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}
	return session, nil
}

// Authorize moves a pending session to authorized, recording the identity
func (r *InMemoryRepo) Authorize(correlationKey, externalIdentity string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[correlationKey]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}

	if session.Status != StatusPending {
		// Terminal already; the stored identity (if any) stands.
		return session, nil
	}

	session.Status = StatusAuthorized
	session.ExternalIdentity = externalIdentity
	r.sessions[correlationKey] = session
	return session, nil
}

// MarkExpired moves a pending session to expired
func (r *InMemoryRepo) MarkExpired(correlationKey string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[correlationKey]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}

	if session.Status != StatusPending {
		return session, nil
	}

	session.Status = StatusExpired
	r.sessions[correlationKey] = session
	return session, nil
}

// TakeAuthorized atomically removes and returns an authorized session
func (r *InMemoryRepo) TakeAuthorized(correlationKey string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[correlationKey]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}
	if session.Status != StatusAuthorized {
		return session, errors.ErrSessionNotReady
	}

	delete(r.sessions, correlationKey)
	return session, nil
}

// Delete removes a session
func (r *InMemoryRepo) Delete(correlationKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, correlationKey)
	return nil
}

// DeleteExpired removes sessions created before the cutoff
func (r *InMemoryRepo) DeleteExpired(cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, session := range r.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(r.sessions, key)
			removed++
		}
	}
	return removed, nil
}

var _ Repo = (*InMemoryRepo)(nil)
