package memstore

// Package memstore provides in-memory implementations of the session store
// and permission cache. They are the default for single-replica deployments
// and for tests; state does not survive a process restart.

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
)

// ErrNotFound is returned when a session is not found.
type notFoundError struct{}

func (notFoundError) Error() string { return "session not found" }

var ErrNotFound error = notFoundError{}

// SessionStore keeps gateway sessions in a mutex-protected map.
// Expired sessions are treated as absent and removed on read.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	now      func() time.Time
}

// SessionStoreConfig groups constructor options.
type SessionStoreConfig struct {
	Now func() time.Time
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore(cfg SessionStoreConfig) *SessionStore {
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]domainauth.Session),
		now:      nowFn,
	}
}

func (s *SessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domainauth.Session{}, ErrNotFound
	}
	if !sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt) {
		delete(s.sessions, id)
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return nil // Nothing to delete
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired entries included.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type emptySessionIDError struct{}

func (emptySessionIDError) Error() string { return "session ID cannot be empty" }

var errEmptySessionID error = emptySessionIDError{}
