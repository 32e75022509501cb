package auth

// Package auth contains simple hand-written test doubles for the backend and
// storage ports. These are lightweight and suitable for unit tests without
// codegen.

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	"github.com/novellms/lms-gateway/internal/domain/progress"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
	"github.com/novellms/lms-gateway/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Authenticator   = (*StubBackend)(nil)
	_ ports.UserDirectory   = (*StubBackend)(nil)
	_ ports.RoleSource      = (*StubRoleSource)(nil)
	_ ports.ProgressSource  = (*StubBackend)(nil)
	_ ports.SessionStore    = (*MemorySessionStore)(nil)
	_ ports.PermissionCache = (*MemoryPermissionCache)(nil)
)

// StubBackend simulates the document store for tests. Unset function fields
// fall back to deterministic defaults derived from the configured users.
type StubBackend struct {
	LoginFunc         func(ctx context.Context, creds ports.Credentials) (ports.BackendRef, error)
	LogoutFunc        func(ctx context.Context, ref ports.BackendRef) error
	FetchIdentityFunc func(ctx context.Context, ref ports.BackendRef) (domainauth.Identity, error)
	FetchModulesFunc  func(ctx context.Context, ref ports.BackendRef) ([]progress.Module, error)

	// Passwords maps identity -> accepted password for the default Login.
	Passwords map[string]string
	// Modules is returned by the default FetchMemberModules.
	Modules []progress.Module

	LoginCalls  atomic.Int64
	LogoutCalls atomic.Int64
}

// NewStubBackend creates a StubBackend accepting the given identity/password.
func NewStubBackend(identity, password string) *StubBackend {
	return &StubBackend{Passwords: map[string]string{identity: password}}
}

func (s *StubBackend) Login(ctx context.Context, creds ports.Credentials) (ports.BackendRef, error) {
	s.LoginCalls.Add(1)
	if s.LoginFunc != nil {
		return s.LoginFunc(ctx, creds)
	}
	pwd, ok := s.Passwords[creds.Usr]
	if !ok || pwd != creds.Pwd {
		return ports.BackendRef{}, lmserrors.InvalidCredentials("invalid login credentials")
	}
	return ports.BackendRef{SID: "sid-" + creds.Usr, Identity: creds.Usr}, nil
}

func (s *StubBackend) Logout(ctx context.Context, ref ports.BackendRef) error {
	s.LogoutCalls.Add(1)
	if s.LogoutFunc != nil {
		return s.LogoutFunc(ctx, ref)
	}
	return nil
}

func (s *StubBackend) FetchIdentity(ctx context.Context, ref ports.BackendRef) (domainauth.Identity, error) {
	if s.FetchIdentityFunc != nil {
		return s.FetchIdentityFunc(ctx, ref)
	}
	return domainauth.Identity{Name: ref.Identity, FullName: "Stub User", Email: ref.Identity}, nil
}

func (s *StubBackend) FetchMemberModules(ctx context.Context, ref ports.BackendRef) ([]progress.Module, error) {
	if s.FetchModulesFunc != nil {
		return s.FetchModulesFunc(ctx, ref)
	}
	return s.Modules, nil
}

// StubRoleSource answers role lookups from a map and counts calls so dedup
// behavior is observable.
type StubRoleSource struct {
	// Roles maps identity -> role. Missing identities resolve to RoleNone.
	Roles map[string]domainauth.Role
	// Err, when set, makes every lookup fail.
	Err error
	// Block, when non-nil, is received from before returning; tests use it
	// to hold a lookup in flight.
	Block chan struct{}

	Calls atomic.Int64
}

func (s *StubRoleSource) FetchRole(_ context.Context, ref ports.BackendRef) (domainauth.Role, error) {
	s.Calls.Add(1)
	if s.Block != nil {
		<-s.Block
	}
	if s.Err != nil {
		return domainauth.RoleNone, s.Err
	}
	if role, ok := s.Roles[ref.Identity]; ok {
		return role, nil
	}
	return domainauth.RoleNone, nil
}

// MemorySessionStore is a map-backed session store for tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session

	SaveErr   error
	DeleteErr error
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, fmt.Errorf("session %q not found", id)
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// MemoryPermissionCache is a map-backed permission cache for tests.
type MemoryPermissionCache struct {
	mu      sync.Mutex
	entries map[string]ports.PermissionEntry

	GetErr error
	SetErr error
}

// NewMemoryPermissionCache creates an empty cache.
func NewMemoryPermissionCache() *MemoryPermissionCache {
	return &MemoryPermissionCache{entries: make(map[string]ports.PermissionEntry)}
}

func (m *MemoryPermissionCache) Get(_ context.Context, identity string) (ports.PermissionEntry, bool, error) {
	if m.GetErr != nil {
		return ports.PermissionEntry{}, false, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[identity]
	return entry, ok, nil
}

func (m *MemoryPermissionCache) Set(_ context.Context, entry ports.PermissionEntry) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Identity] = entry
	return nil
}

func (m *MemoryPermissionCache) Invalidate(_ context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, identity)
	return nil
}
