package ports

// Package ports defines interfaces (hexagonal ports) for auth, permission,
// and progress behavior. Implementations live in internal/adapters;
// orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	"github.com/novellms/lms-gateway/internal/domain/progress"
)

// Credentials carries a login submission. Field names mirror the backend's
// login payload.
type Credentials struct {
	Usr string
	Pwd string
}

// BackendRef identifies an authenticated backend session for follow-up calls.
// SID is the upstream session cookie; Identity is the canonical user name.
type BackendRef struct {
	SID      string
	Identity string
}

// Authenticator performs credential login and logout against the document
// store. Login failures must map to the invalid-credentials or network error
// codes so callers can re-enable the form without guessing.
type Authenticator interface {
	// Login exchanges credentials for a backend session.
	Login(ctx context.Context, creds Credentials) (BackendRef, error)

	// Logout invalidates the backend session. A missing session is not an
	// error.
	Logout(ctx context.Context, ref BackendRef) error
}

// UserDirectory fetches the identity document for an authenticated session.
type UserDirectory interface {
	FetchIdentity(ctx context.Context, ref BackendRef) (domainauth.Identity, error)
}

// RoleSource answers "what LMS role does this identity hold". A nil error
// with RoleNone is the authoritative "no role assigned" answer; a non-nil
// error means the lookup itself failed and the role is unknown.
type RoleSource interface {
	FetchRole(ctx context.Context, ref BackendRef) (domainauth.Role, error)
}

// SessionStore persists and retrieves gateway sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// PermissionEntry is one cached role resolution.
type PermissionEntry struct {
	Identity   string          `json:"identity"`
	Role       domainauth.Role `json:"role"`
	ResolvedAt time.Time       `json:"resolved_at"`
}

// PermissionCache stores role resolutions keyed by identity. Freshness policy
// lives in the resolver; the cache only stores and reports entries. It is
// injected, never a package-level map, so tests get per-test isolation.
type PermissionCache interface {
	Get(ctx context.Context, identity string) (PermissionEntry, bool, error)
	Set(ctx context.Context, entry PermissionEntry) error
	Invalidate(ctx context.Context, identity string) error
}

// ProgressSource fetches a member's course modules with progress snapshots.
type ProgressSource interface {
	FetchMemberModules(ctx context.Context, ref BackendRef) ([]progress.Module, error)
}
