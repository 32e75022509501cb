package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
	"github.com/novellms/lms-gateway/internal/ports"
)

// DefaultSessionTTL bounds a gateway session's lifetime.
const DefaultSessionTTL = 8 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Backend    ports.Authenticator
	Directory  ports.UserDirectory
	Resolver   *PermissionResolver
	Sessions   ports.SessionStore
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// AuthService orchestrates the login flow: credential check, identity fetch,
// role resolution, then destination routing. Each step depends on the
// previous result. Per-identity gates make a duplicate submit a no-op while
// an attempt is in flight.
type AuthService struct {
	backend    ports.Authenticator
	directory  ports.UserDirectory
	resolver   *PermissionResolver
	sessions   ports.SessionStore
	sessionTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	gates map[string]*domainauth.Gate
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &AuthService{
		backend:    opts.Backend,
		directory:  opts.Directory,
		resolver:   opts.Resolver,
		sessions:   opts.Sessions,
		sessionTTL: ttl,
		logger:     logger,
		now:        nowFn,
		gates:      make(map[string]*domainauth.Gate),
	}
}

// LoginResult contains the result of a completed login flow.
type LoginResult struct {
	Session    domainauth.Session
	RedirectTo string
}

// Login runs the full flow. A success replaces any previous session for the
// identity; the returned redirect is the role's landing route. Failures
// revert to anonymous semantics: the gate is released for retry and no
// half-authenticated state survives.
func (s *AuthService) Login(ctx context.Context, creds ports.Credentials) (*LoginResult, error) {
	gate := s.gateFor(creds.Usr)
	// A gate parked in authenticated belongs to a finished flow; a fresh
	// login for the same identity starts over instead of being refused.
	if gate.State() == domainauth.StateAuthenticated {
		gate.Reset()
	}
	if err := gate.BeginLogin(); err != nil {
		return nil, err
	}

	ref, err := s.backend.Login(ctx, creds)
	if err != nil {
		gate.Fail()
		return nil, err
	}

	if err = gate.BeginRedirect(); err != nil {
		// The gate was reset underneath us (e.g. logout raced the flow);
		// drop the fresh backend session and give up.
		s.abandonBackendSession(ctx, ref)
		return nil, err
	}

	result, err := s.completeLogin(ctx, ref)
	if err != nil {
		s.abandonBackendSession(ctx, ref)
		if lmserrors.IsNoRoleAssigned(err) {
			// Authenticated but role-less: back to the login screen,
			// effectively logged out. Not an in-flight error state.
			gate.Reset()
			return nil, err
		}
		gate.Fail()
		return nil, err
	}

	if err = gate.Complete(); err != nil {
		gate.Reset()
	}
	return result, nil
}

// completeLogin performs the post-credential steps: identity fetch, role
// resolution, session persistence.
func (s *AuthService) completeLogin(ctx context.Context, ref ports.BackendRef) (*LoginResult, error) {
	identity, err := s.directory.FetchIdentity(ctx, ref)
	if err != nil {
		var appErr *lmserrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, lmserrors.Wrap(err, lmserrors.ErrCodeNetwork, "fetch user document")
	}
	// The user document's canonical name is authoritative from here on.
	ref.Identity = identity.Name

	res := s.resolver.Resolve(ctx, ref)
	switch res.Outcome {
	case domainauth.OutcomeFailed:
		return nil, lmserrors.Wrap(res.Err, lmserrors.ErrCodePermissionResolution, "resolve permissions")
	case domainauth.OutcomeNoRole:
		return nil, lmserrors.NoRoleAssigned("no LMS role assigned to " + identity.Name)
	}

	session := domainauth.Session{
		ID:         uuid.New().String(),
		Identity:   identity.Name,
		FullName:   identity.FullName,
		Role:       res.Role,
		BackendSID: ref.SID,
		ExpiresAt:  s.now().Add(s.sessionTTL),
	}
	if err = s.sessions.Save(ctx, session); err != nil {
		return nil, lmserrors.Wrap(err, lmserrors.ErrCodeInternal, "save session")
	}

	return &LoginResult{
		Session:    session,
		RedirectTo: res.Role.Destination(),
	}, nil
}

// GetSession retrieves and validates a gateway session by ID.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, lmserrors.SessionExpired("session ID is required")
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, lmserrors.Wrap(err, lmserrors.ErrCodeSessionExpired, "get session")
	}
	if !session.ExpiresAt.IsZero() && s.now().After(session.ExpiresAt) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			s.logger.WarnContext(ctx, "delete expired session", "error", deleteErr)
		}
		return nil, lmserrors.SessionExpired("session expired")
	}
	return &session, nil
}

// Logout tears down both sides of the session: the backend one, the cached
// permissions, and the gateway record. A follow-up probe confirming the
// backend session is gone is expected to fail; that specific failure is
// swallowed, anything else is only logged.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil // Nothing to logout
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		// Session already gone; nothing left to tear down.
		return nil
	}

	ref := ports.BackendRef{SID: session.BackendSID, Identity: session.Identity}
	if logoutErr := s.backend.Logout(ctx, ref); logoutErr != nil {
		s.logger.WarnContext(ctx, "backend logout failed", "error", logoutErr)
	}

	// Post-logout probe: fetching the logged in user without a session is
	// the expected outcome, not an error worth surfacing.
	if _, probeErr := s.directory.FetchIdentity(ctx, ref); probeErr != nil && !lmserrors.IsSessionExpired(probeErr) {
		s.logger.WarnContext(ctx, "post-logout probe failed", "error", probeErr)
	}

	if invErr := s.resolver.Invalidate(ctx, session.Identity); invErr != nil {
		s.logger.WarnContext(ctx, "invalidate permission cache", "error", invErr)
	}
	if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
		return lmserrors.Wrap(delErr, lmserrors.ErrCodeInternal, "delete session")
	}

	s.gateFor(session.Identity).Reset()
	return nil
}

// GateState exposes the login state for an identity, mainly for status
// endpoints and tests.
func (s *AuthService) GateState(identity string) domainauth.GateState {
	return s.gateFor(identity).State()
}

// gateFor returns the per-identity login gate, creating it on first use.
func (s *AuthService) gateFor(identity string) *domainauth.Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate, ok := s.gates[identity]
	if !ok {
		gate = domainauth.NewGate()
		s.gates[identity] = gate
	}
	return gate
}

// abandonBackendSession releases a backend session acquired by a login flow
// that cannot finish. Best effort: an unreachable backend just ages the
// session out server-side.
func (s *AuthService) abandonBackendSession(ctx context.Context, ref ports.BackendRef) {
	if err := s.backend.Logout(ctx, ref); err != nil {
		s.logger.WarnContext(ctx, "abandon backend session", "error", err)
	}
}
