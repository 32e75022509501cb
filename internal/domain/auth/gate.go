package auth

import (
	"errors"
	"sync"
)

// GateState is the single application-wide authentication state. Exactly one
// state holds at any instant.
type GateState string

const (
	StateAnonymous      GateState = "anonymous"
	StateAuthenticating GateState = "authenticating"
	StateRedirecting    GateState = "redirecting"
	StateAuthenticated  GateState = "authenticated"
	StateError          GateState = "error"
)

// ErrLoginInProgress is returned when a login is submitted while a previous
// submission is still in flight. The second submit is a no-op.
var ErrLoginInProgress = errors.New("login already in progress")

// ErrInvalidTransition is returned for transitions the state machine does not
// permit.
var ErrInvalidTransition = errors.New("invalid session state transition")

// Gate is the session state machine. The busy predicate is computed from the
// current state value itself, so there is no shadow flag to race against: a
// second submit observes authenticating/redirecting synchronously under the
// same lock that admitted the first.
type Gate struct {
	mu    sync.Mutex
	state GateState
}

// NewGate returns a Gate in the anonymous state.
func NewGate() *Gate {
	return &Gate{state: StateAnonymous}
}

// State returns the current state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Busy reports whether a login attempt is in flight.
func (g *Gate) Busy() bool {
	s := g.State()
	return s == StateAuthenticating || s == StateRedirecting
}

// BeginLogin transitions anonymous|error -> authenticating. It returns
// ErrLoginInProgress when a previous attempt still holds the gate and
// ErrInvalidTransition when already authenticated.
func (g *Gate) BeginLogin() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case StateAnonymous, StateError:
		g.state = StateAuthenticating
		return nil
	case StateAuthenticating, StateRedirecting:
		return ErrLoginInProgress
	default:
		return ErrInvalidTransition
	}
}

// BeginRedirect transitions authenticating -> redirecting once credentials
// are accepted and role resolution starts.
func (g *Gate) BeginRedirect() error {
	return g.transition(StateAuthenticating, StateRedirecting)
}

// Complete transitions redirecting -> authenticated.
func (g *Gate) Complete() error {
	return g.transition(StateRedirecting, StateAuthenticated)
}

// Fail moves any in-flight state to error. It is a no-op from anonymous so a
// stray failure signal cannot resurrect a dead attempt.
func (g *Gate) Fail() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateAnonymous {
		return
	}
	g.state = StateError
}

// Reset returns the gate to anonymous. Used on logout and on session
// invalidation signals from the backend.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateAnonymous
}

func (g *Gate) transition(from, to GateState) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != from {
		return ErrInvalidTransition
	}
	g.state = to
	return nil
}
