package auth

// Package auth contains domain-level types for authentication, roles, and
// sessions. It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleContentEditor Role = "content_editor"
	RoleStudent       Role = "student"
	// RoleTeamLead is the "tl" user type returned by the permissions RPC.
	RoleTeamLead Role = "tl"
	// RoleNone means the identity authenticated but holds no LMS role.
	RoleNone Role = "none"
)

// rolePriority orders roles for gating decisions: a higher-priority role
// satisfies any requirement of a lower-priority one. Admin > content editor >
// student > team lead; none never satisfies anything.
var rolePriority = map[Role]int{
	RoleAdmin:         4,
	RoleContentEditor: 3,
	RoleStudent:       2,
	RoleTeamLead:      1,
	RoleNone:          0,
}

// Priority returns the gating priority of the role. Unknown roles rank as none.
func (r Role) Priority() int {
	return rolePriority[r]
}

// Satisfies reports whether the role meets the given requirement.
func (r Role) Satisfies(required Role) bool {
	if required == RoleNone {
		return true
	}
	p := r.Priority()
	return p > 0 && p >= required.Priority()
}

// ParseRole maps a backend user_type tag to a Role. Unrecognized tags map to
// RoleNone so a misbehaving backend can never grant access by accident.
func ParseRole(tag string) Role {
	switch Role(tag) {
	case RoleAdmin, RoleContentEditor, RoleStudent, RoleTeamLead:
		return Role(tag)
	default:
		return RoleNone
	}
}

// Destination returns the landing route for the role after a successful login.
func (r Role) Destination() string {
	switch r {
	case RoleAdmin:
		return "/"
	case RoleContentEditor:
		return "/modules"
	case RoleStudent, RoleTeamLead:
		return "/dashboard"
	default:
		return "/login?reason=insufficient-permissions"
	}
}

// Identity represents the authenticated principal resolved from the backend
// user document. The gateway holds only a cached, time-limited copy.
type Identity struct {
	// Name is the canonical user identifier, typically an email.
	Name     string
	FullName string
	Email    string
}

// Session is the gateway-side record persisted for an authenticated user.
// ID is an opaque session identifier (random URL-safe string).
// BackendSID carries the upstream document-store session cookie so document
// fetches on behalf of the user stay within the same backend session.
type Session struct {
	ID         string    `json:"id"`
	Identity   string    `json:"identity"`
	FullName   string    `json:"full_name"`
	Role       Role      `json:"role"`
	BackendSID string    `json:"backend_sid"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsAnonymous reports whether the session carries no usable role.
func (s Session) IsAnonymous() bool { return s.Role == RoleNone || s.Identity == "" }

// ResolutionOutcome distinguishes the three terminal states of a role lookup.
// "No role assigned" is an authoritative server answer; "failed" is a
// transient resolution error the caller may retry. The two must never be
// collapsed into one another.
type ResolutionOutcome int

const (
	// OutcomeResolved means the backend returned a recognized role.
	OutcomeResolved ResolutionOutcome = iota
	// OutcomeNoRole means the backend answered and the identity has no LMS role.
	OutcomeNoRole
	// OutcomeFailed means the lookup itself failed; the role is unknown.
	OutcomeFailed
)

// RoleResolution is the tagged result of a permission lookup.
type RoleResolution struct {
	Outcome ResolutionOutcome
	Role    Role
	Err     error
}

// Resolved constructs a successful resolution. A backend answer of "none" is
// normalized to the authoritative no-role case.
func Resolved(role Role) RoleResolution {
	if role == RoleNone {
		return NoRoleAssigned()
	}
	return RoleResolution{Outcome: OutcomeResolved, Role: role}
}

// NoRoleAssigned constructs an authoritative "no role" resolution.
func NoRoleAssigned() RoleResolution {
	return RoleResolution{Outcome: OutcomeNoRole, Role: RoleNone}
}

// ResolutionFailed constructs a transient-failure resolution.
func ResolutionFailed(err error) RoleResolution {
	return RoleResolution{Outcome: OutcomeFailed, Role: RoleNone, Err: err}
}
