package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		tag  string
		want Role
	}{
		{"admin", RoleAdmin},
		{"content_editor", RoleContentEditor},
		{"student", RoleStudent},
		{"tl", RoleTeamLead},
		{"none", RoleNone},
		{"", RoleNone},
		{"superuser", RoleNone},
		{"Admin", RoleNone}, // tags are case-sensitive on the wire
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRole(tt.tag), "tag %q", tt.tag)
	}
}

func TestRole_Destination(t *testing.T) {
	assert.Equal(t, "/", RoleAdmin.Destination())
	assert.Equal(t, "/modules", RoleContentEditor.Destination())
	assert.Equal(t, "/dashboard", RoleStudent.Destination())
	assert.Equal(t, "/dashboard", RoleTeamLead.Destination())
	assert.Equal(t, "/login?reason=insufficient-permissions", RoleNone.Destination())
}

func TestRole_Satisfies(t *testing.T) {
	assert.True(t, RoleAdmin.Satisfies(RoleStudent))
	assert.True(t, RoleAdmin.Satisfies(RoleAdmin))
	assert.True(t, RoleContentEditor.Satisfies(RoleStudent))
	assert.False(t, RoleStudent.Satisfies(RoleContentEditor))
	assert.False(t, RoleTeamLead.Satisfies(RoleStudent))
	assert.False(t, RoleNone.Satisfies(RoleTeamLead))

	// A requirement of none is a no-op gate.
	assert.True(t, RoleNone.Satisfies(RoleNone))
	assert.True(t, RoleStudent.Satisfies(RoleNone))
}

func TestRoleResolution_Constructors(t *testing.T) {
	res := Resolved(RoleContentEditor)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, RoleContentEditor, res.Role)
	assert.NoError(t, res.Err)

	// Resolving "none" collapses to the authoritative no-role answer.
	res = Resolved(RoleNone)
	assert.Equal(t, OutcomeNoRole, res.Outcome)

	res = NoRoleAssigned()
	assert.Equal(t, OutcomeNoRole, res.Outcome)
	assert.Equal(t, RoleNone, res.Role)

	cause := errors.New("backend unreachable")
	res = ResolutionFailed(cause)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, RoleNone, res.Role)
	assert.ErrorIs(t, res.Err, cause)
}

func TestSession_IsAnonymous(t *testing.T) {
	assert.True(t, Session{}.IsAnonymous())
	assert.True(t, Session{Identity: "a@x.com", Role: RoleNone}.IsAnonymous())
	assert.True(t, Session{Role: RoleAdmin}.IsAnonymous())
	assert.False(t, Session{Identity: "a@x.com", Role: RoleStudent}.IsAnonymous())
}
