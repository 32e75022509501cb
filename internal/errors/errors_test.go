package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeNetwork, "login request failed")

	assert.Equal(t, "login request failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := InvalidCredentials("login rejected")
	assert.Equal(t, "login rejected", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestWrap_NilCause(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeNetwork, "no-op"))
	assert.Nil(t, Wrapf(nil, ErrCodeNetwork, "no-op %d", 1))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		err  error
		pred func(error) bool
	}{
		{InvalidCredentials("x"), IsInvalidCredentials},
		{Network("x"), IsNetwork},
		{PermissionResolution("x"), IsPermissionResolution},
		{NoRoleAssigned("x"), IsNoRoleAssigned},
		{SessionExpired("x"), IsSessionExpired},
		{NotFound("x"), IsNotFound},
		{Validation("x"), IsValidation},
	}
	for _, tt := range tests {
		assert.True(t, tt.pred(tt.err), "%v", tt.err)
		assert.False(t, tt.pred(stderrors.New("plain")), "plain error must not match")
	}
}

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	inner := NoRoleAssigned("no recognized role")
	outer := fmt.Errorf("login flow: %w", inner)

	assert.True(t, IsNoRoleAssigned(outer))
	assert.False(t, IsInvalidCredentials(outer))
}

func TestCode(t *testing.T) {
	require.Equal(t, ErrCodeTimeout, Code(&AppError{Code: ErrCodeTimeout, Message: "deadline"}))
	assert.Equal(t, ErrCodeNoRoleAssigned, Code(fmt.Errorf("wrapped: %w", NoRoleAssigned("x"))))
	assert.Equal(t, ErrCodeInternal, Code(stderrors.New("plain")))
}
