package auth

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_HappyPath(t *testing.T) {
	g := NewGate()
	assert.Equal(t, StateAnonymous, g.State())
	assert.False(t, g.Busy())

	require.NoError(t, g.BeginLogin())
	assert.Equal(t, StateAuthenticating, g.State())
	assert.True(t, g.Busy())

	require.NoError(t, g.BeginRedirect())
	assert.Equal(t, StateRedirecting, g.State())
	assert.True(t, g.Busy())

	require.NoError(t, g.Complete())
	assert.Equal(t, StateAuthenticated, g.State())
	assert.False(t, g.Busy())
}

func TestGate_DoubleSubmitIsNoOp(t *testing.T) {
	g := NewGate()
	require.NoError(t, g.BeginLogin())

	err := g.BeginLogin()
	assert.ErrorIs(t, err, ErrLoginInProgress)
	assert.Equal(t, StateAuthenticating, g.State())

	// Still held while redirecting.
	require.NoError(t, g.BeginRedirect())
	err = g.BeginLogin()
	assert.ErrorIs(t, err, ErrLoginInProgress)
}

func TestGate_ConcurrentSubmitsAdmitExactlyOne(t *testing.T) {
	g := NewGate()

	const submitters = 16
	var admitted, rejected int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range submitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.BeginLogin()
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				admitted++
				return
			}
			rejected++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, submitters-1, rejected)
}

func TestGate_RetryAfterError(t *testing.T) {
	g := NewGate()
	require.NoError(t, g.BeginLogin())
	g.Fail()
	assert.Equal(t, StateError, g.State())
	assert.False(t, g.Busy())

	// User retries from the error state.
	require.NoError(t, g.BeginLogin())
	assert.Equal(t, StateAuthenticating, g.State())
}

func TestGate_FailFromAnonymousIsNoOp(t *testing.T) {
	g := NewGate()
	g.Fail()
	assert.Equal(t, StateAnonymous, g.State())
}

func TestGate_ResetFromAnyState(t *testing.T) {
	g := NewGate()
	require.NoError(t, g.BeginLogin())
	require.NoError(t, g.BeginRedirect())
	require.NoError(t, g.Complete())

	g.Reset()
	assert.Equal(t, StateAnonymous, g.State())

	// Reset also recovers a stuck error state.
	require.NoError(t, g.BeginLogin())
	g.Fail()
	g.Reset()
	assert.Equal(t, StateAnonymous, g.State())
}

func TestGate_InvalidTransitions(t *testing.T) {
	g := NewGate()
	assert.ErrorIs(t, g.BeginRedirect(), ErrInvalidTransition)
	assert.ErrorIs(t, g.Complete(), ErrInvalidTransition)

	require.NoError(t, g.BeginLogin())
	require.NoError(t, g.BeginRedirect())
	require.NoError(t, g.Complete())
	assert.ErrorIs(t, g.BeginLogin(), ErrInvalidTransition)
}
