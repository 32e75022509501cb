package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
	mocks "github.com/novellms/lms-gateway/internal/mocks/auth"
	"github.com/novellms/lms-gateway/internal/ports"
)

func newResolver(source *mocks.StubRoleSource, now *time.Time) *PermissionResolver {
	return NewPermissionResolver(PermissionResolverOptions{
		Source: source,
		Cache:  mocks.NewMemoryPermissionCache(),
		Now:    func() time.Time { return *now },
	})
}

func TestPermissionResolver_ResolveAndCache(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	source := &mocks.StubRoleSource{Roles: map[string]domainauth.Role{"a@x.com": domainauth.RoleAdmin}}
	resolver := newResolver(source, &now)
	ctx := context.Background()
	ref := ports.BackendRef{SID: "sid", Identity: "a@x.com"}

	res := resolver.Resolve(ctx, ref)
	assert.Equal(t, domainauth.OutcomeResolved, res.Outcome)
	assert.Equal(t, domainauth.RoleAdmin, res.Role)
	assert.Equal(t, int64(1), source.Calls.Load())

	// A second resolve inside the TTL hits only the cache.
	res = resolver.Resolve(ctx, ref)
	assert.Equal(t, domainauth.RoleAdmin, res.Role)
	assert.Equal(t, int64(1), source.Calls.Load())

	// Past the TTL the entry is treated as absent.
	now = now.Add(DefaultPermissionTTL + time.Second)
	res = resolver.Resolve(ctx, ref)
	assert.Equal(t, domainauth.RoleAdmin, res.Role)
	assert.Equal(t, int64(2), source.Calls.Load())
}

func TestPermissionResolver_ConcurrentCallsShareOneLookup(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	source := &mocks.StubRoleSource{
		Roles: map[string]domainauth.Role{"a@x.com": domainauth.RoleStudent},
		Block: make(chan struct{}),
	}
	resolver := newResolver(source, &now)
	ref := ports.BackendRef{SID: "sid", Identity: "a@x.com"}

	const callers = 6
	results := make([]domainauth.RoleResolution, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = resolver.Resolve(context.Background(), ref)
		}()
	}

	// Hold the single backend lookup in flight until every caller queued.
	time.Sleep(50 * time.Millisecond)
	close(source.Block)
	wg.Wait()

	assert.Equal(t, int64(1), source.Calls.Load(), "concurrent callers must share one backend call")
	for _, res := range results {
		assert.Equal(t, domainauth.OutcomeResolved, res.Outcome)
		assert.Equal(t, domainauth.RoleStudent, res.Role)
	}
}

func TestPermissionResolver_NoRoleIsAuthoritative(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	source := &mocks.StubRoleSource{}
	resolver := newResolver(source, &now)

	res := resolver.Resolve(context.Background(), ports.BackendRef{SID: "sid", Identity: "ghost@x.com"})
	assert.Equal(t, domainauth.OutcomeNoRole, res.Outcome)
	assert.Equal(t, domainauth.RoleNone, res.Role)
	assert.NoError(t, res.Err)

	// The authoritative answer is cached like any successful resolution.
	res = resolver.Resolve(context.Background(), ports.BackendRef{SID: "sid", Identity: "ghost@x.com"})
	assert.Equal(t, domainauth.OutcomeNoRole, res.Outcome)
	assert.Equal(t, int64(1), source.Calls.Load())
}

func TestPermissionResolver_FailureIsNotCached(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	source := &mocks.StubRoleSource{Err: errors.New("backend down")}
	resolver := newResolver(source, &now)
	ref := ports.BackendRef{SID: "sid", Identity: "a@x.com"}

	res := resolver.Resolve(context.Background(), ref)
	assert.Equal(t, domainauth.OutcomeFailed, res.Outcome)
	require.Error(t, res.Err)
	assert.True(t, lmserrors.IsPermissionResolution(res.Err))

	// The next explicit call retries; nothing poisoned the cache.
	source.Err = nil
	source.Roles = map[string]domainauth.Role{"a@x.com": domainauth.RoleTeamLead}
	res = resolver.Resolve(context.Background(), ref)
	assert.Equal(t, domainauth.OutcomeResolved, res.Outcome)
	assert.Equal(t, domainauth.RoleTeamLead, res.Role)
	assert.Equal(t, int64(2), source.Calls.Load())
}

func TestPermissionResolver_Invalidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	source := &mocks.StubRoleSource{Roles: map[string]domainauth.Role{"a@x.com": domainauth.RoleAdmin}}
	resolver := newResolver(source, &now)
	ref := ports.BackendRef{SID: "sid", Identity: "a@x.com"}
	ctx := context.Background()

	_ = resolver.Resolve(ctx, ref)
	require.NoError(t, resolver.Invalidate(ctx, "a@x.com"))

	_ = resolver.Resolve(ctx, ref)
	assert.Equal(t, int64(2), source.Calls.Load(), "invalidation must force a fresh lookup")
}

func TestPermissionResolver_EmptyIdentity(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	resolver := newResolver(&mocks.StubRoleSource{}, &now)

	res := resolver.Resolve(context.Background(), ports.BackendRef{})
	assert.Equal(t, domainauth.OutcomeFailed, res.Outcome)
	assert.True(t, lmserrors.IsValidation(res.Err))
}
