package service

import (
	"context"
	"time"

	"github.com/novellms/lms-gateway/internal/cache"
	domainauth "github.com/novellms/lms-gateway/internal/domain/auth"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
	"github.com/novellms/lms-gateway/internal/ports"
)

// DefaultPermissionTTL bounds how long a cached role resolution is trusted.
const DefaultPermissionTTL = 5 * time.Minute

const resolveRoleOp = "resolveRole"

// PermissionResolverOptions groups dependencies for PermissionResolver.
type PermissionResolverOptions struct {
	Source ports.RoleSource
	Cache  ports.PermissionCache
	// TTL after which a cached entry is treated as absent. Zero uses
	// DefaultPermissionTTL.
	TTL time.Duration
	// Now is injectable for tests.
	Now func() time.Time
}

// PermissionResolver maps an identity to its role class with a time-boxed
// cache in front of the backend lookup. Concurrent resolutions for the same
// identity share one in-flight backend call.
type PermissionResolver struct {
	source    ports.RoleSource
	cache     ports.PermissionCache
	ttl       time.Duration
	now       func() time.Time
	coalescer cache.Coalescer
}

// NewPermissionResolver constructs a PermissionResolver.
func NewPermissionResolver(opts PermissionResolverOptions) *PermissionResolver {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultPermissionTTL
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &PermissionResolver{
		source: opts.Source,
		cache:  opts.Cache,
		ttl:    ttl,
		now:    nowFn,
	}
}

// Resolve returns the identity's role resolution. A fresh cache entry is
// served without any backend call. Failures are surfaced as the failed
// outcome and never cached, so the next explicit caller retries; there is no
// timer-driven retry here.
func (r *PermissionResolver) Resolve(ctx context.Context, ref ports.BackendRef) domainauth.RoleResolution {
	if ref.Identity == "" {
		return domainauth.ResolutionFailed(lmserrors.Validation("identity is required"))
	}

	if entry, ok := r.lookupFresh(ctx, ref.Identity); ok {
		return domainauth.Resolved(entry.Role)
	}

	key := cache.Key(resolveRoleOp, ref.Identity)
	entry, _, err := cache.DoCtx(ctx, &r.coalescer, key, func(ctx context.Context) (ports.PermissionEntry, error) {
		// Re-check under the flight: a caller that queued behind a
		// just-finished resolution can use its result.
		if cached, ok := r.lookupFresh(ctx, ref.Identity); ok {
			return cached, nil
		}

		role, fetchErr := r.source.FetchRole(ctx, ref)
		if fetchErr != nil {
			return ports.PermissionEntry{}, fetchErr
		}
		fresh := ports.PermissionEntry{
			Identity:   ref.Identity,
			Role:       role,
			ResolvedAt: r.now(),
		}
		if setErr := r.cache.Set(ctx, fresh); setErr != nil {
			// A broken cache degrades to resolve-every-time; the
			// resolution itself succeeded.
			return fresh, nil
		}
		return fresh, nil
	})
	if err != nil {
		return domainauth.ResolutionFailed(lmserrors.Wrap(err, lmserrors.ErrCodePermissionResolution, "resolve role"))
	}
	return domainauth.Resolved(entry.Role)
}

// Invalidate drops the cached resolution for an identity, forcing the next
// Resolve to hit the backend. Called after role-changing actions and on
// logout.
func (r *PermissionResolver) Invalidate(ctx context.Context, identity string) error {
	r.coalescer.Forget(cache.Key(resolveRoleOp, identity))
	return r.cache.Invalidate(ctx, identity)
}

// lookupFresh returns the cached entry when present and younger than the TTL.
// Stale or unreadable entries count as absent.
func (r *PermissionResolver) lookupFresh(ctx context.Context, identity string) (ports.PermissionEntry, bool) {
	entry, ok, err := r.cache.Get(ctx, identity)
	if err != nil || !ok {
		return ports.PermissionEntry{}, false
	}
	if r.now().Sub(entry.ResolvedAt) >= r.ttl {
		return ports.PermissionEntry{}, false
	}
	return entry, true
}
