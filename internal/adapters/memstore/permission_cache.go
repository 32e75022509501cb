package memstore

import (
	"context"
	"sync"

	"github.com/novellms/lms-gateway/internal/ports"
)

// PermissionCache is a process-wide map of role resolutions keyed by
// identity. It stores entries as-is; staleness is judged by the resolver
// against each entry's ResolvedAt, so the cache needs no clock of its own.
type PermissionCache struct {
	mu      sync.Mutex
	entries map[string]ports.PermissionEntry
}

// NewPermissionCache creates an empty permission cache.
func NewPermissionCache() *PermissionCache {
	return &PermissionCache{entries: make(map[string]ports.PermissionEntry)}
}

func (c *PermissionCache) Get(_ context.Context, identity string) (ports.PermissionEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[identity]
	return entry, ok, nil
}

func (c *PermissionCache) Set(_ context.Context, entry ports.PermissionEntry) error {
	if entry.Identity == "" {
		return errEmptyIdentity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Identity] = entry
	return nil
}

func (c *PermissionCache) Invalidate(_ context.Context, identity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, identity)
	return nil
}

// Len returns the number of cached entries.
func (c *PermissionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type emptyIdentityError struct{}

func (emptyIdentityError) Error() string { return "identity cannot be empty" }

var errEmptyIdentity error = emptyIdentityError{}
