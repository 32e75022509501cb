package cache

// Package cache provides the request coalescing used by remote-call sites.
// Concurrent callers for the same (operation, params) tuple share one
// in-flight call instead of each hitting the backend.

import (
	"context"
	"hash/fnv"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// Coalescer deduplicates concurrent calls by key. The zero value is ready to
// use; it is safe for concurrent use.
type Coalescer struct {
	group singleflight.Group
}

// Key builds a coalescing key from an operation name and its parameters.
// Parameters are hashed so arbitrary values cannot collide with the
// operation-name namespace separator.
func Key(op string, params ...string) string {
	h := fnv.New64a()
	for _, p := range params {
		// Length-prefix each param so ("ab","c") != ("a","bc").
		_, _ = h.Write([]byte(strconv.Itoa(len(p))))
		_, _ = h.Write([]byte(p))
	}
	return op + ":" + strconv.FormatUint(h.Sum64(), 16)
}

// Do executes fn for the key, sharing the result with every concurrent caller
// of the same key. shared reports whether the result was given to more than
// one caller. The context is not passed to singleflight itself: the first
// caller's fn owns the call, so fn should capture its own context.
func Do[T any](c *Coalescer, key string, fn func() (T, error)) (T, bool, error) {
	v, err, shared := c.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, shared, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, shared, nil
	}
	return out, shared, nil
}

// DoCtx is Do with the caller's context threaded into fn.
func DoCtx[T any](ctx context.Context, c *Coalescer, key string, fn func(context.Context) (T, error)) (T, bool, error) {
	return Do(c, key, func() (T, error) {
		return fn(ctx)
	})
}

// Forget drops the in-flight entry for key so the next Do starts a fresh
// call. Used after invalidation to avoid serving a stale shared result.
func (c *Coalescer) Forget(key string) {
	c.group.Forget(key)
}
