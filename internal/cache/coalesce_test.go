package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, Key("resolveRole", "a@x.com"), Key("resolveRole", "a@x.com"))
	assert.NotEqual(t, Key("resolveRole", "a@x.com"), Key("resolveRole", "b@x.com"))
	assert.NotEqual(t, Key("resolveRole", "a@x.com"), Key("fetchUser", "a@x.com"))
	// Length prefixing keeps split points distinct.
	assert.NotEqual(t, Key("op", "ab", "c"), Key("op", "a", "bc"))
}

func TestDo_CoalescesConcurrentCalls(t *testing.T) {
	var c Coalescer
	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := Do(&c, Key("op", "k"), func() (string, error) {
				calls.Add(1)
				close(started)
				<-release
				return "value", nil
			})
			require.NoError(t, err)
			results[i] = v
		}()
	}

	// Let the remaining callers pile onto the in-flight call before
	// releasing it.
	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "value", r)
	}
}

func TestDo_ErrorsAreShared(t *testing.T) {
	var c Coalescer
	boom := errors.New("boom")

	_, _, err := Do(&c, Key("op", "k"), func() (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	// Errors are not cached: the next call runs fn again.
	v, _, err := Do(&c, Key("op", "k"), func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDoCtx_ThreadsContext(t *testing.T) {
	var c Coalescer
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "present")

	v, _, err := DoCtx(ctx, &c, Key("op", "ctx"), func(ctx context.Context) (string, error) {
		s, _ := ctx.Value(ctxKey{}).(string)
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "present", v)
}

func TestForget(t *testing.T) {
	var c Coalescer
	var calls atomic.Int64

	fn := func() (int, error) {
		calls.Add(1)
		return int(calls.Load()), nil
	}

	_, _, err := Do(&c, "k", fn)
	require.NoError(t, err)
	c.Forget("k")
	v, _, err := Do(&c, "k", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
