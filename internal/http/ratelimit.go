package httpx

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per identity. Entries idle past
// the retention window are evicted on the fly so the map stays bounded.
type LoginLimiter struct {
	perMinute int
	burst     int

	mu      sync.Mutex
	seen    map[string]*limiterEntry
	lastGC  time.Time
	retain  time.Duration
	nowFunc func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter creates a LoginLimiter admitting perMinute attempts with
// the given burst per identity.
func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	if perMinute < 1 {
		perMinute = 10
	}
	if burst < 1 {
		burst = 5
	}
	return &LoginLimiter{
		perMinute: perMinute,
		burst:     burst,
		seen:      make(map[string]*limiterEntry),
		retain:    10 * time.Minute,
		nowFunc:   time.Now,
	}
}

// Allow reports whether a login attempt for the identity may proceed now.
func (l *LoginLimiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	l.maybeGC(now)

	entry, ok := l.seen[identity]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.burst),
		}
		l.seen[identity] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

func (l *LoginLimiter) maybeGC(now time.Time) {
	if now.Sub(l.lastGC) < l.retain {
		return
	}
	l.lastGC = now
	for identity, entry := range l.seen {
		if now.Sub(entry.lastSeen) > l.retain {
			delete(l.seen, identity)
		}
	}
}
