package navigation

// Package navigation keeps a bounded trail of recently visited routes so the
// front end can offer "back to previous module/search" affordances. Entries
// are immutable once recorded; the buffer is append-and-trim only.

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries retained per trail.
const DefaultCapacity = 10

// Context tags which surface an entry was recorded from.
type Context string

const (
	ContextAdmin   Context = "admin"
	ContextLearner Context = "learner"
	// ContextNone is used when the surface is unknown.
	ContextNone Context = ""
)

// Entry is a single visited route. ModuleID and Search are optional.
type Entry struct {
	Path     string    `json:"path"`
	ModuleID string    `json:"module_id,omitempty"`
	At       time.Time `json:"at"`
	Context  Context   `json:"context,omitempty"`
	Search   string    `json:"search,omitempty"`
}

// History is a fixed-capacity ring of entries, newest first on read.
// Methods are safe for concurrent use.
type History struct {
	mu  sync.Mutex
	cap int
	// ring holds entries oldest to newest; append-and-trim keeps len <= cap.
	ring []Entry
	now  func() time.Time
}

// HistoryConfig groups constructor options.
type HistoryConfig struct {
	Capacity int
	Now      func() time.Time
}

// NewHistory creates a History. Zero or negative capacity falls back to
// DefaultCapacity.
func NewHistory(cfg HistoryConfig) *History {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &History{
		cap:  capacity,
		ring: make([]Entry, 0, capacity),
		now:  nowFn,
	}
}

// Record appends a visit. The stored entry's timestamp is assigned here when
// the caller left it zero.
func (h *History) Record(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.At.IsZero() {
		e.At = h.now()
	}
	h.ring = append(h.ring, e)
	if len(h.ring) > h.cap {
		h.ring = h.ring[len(h.ring)-h.cap:]
	}
}

// Recent returns up to n entries, most recent first. n <= 0 returns all
// retained entries.
func (h *History) Recent(n int) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || n > len(h.ring) {
		n = len(h.ring)
	}
	out := make([]Entry, 0, n)
	for i := len(h.ring) - 1; i >= len(h.ring)-n; i-- {
		out = append(out, h.ring[i])
	}
	return out
}

// LastModule returns the most recent entry that carries a module identifier.
func (h *History) LastModule() (Entry, bool) {
	return h.lastMatch(func(e Entry) bool { return e.ModuleID != "" })
}

// LastSearch returns the most recent entry that carries search state.
func (h *History) LastSearch() (Entry, bool) {
	return h.lastMatch(func(e Entry) bool { return e.Search != "" })
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ring)
}

func (h *History) lastMatch(match func(Entry) bool) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.ring) - 1; i >= 0; i-- {
		if match(h.ring[i]) {
			return h.ring[i], true
		}
	}
	return Entry{}, false
}
