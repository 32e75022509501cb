package service

import (
	"sync"
	"time"

	"github.com/novellms/lms-gateway/internal/domain/navigation"
	lmserrors "github.com/novellms/lms-gateway/internal/errors"
)

// NavigationServiceOptions groups dependencies for NavigationService.
type NavigationServiceOptions struct {
	// Capacity per session history. Zero uses navigation.DefaultCapacity.
	Capacity int
	// Now is injectable for tests.
	Now func() time.Time
}

// NavigationService keeps a bounded visit history per gateway session.
// Histories live only as long as the process; they are a UX convenience,
// not a record.
type NavigationService struct {
	capacity int
	now      func() time.Time

	mu        sync.Mutex
	histories map[string]*navigation.History
}

// NewNavigationService constructs a NavigationService.
func NewNavigationService(opts NavigationServiceOptions) *NavigationService {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = navigation.DefaultCapacity
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &NavigationService{
		capacity:  capacity,
		now:       nowFn,
		histories: make(map[string]*navigation.History),
	}
}

// Visit records a navigation entry for the session.
func (s *NavigationService) Visit(sessionID string, entry navigation.Entry) error {
	if sessionID == "" {
		return lmserrors.Validation("session ID is required")
	}
	if entry.Path == "" {
		return lmserrors.Validation("path is required")
	}
	s.historyFor(sessionID).Record(entry)
	return nil
}

// Recent returns up to n most recent entries for the session, newest first.
func (s *NavigationService) Recent(sessionID string, n int) []navigation.Entry {
	return s.historyFor(sessionID).Recent(n)
}

// LastModule returns the most recently visited module entry, if any.
func (s *NavigationService) LastModule(sessionID string) (navigation.Entry, bool) {
	return s.historyFor(sessionID).LastModule()
}

// LastSearch returns the most recent entry carrying a search query, if any.
func (s *NavigationService) LastSearch(sessionID string) (navigation.Entry, bool) {
	return s.historyFor(sessionID).LastSearch()
}

// Drop discards the session's history. Called on logout.
func (s *NavigationService) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, sessionID)
}

func (s *NavigationService) historyFor(sessionID string) *navigation.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.histories[sessionID]
	if !ok {
		history = navigation.NewHistory(navigation.HistoryConfig{Capacity: s.capacity, Now: s.now})
		s.histories[sessionID] = history
	}
	return history
}
