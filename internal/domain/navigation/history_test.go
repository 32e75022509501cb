package navigation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_RecordAndRecent(t *testing.T) {
	h := NewHistory(HistoryConfig{})

	h.Record(Entry{Path: "/modules", Context: ContextAdmin})
	h.Record(Entry{Path: "/modules/intro-to-go", ModuleID: "intro-to-go", Context: ContextAdmin})
	h.Record(Entry{Path: "/dashboard", Context: ContextLearner})

	recent := h.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "/dashboard", recent[0].Path)
	assert.Equal(t, "/modules/intro-to-go", recent[1].Path)
	assert.Equal(t, "/modules", recent[2].Path)

	limited := h.Recent(2)
	require.Len(t, limited, 2)
	assert.Equal(t, "/dashboard", limited[0].Path)
}

func TestHistory_TrimsToCapacity(t *testing.T) {
	h := NewHistory(HistoryConfig{Capacity: 10})

	for i := range 15 {
		h.Record(Entry{Path: fmt.Sprintf("/modules/%d", i)})
	}

	assert.Equal(t, 10, h.Len())
	recent := h.Recent(0)
	require.Len(t, recent, 10)
	// Newest survives, oldest five were trimmed.
	assert.Equal(t, "/modules/14", recent[0].Path)
	assert.Equal(t, "/modules/5", recent[9].Path)
}

func TestHistory_AssignsTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h := NewHistory(HistoryConfig{Now: func() time.Time { return at }})

	h.Record(Entry{Path: "/modules"})
	recent := h.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, at, recent[0].At)

	// An explicit timestamp is kept as-is.
	explicit := at.Add(-time.Hour)
	h.Record(Entry{Path: "/dashboard", At: explicit})
	assert.Equal(t, explicit, h.Recent(1)[0].At)
}

func TestHistory_LastModule(t *testing.T) {
	h := NewHistory(HistoryConfig{})

	_, ok := h.LastModule()
	assert.False(t, ok)

	h.Record(Entry{Path: "/modules/a", ModuleID: "a"})
	h.Record(Entry{Path: "/modules/b", ModuleID: "b"})
	h.Record(Entry{Path: "/dashboard"})

	e, ok := h.LastModule()
	require.True(t, ok)
	assert.Equal(t, "b", e.ModuleID)
}

func TestHistory_LastSearch(t *testing.T) {
	h := NewHistory(HistoryConfig{})

	_, ok := h.LastSearch()
	assert.False(t, ok)

	h.Record(Entry{Path: "/modules", Search: "q=quiz"})
	h.Record(Entry{Path: "/modules/a", ModuleID: "a"})

	e, ok := h.LastSearch()
	require.True(t, ok)
	assert.Equal(t, "q=quiz", e.Search)
}
