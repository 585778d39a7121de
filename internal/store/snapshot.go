package store

import (
	"sort"
	"sync/atomic"
	"time"

	"sjsage522/lotteryworker/internal/lottery"
)

// Snapshot is a point-in-time, read-only view of every loaded history.
// Neither the snapshot nor the histories it returns may be mutated.
type Snapshot struct {
	histories map[string]*lottery.GameHistory
	loadedAt  time.Time
}

// NewSnapshot copies the map into a new snapshot
func NewSnapshot(histories map[string]*lottery.GameHistory) *Snapshot {
	m := make(map[string]*lottery.GameHistory, len(histories))
	for id, h := range histories {
		m[id] = h
	}
	return &Snapshot{histories: m, loadedAt: time.Now()}
}

// History returns a game's history
func (s *Snapshot) History(game string) (*lottery.GameHistory, bool) {
	h, ok := s.histories[game]
	return h, ok
}

// Games returns the sorted ids of the loaded histories
func (s *Snapshot) Games() []string {
	ids := make([]string, 0, len(s.histories))
	for id := range s.histories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of loaded histories
func (s *Snapshot) Len() int {
	return len(s.histories)
}

// LoadedAt returns when the snapshot was built
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Holder publishes the current snapshot to concurrent readers. Replacing it
// is a single pointer swap; readers never take a lock.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder creates a holder serving s
func NewHolder(s *Snapshot) *Holder {
	h := &Holder{}
	if s == nil {
		s = NewSnapshot(nil)
	}
	h.current.Store(s)
	return h
}

// Snapshot returns the current snapshot
func (h *Holder) Snapshot() *Snapshot {
	return h.current.Load()
}

// Swap installs a new snapshot and returns the previous one
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	return h.current.Swap(s)
}
