package session

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	Entry
	expires time.Time
}

// MemoryStore is the single-process Store.  Expired entries are dropped
// lazily on read and by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uint64]memEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uint64]memEntry), now: time.Now}
}

func (m *MemoryStore) Set(_ context.Context, userID uint64, e Entry, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[userID] = memEntry{Entry: e, expires: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, userID uint64) (Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[userID]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if !m.now().Before(e.expires) {
		m.mu.Lock()
		if cur, still := m.entries[userID]; still && cur.expires.Equal(e.expires) {
			delete(m.entries, userID)
		}
		m.mu.Unlock()
		return Entry{}, false, nil
	}
	return e.Entry, true, nil
}

func (m *MemoryStore) Remove(_ context.Context, userID uint64) error {
	m.mu.Lock()
	delete(m.entries, userID)
	m.mu.Unlock()
	return nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}
