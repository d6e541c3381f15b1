package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process; used when no Redis address is configured.
// Sessions idle for longer than ttl are treated as missing and removed by Prune.
type MemoryStore struct {
	mu    sync.RWMutex
	store map[string]Session
	ttl   time.Duration
}

// NewMemoryStore returns a store whose sessions expire after ttl; ttl <= 0 keeps them forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		store: make(map[string]Session),
		ttl:   ttl,
	}
}

func (m *MemoryStore) expired(s Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.UpdatedAt) > m.ttl
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.store[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(s, time.Now().UTC()) {
		m.mu.Lock()
		delete(m.store, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.UpdatedAt = time.Now().UTC()
	m.store[s.ID] = *s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

// Prune drops expired sessions and returns how many were removed.
func (m *MemoryStore) Prune() int {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.store {
		if m.expired(s, now) {
			delete(m.store, id)
			removed++
		}
	}
	return removed
}

// StartJanitor prunes expired sessions every interval until ctx is done.
func (m *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Prune()
			}
		}
	}()
}

func (m *MemoryStore) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
