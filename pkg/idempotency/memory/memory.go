// Package memory implements idempotency.Store for a single process.
package memory

import (
	"bills/pkg/idempotency"
	"context"
	"sync"
	"time"
)

// Store keeps expiry times in a map. Expired entries are dropped lazily when
// they are looked up or overwritten.
type Store struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func New() *Store {
	return &Store{entries: make(map[string]time.Time), now: time.Now}
}

func (s *Store) IsProcessed(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.liveLocked(id), nil
}

func (s *Store) MarkProcessed(_ context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveLocked(id) {
		return false, nil
	}
	s.entries[id] = s.now().Add(ttl)

	return true, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) liveLocked(id string) bool {
	expiresAt, ok := s.entries[id]
	if !ok {
		return false
	}
	if !s.now().Before(expiresAt) {
		delete(s.entries, id)

		return false
	}

	return true
}

var _ idempotency.Store = (*Store)(nil)
