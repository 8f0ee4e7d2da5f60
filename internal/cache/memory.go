package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for single-instance deployments and
// tests. Expired entries are dropped lazily and on writes; when the store is
// full an arbitrary entry is evicted.
type MemoryStore struct {
	mu         sync.RWMutex
	now        func() time.Time
	maxEntries int
	entries    map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an in-process store. A nil clock uses time.Now.
func NewMemoryStore(maxEntries int, now func() time.Time) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:        now,
		maxEntries: maxEntries,
		entries:    make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		if current, ok := s.entries[key]; ok && !s.now().Before(current.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, ErrMiss
	}
	return cloneBytes(entry.value), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeLocked(key, value, ttl)
	return nil
}

func (s *MemoryStore) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveLocked(key) {
		return false, nil
	}
	s.storeLocked(key, value, ttl)
	return true, nil
}

func (s *MemoryStore) SetIfPresent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.liveLocked(key) {
		return false, nil
	}
	s.storeLocked(key, value, ttl)
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	return len(s.entries)
}

func (s *MemoryStore) liveLocked(key string) bool {
	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return false
	}
	return true
}

func (s *MemoryStore) storeLocked(key string, value []byte, ttl time.Duration) {
	if _, exists := s.entries[key]; !exists {
		s.cleanupLocked()
		if len(s.entries) >= s.maxEntries {
			s.evictOneLocked()
		}
	}
	s.entries[key] = memoryEntry{value: cloneBytes(value), expiresAt: s.now().Add(ttl)}
}

func (s *MemoryStore) cleanupLocked() {
	now := s.now()
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

func (s *MemoryStore) evictOneLocked() {
	for key := range s.entries {
		delete(s.entries, key)
		return
	}
}

func cloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out
}
