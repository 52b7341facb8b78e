// internal/idempotency/memory_store.go
package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	rec     Record
	expires time.Time
}

// MemoryStore keeps records in process. Suitable for a single instance.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (s *MemoryStore) live(key string) (memoryItem, bool) {
	item, ok := s.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if !s.now().Before(item.expires) {
		delete(s.items, key)
		return memoryItem{}, false
	}
	return item, true
}

// Reserve creates the record if the key is absent or expired.
func (s *MemoryStore) Reserve(ctx context.Context, key string, rec Record, ttl time.Duration) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.live(key); ok {
		existing := item.rec
		return &existing, false, nil
	}
	s.items[key] = memoryItem{rec: rec, expires: s.now().Add(ttl)}
	return nil, true, nil
}

// Get returns the record under key, or nil if absent.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.live(key)
	if !ok {
		return nil, nil
	}
	rec := item.rec
	return &rec, nil
}

// Put overwrites the record under key.
func (s *MemoryStore) Put(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryItem{rec: rec, expires: s.now().Add(ttl)}
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Sweep drops expired records. Run periodically to bound memory.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.items {
		if _, ok := s.live(key); !ok {
			n++
		}
	}
	return n
}
