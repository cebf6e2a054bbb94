package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// minSweepSize is the map size at which writes start sweeping expired items.
const minSweepSize = 1024

type item struct {
	value     []byte
	expiresAt time.Time
}

func (i item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

type MemoryStore struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time
	// sweepAt is the size that triggers the next sweep. It doubles past the
	// live item count so sweeping stays amortized O(1) per write.
	sweepAt int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]item), now: time.Now, sweepAt: minSweepSize}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok || it.expired(m.now()) {
		delete(m.items, key)
		return nil, ErrMiss
	}
	return append([]byte(nil), it.value...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(key, value, ttl)
	return nil
}

func (m *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if it, ok := m.items[key]; ok && !it.expired(m.now()) {
		return false, nil
	}
	m.put(key, value, ttl)
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryStore) DeleteIfValue(_ context.Context, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok || it.expired(m.now()) || !bytes.Equal(it.value, value) {
		return false, nil
	}
	delete(m.items, key)
	return true, nil
}

// Len counts stored items, expired ones included until they are swept.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// put must be called with mu held.
func (m *MemoryStore) put(key string, value []byte, ttl time.Duration) {
	if len(m.items) >= m.sweepAt {
		m.sweep()
	}
	it := item{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = it
}

func (m *MemoryStore) sweep() {
	now := m.now()
	for key, it := range m.items {
		if it.expired(now) {
			delete(m.items, key)
		}
	}
	m.sweepAt = max(minSweepSize, 2*len(m.items))
}
