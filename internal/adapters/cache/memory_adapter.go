package cache

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/zatekoja/sisma-inspection/internal/domain/providers"
)

// MemoryAdapter is an in-process CacheProvider used when Redis is unavailable.
// State is lost on restart and not shared between replicas. At most maxEntries
// keys are held and none outlives ttl, whatever expiration it was written with.
type MemoryAdapter struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, memoryEntry]
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	counter   int64
	expiresAt time.Time
}

// NewMemoryAdapter creates a new in-memory cache adapter
func NewMemoryAdapter(maxEntries int, ttl time.Duration) *MemoryAdapter {
	return &MemoryAdapter{
		entries: expirable.NewLRU[string, memoryEntry](maxEntries, nil, ttl),
		now:     time.Now,
	}
}

var _ providers.CacheProvider = (*MemoryAdapter)(nil)

func (m *MemoryAdapter) live(key string, now time.Time) (memoryEntry, bool) {
	e, ok := m.entries.Get(key)
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
		m.entries.Remove(key)
		return memoryEntry{}, false
	}
	return e, true
}

// Len returns the number of keys currently held
func (m *MemoryAdapter) Len() int {
	return m.entries.Len()
}

// Get retrieves a value from cache
func (m *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key, m.now())
	if !ok || e.value == nil {
		return nil, fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a value in cache with expiration
func (m *MemoryAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if expirationSeconds > 0 {
		e.expiresAt = m.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	m.entries.Add(key, e)
	return nil
}

// Delete removes a value from cache
func (m *MemoryAdapter) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries.Remove(key)
	return nil
}

// Incr increments a fixed-window counter
func (m *MemoryAdapter) Incr(ctx context.Context, key string, windowSeconds int) (int64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.live(key, now)
	if !ok {
		e = memoryEntry{expiresAt: now.Add(time.Duration(windowSeconds) * time.Second)}
	}
	e.counter++
	m.entries.Add(key, e)

	remaining := int(math.Ceil(e.expiresAt.Sub(now).Seconds()))
	if remaining < 1 {
		remaining = 1
	}
	return e.counter, remaining, nil
}
