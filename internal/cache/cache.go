// Package cache provides a generic in-memory TTL cache.
//
// Entries are immutable value replacements: a Set fully replaces the entry,
// there is no in-place mutation and therefore no lost-update hazard between
// concurrent readers and a writer refreshing an expired key.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Cache is a thread-safe TTL cache. A background janitor evicts expired
// entries so memory stays bounded under a fixed key space.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// New creates a cache whose janitor runs every cleanupInterval.
// Call Close to stop the janitor.
func New[K comparable, V any](cleanupInterval time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]entry[V]),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}

	return c
}

// Get returns the value for key if present and not expired. An expired entry
// behaves exactly like a miss.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (c *Cache[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	e := entry[V]{value: value, expiresAt: c.now().Add(ttl)}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache[K, V]) Delete(ctx context.Context, key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Flush removes every entry.
func (c *Cache[K, V]) Flush(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[K]entry[V])
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included until the
// janitor collects them.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor. The cache remains usable afterwards.
func (c *Cache[K, V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache[K, V]) evictExpired() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Key composes a deterministic cache key from a network tag and parts.
// The network is uppercased and every part lowercased so case variation in
// addresses never causes a spurious miss or duplicate entry.
func Key(network string, parts ...string) string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(network))
	for _, p := range parts {
		sb.WriteByte(':')
		sb.WriteString(strings.ToLower(p))
	}
	return sb.String()
}
