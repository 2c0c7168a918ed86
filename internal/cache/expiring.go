package cache

import (
	"encoding/json"
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	createdAt time.Time
}

// Expiring is a process-lifetime key/value cache with a fixed TTL. Expiry
// is checked on every read, not by a background sweep.
type Expiring[T any] struct {
	ttl   time.Duration
	mu    sync.Mutex
	store map[string]entry[T]
	now   func() time.Time
}

// NewExpiring creates a cache whose entries live for ttl.
func NewExpiring[T any](ttl time.Duration) *Expiring[T] {
	return &Expiring[T]{
		ttl:   ttl,
		store: make(map[string]entry[T]),
		now:   time.Now,
	}
}

// Get returns the cached value for key, or false when the key is absent
// or its entry has aged out.
func (c *Expiring[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.store[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.createdAt) > c.ttl {
		delete(c.store, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, restarting its TTL.
func (c *Expiring[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = entry[T]{value: value, createdAt: c.now()}
}

// StableKey serializes v to JSON for use as a cache key. encoding/json
// emits map keys in sorted order, so logically equal values map to the
// same key.
func StableKey(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
