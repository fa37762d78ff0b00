package memory

import (
	"strings"
	"sync"
	"time"
)

// Cache is a lightweight in-process TTL cache. It backs editor sessions,
// curation drafts and the per-process tier of the lesson content cache.
type Cache struct {
	items map[string]*item
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type item struct {
	value      interface{}
	expiration time.Time
}

// New creates a new in-memory cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return newCache(ttl, 5*time.Minute, time.Now)
}

func newCache(ttl, sweep time.Duration, now func() time.Time) *Cache {
	cache := &Cache{
		items: make(map[string]*item),
		ttl:   ttl,
		now:   now,
		stop:  make(chan struct{}),
	}
	go cache.cleanup(sweep)
	return cache
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	itm, exists := c.items[key]
	if !exists || c.now().After(itm.expiration) {
		return nil, false
	}
	return itm.value, true
}

// Set stores a value in the cache with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with an explicit lifetime.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &item{value: value, expiration: c.now().Add(ttl)}
}

// Touch extends a live entry by the default TTL. It reports whether the key was present.
func (c *Cache) Touch(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	itm, ok := c.items[key]
	if !ok || c.now().After(itm.expiration) {
		return false
	}
	itm.expiration = c.now().Add(c.ttl)
	return true
}

// Delete removes a value from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// DeletePrefix removes every key starting with prefix and returns how many were dropped.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len counts live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	n := 0
	for _, itm := range c.items {
		if !now.After(itm.expiration) {
			n++
		}
	}
	return n
}

// Clear removes all items from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*item)
}

// Close stops the background sweeper.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanup removes expired items periodically.
func (c *Cache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, itm := range c.items {
				if now.After(itm.expiration) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// GetOrSet retrieves a value from cache or sets it using the provided function.
func (c *Cache) GetOrSet(key string, fn func() (interface{}, error)) (interface{}, error) {
	if val, found := c.Get(key); found {
		return val, nil
	}

	val, err := fn()
	if err != nil {
		return nil, err
	}

	c.Set(key, val)
	return val, nil
}

// GetAs is Get with a type assertion. A value of another type counts as a miss.
func GetAs[T any](c *Cache, key string) (T, bool) {
	var zero T
	raw, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Key joins parts with ':' to build a namespaced key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
