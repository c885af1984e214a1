// Package cache provides a bounded, time-expiring key/value cache with
// least-recently-used eviction.
//
// Three instances back the pipeline: token metadata, historical series, and
// category metadata. Expiry is lazy: entries are checked on access and
// evicted on insert-over-capacity, with no background sweeper.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a fixed-capacity TTL cache with LRU eviction. Safe for
// concurrent use; every read and write is atomic with respect to the others.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	ll    *list.List // front = most recently used
	items map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// New creates a cache holding at most capacity entries, each live for ttl.
func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		ll:       list.New(),
		items:    make(map[K]*list.Element, capacity),
	}
}

// Get returns the value for key. A missing or expired entry is a miss;
// expired entries are evicted on the spot. A hit refreshes recency.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}

	ent := el.Value.(*entry[K, V])
	if c.now().After(ent.expiresAt) {
		c.removeLocked(el)
		return zero, false
	}

	c.ll.MoveToFront(el)
	return ent.value, true
}

// Put stores value under key with a fresh TTL. Inserting beyond capacity
// evicts the least-recently-used entry first.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		if oldest := c.ll.Back(); oldest != nil {
			c.removeLocked(oldest)
		}
	}

	c.items[key] = c.ll.PushFront(&entry[K, V]{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})
}

// Len returns the number of entries currently stored, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// removeLocked drops an element from both structures. Caller must hold mu.
func (c *Cache[K, V]) removeLocked(el *list.Element) {
	ent := el.Value.(*entry[K, V])
	delete(c.items, ent.key)
	c.ll.Remove(el)
}
