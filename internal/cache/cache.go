// Package cache provides a bounded in-memory cache with eviction policies.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// EvictionPolicy defines how entries are evicted when the cache is full.
type EvictionPolicy string

const (
	// LRU evicts the least recently used entry.
	LRU EvictionPolicy = "lru"
	// LFU evicts the least frequently used entry.
	LFU EvictionPolicy = "lfu"
	// FIFO evicts the oldest entry.
	FIFO EvictionPolicy = "fifo"
)

// Cache is a bounded cache safe for concurrent use. Expired entries are
// dropped when they are read or when room is needed.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	data       map[K]*entry[K, V]
	evictList  *list.List
	maxEntries int
	policy     EvictionPolicy
	ttl        time.Duration
	onEvict    func(key K, value V)
	now        func() time.Time

	hits, misses, evictions int64
}

type entry[K comparable, V any] struct {
	key         K
	value       V
	element     *list.Element
	createTime  time.Time
	accessCount int64
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	maxEntries int
	policy     EvictionPolicy
	ttl        time.Duration
}

// WithMaxEntries sets the maximum number of entries. Zero means unbounded.
func WithMaxEntries(maxEntries int) Option {
	return func(c *config) {
		c.maxEntries = maxEntries
	}
}

// WithEvictionPolicy sets the eviction policy.
func WithEvictionPolicy(policy EvictionPolicy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// WithTTL sets the time-to-live for entries. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// New creates a cache holding at most 1000 LRU entries unless configured
// otherwise.
func New[K comparable, V any](opts ...Option) *Cache[K, V] {
	cfg := &config{maxEntries: 1000, policy: LRU}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Cache[K, V]{
		data:       make(map[K]*entry[K, V]),
		evictList:  list.New(),
		maxEntries: cfg.maxEntries,
		policy:     cfg.policy,
		ttl:        cfg.ttl,
		now:        time.Now,
	}
}

// OnEvict registers fn to be called with every evicted or expired entry.
// fn runs with the cache locked and must not call back into it.
func (c *Cache[K, V]) OnEvict(fn func(key K, value V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the value stored under key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.data[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if c.expired(ent) {
		c.remove(ent)
		c.misses++
		var zero V
		return zero, false
	}

	c.hits++
	ent.accessCount++
	if c.policy == LRU {
		c.evictList.MoveToFront(ent.element)
	}
	return ent.value, true
}

// Set stores value under key, evicting entries to stay within bounds.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.data[key]; ok {
		ent.value = value
		ent.createTime = c.now()
		ent.accessCount++
		if c.policy == LRU {
			c.evictList.MoveToFront(ent.element)
		}
		return
	}

	ent := &entry[K, V]{key: key, value: value, createTime: c.now(), accessCount: 1}
	ent.element = c.evictList.PushFront(ent)
	c.data[key] = ent

	for c.maxEntries > 0 && len(c.data) > c.maxEntries {
		c.evictOne()
	}
}

// Delete removes key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.data[key]; ok {
		c.remove(ent)
	}
}

// Len returns the number of stored entries, including expired ones not yet
// dropped.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *Cache[K, V]) expired(ent *entry[K, V]) bool {
	return c.ttl > 0 && c.now().Sub(ent.createTime) > c.ttl
}

// evictOne drops an expired entry if there is one, otherwise the victim of
// the policy.
func (c *Cache[K, V]) evictOne() {
	if c.ttl > 0 {
		for e := c.evictList.Back(); e != nil; e = e.Prev() {
			if ent := e.Value.(*entry[K, V]); c.expired(ent) {
				c.remove(ent)
				return
			}
		}
	}

	var victim *entry[K, V]
	switch c.policy {
	case LFU:
		for e := c.evictList.Back(); e != nil; e = e.Prev() {
			ent := e.Value.(*entry[K, V])
			if victim == nil || ent.accessCount < victim.accessCount {
				victim = ent
			}
		}
	default:
		if back := c.evictList.Back(); back != nil {
			victim = back.Value.(*entry[K, V])
		}
	}
	if victim != nil {
		c.evictions++
		c.remove(victim)
	}
}

func (c *Cache[K, V]) remove(ent *entry[K, V]) {
	delete(c.data, ent.key)
	c.evictList.Remove(ent.element)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:    len(c.data),
		MaxEntries: c.maxEntries,
		Policy:     string(c.policy),
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
	}
}

// Stats contains cache statistics.
type Stats struct {
	Entries    int
	MaxEntries int
	Policy     string
	Hits       int64
	Misses     int64
	Evictions  int64
}
