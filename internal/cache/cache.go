package cache

import (
	"crypto/sha256"
	"sync"
)

// Key is the SHA-256 digest of a shader source.
type Key [sha256.Size]byte

// KeyOf returns the key of source.
func KeyOf(source string) Key { return sha256.Sum256([]byte(source)) }

// Cache is an LRU map from source digests to derived values.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[Key]*node[V]
	order    recency[V]
	inflight map[Key]*call[V]
	stats    Stats
}

// call is a computation in progress.
type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Stats counts cache activity.
type Stats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// New returns a cache holding at most capacity entries. A capacity of 0
// or less means unbounded.
func New[V any](capacity int) *Cache[V] {
	return &Cache[V]{
		capacity: capacity,
		entries:  make(map[Key]*node[V]),
		inflight: make(map[Key]*call[V]),
	}
}

// Get returns the value stored under key.
func (c *Cache[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	c.order.touch(n)
	return n.value, true
}

// GetOrCompute returns the value stored under key, computing and storing
// it on a miss. compute runs without the cache lock held. Errors are
// returned to every waiting caller and nothing is stored.
func (c *Cache[V]) GetOrCompute(key Key, compute func() (V, error)) (V, error) {
	c.mu.Lock()
	if n, ok := c.entries[key]; ok {
		c.stats.Hits++
		c.order.touch(n)
		c.mu.Unlock()
		return n.value, nil
	}
	if cl, ok := c.inflight[key]; ok {
		c.stats.Hits++
		c.mu.Unlock()
		<-cl.done
		return cl.value, cl.err
	}
	c.stats.Misses++
	cl := &call[V]{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.value, cl.err = compute()

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil {
		c.storeLocked(key, cl.value)
	}
	c.mu.Unlock()
	close(cl.done)
	return cl.value, cl.err
}

// Set stores value under key.
func (c *Cache[V]) Set(key Key, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(key, value)
}

func (c *Cache[V]) storeLocked(key Key, value V) {
	if n, ok := c.entries[key]; ok {
		n.value = value
		c.order.touch(n)
		return
	}
	n := &node[V]{key: key, value: value}
	c.entries[key] = n
	c.order.pushFront(n)
	for c.capacity > 0 && c.order.len > c.capacity {
		old := c.order.popBack()
		delete(c.entries, old.key)
		c.stats.Evictions++
	}
}

// Delete removes key and reports whether it was present.
func (c *Cache[V]) Delete(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.entries[key]
	if ok {
		c.order.unlink(n)
		delete(c.entries, key)
	}
	return ok
}

// Len returns the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Len = len(c.entries)
	return s
}
