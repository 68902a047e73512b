// Package cache implements the in-memory avatar cache: a byte-bounded,
// strict-LRU map from contact key to decoded image.
//
// Key characteristics:
//   - Capacity is a byte budget, fixed at construction
//   - Entries are charged their pixel buffer size (Image.ByteSize)
//   - Put is insert-if-absent: the first writer for a key wins
//   - Get refreshes recency; eviction removes least recently accessed first
//
// All operations are safe for concurrent use. Size accounting and recency
// order are kept under a single mutex so they can never disagree.
package cache

import (
	"container/list"
	"sync"

	"github.com/marmos91/contactpic/pkg/avatar"
)

// Cache is a byte-bounded LRU image cache.
type Cache struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	order    *list.List // front = most recently used
	entries  map[avatar.Key]*list.Element

	rejectOversized bool
	metrics         Metrics

	hits      uint64
	misses    uint64
	inserts   uint64
	evictions uint64
	rejects   uint64
}

type entry struct {
	key   avatar.Key
	image *avatar.Image
	size  int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithRejectOversized makes Put refuse any image whose size alone exceeds
// the capacity. By default such an image is admitted after evicting every
// other entry, leaving the cache temporarily over budget.
func WithRejectOversized() Option {
	return func(c *Cache) {
		c.rejectOversized = true
	}
}

// WithMetrics attaches a metrics sink. A nil sink disables metrics.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a cache bounded to capacity bytes.
//
// A capacity of zero or less yields a cache that only ever holds the single
// most recent entry (or nothing, with WithRejectOversized).
func New(capacity int64, opts ...Option) *Cache {
	if capacity < 0 {
		capacity = 0
	}

	c := &Cache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[avatar.Key]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the image cached for key and marks it most recently used.
func (c *Cache) Get(key avatar.Key) (*avatar.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		recordMiss(c.metrics)
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	recordHit(c.metrics)
	return elem.Value.(*entry).image, true
}

// Put inserts image under key if the key is not already present and
// reports whether it was inserted. An existing entry is neither replaced
// nor refreshed.
func (c *Cache) Put(key avatar.Key, image *avatar.Image) bool {
	if image == nil {
		return false
	}
	size := image.ByteSize()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return false
	}

	if size > c.capacity && c.rejectOversized {
		c.rejects++
		return false
	}

	elem := c.order.PushFront(&entry{key: key, image: image, size: size})
	c.entries[key] = elem
	c.size += size
	c.inserts++
	recordInsert(c.metrics, size)

	c.evictLocked()
	recordSize(c.metrics, c.size, len(c.entries))
	return true
}

// evictLocked drops entries from the LRU end until the cache fits its
// capacity. The entry at the front is never evicted, so an oversized
// insert survives alone.
func (c *Cache) evictLocked() {
	for c.size > c.capacity && c.order.Len() > 1 {
		back := c.order.Back()
		c.removeElementLocked(back)
		c.evictions++
		recordEviction(c.metrics)
	}
}

func (c *Cache) removeElementLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	c.order.Remove(elem)
	delete(c.entries, e.key)
	c.size -= e.size
}

// Remove deletes key from the cache and reports whether it was present.
func (c *Cache) Remove(key avatar.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElementLocked(elem)
	recordSize(c.metrics, c.size, len(c.entries))
	return true
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[avatar.Key]*list.Element)
	c.size = 0
	recordSize(c.metrics, 0, 0)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Size returns the resident size in bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity returns the configured byte budget.
func (c *Cache) Capacity() int64 {
	return c.capacity
}

// Keys returns the cached keys from most to least recently used.
func (c *Cache) Keys() []avatar.Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]avatar.Key, 0, len(c.entries))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry).key)
	}
	return keys
}

// Stats is a point-in-time snapshot of cache state and counters.
type Stats struct {
	Entries   int    `json:"entries"`
	Size      int64  `json:"size_bytes"`
	Capacity  int64  `json:"capacity_bytes"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Inserts   uint64 `json:"inserts"`
	Evictions uint64 `json:"evictions"`
	Rejects   uint64 `json:"rejects"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the cache.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Entries:   len(c.entries),
		Size:      c.size,
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Inserts:   c.inserts,
		Evictions: c.evictions,
		Rejects:   c.rejects,
	}
}
