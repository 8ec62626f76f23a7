// Package cache implements the table-scan cache described in §5: a
// bounded, keyed memoization layer with LRU-class eviction and an
// at-most-one-decode contract, built on golang.org/x/sync/singleflight so
// concurrent lookups for the same key collapse into a single decode.
package cache

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Key identifies one memoized record: the owning table and its primary
// key bytes.
type Key struct {
	TableID uint32
	Record  string // record key, as a string so it can be a map key
}

type entry struct {
	value interface{}
}

// Cache memoizes decoded records keyed by (table_id, record_key), with the
// same LRU order and single shared load per key as the pager's page cache.
// Unlike the page cache it has no pinning: once it holds more than max
// entries it evicts the least recently used entry unconditionally.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	lru     []Key
	max     int

	group singleflight.Group
}

// New returns a cache bounded to max entries.
func New(max int) *Cache {
	if max <= 0 {
		max = 1024
	}
	return &Cache{entries: make(map[Key]*entry), max: max}
}

// GetOrLoad returns the cached value for key, loading it via load if
// absent. Concurrent calls for the same key share one load.
func (c *Cache) GetOrLoad(key Key, load func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.touch(key)
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(fmt.Sprintf("%d:%s", key.TableID, key.Record), func() (interface{}, error) {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			c.mu.Unlock()
			return e.value, nil
		}
		c.mu.Unlock()

		val, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = &entry{value: val}
		c.touch(key)
		c.evict()
		c.mu.Unlock()
		return val, nil
	})
	return v, err
}

func (c *Cache) touch(key Key) {
	for i, k := range c.lru {
		if k == key {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			break
		}
	}
	c.lru = append(c.lru, key)
}

func (c *Cache) evict() {
	for len(c.entries) > c.max && len(c.lru) > 0 {
		oldest := c.lru[0]
		c.lru = c.lru[1:]
		delete(c.entries, oldest)
	}
}
