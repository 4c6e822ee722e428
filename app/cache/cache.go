// Package cache holds the process-lifetime poem caches. Both tiers share
// one bounded-map implementation so the eviction policy lives in exactly
// one place.
package cache

import (
	"sync"

	"github.com/weehan299/poetica/app/database"
)

// Bounded is a concurrency-safe map with a fixed capacity. When an insert
// exceeds the capacity, the earliest-inserted key is evicted. This is
// insertion-order (approximate FIFO) eviction, not LRU: reads and value
// updates do not refresh a key's position. Entries have no TTL; they live
// until evicted or the process exits.
type Bounded[V any] struct {
	mu       sync.Mutex
	capacity int
	values   map[string]V
	order    []string
}

func NewBounded[V any](capacity int) *Bounded[V] {
	return &Bounded[V]{
		capacity: capacity,
		values:   make(map[string]V, capacity),
	}
}

func (b *Bounded[V]) Put(key string, value V) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.values[key]; exists {
		// Update in place without resetting the eviction position.
		b.values[key] = value
		return
	}

	b.values[key] = value
	b.order = append(b.order, key)

	for len(b.order) > b.capacity {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.values, oldest)
	}
}

func (b *Bounded[V]) Get(key string) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value, ok := b.values[key]
	return value, ok
}

func (b *Bounded[V]) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.values[key]; !exists {
		return
	}

	delete(b.values, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *Bounded[V]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.values)
}

func (b *Bounded[V]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values = make(map[string]V, b.capacity)
	b.order = nil
}

const (
	MetaCapacity   = 100
	RecentCapacity = 10
)

// PoemCache is the two-tier cache: lightweight metadata for list views and
// a much smaller set of recently read full poems.
type PoemCache struct {
	meta   *Bounded[database.PoemMeta]
	recent *Bounded[database.Poem]
}

func NewPoemCache() *PoemCache {
	return &PoemCache{
		meta:   NewBounded[database.PoemMeta](MetaCapacity),
		recent: NewBounded[database.Poem](RecentCapacity),
	}
}

func (c *PoemCache) PutMeta(items []database.PoemMeta) {
	for _, item := range items {
		c.meta.Put(item.ID, item)
	}
}

func (c *PoemCache) Meta(id string) (database.PoemMeta, bool) {
	return c.meta.Get(id)
}

func (c *PoemCache) PutRecent(poem database.Poem) {
	c.recent.Put(poem.ID, poem)
}

func (c *PoemCache) Recent(id string) (database.Poem, bool) {
	return c.recent.Get(id)
}

func (c *PoemCache) Forget(id string) {
	c.meta.Delete(id)
	c.recent.Delete(id)
}

func (c *PoemCache) Clear() {
	c.meta.Clear()
	c.recent.Clear()
}
