package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// LRU implements ChunkCache with least-recently-used eviction.
type LRU struct {
	mu        sync.Mutex
	capacity  int64 // bytes
	size      int64
	items     map[Key]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	block []float64
}

// NewLRU creates an LRU chunk cache bounded to capacity bytes of decoded
// chunk data.
func NewLRU(capacity int64) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a cached block.
func (c *LRU) Get(key Key) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).block, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a block, evicting least-recently-used entries as needed.
func (c *LRU) Set(key Key, block []float64) {
	cost := int64(len(block)) * 8
	if cost > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.size += cost - int64(len(ent.Value.(*entry).block))*8
		ent.Value.(*entry).block = block
		c.evictList.MoveToFront(ent)
	} else {
		c.items[key] = c.evictList.PushFront(&entry{key: key, block: block})
		c.size += cost
	}

	for c.size > c.capacity {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		ent := oldest.Value.(*entry)
		c.evictList.Remove(oldest)
		delete(c.items, ent.key)
		c.size -= int64(len(ent.block)) * 8
	}
}

// Stats returns cumulative hit and miss counts.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached blocks.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}
