// Package cache provides a byte-size-capped LRU for rendered
// thumbnails. The generic LRU used elsewhere evicts by entry count
// only; thumbnails need eviction by total bytes held.
package cache

import (
	"container/list"
	"sync"
)

type ByteCache struct {
	capacity int
	maxBytes int64
	bytes    int64
	items    map[string]*list.Element
	order    *list.List
	mu       sync.RWMutex
}

type entry struct {
	key  string
	data []byte
}

func NewByteCache(capacity int, maxBytes int64) *ByteCache {
	return &ByteCache{
		capacity: capacity,
		maxBytes: maxBytes,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *ByteCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry).data, true
	}
	return nil, false
}

func (c *ByteCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(data))
	if size > c.maxBytes {
		// Never let one oversized entry flush the whole cache.
		return
	}

	if elem, ok := c.items[key]; ok {
		old := elem.Value.(*entry)
		c.bytes += size - int64(len(old.data))
		old.data = data
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.capacity || (c.bytes+size > c.maxBytes && c.order.Len() > 0) {
		c.evictOldest()
	}

	elem := c.order.PushFront(&entry{key: key, data: data})
	c.items[key] = elem
	c.bytes += size
}

func (c *ByteCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

func (c *ByteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

func (c *ByteCache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bytes
}

func (c *ByteCache) evictOldest() {
	if elem := c.order.Back(); elem != nil {
		c.remove(elem)
	}
}

func (c *ByteCache) remove(elem *list.Element) {
	e := elem.Value.(*entry)
	c.order.Remove(elem)
	delete(c.items, e.key)
	c.bytes -= int64(len(e.data))
}
