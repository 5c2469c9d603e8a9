package vector

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// regionCache keeps the most recently used regions of a lazy vector.
type regionCache[T Element] struct {
	mu        sync.Mutex
	capacity  int
	items     map[int]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type region[T Element] struct {
	index  int
	values []T
}

func newRegionCache[T Element](capacity int) *regionCache[T] {
	return &regionCache[T]{
		capacity:  capacity,
		items:     make(map[int]*list.Element),
		evictList: list.New(),
	}
}

func (c *regionCache[T]) get(index int) ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[index]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*region[T]).values, true
	}
	c.misses.Add(1)
	return nil, false
}

func (c *regionCache[T]) set(index int, values []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[index]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*region[T]).values = values
		return
	}

	for c.evictList.Len() >= c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}
		c.evictList.Remove(ent)
		delete(c.items, ent.Value.(*region[T]).index)
	}

	c.items[index] = c.evictList.PushFront(&region[T]{index: index, values: values})
}

func (c *regionCache[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *regionCache[T]) stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
