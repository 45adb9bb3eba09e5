package util

import "sync"

// LRUCache is a bounded map that drops its least recently used key once full.
// It is safe for concurrent use.
type LRUCache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	nodes    map[K]*lruNode[K, V]
	// head.next is the most recently used node, head.prev the least.
	head lruNode[K, V]
}

type lruNode[K comparable, V any] struct {
	key        K
	value      V
	prev, next *lruNode[K, V]
}

func NewLRUCache[K comparable, V any](capacity int) *LRUCache[K, V] {
	c := &LRUCache[K, V]{capacity: max(capacity, 1)}
	c.reset()
	return c
}

func (c *LRUCache[K, V]) reset() {
	c.nodes = make(map[K]*lruNode[K, V], c.capacity)
	c.head.prev = &c.head
	c.head.next = &c.head
}

func (c *LRUCache[K, V]) unlink(n *lruNode[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *LRUCache[K, V]) pushFront(n *lruNode[K, V]) {
	n.prev = &c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.nodes[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.unlink(n)
	c.pushFront(n)
	return n.value, true
}

func (c *LRUCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.nodes[key]; ok {
		n.value = value
		c.unlink(n)
		c.pushFront(n)
		return
	}
	if len(c.nodes) >= c.capacity {
		oldest := c.head.prev
		c.unlink(oldest)
		delete(c.nodes, oldest.key)
	}
	n := &lruNode[K, V]{key: key, value: value}
	c.pushFront(n)
	c.nodes[key] = n
}

func (c *LRUCache[K, V]) Evict(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.nodes[key]; ok {
		c.unlink(n)
		delete(c.nodes, key)
	}
}

func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

func (c *LRUCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}
