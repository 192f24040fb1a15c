package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a size-bounded cache whose entries expire after a period of
// inactivity. Reading an entry renews its lifetime.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
	onEvict func(key string, value T)
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

var _ Cache[int] = (*LRUCache[int])(nil)

// NewLRUCache returns a cache holding at most maxSize entries, each idle for
// at most ttl.
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// OnEvict registers fn to run, under the cache lock, for every entry removed
// by capacity or expiry. Explicit deletes do not call it.
func (c *LRUCache[T]) OnEvict(fn func(key string, value T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the value for key and renews its lifetime.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[T])
	now := c.now()
	if now.After(e.expiresAt) {
		c.evict(elem)
		return zero, false
	}
	e.expiresAt = now.Add(c.ttl)
	c.lru.MoveToFront(elem)
	return e.value, true
}

// GetOrCreate returns the live value for key, creating it with create when
// missing. created reports which happened.
func (c *LRUCache[T]) GetOrCreate(key string, create func() T) (value T, created bool) {
	if v, ok := c.Get(key); ok {
		return v, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// another caller may have created it in between
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[T])
		if !c.now().After(e.expiresAt) {
			return e.value, false
		}
		c.evict(elem)
	}
	v := create()
	c.insert(key, v)
	return v, true
}

// Set stores value under key.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		elem.Value = &entry[T]{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
		c.lru.MoveToFront(elem)
		return
	}
	c.insert(key, value)
}

func (c *LRUCache[T]) insert(key string, value T) {
	elem := c.lru.PushFront(&entry[T]{key: key, value: value, expiresAt: c.now().Add(c.ttl)})
	c.items[key] = elem
	for c.lru.Len() > c.maxSize {
		c.evict(c.lru.Back())
	}
}

// Delete removes key.
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Each calls fn for every live entry, most recently used first, without
// renewing lifetimes. fn must not call back into the cache.
func (c *LRUCache[T]) Each(fn func(key string, value T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry[T])
		if !now.After(e.expiresAt) {
			fn(e.key, e.value)
		}
	}
}

// CleanExpired removes expired entries and returns how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		c.evict(elem)
	}
	return len(expired)
}

// Size returns the number of stored entries, expired ones included until
// they are cleaned.
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[T]) evict(elem *list.Element) {
	e := c.remove(elem)
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}

func (c *LRUCache[T]) remove(elem *list.Element) *entry[T] {
	e := elem.Value.(*entry[T])
	delete(c.items, e.key)
	c.lru.Remove(elem)
	return e
}
