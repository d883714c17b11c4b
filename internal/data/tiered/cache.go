package tiered

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
)

// MemoryCache is a size- and time-bounded LRU tier. A zero TTL disables
// expiry; capacity below 1 is raised to 1.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	ll       *list.List
	items    map[string]*list.Element
}

type cacheEntry struct {
	key     string
	rec     schemacompat.Record
	expires time.Time
}

func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

func cacheKey(kind Kind, id string) string { return string(kind) + "/" + id }

func (c *MemoryCache) Get(_ context.Context, kind Kind, id string) (schemacompat.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[cacheKey(kind, id)]
	if !ok {
		return nil, ErrNotFound
	}
	ent := el.Value.(*cacheEntry)
	if c.ttl > 0 && !c.now().Before(ent.expires) {
		c.removeElement(el)
		return nil, ErrNotFound
	}
	c.ll.MoveToFront(el)
	return ent.rec.Clone(), nil
}

func (c *MemoryCache) Put(_ context.Context, kind Kind, rec schemacompat.Record) error {
	key := cacheKey(kind, rec.ID())
	c.mu.Lock()
	defer c.mu.Unlock()
	expires := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		ent := el.Value.(*cacheEntry)
		ent.rec = rec.Clone()
		ent.expires = expires
		c.ll.MoveToFront(el)
		return nil
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, rec: rec.Clone(), expires: expires})
	for c.ll.Len() > c.capacity {
		c.removeElement(c.ll.Back())
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, kind Kind, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[cacheKey(kind, id)]; ok {
		c.removeElement(el)
	}
	return nil
}

func (c *MemoryCache) Purge(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *MemoryCache) removeElement(el *list.Element) {
	ent := el.Value.(*cacheEntry)
	delete(c.items, ent.key)
	c.ll.Remove(el)
}
