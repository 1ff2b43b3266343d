// Package cache implements the bounded LRU page cache spec.md §4.E
// describes: a doubly linked MRU→LRU list paired with a hash index, both
// keyed by page id. The cache never owns page storage — every entry is a
// reference back into the pool — so eviction only ever drops a tracking
// entry, never data; persistence is a separate, orthogonal concern
// driven through Flush.
//
// Grounded on the pager/cache split in the retrieved pkg/pager example
// (container/list MRU list plus a map from page number to list element);
// Urbis swaps that map for internal/fastmap, the pack's own fibonacci-
// hashed integer map, extended with backward-shift Delete for eviction.
package cache

import (
	"container/list"
	"unsafe"

	"github.com/urbis/urbis/internal/fastmap"
	"github.com/urbis/urbis/metrics"
	"github.com/urbis/urbis/page"
	"github.com/urbis/urbis/pool"
)

// ref is the list element payload: a PageRef per spec.md §4.E.
type ref struct {
	pageID      page.ID
	accessCount uint64
	lastAccess  int64
}

// Cache is a bounded, pool-backed LRU page cache.
type Cache struct {
	pool     *pool.Pool
	capacity int
	order    *list.List
	index    *fastmap.Uint32Map
	tick     int64
	hits     uint64
	misses   uint64

	// Metrics mirrors hits/misses into a Prometheus collector when set.
	// Left nil, the cache has no metrics dependency at all.
	Metrics *metrics.Collector
}

// New creates a cache bounded to capacity pages, backed by pool.
func New(p *pool.Pool, capacity int) *Cache {
	if capacity <= 0 {
		capacity = 128
	}
	return &Cache{
		pool:     p,
		capacity: capacity,
		order:    list.New(),
		index:    &fastmap.Uint32Map{},
	}
}

// Len returns the number of entries currently tracked. The invariant
// len(list) == index.Len() holds at every public boundary (spec.md §8
// invariant 6); Len reports the list's count.
func (c *Cache) Len() int {
	return c.order.Len()
}

// Contains reports whether id has a tracking entry, looking it up in the
// hash index only.
func (c *Cache) Contains(id page.ID) bool {
	ptr := c.index.Get(uint32(id))
	return ptr != nil
}

// Get returns the pool's page for id, bumping it to the MRU position. On
// a cache miss it evicts room if necessary and inserts a fresh entry.
// Returns ErrNotFound if the pool itself has no such page; ErrFull if
// room is needed but every resident entry is pinned.
func (c *Cache) Get(id page.ID) (*page.Page, error) {
	c.tick++

	if ptr := c.index.Get(uint32(id)); ptr != nil {
		elem := (*list.Element)(ptr)
		pg, ok := c.pool.GetPage(id)
		if !ok {
			c.removeEntry(elem)
			return nil, ErrNotFound
		}
		r := elem.Value.(*ref)
		r.accessCount++
		r.lastAccess = c.tick
		c.order.MoveToFront(elem)
		c.hits++
		c.Metrics.IncCacheHit()
		return pg, nil
	}

	c.misses++
	c.Metrics.IncCacheMiss()
	pg, ok := c.pool.GetPage(id)
	if !ok {
		return nil, ErrNotFound
	}
	if c.order.Len() >= c.capacity {
		if c.Evict(1) == 0 {
			return nil, ErrFull
		}
	}
	r := &ref{pageID: id, accessCount: 1, lastAccess: c.tick}
	elem := c.order.PushFront(r)
	c.index.Set(uint32(id), unsafe.Pointer(elem))
	return pg, nil
}

func (c *Cache) removeEntry(elem *list.Element) {
	r := elem.Value.(*ref)
	c.order.Remove(elem)
	c.index.Delete(uint32(r.pageID))
}

// Pin sets the PINNED flag on id's page, exempting it from eviction.
// Pinning does not require the page to already be a cache resident.
func (c *Cache) Pin(id page.ID) error {
	pg, ok := c.pool.GetPage(id)
	if !ok {
		return ErrNotFound
	}
	pg.Flags |= page.Pinned
	return nil
}

// Unpin clears the PINNED flag on id's page.
func (c *Cache) Unpin(id page.ID) error {
	pg, ok := c.pool.GetPage(id)
	if !ok {
		return ErrNotFound
	}
	pg.Flags &^= page.Pinned
	return nil
}

// MarkDirty sets the DIRTY flag on id's page without moving it in LRU
// order.
func (c *Cache) MarkDirty(id page.ID) error {
	pg, ok := c.pool.GetPage(id)
	if !ok {
		return ErrNotFound
	}
	pg.Flags |= page.Dirty
	return nil
}

// Evict drops up to n unpinned entries starting from the LRU tail,
// skipping (not dropping) any pinned entry it encounters, per spec.md
// §4.E: "the LRU cursor advances past them." Returns the number evicted.
func (c *Cache) Evict(n int) int {
	evicted := 0
	elem := c.order.Back()
	for elem != nil && evicted < n {
		prev := elem.Prev()
		r := elem.Value.(*ref)
		if pg, ok := c.pool.GetPage(r.pageID); ok && pg.Flags&page.Pinned != 0 {
			elem = prev
			continue
		}
		c.removeEntry(elem)
		evicted++
		elem = prev
	}
	return evicted
}

// Flush persists every DIRTY page in the pool via persist, clearing
// DIRTY on success, then stops and returns the first error. Flush walks
// the whole pool, not just cache residents, matching spec.md §4.E's
// "for each page in pool with DIRTY set" contract; the disk manager
// supplies persist.
func (c *Cache) Flush(persist func(*page.Page) error) error {
	for _, pg := range c.pool.Pages() {
		if pg.Flags&page.Dirty == 0 {
			continue
		}
		if err := persist(pg); err != nil {
			return err
		}
		pg.Flags &^= page.Dirty
	}
	return nil
}

// Stats returns the direct hit/miss counters maintained by Get, per the
// spec.md §9 open-question decision to track these directly rather than
// derive a heuristic rate from per-entry access counters.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits, c.misses
}
