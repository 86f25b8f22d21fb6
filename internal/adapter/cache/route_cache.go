package cache

import (
	"sync"

	"genesis/internal/adapter/mapper"
)

// RouteCache memoizes name -> route lookups. Entries carry the ruleset
// generation they were computed under and are dropped once it changes.
type RouteCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	gen     uint64
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	route mapper.Route
	gen   uint64
}

func NewRouteCache(maxSize int) *RouteCache {
	if maxSize <= 0 {
		maxSize = 4096
	}
	return &RouteCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func (c *RouteCache) Get(name string) (mapper.Route, bool) {
	c.mu.RLock()
	entry, exists := c.entries[name]
	currentGen := c.gen
	c.mu.RUnlock()

	if !exists || entry.gen != currentGen {
		c.mu.Lock()
		c.misses++
		if exists {
			delete(c.entries, name)
			c.removeFromOrder(name)
		}
		c.mu.Unlock()
		return mapper.Route{}, false
	}

	c.mu.Lock()
	c.hits++
	c.moveToEnd(name)
	c.mu.Unlock()

	return entry.route, true
}

func (c *RouteCache) Put(name string, route mapper.Route) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; exists {
		c.entries[name] = &cacheEntry{route: route, gen: c.gen}
		c.moveToEnd(name)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[name] = &cacheEntry{route: route, gen: c.gen}
	c.order = append(c.order, name)
}

// Invalidate drops every entry and bumps the generation.
func (c *RouteCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.gen++
}

func (c *RouteCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts since creation.
func (c *RouteCache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *RouteCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *RouteCache) moveToEnd(name string) {
	c.removeFromOrder(name)
	c.order = append(c.order, name)
}

func (c *RouteCache) removeFromOrder(name string) {
	for i, k := range c.order {
		if k == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Router is anything that routes a function name.
type Router interface {
	Route(name string) mapper.Route
}

// CachedRouter puts a RouteCache in front of a Router. It returns exactly
// what the wrapped router returns.
type CachedRouter struct {
	mu     sync.RWMutex
	router Router
	cache  *RouteCache
}

func NewCachedRouter(router Router, cache *RouteCache) *CachedRouter {
	return &CachedRouter{
		router: router,
		cache:  cache,
	}
}

func (r *CachedRouter) Route(name string) mapper.Route {
	if route, hit := r.cache.Get(name); hit {
		return route
	}

	r.mu.RLock()
	route := r.router.Route(name)
	r.mu.RUnlock()

	r.cache.Put(name, route)
	return route
}

// Reset swaps in a new rule table and invalidates the cache.
func (r *CachedRouter) Reset(router Router) {
	r.mu.Lock()
	r.router = router
	r.mu.Unlock()
	r.cache.Invalidate()
}
