// Package cache holds rendered views per route until a write invalidates them.
package cache

import (
	"sync"
	"time"
)

// Routes whose cached data the mutation routines invalidate.
const (
	RouteDashboard       = "/api/dashboard"
	RouteSalesDashboard  = "/api/dashboard/sales"
	RouteEggs            = "/api/eggs"
	RouteMortality       = "/api/mortality"
	RouteFeedAllocations = "/api/feed/allocations"
	RouteFeedStock       = "/api/feed/stock"
	RouteSales           = "/api/sales"
	RouteTasks           = "/api/tasks"
	RouteUsers           = "/api/users"
)

// Invalidator drops cached views for routes.
type Invalidator interface {
	Invalidate(routes ...string)
}

// Store is a readable and writable view cache. Readers that render a view
// take Generation before fetching and store the result with SetIfCurrent, so
// a render racing an invalidation is dropped instead of cached.
type Store interface {
	Invalidator
	Get(route string) (any, bool)
	Generation(route string) uint64
	SetIfCurrent(route string, gen uint64, value any) bool
}

type entry struct {
	value    any
	storedAt time.Time
}

var _ Store = (*Views)(nil)

// Views is a route-keyed view cache. A zero TTL keeps entries until invalidated.
type Views struct {
	mu      sync.RWMutex
	entries map[string]entry
	gens    map[string]uint64
	ttl     time.Duration
	now     func() time.Time
}

// NewViews creates an empty cache.
func NewViews(ttl time.Duration) *Views {
	return &Views{entries: make(map[string]entry), gens: make(map[string]uint64), ttl: ttl, now: time.Now}
}

// Get returns the cached value for route if present and fresh.
func (v *Views) Get(route string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.entries[route]
	if !ok {
		return nil, false
	}
	if v.ttl > 0 && v.now().Sub(e.storedAt) > v.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores value for route unconditionally.
func (v *Views) Set(route string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries[route] = entry{value: value, storedAt: v.now()}
}

// Generation returns how many times route has been invalidated.
func (v *Views) Generation(route string) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.gens[route]
}

// SetIfCurrent stores value only if route has not been invalidated since gen
// was read. It reports whether the value was stored.
func (v *Views) SetIfCurrent(route string, gen uint64, value any) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gens[route] != gen {
		return false
	}
	v.entries[route] = entry{value: value, storedAt: v.now()}
	return true
}

// Invalidate implements Invalidator.
func (v *Views) Invalidate(routes ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range routes {
		delete(v.entries, r)
		v.gens[r]++
	}
}

// Nop is a Store that never holds anything.
type Nop struct{}

func (Nop) Invalidate(...string)                  {}
func (Nop) Get(string) (any, bool)                { return nil, false }
func (Nop) Generation(string) uint64              { return 0 }
func (Nop) SetIfCurrent(string, uint64, any) bool { return false }
