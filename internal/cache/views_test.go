package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestViewsInvalidate(t *testing.T) {
	v := NewViews(0)
	v.Set(RouteDashboard, "kpis")
	v.Set(RouteSales, "sales")

	got, ok := v.Get(RouteDashboard)
	assert.True(t, ok)
	assert.Equal(t, "kpis", got)

	v.Invalidate(RouteDashboard, RouteEggs)
	_, ok = v.Get(RouteDashboard)
	assert.False(t, ok)
	_, ok = v.Get(RouteSales)
	assert.True(t, ok)
}

func TestViewsSetIfCurrent(t *testing.T) {
	v := NewViews(0)
	gen := v.Generation(RouteDashboard)

	v.Invalidate(RouteDashboard)
	assert.False(t, v.SetIfCurrent(RouteDashboard, gen, "rendered before the write"))
	_, ok := v.Get(RouteDashboard)
	assert.False(t, ok)

	gen = v.Generation(RouteDashboard)
	v.Invalidate(RouteSales)
	assert.True(t, v.SetIfCurrent(RouteDashboard, gen, "fresh"))
	got, ok := v.Get(RouteDashboard)
	assert.True(t, ok)
	assert.Equal(t, "fresh", got)
}

func TestViewsTTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v := NewViews(time.Minute)
	v.now = func() time.Time { return now }

	v.Set(RouteDashboard, 1)
	now = now.Add(59 * time.Second)
	_, ok := v.Get(RouteDashboard)
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = v.Get(RouteDashboard)
	assert.False(t, ok)
}

func TestViewsConcurrentUse(t *testing.T) {
	v := NewViews(0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v.Set(RouteDashboard, i)
			v.Get(RouteDashboard)
			v.Invalidate(RouteDashboard)
		}(i)
	}
	wg.Wait()
}
