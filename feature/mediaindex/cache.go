package mediaindex

import (
	"context"
	"sync"
	"time"

	"media-index/core/indexstore"
	"media-index/core/media"

	"golang.org/x/sync/singleflight"
)

// View is a persisted index held in memory.
type View struct {
	Entries []media.Entry
	Usage   []indexstore.UsagePage
	Meta    *indexstore.Meta

	// Built is when this view was loaded or produced.
	Built time.Time
	// TTL is the time-to-live for this view.
	TTL time.Duration
}

// IsExpired returns true if this view has expired based on its TTL.
func (v *View) IsExpired(now time.Time) bool {
	if v.TTL == 0 {
		return true // No caching
	}
	return now.Sub(v.Built) > v.TTL
}

// viewCache holds the views of every site served by one Indexer.
type viewCache struct {
	mu    sync.RWMutex
	views map[string]*View
	sf    singleflight.Group
	ttl   time.Duration
	now   func() time.Time
}

func newViewCache(ttl time.Duration, now func() time.Time) *viewCache {
	return &viewCache{views: make(map[string]*View), ttl: ttl, now: now}
}

// getOrLoad returns the cached view of site, or loads a new one if it
// doesn't exist or has expired. Concurrent loads of one site are collapsed.
func (c *viewCache) getOrLoad(ctx context.Context, site media.Site, load func(context.Context) (*View, error)) (*View, error) {
	// Fast path: check if the view exists and is fresh
	c.mu.RLock()
	view, exists := c.views[site.ID]
	c.mu.RUnlock()

	if exists && !view.IsExpired(c.now()) {
		return view, nil
	}

	result, err, _ := c.sf.Do(site.ID, func() (any, error) {
		// Double-check after acquiring singleflight lock
		c.mu.RLock()
		view, exists := c.views[site.ID]
		c.mu.RUnlock()

		if exists && !view.IsExpired(c.now()) {
			return view, nil
		}

		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.put(site, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*View), nil
}

// put stores a view, stamping it with the cache TTL.
func (c *viewCache) put(site media.Site, view *View) {
	view.Built = c.now()
	view.TTL = c.ttl

	c.mu.Lock()
	c.views[site.ID] = view
	c.mu.Unlock()
}

func (c *viewCache) invalidate(site media.Site) {
	c.mu.Lock()
	delete(c.views, site.ID)
	c.mu.Unlock()
}

func (c *viewCache) clear() {
	c.mu.Lock()
	c.views = make(map[string]*View)
	c.mu.Unlock()
}
