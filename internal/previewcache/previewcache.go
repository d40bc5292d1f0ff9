// Package previewcache caches playlist listings so preview paging does not
// re-query the source for every page.
package previewcache

import (
	"sort"
	"sync"
	"time"

	"tonearm/internal/jobs"
)

// Listing is a cached view of a source playlist. Entries grow monotonically
// as deeper pages are fetched; Count is the source's declared item total.
type Listing struct {
	Title   string
	Count   int
	Entries []jobs.PlaylistEntry
}

type cacheItem struct {
	listing  Listing
	byIndex  map[int]int
	storedAt time.Time
}

// Cache is a TTL and capacity bounded listing cache keyed by source URL.
// Expiry runs from first store; merging later pages does not extend it.
type Cache struct {
	mu    sync.Mutex
	ttl   time.Duration
	max   int
	items map[string]*cacheItem
	now   func() time.Time
}

// Option customizes Cache construction.
type Option func(*Cache)

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache holding at most maxListings listings, each valid for
// ttl after first store.
func New(ttl time.Duration, maxListings int, opts ...Option) *Cache {
	cache := &Cache{
		ttl:   ttl,
		max:   maxListings,
		items: make(map[string]*cacheItem),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Get returns the cached listing for the URL. Expired entries are removed
// and reported as a miss.
func (c *Cache) Get(url string) (Listing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[url]
	if !ok {
		return Listing{}, false
	}
	if c.now().Sub(item.storedAt) > c.ttl {
		delete(c.items, url)
		return Listing{}, false
	}
	return copyListing(item.listing), true
}

// Put stores a listing for the URL, merging entries by index into any live
// cached listing. New indices append; known indices keep the cached entry.
func (c *Cache) Put(url string, listing Listing) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	item, ok := c.items[url]
	if ok && now.Sub(item.storedAt) > c.ttl {
		delete(c.items, url)
		ok = false
	}
	if !ok {
		item = &cacheItem{
			byIndex:  make(map[int]int),
			storedAt: now,
		}
		c.items[url] = item
		c.evictOver()
	}

	if listing.Title != "" {
		item.listing.Title = listing.Title
	}
	if listing.Count > item.listing.Count {
		item.listing.Count = listing.Count
	}
	for _, entry := range listing.Entries {
		if _, seen := item.byIndex[entry.Index]; seen {
			continue
		}
		item.byIndex[entry.Index] = len(item.listing.Entries)
		item.listing.Entries = append(item.listing.Entries, entry)
	}
	sort.Slice(item.listing.Entries, func(i, j int) bool {
		return item.listing.Entries[i].Index < item.listing.Entries[j].Index
	})
	for i, entry := range item.listing.Entries {
		item.byIndex[entry.Index] = i
	}
}

// Len returns the number of live listings. Expired entries still count
// until touched or evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evictOver removes oldest listings until the capacity bound holds.
// Callers hold c.mu.
func (c *Cache) evictOver() {
	if c.max <= 0 {
		return
	}
	for len(c.items) > c.max {
		oldestKey := ""
		var oldestAt time.Time
		for key, item := range c.items {
			if oldestKey == "" || item.storedAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = item.storedAt
			}
		}
		delete(c.items, oldestKey)
	}
}

func copyListing(listing Listing) Listing {
	out := listing
	out.Entries = make([]jobs.PlaylistEntry, len(listing.Entries))
	copy(out.Entries, listing.Entries)
	return out
}
