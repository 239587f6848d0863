package catalog

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"

	"github.com/invsync/inventory-sync-server/internal/target"
)

// Lister fetches one page of a target's remote listing.
// Implemented by remote.Client; tests substitute a fake with a call counter.
type Lister interface {
	ListPage(ctx context.Context, page int) ([]Entry, error)
}

// Fetcher returns a target's full catalog, cache-first.
//
// Concurrent misses for the same target collapse into one underlying
// fetch (singleflight); all waiters share its result. A failed page
// aborts the whole fetch and caches nothing — a partial catalog would
// silently break resolution for SKUs on unfetched pages.
type Fetcher struct {
	cache  *Cache
	lister func(tgt *target.Credentials) Lister
	group  singleflight.Group
}

// NewFetcher creates a fetcher. lister builds the page client for a
// target; it is called once per cache fill.
func NewFetcher(cache *Cache, lister func(tgt *target.Credentials) Lister) *Fetcher {
	return &Fetcher{cache: cache, lister: lister}
}

// Fetch returns the catalog for tgt, from cache when unexpired.
func (f *Fetcher) Fetch(ctx context.Context, tgt *target.Credentials) ([]Entry, error) {
	if entries, ok := f.cache.Get(tgt.Name); ok {
		return entries, nil
	}

	v, err, _ := f.group.Do(tgt.Name, func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have
		// filled the cache while we waited for the group.
		if entries, ok := f.cache.Get(tgt.Name); ok {
			return entries, nil
		}

		entries, err := f.fetchAll(ctx, tgt)
		if err != nil {
			return nil, err
		}

		f.cache.Set(tgt.Name, entries, tgt.CacheSliding, tgt.CacheAbsolute)
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Entry), nil
}

// fetchAll pages through the listing endpoint until an empty page or the
// configured page ceiling.
func (f *Fetcher) fetchAll(ctx context.Context, tgt *target.Credentials) ([]Entry, error) {
	lister := f.lister(tgt)

	var all []Entry
	for page := 1; page <= tgt.MaxPages; page++ {
		entries, err := lister.ListPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("target %s: listing page %d: %w", tgt.Name, page, err)
		}
		if len(entries) == 0 {
			return all, nil
		}
		all = append(all, entries...)
		log.Printf("Target %s: fetched page %d (%d items)", tgt.Name, page, len(entries))
	}

	// Ceiling bounds worst-case latency and remote load; hitting it is
	// not an error but the source may not be exhausted.
	log.Printf("Target %s: stopped at max page count %d without an empty page", tgt.Name, tgt.MaxPages)
	return all, nil
}

// Invalidate drops the cached catalog for a target.
func (f *Fetcher) Invalidate(targetName string) {
	f.cache.Invalidate(targetName)
}
