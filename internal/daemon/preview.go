package daemon

import (
	"context"

	"tonearm/internal/jobs"
	"tonearm/internal/previewcache"
	"tonearm/internal/services/ytdlp"
)

// listingPage returns a cached listing deep enough to cover the requested
// page window, fetching and merging deeper listing prefixes on demand.
func (d *Daemon) listingPage(ctx context.Context, rawURL string, page, pageSize int) (previewcache.Listing, error) {
	source := ytdlp.NormalizeURL(rawURL, true)
	needed := page * pageSize

	if cached, ok := d.previews.Get(source); ok {
		complete := cached.Count > 0 && len(cached.Entries) >= cached.Count
		if complete || len(cached.Entries) >= needed {
			return cached, nil
		}
	}

	fetched, err := d.fetcher.Listing(ctx, source, needed)
	if err != nil {
		return previewcache.Listing{}, err
	}
	listing := previewcache.Listing{Title: fetched.Title, Count: fetched.Count}
	for _, entry := range fetched.Entries {
		listing.Entries = append(listing.Entries, jobs.PlaylistEntry{
			Index:      entry.Index,
			ID:         entry.ID,
			Title:      entry.Title,
			Uploader:   entry.Uploader,
			WebpageURL: entry.WebpageURL,
		})
	}
	d.previews.Put(source, listing)
	if merged, ok := d.previews.Get(source); ok {
		return merged, nil
	}
	return listing, nil
}
