package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"tonearm/internal/jobs"
	"tonearm/internal/logging"
	"tonearm/internal/previewcache"
	"tonearm/internal/services"
	"tonearm/internal/services/ytdlp"
)

// resolveEntries translates the job request into frozen playlist entries.
// Entries freeze exactly once; a job that already carries frozen entries
// reuses them so retries resolve to the same source items.
func (o *Orchestrator) resolveEntries(ctx context.Context, job *jobs.Job) ([]jobs.PlaylistEntry, string, error) {
	if frozen := job.FrozenEntries(); frozen != nil {
		return frozen, job.Request.TitleHint, nil
	}
	if job.Request.IsPlaylist {
		return o.resolvePlaylist(ctx, job)
	}
	return o.resolveSingle(ctx, job)
}

func (o *Orchestrator) resolveSingle(ctx context.Context, job *jobs.Job) ([]jobs.PlaylistEntry, string, error) {
	source := strings.TrimSpace(job.Request.Source)
	entry := jobs.PlaylistEntry{Index: 1}

	if isLocalFile(source) {
		base := filepath.Base(source)
		entry.Title = strings.TrimSuffix(base, filepath.Ext(base))
	} else {
		entry.WebpageURL = ytdlp.NormalizeURL(source, false)
		probed, err := o.fetcher.Inspect(ctx, entry.WebpageURL)
		switch {
		case err == nil:
			entry.ID = probed.ID
			entry.Title = probed.Title
			entry.Uploader = probed.Uploader
			if probed.WebpageURL != "" {
				entry.WebpageURL = probed.WebpageURL
			}
		case services.IsCanceled(err):
			return nil, "", err
		default:
			// Inspection is best-effort; the download step still
			// resolves a usable title from the produced filename.
			o.logger.Warn("source inspect failed",
				logging.String("job_id", job.ID),
				logging.Error(err))
		}
	}

	job.FreezeEntries([]jobs.PlaylistEntry{entry})
	job.SetCounterTotals(1, 1)
	title := job.Request.TitleHint
	if title == "" {
		title = entry.Title
	}
	return job.FrozenEntries(), title, nil
}

func (o *Orchestrator) resolvePlaylist(ctx context.Context, job *jobs.Job) ([]jobs.PlaylistEntry, string, error) {
	job.SetPhase(jobs.PhaseMapping)
	source := ytdlp.NormalizeURL(job.Request.Source, true)

	listing, ok := o.cachedListing(source, job.Request)
	if !ok {
		fetched, err := o.fetcher.Listing(ctx, source, 0)
		if err != nil {
			return nil, "", err
		}
		listing = toCacheListing(fetched)
		if o.previews != nil {
			o.previews.Put(source, listing)
		}
	}

	selected := selectEntries(listing.Entries, job.Request)
	if len(selected) == 0 {
		return nil, "", services.Wrap(services.ErrValidation, "mapping", "selection", "no selection resolved", nil)
	}

	job.FreezeEntries(selected)
	job.InitPlaylist(len(selected))
	title := job.Request.TitleHint
	if title == "" {
		title = listing.Title
	}
	return job.FrozenEntries(), title, nil
}

// cachedListing reuses a preview-cache listing when it covers the requested
// selection; partial preview pages force a full listing fetch.
func (o *Orchestrator) cachedListing(source string, req jobs.Request) (previewcache.Listing, bool) {
	if o.previews == nil {
		return previewcache.Listing{}, false
	}
	listing, ok := o.previews.Get(source)
	if !ok {
		return previewcache.Listing{}, false
	}
	if req.AllIndices || len(req.SelectedIndices) == 0 {
		if listing.Count > 0 && len(listing.Entries) < listing.Count {
			return previewcache.Listing{}, false
		}
		return listing, true
	}
	have := make(map[int]struct{}, len(listing.Entries))
	for _, entry := range listing.Entries {
		have[entry.Index] = struct{}{}
	}
	for _, index := range req.SelectedIndices {
		if _, found := have[index]; !found {
			return previewcache.Listing{}, false
		}
	}
	return listing, true
}

func toCacheListing(listing ytdlp.Listing) previewcache.Listing {
	entries := make([]jobs.PlaylistEntry, 0, len(listing.Entries))
	for _, entry := range listing.Entries {
		entries = append(entries, jobs.PlaylistEntry{
			Index:      entry.Index,
			ID:         entry.ID,
			Title:      entry.Title,
			Uploader:   entry.Uploader,
			WebpageURL: entry.WebpageURL,
		})
	}
	return previewcache.Listing{Title: listing.Title, Count: listing.Count, Entries: entries}
}

// selectEntries applies the request's index selection, preserving source
// order. Unknown indices are dropped rather than failing the job.
func selectEntries(entries []jobs.PlaylistEntry, req jobs.Request) []jobs.PlaylistEntry {
	if req.AllIndices || len(req.SelectedIndices) == 0 {
		selected := make([]jobs.PlaylistEntry, len(entries))
		copy(selected, entries)
		return selected
	}
	wanted := make(map[int]struct{}, len(req.SelectedIndices))
	for _, index := range req.SelectedIndices {
		wanted[index] = struct{}{}
	}
	var selected []jobs.PlaylistEntry
	for _, entry := range entries {
		if _, found := wanted[entry.Index]; found {
			selected = append(selected, entry)
		}
	}
	return selected
}

func isLocalFile(source string) bool {
	if source == "" || strings.Contains(source, "://") {
		return false
	}
	info, err := os.Stat(source)
	return err == nil && info.Mode().IsRegular()
}
