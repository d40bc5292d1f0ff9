package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"tonearm/internal/services"
)

// ListingEntry is one item of a flat playlist listing.
type ListingEntry struct {
	Index      int
	ID         string
	Title      string
	Uploader   string
	WebpageURL string
	Duration   float64
}

// Listing is the resolved view of a source URL: a playlist header plus its
// entries, or a single pseudo-entry for plain item URLs.
type Listing struct {
	Title   string
	Count   int
	Entries []ListingEntry
}

type rawListing struct {
	Type          string     `json:"_type"`
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Uploader      string     `json:"uploader"`
	Channel       string     `json:"channel"`
	WebpageURL    string     `json:"webpage_url"`
	Duration      float64    `json:"duration"`
	PlaylistCount int        `json:"playlist_count"`
	Entries       []rawEntry `json:"entries"`
}

type rawEntry struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Uploader      string  `json:"uploader"`
	Channel       string  `json:"channel"`
	URL           string  `json:"url"`
	WebpageURL    string  `json:"webpage_url"`
	Duration      float64 `json:"duration"`
	PlaylistIndex int     `json:"playlist_index"`
}

// Listing queries the source for a flat playlist dump. A positive limit
// bounds how deep the listing goes so preview pages stay cheap.
func (c *Client) Listing(ctx context.Context, url string, limit int) (Listing, error) {
	if url == "" {
		return Listing{}, errors.New("listing url required")
	}

	args := []string{"-J", "--flat-playlist", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(limit))
	}
	args = append(args, url)

	var out strings.Builder
	err := c.exec.Run(ctx, c.binary, args, nil, func(line string) {
		out.WriteString(line)
	}, nil)
	if err != nil {
		return Listing{}, services.Wrap(services.ErrExternalTool, "preview", "yt-dlp", "listing failed", err)
	}

	return parseListing(out.String())
}

// Inspect resolves a single item's identity without downloading it.
func (c *Client) Inspect(ctx context.Context, url string) (ListingEntry, error) {
	if url == "" {
		return ListingEntry{}, errors.New("inspect url required")
	}

	args := []string{"-J", "--no-playlist", "--no-warnings", url}
	var out strings.Builder
	err := c.exec.Run(ctx, c.binary, args, nil, func(line string) {
		out.WriteString(line)
	}, nil)
	if err != nil {
		return ListingEntry{}, services.Wrap(services.ErrExternalTool, "preparing", "yt-dlp", "inspect failed", err)
	}

	var raw rawListing
	if err := json.Unmarshal([]byte(out.String()), &raw); err != nil {
		return ListingEntry{}, services.Wrap(services.ErrExternalTool, "preparing", "yt-dlp", "malformed inspect output", err)
	}
	uploader := raw.Uploader
	if uploader == "" {
		uploader = raw.Channel
	}
	return ListingEntry{
		Index:      1,
		ID:         raw.ID,
		Title:      raw.Title,
		Uploader:   uploader,
		WebpageURL: raw.WebpageURL,
		Duration:   raw.Duration,
	}, nil
}

func parseListing(payload string) (Listing, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Listing{}, errors.New("empty listing output")
	}

	var raw rawListing
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Listing{}, services.Wrap(services.ErrExternalTool, "preview", "yt-dlp", "malformed listing output", err)
	}

	if raw.Type != "playlist" {
		uploader := raw.Uploader
		if uploader == "" {
			uploader = raw.Channel
		}
		return Listing{
			Title: raw.Title,
			Count: 1,
			Entries: []ListingEntry{{
				Index:      1,
				ID:         raw.ID,
				Title:      raw.Title,
				Uploader:   uploader,
				WebpageURL: raw.WebpageURL,
				Duration:   raw.Duration,
			}},
		}, nil
	}

	listing := Listing{Title: raw.Title, Count: raw.PlaylistCount}
	for i, entry := range raw.Entries {
		index := entry.PlaylistIndex
		if index <= 0 {
			index = i + 1
		}
		uploader := entry.Uploader
		if uploader == "" {
			uploader = entry.Channel
		}
		webpage := entry.WebpageURL
		if webpage == "" {
			webpage = canonicalEntryURL(entry.URL, entry.ID)
		}
		listing.Entries = append(listing.Entries, ListingEntry{
			Index:      index,
			ID:         entry.ID,
			Title:      entry.Title,
			Uploader:   uploader,
			WebpageURL: webpage,
			Duration:   entry.Duration,
		})
	}
	if listing.Count < len(listing.Entries) {
		listing.Count = len(listing.Entries)
	}
	return listing, nil
}
