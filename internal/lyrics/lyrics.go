// Package lyrics fetches synced lyrics from an LRCLIB-compatible service
// and writes them as sidecar files next to converted outputs.
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Result is one lyrics lookup outcome.
type Result struct {
	Synced       string
	Plain        string
	Instrumental bool
}

// Found reports whether the lookup produced any lyrics text.
func (r Result) Found() bool {
	return r.Synced != "" || r.Plain != ""
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

type cacheEntry struct {
	result   Result
	ok       bool
	storedAt time.Time
}

// Client queries the lyrics service. Lookups are cached, misses included,
// so retrying a playlist does not restampede the service.
type Client struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New constructs a lyrics client. ttl bounds cache entry life.
func New(baseURL string, timeout, ttl time.Duration, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Fetch looks up lyrics for a track. The boolean reports whether the
// service had a record; failures surface as errors and are not cached.
func (c *Client) Fetch(ctx context.Context, artist, title, album string, durationSeconds int) (Result, bool, error) {
	key := cacheKey(artist, title, album, durationSeconds)

	c.mu.Lock()
	entry, hit := c.cache[key]
	if hit && c.now().Sub(entry.storedAt) <= c.ttl {
		c.mu.Unlock()
		return entry.result, entry.ok, nil
	}
	c.mu.Unlock()

	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	if album != "" {
		params.Set("album_name", album)
	}
	if durationSeconds > 0 {
		params.Set("duration", strconv.Itoa(durationSeconds))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/get?"+params.Encode(), nil)
	if err != nil {
		return Result{}, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		c.store(key, Result{}, false)
		return Result{}, false, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Result{}, false, fmt.Errorf("lyrics service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		SyncedLyrics string `json:"syncedLyrics"`
		PlainLyrics  string `json:"plainLyrics"`
		Instrumental bool   `json:"instrumental"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, false, fmt.Errorf("decode lyrics response: %w", err)
	}

	result := Result{
		Synced:       strings.TrimSpace(payload.SyncedLyrics),
		Plain:        strings.TrimSpace(payload.PlainLyrics),
		Instrumental: payload.Instrumental,
	}
	c.store(key, result, result.Found() || result.Instrumental)
	return result, result.Found() || result.Instrumental, nil
}

func (c *Client) store(key string, result Result, ok bool) {
	c.mu.Lock()
	c.cache[key] = cacheEntry{result: result, ok: ok, storedAt: c.now()}
	c.mu.Unlock()
}

func cacheKey(artist, title, album string, duration int) string {
	return strings.ToLower(strings.Join([]string{artist, title, album, strconv.Itoa(duration)}, "\x00"))
}

// WriteSidecar writes lyrics next to the media file: synced lyrics get a
// .lrc sidecar, plain-only lyrics a .txt one. Returns the sidecar path,
// or "" when there was nothing to write.
func WriteSidecar(mediaPath string, result Result) (string, error) {
	base := strings.TrimSuffix(mediaPath, extOf(mediaPath))
	switch {
	case result.Synced != "":
		path := base + ".lrc"
		if err := os.WriteFile(path, []byte(result.Synced+"\n"), 0o644); err != nil {
			return "", fmt.Errorf("write lrc sidecar: %w", err)
		}
		return path, nil
	case result.Plain != "":
		path := base + ".txt"
		if err := os.WriteFile(path, []byte(result.Plain+"\n"), 0o644); err != nil {
			return "", fmt.Errorf("write txt sidecar: %w", err)
		}
		return path, nil
	}
	return "", nil
}

func extOf(path string) string {
	if idx := strings.LastIndex(path, "."); idx > strings.LastIndex(path, "/") {
		return path[idx:]
	}
	return ""
}
