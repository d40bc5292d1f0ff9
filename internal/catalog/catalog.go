package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tonearm/internal/logging"
)

// Track is one candidate returned by the catalog search.
type Track struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	TrackNumber int
	TrackTotal  int
	DiscNumber  int
	DiscTotal   int
	DurationMS  int
	ISRC        string
	ReleaseDate string
	CoverURL    string
}

// Option configures the resolver.
type Option func(*Resolver)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.http = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Settings carries the credentials and tuning for catalog lookups.
type Settings struct {
	ClientID        string
	ClientSecret    string
	BaseURL         string
	TokenURL        string
	Market          string
	FallbackMarkets []string
	MinMatchScore   int
	RequestsPerSec  float64
}

// Resolver queries the catalog service for descriptive tags, falling back
// to title heuristics when no confident match exists. Failures never
// propagate; an item without enrichment is not an error.
type Resolver struct {
	settings Settings
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewResolver constructs a Resolver. Empty credentials yield a resolver
// that always answers with the heuristic fallback.
func NewResolver(settings Settings, opts ...Option) *Resolver {
	if settings.MinMatchScore <= 0 {
		settings.MinMatchScore = 7
	}
	if settings.RequestsPerSec <= 0 {
		settings.RequestsPerSec = 8
	}
	resolver := &Resolver{
		settings: settings,
		http:     &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(settings.RequestsPerSec), 1),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

// Enabled reports whether catalog lookups are configured.
func (r *Resolver) Enabled() bool {
	return r.settings.ClientID != "" && r.settings.ClientSecret != ""
}

// Resolve returns the best tags for a source item. The boolean reports
// whether catalog enrichment was applied; false means heuristic tags.
func (r *Resolver) Resolve(ctx context.Context, sourceTitle, uploader string, durationSeconds float64, market string) (Track, bool) {
	fallback := HeuristicTrack(sourceTitle, uploader)
	if !r.Enabled() {
		return fallback, false
	}

	query := strings.TrimSpace(fallback.Artist + " " + fallback.Title)
	if query == "" {
		return fallback, false
	}

	candidates, err := r.searchWithFallback(ctx, query, market)
	if err != nil {
		r.logger.Warn("catalog lookup failed", logging.Error(err))
		return fallback, false
	}
	if len(candidates) == 0 {
		return fallback, false
	}

	best, score := BestMatch(candidates, fallback.Artist, fallback.Title, durationSeconds)
	if score < r.settings.MinMatchScore {
		r.logger.Debug("no confident catalog match",
			logging.String("query", query),
			logging.Int("best_score", score))
		return fallback, false
	}
	return best, true
}

// searchWithFallback tries the preferred market, then no market, then the
// fallback list, stopping at the first market that returns candidates.
func (r *Resolver) searchWithFallback(ctx context.Context, query, market string) ([]Track, error) {
	preferred := strings.ToUpper(strings.TrimSpace(market))
	if preferred == "" {
		preferred = r.settings.Market
	}

	markets := []string{preferred, ""}
	markets = append(markets, r.settings.FallbackMarkets...)

	tried := make(map[string]struct{})
	var lastErr error
	for _, m := range markets {
		if _, done := tried[m]; done {
			continue
		}
		tried[m] = struct{}{}

		candidates, err := r.search(ctx, query, m)
		if err != nil {
			lastErr = err
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	return nil, lastErr
}

func (r *Resolver) search(ctx context.Context, query, market string) ([]Track, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", "10")
	if market != "" {
		params.Set("market", market)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.settings.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		r.invalidateToken()
		return nil, errors.New("catalog token rejected")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog search status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Tracks struct {
			Items []struct {
				Name        string `json:"name"`
				DurationMS  int    `json:"duration_ms"`
				TrackNumber int    `json:"track_number"`
				DiscNumber  int    `json:"disc_number"`
				ExternalIDs struct {
					ISRC string `json:"isrc"`
				} `json:"external_ids"`
				Artists []struct {
					Name string `json:"name"`
				} `json:"artists"`
				Album struct {
					Name        string `json:"name"`
					ReleaseDate string `json:"release_date"`
					TotalTracks int    `json:"total_tracks"`
					Images      []struct {
						URL   string `json:"url"`
						Width int    `json:"width"`
					} `json:"images"`
					Artists []struct {
						Name string `json:"name"`
					} `json:"artists"`
				} `json:"album"`
			} `json:"items"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	tracks := make([]Track, 0, len(payload.Tracks.Items))
	for _, item := range payload.Tracks.Items {
		track := Track{
			Title:       item.Name,
			Album:       item.Album.Name,
			TrackNumber: item.TrackNumber,
			TrackTotal:  item.Album.TotalTracks,
			DiscNumber:  item.DiscNumber,
			DurationMS:  item.DurationMS,
			ISRC:        item.ExternalIDs.ISRC,
			ReleaseDate: item.Album.ReleaseDate,
		}
		if len(item.Artists) > 0 {
			names := make([]string, 0, len(item.Artists))
			for _, artist := range item.Artists {
				names = append(names, artist.Name)
			}
			track.Artist = strings.Join(names, ", ")
		}
		if len(item.Album.Artists) > 0 {
			track.AlbumArtist = item.Album.Artists[0].Name
		}
		best := 0
		for _, image := range item.Album.Images {
			if image.Width > best {
				best = image.Width
				track.CoverURL = image.URL
			}
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func (r *Resolver) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.token != "" && time.Now().Before(r.tokenExpiry) {
		token := r.token
		r.mu.Unlock()
		return token, nil
	}
	r.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.settings.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(r.settings.ClientID, r.settings.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("catalog token status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("empty catalog token")
	}

	r.mu.Lock()
	r.token = payload.AccessToken
	// Renew slightly early so in-flight searches never race expiry.
	r.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - 30*time.Second)
	r.mu.Unlock()
	return payload.AccessToken, nil
}

func (r *Resolver) invalidateToken() {
	r.mu.Lock()
	r.token = ""
	r.tokenExpiry = time.Time{}
	r.mu.Unlock()
}
