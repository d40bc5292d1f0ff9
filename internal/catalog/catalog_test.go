package catalog_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tonearm/internal/catalog"
)

func TestHeuristicTrackSplitsArtist(t *testing.T) {
	track := catalog.HeuristicTrack("Daft Punk - One More Time (Official Video)", "DaftPunkVEVO")
	if track.Artist != "Daft Punk" || track.Title != "One More Time" {
		t.Fatalf("unexpected heuristic track %+v", track)
	}
	if track.Album != "" {
		t.Fatalf("heuristic tags must not invent an album, got %q", track.Album)
	}
}

func TestHeuristicTrackDropsGenericUploader(t *testing.T) {
	track := catalog.HeuristicTrack("Midnight City", "YouTube Mix")
	if track.Artist != "" {
		t.Fatalf("artist = %q, want empty for generic channel label", track.Artist)
	}
	if track.Title != "Midnight City" {
		t.Fatalf("title = %q, want %q", track.Title, "Midnight City")
	}
}

func TestBestMatchScoring(t *testing.T) {
	candidates := []catalog.Track{
		{Title: "One More Time", Artist: "Daft Punk", DurationMS: 320_000},
		{Title: "One More Time (Live)", Artist: "Daft Punk", DurationMS: 500_000},
		{Title: "Something Else", Artist: "Nobody", DurationMS: 100_000},
	}

	best, score := catalog.BestMatch(candidates, "Daft Punk", "One More Time", 321)
	if best.Title != "One More Time" {
		t.Fatalf("unexpected best candidate %+v", best)
	}
	// Exact title (4) + exact artist (3) + duration within 2% (2).
	if score != 9 {
		t.Fatalf("expected score 9, got %d", score)
	}
}

func TestBestMatchDurationTolerance(t *testing.T) {
	candidates := []catalog.Track{{Title: "Song", Artist: "Band", DurationMS: 103_000}}

	// 100s target, 2% tolerance = 2s: 103s is outside.
	_, score := catalog.BestMatch(candidates, "Band", "Song", 100)
	if score != 7 {
		t.Fatalf("expected 7 without duration bonus, got %d", score)
	}

	// 200s target, 2% tolerance = 4s: 203s is inside.
	candidates[0].DurationMS = 203_000
	_, score = catalog.BestMatch(candidates, "Band", "Song", 200)
	if score != 9 {
		t.Fatalf("expected 9 with duration bonus, got %d", score)
	}
}

func newCatalogServer(t *testing.T, resultsByMarket map[string][]map[string]any, searchedMarkets *[]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		market := r.URL.Query().Get("market")
		*searchedMarkets = append(*searchedMarkets, market)
		items := resultsByMarket[market]
		json.NewEncoder(w).Encode(map[string]any{
			"tracks": map[string]any{"items": items},
		})
	})
	return httptest.NewServer(mux)
}

func trackItem(title, artist string, durationMS int) map[string]any {
	return map[string]any{
		"name":         title,
		"duration_ms":  durationMS,
		"track_number": 1,
		"disc_number":  1,
		"external_ids": map[string]any{"isrc": "TEST0001"},
		"artists":      []map[string]any{{"name": artist}},
		"album": map[string]any{
			"name":         "Album X",
			"release_date": "2001-03-12",
			"total_tracks": 14,
			"artists":      []map[string]any{{"name": artist}},
			"images": []map[string]any{
				{"url": "http://img/small", "width": 64},
				{"url": "http://img/big", "width": 640},
			},
		},
	}
}

func TestResolveWalksMarketFallback(t *testing.T) {
	var searched []string
	server := newCatalogServer(t, map[string][]map[string]any{
		"": nil,
		"SE": nil,
		"US": {trackItem("One More Time", "Daft Punk", 320_000)},
	}, &searched)
	defer server.Close()

	resolver := catalog.NewResolver(catalog.Settings{
		ClientID:        "id",
		ClientSecret:    "secret",
		BaseURL:         server.URL,
		TokenURL:        server.URL + "/token",
		Market:          "SE",
		FallbackMarkets: []string{"US", "GB"},
		MinMatchScore:   7,
		RequestsPerSec:  1000,
	})

	track, matched := resolver.Resolve(context.Background(), "Daft Punk - One More Time", "chan", 320, "")
	if !matched {
		t.Fatal("expected catalog match")
	}
	if track.Album != "Album X" || track.ISRC != "TEST0001" {
		t.Fatalf("unexpected enriched track %+v", track)
	}
	if track.CoverURL != "http://img/big" {
		t.Fatalf("expected largest cover, got %q", track.CoverURL)
	}
	want := []string{"SE", "", "US"}
	if fmt.Sprint(searched) != fmt.Sprint(want) {
		t.Fatalf("unexpected market order %v, want %v", searched, want)
	}
}

func TestResolveBelowThresholdFallsBackToHeuristic(t *testing.T) {
	var searched []string
	server := newCatalogServer(t, map[string][]map[string]any{
		"": {trackItem("Completely Different", "Other Artist", 90_000)},
	}, &searched)
	defer server.Close()

	resolver := catalog.NewResolver(catalog.Settings{
		ClientID:       "id",
		ClientSecret:   "secret",
		BaseURL:        server.URL,
		TokenURL:       server.URL + "/token",
		MinMatchScore:  7,
		RequestsPerSec: 1000,
	})

	track, matched := resolver.Resolve(context.Background(), "Daft Punk - One More Time", "chan", 320, "")
	if matched {
		t.Fatal("expected heuristic fallback below threshold")
	}
	if track.Artist != "Daft Punk" || track.Title != "One More Time" || track.Album != "" {
		t.Fatalf("unexpected fallback track %+v", track)
	}
}

func TestResolveWithoutCredentialsIsHeuristic(t *testing.T) {
	resolver := catalog.NewResolver(catalog.Settings{})
	if resolver.Enabled() {
		t.Fatal("resolver without credentials must be disabled")
	}
	track, matched := resolver.Resolve(context.Background(), "Artist - Song", "chan", 0, "")
	if matched || track.Artist != "Artist" || track.Title != "Song" {
		t.Fatalf("unexpected result %+v matched=%v", track, matched)
	}
}
