package catalog

import (
	"strings"

	"tonearm/internal/textutil"
)

// Candidate scoring weights. A confident match needs at least the
// configured minimum (7 by default), which in practice requires an exact
// title plus either an exact artist or a partial artist with a duration
// agreement.
const (
	scoreTitleExact    = 4
	scoreTitlePartial  = 2
	scoreArtistExact   = 3
	scoreArtistPartial = 1
	scoreDuration      = 2
)

// HeuristicTrack derives tags from the source item's own title and
// uploader strings. Used whenever catalog enrichment is unavailable or
// not confident enough; album stays empty.
func HeuristicTrack(sourceTitle, uploader string) Track {
	artist, title := textutil.SplitArtistTitle(sourceTitle, uploader)
	if title == "" {
		title = strings.TrimSpace(sourceTitle)
	}
	return Track{Title: title, Artist: artist}
}

// BestMatch scores candidates against the heuristic artist/title/duration
// and returns the highest scorer with its score.
func BestMatch(candidates []Track, artist, title string, durationSeconds float64) (Track, int) {
	wantTitle := textutil.NormalizeForMatch(title)
	wantArtist := textutil.NormalizeForMatch(artist)

	var best Track
	bestScore := -1
	for _, candidate := range candidates {
		score := scoreCandidate(candidate, wantTitle, wantArtist, durationSeconds)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore
}

func scoreCandidate(candidate Track, wantTitle, wantArtist string, durationSeconds float64) int {
	score := 0

	gotTitle := textutil.NormalizeForMatch(candidate.Title)
	switch {
	case wantTitle != "" && gotTitle == wantTitle:
		score += scoreTitleExact
	case wantTitle != "" && (strings.Contains(gotTitle, wantTitle) || strings.Contains(wantTitle, gotTitle)):
		score += scoreTitlePartial
	}

	gotArtist := textutil.NormalizeForMatch(candidate.Artist)
	switch {
	case wantArtist != "" && gotArtist == wantArtist:
		score += scoreArtistExact
	case wantArtist != "" && gotArtist != "" && (strings.Contains(gotArtist, wantArtist) || strings.Contains(wantArtist, gotArtist)):
		score += scoreArtistPartial
	}

	if durationSeconds > 0 && candidate.DurationMS > 0 {
		tolerance := durationSeconds * 0.02
		if tolerance < 2 {
			tolerance = 2
		}
		gotSeconds := float64(candidate.DurationMS) / 1000
		diff := gotSeconds - durationSeconds
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance {
			score += scoreDuration
		}
	}
	return score
}
