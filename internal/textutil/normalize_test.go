package textutil

import "testing"

func TestSplitArtistTitleWithHyphen(t *testing.T) {
	artist, title := SplitArtistTitle("Daft Punk - Harder Better Faster (Official Video)", "Some Channel")
	if artist != "Daft Punk" {
		t.Errorf("artist = %q, want %q", artist, "Daft Punk")
	}
	if title != "Harder Better Faster" {
		t.Errorf("title = %q, want %q", title, "Harder Better Faster")
	}
}

func TestSplitArtistTitleFallsBackToUploader(t *testing.T) {
	artist, title := SplitArtistTitle("Midnight City [4K]", "M83")
	if artist != "M83" {
		t.Errorf("artist = %q, want uploader fallback %q", artist, "M83")
	}
	if title != "Midnight City" {
		t.Errorf("title = %q, want %q", title, "Midnight City")
	}
}

func TestSplitArtistTitleIgnoresGenericChannelLabels(t *testing.T) {
	cases := []struct {
		uploader string
	}{
		{"YouTube"},
		{"YouTube Mix"},
		{"youtube mix"},
		{" YOUTUBE  MIX "},
	}
	for _, tc := range cases {
		artist, title := SplitArtistTitle("Midnight City", tc.uploader)
		if artist != "" {
			t.Errorf("uploader %q: artist = %q, want empty for generic channel label", tc.uploader, artist)
		}
		if title != "Midnight City" {
			t.Errorf("uploader %q: title = %q, want %q", tc.uploader, title, "Midnight City")
		}
	}

	if artist, _ := SplitArtistTitle("YouTube - Broadcast Yourself", "Channel"); artist != "" {
		t.Errorf("hyphen-derived artist = %q, want generic label blanked", artist)
	}
}

func TestSplitArtistTitleStripsFeatSuffix(t *testing.T) {
	_, title := SplitArtistTitle("Artist - Song feat. Somebody Else", "")
	if title != "Song" {
		t.Errorf("title = %q, want %q", title, "Song")
	}
}

func TestCleanTitleNoiseDropsDelimiterTail(t *testing.T) {
	got := CleanTitleNoise("Song Name | Channel Branding")
	if got != "Song Name" {
		t.Errorf("CleanTitleNoise = %q, want %q", got, "Song Name")
	}
}

func TestCompactSpacedLetters(t *testing.T) {
	if got := CompactSpacedLetters("a b b a"); got != "ABBA" {
		t.Errorf("CompactSpacedLetters = %q, want ABBA", got)
	}
	if got := CompactSpacedLetters("Daft Punk"); got != "Daft Punk" {
		t.Errorf("multi-letter tokens should pass through, got %q", got)
	}
}

func TestNormalizeForMatchFoldsDiacritics(t *testing.T) {
	a := NormalizeForMatch("Déjà Vu (feat. Jay-Z)")
	b := NormalizeForMatch("deja vu")
	if a != b {
		t.Errorf("NormalizeForMatch(%q) = %q, want %q", "Déjà Vu (feat. Jay-Z)", a, b)
	}
}

func TestSanitizeFileNameLimitsLength(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	if got := SanitizeFileName(string(long)); len([]rune(got)) > 200 {
		t.Errorf("SanitizeFileName returned %d runes, want <= 200", len([]rune(got)))
	}
}

func TestSanitizeFileNameReplacesUnsafe(t *testing.T) {
	if got := SanitizeFileName(`AC/DC: Back*In?Black`); got != "AC-DC- Back-InBlack" {
		t.Errorf("SanitizeFileName = %q", got)
	}
}
