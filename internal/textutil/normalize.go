package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketNoisePattern = regexp.MustCompile(`\s*[\[(（【〔〖].*?[\])）】〕〗]\s*`)
	featSuffixPattern   = regexp.MustCompile(`(?i)\s+(feat\.?|ft\.?|with)\s+.+$`)
	noiseWordPattern    = regexp.MustCompile(`(?i)\b(official\s*video|audio|mv|hd|4k|lyrics|lyric|visualizer|remastered|remaster)\b`)
	delimTailPattern    = regexp.MustCompile(`\s*[|｜／/•·]\s*.*$`)
	matchPunctPattern   = regexp.MustCompile(`[\[\](){}"'“”‘’·•.,!?]`)
	matchFeatPattern    = regexp.MustCompile(`(?i)\b(feat|ft|with)\b.*$`)
	genericChannelRe    = regexp.MustCompile(`(?i)^(youtube|youtube\s+mix)$`)

	diacriticFolder = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// StripTailAfterDelims drops everything after the first pipe/slash/bullet
// style delimiter. Uploaders commonly append channel branding there.
func StripTailAfterDelims(s string) string {
	return strings.TrimSpace(delimTailPattern.ReplaceAllString(s, ""))
}

// CleanTitleNoise removes bracketed annotations, noise words such as
// "official video" or "lyrics", feat./ft. suffixes and delimiter tails
// from a media title. Dashes are unified so the artist/title split sees
// a single hyphen form.
func CleanTitleNoise(s string) string {
	out := strings.NewReplacer("–", "-", "—", "-").Replace(s)
	out = bracketNoisePattern.ReplaceAllString(out, " ")
	out = featSuffixPattern.ReplaceAllString(out, " ")
	out = noiseWordPattern.ReplaceAllString(out, " ")
	out = delimTailPattern.ReplaceAllString(out, " ")
	return strings.Join(strings.Fields(out), " ")
}

// CompactSpacedLetters joins single-letter token runs ("a b b a" -> "ABBA").
// Some uploader names are stylized with spaced capitals.
func CompactSpacedLetters(s string) string {
	tokens := strings.Fields(strings.TrimSpace(s))
	if len(tokens) < 2 {
		return s
	}
	for _, t := range tokens {
		if len([]rune(t)) != 1 {
			return s
		}
	}
	return strings.ToUpper(strings.Join(tokens, ""))
}

// SanitizeChannelArtist blanks generic channel labels ("YouTube",
// "YouTube Mix") that carry no real artist information. Mix listings in
// particular report such labels in place of an uploader.
func SanitizeChannelArtist(artist string) string {
	if genericChannelRe.MatchString(strings.TrimSpace(artist)) {
		return ""
	}
	return artist
}

// SplitArtistTitle derives a best-guess (artist, title) pair from a raw
// media title and uploader string. The title is de-noised first; if it
// contains a hyphen the left side is taken as the artist, otherwise the
// uploader is used as the artist unless it is a generic channel label.
func SplitArtistTitle(title, uploader string) (string, string) {
	cleaned := CleanTitleNoise(StripTailAfterDelims(title))
	up := CompactSpacedLetters(strings.Join(strings.Fields(uploader), " "))

	if idx := strings.Index(cleaned, " - "); idx > 0 {
		artist := strings.TrimSpace(cleaned[:idx])
		song := StripTailAfterDelims(strings.TrimSpace(cleaned[idx+3:]))
		if artist != "" && song != "" {
			return SanitizeChannelArtist(artist), song
		}
	}
	if artist := SanitizeChannelArtist(up); artist != "" && cleaned != "" {
		return artist, StripTailAfterDelims(cleaned)
	}
	return "", StripTailAfterDelims(cleaned)
}

// NormalizeForMatch lowercases, folds diacritics, strips punctuation and
// feat. suffixes, and collapses whitespace. Used to compare titles and
// artist names against catalog candidates.
func NormalizeForMatch(s string) string {
	folded, _, err := transform.String(diacriticFolder, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	folded = matchPunctPattern.ReplaceAllString(folded, " ")
	folded = matchFeatPattern.ReplaceAllString(folded, "")
	return strings.Join(strings.Fields(folded), " ")
}
