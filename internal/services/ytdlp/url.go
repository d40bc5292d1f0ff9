package ytdlp

import (
	"net/url"
	"strings"
)

// NormalizeURL rewrites share-style links (youtu.be, shorts, live) into
// canonical watch URLs and strips playlist context when the request targets
// a single item.
func NormalizeURL(raw string, playlist bool) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return strings.TrimSpace(raw)
	}

	host := strings.ToLower(parsed.Host)
	switch {
	case host == "youtu.be":
		id := strings.Trim(parsed.Path, "/")
		if id != "" {
			return watchURL(id, keepList(parsed, playlist))
		}
	case strings.HasSuffix(host, "youtube.com"):
		segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "live" || segments[0] == "embed") {
			return watchURL(segments[1], keepList(parsed, playlist))
		}
		if !playlist && parsed.Path == "/watch" {
			if id := parsed.Query().Get("v"); id != "" {
				return watchURL(id, "")
			}
		}
	}
	return parsed.String()
}

// IsPlaylistURL reports whether the URL addresses a playlist rather than a
// single item.
func IsPlaylistURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if strings.Contains(parsed.Path, "/playlist") {
		return true
	}
	list := parsed.Query().Get("list")
	return list != "" && parsed.Query().Get("v") == ""
}

func keepList(parsed *url.URL, playlist bool) string {
	if !playlist {
		return ""
	}
	return parsed.Query().Get("list")
}

func watchURL(id, list string) string {
	out := "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
	if list != "" {
		out += "&list=" + url.QueryEscape(list)
	}
	return out
}

func canonicalEntryURL(entryURL, id string) string {
	if strings.HasPrefix(entryURL, "http://") || strings.HasPrefix(entryURL, "https://") {
		return entryURL
	}
	if id != "" {
		return watchURL(id, "")
	}
	return entryURL
}
