package video

import (
	"net/url"
	"strings"
)

var embedPrefixes = []string{"/embed/", "/watch/", "/shorts/", "/v/", "/live/"}

// EmbedID derives the embeddable video id from a pasted URL. It accepts the
// ?v= parameter, /embed/, /watch/ and /shorts/ paths and youtu.be links, and
// otherwise returns the trimmed input.
func EmbedID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		for _, prefix := range embedPrefixes {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				if id := firstSegment(rest); id != "" {
					return id
				}
			}
		}
		if strings.EqualFold(strings.TrimPrefix(u.Hostname(), "www."), "youtu.be") {
			if id := firstSegment(strings.TrimPrefix(u.Path, "/")); id != "" {
				return id
			}
		}
	}

	if _, after, ok := strings.Cut(raw, "v="); ok && after != "" {
		if id, _, _ := strings.Cut(after, "&"); id != "" {
			return id
		}
	}
	return raw
}

func firstSegment(path string) string {
	id, _, _ := strings.Cut(path, "/")
	return id
}
