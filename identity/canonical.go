package identity

import (
	"net/url"
	"strings"
)

// CanonicalListingURL derives the stable external identifier for a
// listing from its public URL. Scheme and host are lowercased, default
// ports, query strings, fragments and trailing slashes are dropped, so
// tracking parameters and share links collapse onto one identifier.
func CanonicalListingURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		// Not parseable as an absolute URL; fall back to the trimmed input
		// so the identifier is still deterministic.
		return strings.TrimRight(raw, "/")
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}

	path := strings.TrimRight(u.EscapedPath(), "/")

	return scheme + "://" + host + path
}

// SlugFromURL returns the last path segment of a listing URL with
// hyphens and underscores replaced by spaces. Used as the last-resort
// title source.
func SlugFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	path := raw
	if err == nil {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx >= 0 {
		path = path[idx+1:]
	}
	path = strings.NewReplacer("-", " ", "_", " ").Replace(path)
	return strings.TrimSpace(path)
}
