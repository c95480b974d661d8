package crawling

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// normalizeFlags collapses duplicate slashes before a single trailing slash is removed.
const normalizeFlags = purell.FlagRemoveFragment |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveTrailingSlash

// Normalize canonicalizes a URL into the key used for crawl deduplication.
// The fragment and query string are dropped, repeated path separators collapse
// to one and one trailing separator is stripped. Encoded slashes (%2F) are
// kept as they are. A URL with an empty path
// becomes scheme://host. Normalize(Normalize(u)) == Normalize(u).
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: must have scheme and host", rawURL)
	}

	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	if escaped := u.EscapedPath(); strings.Contains(strings.ToUpper(escaped), "%2F") {
		return normalizeEncodedPath(u, escaped)
	}
	return purell.NormalizeURL(u, normalizeFlags), nil
}

// normalizeEncodedPath applies the same path rules to the escaped path, so an
// encoded slash stays part of its segment instead of becoming a separator.
func normalizeEncodedPath(u *url.URL, escaped string) (string, error) {
	for strings.Contains(escaped, "//") {
		escaped = strings.ReplaceAll(escaped, "//", "/")
	}
	escaped = strings.TrimSuffix(escaped, "/")

	path, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("invalid URL path %q: %w", escaped, err)
	}
	u.Path, u.RawPath = path, escaped
	return u.String(), nil
}

// InScope reports whether rawURL belongs to targetHost. Hosts are compared
// for exact equality: subdomains are out of scope and the scheme is ignored.
func InScope(rawURL, targetHost string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Host == targetHost
}

// TargetHost returns the host a crawl seeded at seedURL is scoped to.
func TargetHost(seedURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(seedURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse seed URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("seed URL %q has no host", seedURL)
	}
	return u.Host, nil
}
