package crawling

import (
	"net/url"
	"strings"
)

// Importance bounds. 3 is the highest priority.
const (
	MinImportance = 1
	MaxImportance = 3
)

// rootSegment stands in for the path of a site's home page.
const rootSegment = "home"

// boostedTypes are page types that usually carry customer-service answers.
var boostedTypes = map[PageType]bool{
	PageTypeProduct: true,
	PageTypeService: true,
	PageTypeAbout:   true,
	PageTypeContact: true,
	PageTypeFAQ:     true,
}

// lowValueTokens mark boilerplate paths.
var lowValueTokens = []string{"privacy", "terms", "legal", "sitemap", "search"}

// PathSegments splits a URL path into its non-empty, unescaped components.
// Splitting happens on the escaped path, so "a%2Fb" is the one segment "a/b".
// The root page has the single synthetic segment "home".
func PathSegments(rawURL string) []string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.EscapedPath()
	}

	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(s); err == nil {
			s = unescaped
		}
		segments = append(segments, s)
	}
	if len(segments) == 0 {
		return []string{rootSegment}
	}
	return segments
}

// Score assigns an importance in [MinImportance, MaxImportance] from path depth,
// page type and low-value path tokens. The type boost is applied before the
// penalty and each is clamped on its own.
func Score(rawURL string, pageType PageType) int {
	depth := len(PathSegments(rawURL))

	score := 1
	switch {
	case depth <= 1:
		score = 3
	case depth <= 3:
		score = 2
	}

	if boostedTypes[pageType] {
		score = min(score+1, MaxImportance)
	}

	if hasLowValueToken(rawURL) {
		score = max(score-1, MinImportance)
	}

	return score
}

func hasLowValueToken(rawURL string) bool {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)

	for _, token := range lowValueTokens {
		if strings.Contains(path, token) {
			return true
		}
	}
	return false
}

// Stars renders an importance as a three-star rating, e.g. "★★☆".
func Stars(importance int) string {
	importance = max(MinImportance, min(importance, MaxImportance))
	return strings.Repeat("★", importance) + strings.Repeat("☆", MaxImportance-importance)
}
