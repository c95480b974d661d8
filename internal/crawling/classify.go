package crawling

import (
	"net/url"
	"strings"
)

// PageType is the coarse content label assigned to a page from its URL path.
type PageType string

// Page type labels, in classification priority order.
const (
	PageTypeProduct PageType = "product"
	PageTypeService PageType = "service"
	PageTypeArticle PageType = "article"
	PageTypeAbout   PageType = "about"
	PageTypeContact PageType = "contact"
	PageTypeFAQ     PageType = "faq"
	PageTypePage    PageType = "page"
)

// classificationRules is evaluated top to bottom; the first rule with a
// marker contained in the lowercased path wins.
var classificationRules = []struct {
	pageType PageType
	markers  []string
}{
	{PageTypeProduct, []string{"/product"}},
	{PageTypeService, []string{"/service", "/treatment"}},
	{PageTypeArticle, []string{"/blog", "/article", "/news"}},
	{PageTypeAbout, []string{"/about"}},
	{PageTypeContact, []string{"/contact"}},
	{PageTypeFAQ, []string{"/faq", "/faqs"}},
}

// Classify maps a URL to a page type by case-insensitive substring match on its path.
func Classify(rawURL string) PageType {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PageTypePage
	}
	path := strings.ToLower(u.Path)

	for _, rule := range classificationRules {
		for _, marker := range rule.markers {
			if strings.Contains(path, marker) {
				return rule.pageType
			}
		}
	}
	return PageTypePage
}

// Valid reports whether t is one of the known page type labels.
func (t PageType) Valid() bool {
	switch t {
	case PageTypeProduct, PageTypeService, PageTypeArticle, PageTypeAbout,
		PageTypeContact, PageTypeFAQ, PageTypePage:
		return true
	}
	return false
}
