package crawling

import (
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns the canonical URLs on pageURL's host that markup links
// to. Relative hrefs resolve against pageURL, or against the document's
// <base href> when it has one. Hrefs that do not parse are skipped.
func ExtractLinks(markup, pageURL string) (map[string]struct{}, error) {
	base, err := url.Parse(pageURL)
	if err == nil && (base.Scheme == "" || base.Host == "") {
		err = errors.New("base URL needs a scheme and host")
	}
	if err != nil {
		return nil, &Error{Op: "extract links", URL: pageURL, Err: err}
	}
	host := base.Host

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &Error{Op: "extract links", URL: pageURL, Err: err}
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	links := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		target := base.ResolveReference(ref).String()
		if !InScope(target, host) {
			return
		}
		if canonical, err := Normalize(target); err == nil {
			links[canonical] = struct{}{}
		}
	})
	return links, nil
}
