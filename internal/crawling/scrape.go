package crawling

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// Scraper fetches full text content for a caller-selected list of pages.
type Scraper struct {
	Fetcher   Fetcher
	Extractor Extractor
	Logger    *log.Logger
}

// scrapeTextOptions keeps tables and drops comments.
var scrapeTextOptions = TextOptions{IncludeTables: true, IncludeComments: false}

// Scrape processes urls in order. A URL that cannot be normalized, fetched or
// yields no text is left out of the result; one failure never stops the run.
// The only error returned is ctx's, together with the content gathered so far.
func (s *Scraper) Scrape(ctx context.Context, urls []string, progress ProgressFunc) (ScrapedContent, error) {
	content := make(ScrapedContent)
	if s.Fetcher == nil {
		return content, &Error{Op: "scrape", Err: ErrNoFetcher}
	}
	if s.Extractor == nil {
		return content, &Error{Op: "scrape", Err: ErrNoExtractor}
	}

	logger := s.logger()
	total := len(urls)

	for i, rawURL := range urls {
		if err := ctx.Err(); err != nil {
			logger.Warn("scrape cancelled", "done", i, "total", total)
			return content, err
		}

		pageURL, err := Normalize(rawURL)
		if err != nil {
			logger.Warn("skipping malformed URL", "url", rawURL, "err", err)
			continue
		}
		progress.emit(fmt.Sprintf("Scraping %d/%d: %s", i+1, total, pageURL), float64(i+1)/float64(total))

		page, ok := s.scrapeOne(ctx, pageURL, logger)
		if !ok {
			continue
		}
		content[pageURL] = page
	}

	logger.Info("scrape finished", "requested", total, "scraped", len(content))
	return content, nil
}

func (s *Scraper) scrapeOne(ctx context.Context, pageURL string, logger *log.Logger) (ScrapedPage, bool) {
	markup, err := s.Fetcher.Fetch(ctx, pageURL)
	if err != nil || strings.TrimSpace(markup) == "" {
		logger.Debug("fetch failed", "url", pageURL, "err", err)
		return ScrapedPage{}, false
	}

	text, err := s.Extractor.ExtractText(markup, scrapeTextOptions)
	if err != nil {
		logger.Debug("text extraction failed", "url", pageURL, "err", err)
		return ScrapedPage{}, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		logger.Debug("no text extracted", "url", pageURL)
		return ScrapedPage{}, false
	}

	meta := s.Extractor.ExtractMetadata(markup)
	return ScrapedPage{
		Content: text,
		Metadata: ScrapedMetadata{
			Title:       strings.TrimSpace(meta.Title),
			Description: strings.TrimSpace(meta.Description),
			Type:        Classify(pageURL),
		},
	}, true
}

func (s *Scraper) logger() *log.Logger {
	if s.Logger == nil {
		return discardLogger()
	}
	return s.Logger
}
