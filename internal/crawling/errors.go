// Package crawling discovers, prioritizes and scrapes the pages of a single website.
package crawling

import (
	"errors"
)

var (
	// ErrNoSeed is returned when discovery is started without a seed URL.
	ErrNoSeed = errors.New("seed URL is required")
	// ErrInvalidSeed is returned when the seed URL cannot be normalized or has no host.
	ErrInvalidSeed = errors.New("invalid seed URL")
	// ErrNoFetcher is returned by Discover and Scrape without a Fetcher.
	ErrNoFetcher = errors.New("no fetcher configured")
	// ErrNoExtractor is returned by Scrape without an Extractor.
	ErrNoExtractor = errors.New("no extractor configured")
)

// Error reports a crawl operation that could not run.
type Error struct {
	Op  string // "discover", "scrape" or "extract links"
	URL string
	Err error
}

func (e *Error) Error() string {
	msg := "crawl: " + e.Op
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
