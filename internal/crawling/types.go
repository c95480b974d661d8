package crawling

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
)

// DiscoveredPage is one successfully fetched page found during discovery.
type DiscoveredPage struct {
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Type       PageType `json:"type"`
	Importance int      `json:"importance"`
}

// Label is the display text used for ordering: the title, or the URL when untitled.
func (p DiscoveredPage) Label() string {
	if p.Title != "" {
		return p.Title
	}
	return p.URL
}

// DiscoveryResult is the outcome of one discovery run.
// Discovered and Failed never share a URL.
type DiscoveryResult struct {
	SeedURL    string           `json:"seed_url"`
	TargetHost string           `json:"target_host"`
	Discovered []DiscoveredPage `json:"discovered"`
	Failed     []string         `json:"failed"`
	// Truncated is set when the run stopped at the page limit with URLs still pending.
	Truncated bool `json:"truncated,omitempty"`
}

// ScrapedMetadata describes a scraped page.
type ScrapedMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        PageType `json:"type"`
}

// ScrapedPage is the extracted content of one selected page.
type ScrapedPage struct {
	Content  string          `json:"content"`
	Metadata ScrapedMetadata `json:"metadata"`
}

// ScrapedContent maps canonical URL to extracted page content.
type ScrapedContent map[string]ScrapedPage

// Metadata is the best-effort page metadata pulled from markup.
type Metadata struct {
	Title       string
	Description string
}

// TextOptions controls main-text extraction.
type TextOptions struct {
	IncludeTables   bool
	IncludeComments bool
}

// Fetcher retrieves the raw markup of a page. Any failure, including an empty
// body or a non-success status, is reported as an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// MetadataExtractor pulls title and description from markup.
type MetadataExtractor interface {
	ExtractMetadata(markup string) Metadata
}

// TextExtractor pulls the main readable text from markup.
type TextExtractor interface {
	ExtractText(markup string, opts TextOptions) (string, error)
}

// Extractor combines metadata and text extraction.
type Extractor interface {
	MetadataExtractor
	TextExtractor
}

// StatusFunc receives human-readable discovery status lines.
type StatusFunc func(message string)

// ProgressFunc receives scrape progress as a message and a completed fraction in (0, 1].
type ProgressFunc func(message string, fraction float64)

func (f StatusFunc) emit(message string) {
	if f != nil {
		f(message)
	}
}

func (f ProgressFunc) emit(message string, fraction float64) {
	if f != nil {
		f(message, fraction)
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
