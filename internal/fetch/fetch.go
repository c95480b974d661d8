// Package fetch retrieves web pages over HTTP and turns their markup into
// metadata and readable text. It provides the page fetching and extraction
// used by discovery and scraping.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; VoiceAgentBuilder/1.0)"

// Result holds the decoded content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
}

// ErrBackoff marks a URL skipped because an earlier fetch of it failed.
var ErrBackoff = errors.New("url is backing off after a failed fetch")

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

func (o *Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// URL retrieves a page and decodes its body to UTF-8. A non-2xx status, an
// empty body or a content type that is neither HTML nor text is an error.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,text/plain;q=0.8")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := opts.client().Do(req)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	result := &Result{
		URL:         urlStr,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	if !isTextContent(contentType) {
		return result, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("unsupported content type %q", contentType),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := charset.NewReader(resp.Body, contentType)
	if err != nil {
		return result, &Error{
			URL:        urlStr,
			Message:    "failed to decode response body",
			StatusCode: resp.StatusCode,
			Cause:      err,
		}
	}

	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return result, &Error{
			URL:        urlStr,
			Message:    "failed to read response body",
			StatusCode: resp.StatusCode,
			Cause:      err,
		}
	}

	result.HTML = string(bodyBytes)
	if strings.TrimSpace(result.HTML) == "" {
		return result, &Error{
			URL:        urlStr,
			Message:    "empty response body",
			StatusCode: resp.StatusCode,
		}
	}

	return result, nil
}

// isTextContent accepts HTML, XHTML and any text/* type. A missing header is
// treated as HTML.
func isTextContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/xhtml+xml"
}

// HTTPFetcher fetches pages over HTTP. It satisfies crawling.Fetcher.
type HTTPFetcher struct {
	options *Options
}

// NewHTTPFetcher creates a fetcher. Nil options use DefaultOptions.
func NewHTTPFetcher(opts *Options) *HTTPFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTTPFetcher{options: opts}
}

// Fetch returns the decoded markup of urlStr.
func (f *HTTPFetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		return "", err
	}
	return result.HTML, nil
}
