package fetch

import (
	"context"
	"time"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/db"
)

// PostgresCache stores pages in the crawled_pages table.
type PostgresCache struct {
	db  *db.DB
	ttl time.Duration
}

// NewPostgresCache creates a cache over database. A zero ttl uses db.DefaultPageCacheTTL.
func NewPostgresCache(database *db.DB, ttl time.Duration) *PostgresCache {
	if ttl <= 0 {
		ttl = db.DefaultPageCacheTTL
	}
	return &PostgresCache{db: database, ttl: ttl}
}

// Get returns the stored markup for url if it was fetched successfully within the TTL.
func (c *PostgresCache) Get(ctx context.Context, url string) (string, bool, error) {
	page, err := c.db.FreshPage(ctx, url, c.ttl)
	if err != nil || page == nil {
		return "", false, err
	}
	return *page.Body, true, nil
}

// Put stores markup for url along with its page type.
func (c *PostgresCache) Put(ctx context.Context, url, markup string) error {
	expiresAt := time.Now().Add(c.ttl)
	return c.db.PutPage(ctx, &db.CachedPage{
		URL:       url,
		PageType:  string(crawling.Classify(url)),
		Body:      &markup,
		ExpiresAt: &expiresAt,
	})
}

// RecordFailure counts a failed fetch so the URL backs off before the next try.
func (c *PostgresCache) RecordFailure(ctx context.Context, url string, statusCode int, message string) error {
	return c.db.RecordPageFailure(ctx, url, statusCode, message)
}

// Blocked reports a URL that failed permanently or is still backing off.
func (c *PostgresCache) Blocked(ctx context.Context, url string) (*Error, error) {
	page, err := c.db.PageByURL(ctx, url)
	if err != nil || page == nil || !page.RetryBlocked(time.Now()) {
		return nil, err
	}
	return &Error{URL: url, Message: "skipped after earlier failure: " + page.LastError, StatusCode: page.HTTPStatus, Cause: ErrBackoff}, nil
}
