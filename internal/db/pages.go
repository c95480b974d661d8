package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const pageColumns = `id, url, page_type, body, content_hash, http_status, status, last_error,
	permanent, attempts, retry_after, fetched_at, expires_at`

func scanPage(row pgx.Row) (*CachedPage, error) {
	var p CachedPage
	err := row.Scan(&p.ID, &p.URL, &p.PageType, &p.Body, &p.ContentHash, &p.HTTPStatus, &p.Status, &p.LastError,
		&p.Permanent, &p.Attempts, &p.RetryAfter, &p.FetchedAt, &p.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PageByURL returns the cache row for pageURL, or nil when there is none.
func (db *DB) PageByURL(ctx context.Context, pageURL string) (*CachedPage, error) {
	page, err := scanPage(db.pool.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM crawled_pages WHERE url = $1`, pageURL))
	if err != nil {
		return nil, fmt.Errorf("failed to get cached page: %w", err)
	}
	return page, nil
}

// FreshPage returns the page only if Servable within maxAge, and marks it
// as recently used.
func (db *DB) FreshPage(ctx context.Context, pageURL string, maxAge time.Duration) (*CachedPage, error) {
	page, err := db.PageByURL(ctx, pageURL)
	if err != nil || page == nil {
		return nil, err
	}
	if !page.Servable(maxAge, time.Now()) {
		return nil, nil
	}
	_, _ = db.pool.Exec(ctx, `UPDATE crawled_pages SET touched_at = NOW() WHERE id = $1`, page.ID)
	return page, nil
}

// PutPage stores a successful fetch and clears any failure state. A nil
// ExpiresAt means DefaultPageCacheTTL from now.
func (db *DB) PutPage(ctx context.Context, page *CachedPage) error {
	if page.Body == nil {
		return fmt.Errorf("cached page %s has no body", page.URL)
	}
	if page.HTTPStatus == 0 {
		page.HTTPStatus = 200
	}
	if page.ExpiresAt == nil {
		t := time.Now().Add(DefaultPageCacheTTL)
		page.ExpiresAt = &t
	}
	page.Status = PageStatusOK
	page.ContentHash = HashContent(*page.Body)

	err := db.pool.QueryRow(ctx,
		`INSERT INTO crawled_pages (url, page_type, body, content_hash, http_status, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (url) DO UPDATE SET
		     page_type = CASE WHEN $2 = '' THEN crawled_pages.page_type ELSE $2 END,
		     body = $3, content_hash = $4, http_status = $5, status = $6, expires_at = $7,
		     last_error = '', permanent = FALSE, attempts = 0, retry_after = NULL,
		     fetched_at = NOW(), touched_at = NOW()
		 RETURNING id, fetched_at`,
		page.URL, page.PageType, *page.Body, page.ContentHash, page.HTTPStatus, page.Status, page.ExpiresAt,
	).Scan(&page.ID, &page.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to store page %s: %w", page.URL, err)
	}
	return nil
}

// RecordPageFailure counts a failed fetch of pageURL. Missing pages are
// marked permanent; other failures wait Backoff(attempts) before a retry.
func (db *DB) RecordPageFailure(ctx context.Context, pageURL string, httpStatus int, message string) error {
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		var attempts int
		var permanent bool
		err := tx.QueryRow(ctx,
			`INSERT INTO crawled_pages (url, http_status, status, last_error, permanent, attempts, body)
			 VALUES ($1, $2, $3, $4, $5, 1, NULL)
			 ON CONFLICT (url) DO UPDATE SET
			     http_status = $2, status = $3, last_error = $4,
			     permanent = $5 OR crawled_pages.permanent,
			     attempts = crawled_pages.attempts + 1,
			     fetched_at = NOW()
			 RETURNING attempts, permanent`,
			pageURL, httpStatus, PageStatus(httpStatus), message, IsPermanentHTTPStatus(httpStatus),
		).Scan(&attempts, &permanent)
		if err != nil {
			return err
		}

		var retryAfter *time.Time
		if !permanent {
			t := time.Now().Add(Backoff(attempts))
			retryAfter = &t
		}
		_, err = tx.Exec(ctx, `UPDATE crawled_pages SET retry_after = $2 WHERE url = $1`, pageURL, retryAfter)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record failed fetch of %s: %w", pageURL, err)
	}
	return nil
}

// ExpirePage makes the next lookup of pageURL miss.
func (db *DB) ExpirePage(ctx context.Context, pageURL string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE crawled_pages SET expires_at = NOW() - INTERVAL '1 second' WHERE url = $1`, pageURL)
	if err != nil {
		return fmt.Errorf("failed to expire page %s: %w", pageURL, err)
	}
	return nil
}

// DeleteExpiredPages removes expired pages and transient failures whose
// backoff has elapsed. Permanent failures are kept.
func (db *DB) DeleteExpiredPages(ctx context.Context) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM crawled_pages
		 WHERE expires_at < NOW()
		    OR (status <> 'ok' AND NOT permanent AND retry_after < NOW())`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired pages: %w", err)
	}
	return tag.RowsAffected(), nil
}
