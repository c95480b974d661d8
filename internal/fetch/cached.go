package fetch

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
)

// Cache stores fetched markup keyed by URL. Get reports a miss for entries
// older than the cache's TTL.
type Cache interface {
	Get(ctx context.Context, url string) (markup string, ok bool, err error)
	Put(ctx context.Context, url, markup string) error
}

// FailureRecorder is implemented by caches that keep a record of failed fetches.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, url string, statusCode int, message string) error
}

// FailureGate is implemented by caches that can refuse URLs whose earlier
// fetches failed. A non-nil *Error is returned instead of fetching.
type FailureGate interface {
	Blocked(ctx context.Context, url string) (*Error, error)
}

// CachedFetcher decorates a fetcher with a page cache. Concurrent fetches of
// the same URL share one upstream request. Failures are never cached.
type CachedFetcher struct {
	next   crawling.Fetcher
	cache  Cache
	group  singleflight.Group
	logger *log.Logger
}

// NewCachedFetcher wraps next with cache. A nil logger discards output.
func NewCachedFetcher(next crawling.Fetcher, cache Cache, logger *log.Logger) *CachedFetcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CachedFetcher{next: next, cache: cache, logger: logger}
}

// Fetch returns cached markup for urlStr when fresh, otherwise fetches and stores it.
// Cache errors are logged and fall through to the network.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	markup, ok, err := f.cache.Get(ctx, urlStr)
	if err != nil {
		f.logger.Warn("cache read failed", "url", urlStr, "err", err)
	} else if ok {
		f.logger.Debug("cache hit", "url", urlStr)
		return markup, nil
	}

	if gate, ok := f.cache.(FailureGate); ok {
		blocked, err := gate.Blocked(ctx, urlStr)
		if err != nil {
			f.logger.Warn("failure lookup failed", "url", urlStr, "err", err)
		} else if blocked != nil {
			f.logger.Debug("skipping url in backoff", "url", urlStr)
			return "", blocked
		}
	}

	v, err, shared := f.group.Do(urlStr, func() (any, error) {
		markup, err := f.next.Fetch(ctx, urlStr)
		if err != nil {
			f.recordFailure(ctx, urlStr, err)
			return "", err
		}
		if err := f.cache.Put(ctx, urlStr, markup); err != nil {
			f.logger.Warn("cache write failed", "url", urlStr, "err", err)
		}
		return markup, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		f.logger.Debug("shared in-flight fetch", "url", urlStr)
	}
	return v.(string), nil
}

func (f *CachedFetcher) recordFailure(ctx context.Context, urlStr string, fetchErr error) {
	recorder, ok := f.cache.(FailureRecorder)
	if !ok {
		return
	}
	statusCode := 0
	var fe *Error
	if errors.As(fetchErr, &fe) {
		statusCode = fe.StatusCode
	}
	if err := recorder.RecordFailure(ctx, urlStr, statusCode, fetchErr.Error()); err != nil {
		f.logger.Warn("failed to record fetch failure", "url", urlStr, "err", err)
	}
}
