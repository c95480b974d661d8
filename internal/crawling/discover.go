package crawling

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Discoverer walks every page reachable from a seed URL on the seed's host and
// records each successfully fetched page with its type and importance.
// A Discoverer holds no run state and may be reused for independent runs.
type Discoverer struct {
	Fetcher Fetcher
	// Extractor supplies page titles. Nil leaves titles empty.
	Extractor MetadataExtractor
	// Workers is the number of concurrent fetches per step. Values below 2
	// fetch one page at a time.
	Workers int
	// MaxPages stops the run after this many pages are discovered. Zero means no limit.
	MaxPages int
	Logger   *log.Logger
}

type fetchOutcome struct {
	markup string
	err    error
}

// Discover crawls from seedURL until the frontier is empty, the page limit is
// reached or ctx is cancelled. Per-page failures are collected in the result;
// an error is returned only for an unusable seed or cancellation, in which
// case the partial result is returned alongside it.
func (d *Discoverer) Discover(ctx context.Context, seedURL string, status StatusFunc) (*DiscoveryResult, error) {
	if strings.TrimSpace(seedURL) == "" {
		return nil, ErrNoSeed
	}
	if d.Fetcher == nil {
		return nil, &Error{Op: "discover", URL: seedURL, Err: ErrNoFetcher}
	}

	seed, err := Normalize(seedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	targetHost, err := TargetHost(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	logger := d.logger().With("host", targetHost)
	result := &DiscoveryResult{
		SeedURL:    seed,
		TargetHost: targetHost,
		Discovered: []DiscoveredPage{},
		Failed:     []string{},
	}
	front := newFrontier(seed)

	status.emit(fmt.Sprintf("Starting scan from: %s", seed))
	logger.Info("discovery started", "seed", seed, "workers", d.workers(), "max_pages", d.MaxPages)

	for front.len() > 0 {
		if err := ctx.Err(); err != nil {
			logger.Warn("discovery cancelled", "discovered", len(result.Discovered), "pending", front.len())
			d.summarize(result, status)
			return result, err
		}

		batchSize := d.workers()
		if d.MaxPages > 0 {
			remaining := d.MaxPages - len(result.Discovered)
			if remaining <= 0 {
				result.Truncated = true
				logger.Info("page limit reached", "limit", d.MaxPages, "pending", front.len())
				break
			}
			batchSize = min(batchSize, remaining)
		}

		batch := front.pop(batchSize)
		for _, pageURL := range batch {
			status.emit(fmt.Sprintf("Scanning: %s", pageURL))
		}
		outcomes := d.fetchBatch(ctx, batch)

		for i, pageURL := range batch {
			// A fetch cut short by cancellation says nothing about the page.
			if outcomes[i].err != nil && ctx.Err() != nil {
				logger.Debug("fetch interrupted", "url", pageURL)
				continue
			}
			d.record(pageURL, outcomes[i], targetHost, front, result, status, logger)
		}
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("discovery cancelled", "discovered", len(result.Discovered), "pending", front.len())
		d.summarize(result, status)
		return result, err
	}

	d.summarize(result, status)
	logger.Info("discovery finished", "discovered", len(result.Discovered), "failed", len(result.Failed))
	return result, nil
}

// fetchBatch fetches every URL in batch, at most d.Workers at a time. Outcomes
// are positional so they can be applied in queue order.
func (d *Discoverer) fetchBatch(ctx context.Context, batch []string) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(batch))
	if len(batch) == 1 {
		markup, err := d.Fetcher.Fetch(ctx, batch[0])
		outcomes[0] = fetchOutcome{markup: markup, err: err}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(d.workers())
	for i, pageURL := range batch {
		g.Go(func() error {
			markup, err := d.Fetcher.Fetch(ctx, pageURL)
			outcomes[i] = fetchOutcome{markup: markup, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// record applies one fetch outcome to the frontier and result. It is only
// called from the traversal loop, so frontier state has a single writer.
func (d *Discoverer) record(pageURL string, outcome fetchOutcome, targetHost string, front *frontier, result *DiscoveryResult, status StatusFunc, logger *log.Logger) {
	if outcome.err == nil && strings.TrimSpace(outcome.markup) == "" {
		outcome.err = errors.New("empty response")
	}
	if outcome.err != nil {
		front.markFailed(pageURL)
		result.Failed = append(result.Failed, pageURL)
		status.emit(fmt.Sprintf("Could not access: %s", pageURL))
		logger.Debug("fetch failed", "url", pageURL, "err", outcome.err)
		return
	}

	var meta Metadata
	if d.Extractor != nil {
		meta = d.Extractor.ExtractMetadata(outcome.markup)
	}

	pageType := Classify(pageURL)
	page := DiscoveredPage{
		URL:        pageURL,
		Title:      strings.TrimSpace(meta.Title),
		Type:       pageType,
		Importance: Score(pageURL, pageType),
	}
	result.Discovered = append(result.Discovered, page)
	status.emit(fmt.Sprintf("Found: %s %s", page.Label(), Stars(page.Importance)))

	links, err := ExtractLinks(outcome.markup, pageURL)
	if err != nil {
		logger.Warn("link extraction failed", "url", pageURL, "err", err)
	}

	newLinks := make([]string, 0, len(links))
	for link := range links {
		if InScope(link, targetHost) {
			newLinks = append(newLinks, link)
		}
	}
	slices.Sort(newLinks)

	queued := 0
	for _, link := range newLinks {
		if link != pageURL && front.push(link) {
			queued++
		}
	}
	front.markVisited(pageURL)

	logger.Debug("page discovered", "url", pageURL, "type", pageType, "importance", page.Importance, "links", len(links), "queued", queued)
}

// summarize emits the failure list and the final tally.
func (d *Discoverer) summarize(result *DiscoveryResult, status StatusFunc) {
	if len(result.Failed) > 0 {
		status.emit("URLs that could not be accessed:")
		for _, failedURL := range result.Failed {
			status.emit(fmt.Sprintf("  - %s", failedURL))
		}
	}
	status.emit(fmt.Sprintf("Discovery complete: %d pages found, %d could not be accessed",
		len(result.Discovered), len(result.Failed)))
}

func (d *Discoverer) workers() int {
	if d.Workers < 1 {
		return 1
	}
	return d.Workers
}

func (d *Discoverer) logger() *log.Logger {
	if d.Logger == nil {
		return discardLogger()
	}
	return d.Logger
}
