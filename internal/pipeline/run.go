package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/db"
	"github.com/jonathan/voice-agent-builder/internal/ingestion"
	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

// ErrNoInput is returned by Run when neither a seed URL nor documents are given.
var ErrNoInput = errors.New("a seed URL or at least one document path is required")

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Runner

	SeedURL string
	// DocumentPaths are files or directories ingested alongside the site.
	DocumentPaths []string

	MinImportance int
	// MaxScrape caps the number of selected pages. Zero means no cap.
	MaxScrape int
	Mode      knowledge.Mode
	AgentType knowledge.AgentType

	OnProgress ProgressCallback
}

// Run executes the whole build: discovery, selection and scraping run
// concurrently with document ingestion, then the merged content is processed,
// combined and exported. The session is returned even on failure, holding
// every step that completed.
func Run(ctx context.Context, opts RunOptions) (*session.Session, error) {
	sess := session.New(opts.SeedURL)
	if opts.SeedURL == "" && len(opts.DocumentPaths) == 0 {
		return sess, ErrNoInput
	}
	if opts.AgentType == "" {
		opts.AgentType = knowledge.AgentVoice
	}
	if !opts.AgentType.Valid() {
		return sess, fmt.Errorf("unknown agent type %q", opts.AgentType)
	}

	r := &opts.Runner
	logger := r.logger()
	progress := opts.OnProgress

	var (
		discovery *crawling.DiscoveryResult
		content   crawling.ScrapedContent
		docs      ingestion.Documents
		mu        sync.Mutex
	)

	g, gCtx := errgroup.WithContext(ctx)

	// Site branch: discover, select, scrape
	if opts.SeedURL != "" {
		g.Go(func() error {
			result, err := r.Discover(gCtx, opts.SeedURL, progress)
			if err != nil {
				return err
			}
			urls := Select(result, opts.MinImportance, opts.MaxScrape)
			progress.emit(ProgressEvent{
				Step:    StepDiscover,
				Message: fmt.Sprintf("Selected %d of %d pages", len(urls), len(result.Discovered)),
			})

			scraped, err := r.Scrape(gCtx, urls, progress)
			if err != nil {
				return err
			}

			mu.Lock()
			discovery, content = result, scraped
			mu.Unlock()
			return nil
		})
	}

	// Document branch
	if len(opts.DocumentPaths) > 0 {
		g.Go(func() error {
			found, err := r.Ingest(opts.DocumentPaths, progress)
			if err != nil {
				return fmt.Errorf("document ingestion failed: %w", err)
			}
			mu.Lock()
			docs = found
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return sess, err
	}

	if discovery != nil {
		sess.SetDiscovery(discovery)
		sess.SiteContent = content
	}
	sess.AddDocuments(docs)

	persist := func(step string, v any) error {
		path, err := r.Persist(ctx, sess.ID, step, v)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", step, err)
		}
		if path != "" {
			logger.Info("saved artifact", "step", step, "path", path)
			progress.emit(ProgressEvent{Step: step, Message: "Saved " + step, Artifact: path})
		}
		return nil
	}

	if sess.Discovery != nil {
		if err := persist(db.StepDiscovery, sess.Discovery); err != nil {
			return sess, err
		}
		if err := persist(db.StepScrapedContent, sess.SiteContent); err != nil {
			return sess, err
		}
	}
	if len(sess.Documents) > 0 {
		if err := persist(db.StepDocumentContent, sess.Documents); err != nil {
			return sess, err
		}
	}

	items := sess.ContentItems()
	if len(items) == 0 {
		return sess, knowledge.ErrNoValidContent
	}

	processed, err := r.Process(ctx, items, opts.Mode, progress)
	sess.Processed = processed
	if err != nil {
		return sess, fmt.Errorf("processing failed: %w", err)
	}
	if err := persist(db.StepProcessedContent, processed); err != nil {
		return sess, err
	}

	progress.emit(ProgressEvent{Step: StepCombine, Message: fmt.Sprintf("Combining %d sources for a %s agent", len(processed), opts.AgentType)})
	doc, err := r.Combine(ctx, processed, opts.AgentType)
	if err != nil {
		return sess, fmt.Errorf("combining failed: %w", err)
	}
	sess.Combined = doc

	if r.Store != nil {
		paths, err := r.Export(ctx, sess.ID, doc)
		if err != nil {
			return sess, fmt.Errorf("export failed: %w", err)
		}
		for _, format := range Formats() {
			progress.emit(ProgressEvent{Step: StepExport, Message: "Exported " + string(format), Artifact: paths[format]})
		}
		if _, err := r.Store.Save(ctx, sess); err != nil {
			return sess, fmt.Errorf("failed to save session: %w", err)
		}
	}

	logger.Info("pipeline complete", "session", sess.ID, "sources", doc.SourceCount, "sections", len(doc.Sections))
	return sess, nil
}
