// Package pipeline orchestrates discovery, scraping, document ingestion,
// AI processing, combining and export for one knowledge-base build.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/db"
	"github.com/jonathan/voice-agent-builder/internal/fetch"
	"github.com/jonathan/voice-agent-builder/internal/ingestion"
	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/llm"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

// Step names used in progress events and the step registry.
const (
	StepDiscover = "discover"
	StepScrape   = "scrape"
	StepIngest   = "ingest"
	StepProcess  = "process"
	StepCombine  = "combine"
	StepExport   = "export"
)

// ErrNoLLM is returned by Process and Combine when the Runner has no client.
var ErrNoLLM = errors.New("language model client is not configured")

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string  `json:"step"`
	Message  string  `json:"message"`
	Fraction float64 `json:"fraction,omitempty"`
	// Artifact is the path of a file written by the step, if any.
	Artifact string `json:"artifact,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

func (f ProgressCallback) emit(event ProgressEvent) {
	if f != nil {
		f(event)
	}
}

func (f ProgressCallback) status(step string) crawling.StatusFunc {
	if f == nil {
		return nil
	}
	return func(msg string) { f(ProgressEvent{Step: step, Message: msg}) }
}

func (f ProgressCallback) progress(step string) crawling.ProgressFunc {
	if f == nil {
		return nil
	}
	return func(msg string, fraction float64) {
		f(ProgressEvent{Step: step, Message: msg, Fraction: fraction})
	}
}

// Runner holds the collaborators shared by every step. Each method performs
// one step and returns its output without touching a session, so callers
// decide what to keep.
type Runner struct {
	Fetcher   crawling.Fetcher
	Extractor crawling.Extractor
	// LLM is required by Process and Combine only.
	LLM llm.Client
	// Store persists artifacts. Nil disables persistence.
	Store  *session.Store
	Logger *log.Logger

	Workers   int
	MaxPages  int
	BatchSize int
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}

func (r *Runner) extractor() crawling.Extractor {
	if r.Extractor == nil {
		return fetch.NewExtractor()
	}
	return r.Extractor
}

// Discover crawls the site reachable from seedURL.
func (r *Runner) Discover(ctx context.Context, seedURL string, progress ProgressCallback) (*crawling.DiscoveryResult, error) {
	d := &crawling.Discoverer{
		Fetcher:   r.Fetcher,
		Extractor: r.extractor(),
		Workers:   r.Workers,
		MaxPages:  r.MaxPages,
		Logger:    r.logger().WithPrefix("discover"),
	}
	result, err := d.Discover(ctx, seedURL, progress.status(StepDiscover))
	if err != nil {
		return result, fmt.Errorf("discovery failed: %w", err)
	}
	return result, nil
}

// Select returns the URLs of discovered pages with at least minImportance,
// in tree order, keeping at most maxScrape of them when maxScrape > 0.
func Select(result *crawling.DiscoveryResult, minImportance, maxScrape int) []string {
	if result == nil {
		return nil
	}
	urls := crawling.BuildTree(result.Discovered).Select(minImportance)
	if maxScrape > 0 && len(urls) > maxScrape {
		urls = urls[:maxScrape]
	}
	return urls
}

// Scrape extracts the text of urls.
func (r *Runner) Scrape(ctx context.Context, urls []string, progress ProgressCallback) (crawling.ScrapedContent, error) {
	s := &crawling.Scraper{
		Fetcher:   r.Fetcher,
		Extractor: r.extractor(),
		Logger:    r.logger().WithPrefix("scrape"),
	}
	content, err := s.Scrape(ctx, urls, progress.progress(StepScrape))
	if err != nil {
		return content, fmt.Errorf("scraping failed: %w", err)
	}
	return content, nil
}

// Ingest parses every path, which may name a file or a directory. Files that
// fail to parse are logged and skipped; a missing path is an error.
func (r *Runner) Ingest(paths []string, progress ProgressCallback) (ingestion.Documents, error) {
	logger := r.logger().WithPrefix("ingest")
	docs := make(ingestion.Documents)
	for i, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return docs, fmt.Errorf("cannot read %s: %w", path, err)
		}

		var found ingestion.Documents
		if info.IsDir() {
			found, err = ingestion.IngestDirectory(path, logger)
			if err != nil {
				return docs, err
			}
		} else {
			found = ingestion.IngestFiles([]string{path}, logger)
		}
		for name, doc := range found {
			docs[name] = doc
		}
		progress.emit(ProgressEvent{
			Step:     StepIngest,
			Message:  fmt.Sprintf("Ingested %s (%d documents)", path, len(found)),
			Fraction: float64(i+1) / float64(len(paths)),
		})
	}
	return docs, nil
}

// Process structures items with the language model.
func (r *Runner) Process(ctx context.Context, items map[string]knowledge.ContentItem, mode knowledge.Mode, progress ProgressCallback) (map[string]knowledge.ProcessedContent, error) {
	if r.LLM == nil {
		return nil, ErrNoLLM
	}
	p := knowledge.NewProcessor(r.LLM, r.logger().WithPrefix("process"))
	if r.BatchSize > 0 {
		p.BatchSize = r.BatchSize
	}
	p.OnBatch = func(done, total int) {
		progress.emit(ProgressEvent{
			Step:     StepProcess,
			Message:  fmt.Sprintf("Processed %d of %d items", done, total),
			Fraction: float64(done) / float64(total),
		})
	}
	return p.ProcessAll(ctx, items, mode, progress.progress(StepProcess))
}

// Combine merges processed content into one knowledge document for agent.
func (r *Runner) Combine(ctx context.Context, processed map[string]knowledge.ProcessedContent, agent knowledge.AgentType) (*knowledge.Document, error) {
	if r.LLM == nil {
		return nil, ErrNoLLM
	}
	return knowledge.NewCombiner(r.LLM, r.logger().WithPrefix("combine")).Combine(ctx, processed, agent)
}

// exportArtifacts maps each format to its file prefix, extension and database step.
var exportArtifacts = map[Format]struct {
	prefix string
	ext    string
	step   string
}{
	FormatText:           {"knowledge_base", ".txt", db.StepPlainText},
	FormatElevenLabsJSON: {"elevenlabs_knowledge_base", ".json", db.StepElevenLabsJSON},
	FormatElevenLabsText: {"elevenlabs_knowledge_base", ".txt", db.StepElevenLabsText},
}

// Export writes doc in every format and returns the file written for each.
// It requires a Store.
func (r *Runner) Export(ctx context.Context, sessionID uuid.UUID, doc *knowledge.Document) (map[Format]string, error) {
	paths := make(map[Format]string, len(Formats()))
	for _, format := range Formats() {
		path, err := r.ExportFormat(ctx, sessionID, doc, format)
		if err != nil {
			return paths, err
		}
		paths[format] = path
	}
	return paths, nil
}

// ExportFormat writes doc in one format and returns the file written. It
// requires a Store.
func (r *Runner) ExportFormat(ctx context.Context, sessionID uuid.UUID, doc *knowledge.Document, format Format) (string, error) {
	if r.Store == nil {
		return "", fmt.Errorf("export requires a session store")
	}
	if doc == nil || !doc.Processed {
		return "", knowledge.ErrUnprocessed
	}
	if format == FormatJSON {
		return r.Store.SaveArtifact(ctx, sessionID, db.StepKnowledge, KnowledgePrefix(doc.AgentType), doc)
	}

	a, ok := exportArtifacts[format]
	if !ok {
		return "", fmt.Errorf("unknown export format %q", format)
	}
	rendered, err := Render(doc, format)
	if err != nil {
		return "", err
	}
	return r.Store.SaveTextArtifact(ctx, sessionID, a.step, a.prefix, a.ext, string(rendered))
}

// KnowledgePrefix is the file prefix of a combined document for agent.
func KnowledgePrefix(agent knowledge.AgentType) string {
	return fmt.Sprintf("final_%s_agent", agent)
}

// Persist saves v as the artifact for step when a Store is configured and
// returns the path written, or "" without a Store.
func (r *Runner) Persist(ctx context.Context, sessionID uuid.UUID, step string, v any) (string, error) {
	if r.Store == nil {
		return "", nil
	}
	return r.Store.SaveArtifact(ctx, sessionID, step, step, v)
}
