package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/llm"
	"github.com/jonathan/voice-agent-builder/internal/prompts"
	"github.com/jonathan/voice-agent-builder/internal/schemas"
)

const promptFile = "knowledge.json"

// DefaultBatchSize is the number of items per batch in ModeBatch.
const DefaultBatchSize = 3

// Processor structures content items one at a time.
type Processor struct {
	// BatchSize applies to ModeBatch; values below 1 use DefaultBatchSize.
	BatchSize int
	// OnBatch, when set, runs after each batch with the number of items
	// done so far and the total.
	OnBatch func(done, total int)

	client llm.Client
	logger *log.Logger
	now    func() time.Time
}

// NewProcessor returns a Processor backed by client. A client that is not
// already a *llm.RetryClient is wrapped with the default retry policy.
func NewProcessor(client llm.Client, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Processor{
		BatchSize: DefaultBatchSize,
		client:    withRetry(client, logger),
		logger:    logger,
		now:       time.Now,
	}
}

func withRetry(client llm.Client, logger *log.Logger) llm.Client {
	if _, ok := client.(*llm.RetryClient); ok {
		return client
	}
	return llm.NewRetryClient(client, logger)
}

// llmSections is the model's response shape.
type llmSections struct {
	SourceType string            `json:"source_type"`
	Title      string            `json:"title"`
	Sections   []Section         `json:"sections"`
	Metadata   ProcessedMetadata `json:"metadata"`
}

// Process structures a single item. Failures are reported in the result,
// never as an error, so one bad item does not stop a run.
func (p *Processor) Process(ctx context.Context, id string, item ContentItem) ProcessedContent {
	if strings.TrimSpace(item.Content) == "" {
		p.logger.Warn("empty content", "id", id)
		return failed(id, "Empty content")
	}

	p.logger.Info("processing content", "id", id, "source", item.SourceType())

	raw, err := p.client.GenerateJSON(ctx, processPrompt(id, item), llm.TierStandard)
	if err != nil {
		p.logger.Error("processing failed", "id", id, "err", err)
		return failed(id, err.Error())
	}
	raw = llm.CleanJSONBlock(raw)

	if err := schemas.ValidateBytes(schemas.ProcessedContent, []byte(raw)); err != nil {
		p.logger.Error("invalid result structure", "id", id, "err", err)
		return failed(id, "Invalid result structure: "+strings.TrimSpace(err.Error()))
	}

	var parsed llmSections
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return failed(id, fmt.Sprintf("failed to parse response: %v", err))
	}

	sourceType := parsed.SourceType
	if sourceType != SourceWebsite && sourceType != SourceDocument {
		sourceType = item.SourceType()
	}

	p.logger.Info("processed content", "id", id, "sections", len(parsed.Sections))
	return ProcessedContent{
		ContentID:   id,
		SourceType:  sourceType,
		Title:       parsed.Title,
		Sections:    parsed.Sections,
		Metadata:    parsed.Metadata,
		Processed:   true,
		ProcessedAt: p.now().Format(time.RFC3339),
	}
}

// ProcessAll processes items in sorted ID order and returns the successful
// results. Progress is reported before each item: across the whole run in
// ModeAll, within the current batch in ModeBatch. Cancellation stops the run
// and returns what finished along with the context error.
func (p *Processor) ProcessAll(ctx context.Context, items map[string]ContentItem, mode Mode, progress crawling.ProgressFunc) (map[string]ProcessedContent, error) {
	if mode == "" {
		mode = ModeAll
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown processing mode %q", mode)
	}

	ids := sortedKeys(items)
	results := make(map[string]ProcessedContent, len(ids))
	if len(ids) == 0 {
		p.logger.Warn("no content to process")
		return results, nil
	}

	size := len(ids)
	if mode == ModeBatch {
		size = p.BatchSize
		if size < 1 {
			size = DefaultBatchSize
		}
	}

	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batch := ids[start:end]
		if mode == ModeBatch {
			p.logger.Info("processing batch", "items", len(batch), "done", start, "total", len(ids))
		}

		for i, id := range batch {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			if progress != nil {
				progress(fmt.Sprintf("Processing %d/%d: %s", i+1, len(batch), id), float64(i+1)/float64(len(batch)))
			}

			r := p.Process(ctx, id, items[id])
			if r.Processed {
				results[id] = r
			}
		}

		if mode == ModeBatch && p.OnBatch != nil {
			p.OnBatch(end, len(ids))
		}
	}

	p.logger.Info("processing complete", "processed", len(results), "total", len(ids))
	return results, nil
}

func failed(id, message string) ProcessedContent {
	return ProcessedContent{ContentID: id, Processed: false, Error: message}
}

// processPrompt prefixes the content with a short context header naming its
// title and either its URL or document format.
func processPrompt(id string, item ContentItem) string {
	content := item.Content
	if item.Metadata != (ItemMetadata{}) {
		title := item.Metadata.Title
		if title == "" {
			title = "Unknown"
		}
		var header strings.Builder
		fmt.Fprintf(&header, "Title: %s\n", title)
		if item.SourceType() == SourceDocument {
			fmt.Fprintf(&header, "Document format: %s\n", item.Metadata.Format)
		} else {
			fmt.Fprintf(&header, "URL: %s\n", id)
		}
		content = header.String() + "\n" + content
	}

	return prompts.MustGet(promptFile, "process_system") + "\n\n" +
		prompts.Format(prompts.MustGet(promptFile, "process_user"), map[string]string{"Content": content})
}
