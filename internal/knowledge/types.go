// Package knowledge structures scraped pages and documents into customer
// service sections with a language model, combines them into one knowledge
// base document, and renders that document in upload formats.
package knowledge

import (
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/ingestion"
)

// AgentType selects voice or text optimization.
type AgentType string

// Agent types.
const (
	AgentVoice AgentType = "voice"
	AgentText  AgentType = "text"
)

// Valid reports whether a is a known agent type.
func (a AgentType) Valid() bool {
	return a == AgentVoice || a == AgentText
}

// Mode selects how ProcessAll walks the content.
type Mode string

// Processing modes.
const (
	ModeAll   Mode = "all"
	ModeBatch Mode = "batch"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeAll || m == ModeBatch
}

// Source types reported on processed content.
const (
	SourceWebsite  = "website"
	SourceDocument = "document"
)

// ItemMetadata describes a content item. Format is set only for documents.
type ItemMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Format      string `json:"format,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// ContentItem is one page or document awaiting processing.
type ContentItem struct {
	Content  string       `json:"content"`
	Metadata ItemMetadata `json:"metadata"`
}

// SourceType reports whether the item came from a document or the website.
func (c ContentItem) SourceType() string {
	if c.Metadata.Format != "" {
		return SourceDocument
	}
	return SourceWebsite
}

// Section is one self-contained block of extracted information.
type Section struct {
	Heading     string `json:"heading"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

// ProcessedMetadata carries topic hints extracted with the sections.
type ProcessedMetadata struct {
	PrimaryTopics      []string `json:"primary_topics,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
}

// ProcessedContent is the structured result for one content item. When
// Processed is false only ContentID and Error are meaningful.
type ProcessedContent struct {
	ContentID   string            `json:"content_id"`
	SourceType  string            `json:"source_type,omitempty"`
	Title       string            `json:"title,omitempty"`
	Sections    []Section         `json:"sections,omitempty"`
	Metadata    ProcessedMetadata `json:"metadata"`
	Processed   bool              `json:"processed"`
	ProcessedAt string            `json:"processed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Subsection is a topic under a knowledge document section.
type Subsection struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// DocumentSection is a top-level knowledge document section.
type DocumentSection struct {
	Heading     string       `json:"heading"`
	Subheadings []Subsection `json:"subheadings"`
}

// DocumentMetadata is the model's own summary of the combined document.
type DocumentMetadata struct {
	SourceCount       int      `json:"source_count,omitempty"`
	PrimaryCategories []string `json:"primary_categories,omitempty"`
	CreationDate      string   `json:"creation_date,omitempty"`
}

// Document is the combined knowledge base with its agent system prompt.
type Document struct {
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Sections     []DocumentSection `json:"sections"`
	SystemPrompt string            `json:"system_prompt"`
	Metadata     DocumentMetadata  `json:"metadata"`
	Processed    bool              `json:"processed"`
	AgentType    AgentType         `json:"agent_type,omitempty"`
	ProcessedAt  string            `json:"processed_at,omitempty"`
	SourceCount  int               `json:"source_count"`
}

// FromScraped converts scraped pages into content items keyed by URL.
func FromScraped(content crawling.ScrapedContent) map[string]ContentItem {
	items := make(map[string]ContentItem, len(content))
	for url, page := range content {
		items[url] = ContentItem{
			Content: page.Content,
			Metadata: ItemMetadata{
				Title:       page.Metadata.Title,
				Description: page.Metadata.Description,
				Type:        string(page.Metadata.Type),
			},
		}
	}
	return items
}

// FromDocuments converts ingested documents into content items keyed by filename.
func FromDocuments(docs ingestion.Documents) map[string]ContentItem {
	items := make(map[string]ContentItem, len(docs))
	for name, doc := range docs {
		items[name] = ContentItem{
			Content: doc.Content,
			Metadata: ItemMetadata{
				Title:       doc.Metadata.Title,
				Description: doc.Metadata.Description,
				Type:        doc.Metadata.Type,
				Format:      string(doc.Metadata.Format),
				Filename:    doc.Metadata.Filename,
			},
		}
	}
	return items
}

// Merge joins site and document items. Site items win: a document whose ID
// is already present is skipped with a warning.
func Merge(site, documents map[string]ContentItem, logger *log.Logger) map[string]ContentItem {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	all := make(map[string]ContentItem, len(site)+len(documents))
	for id, item := range site {
		all[id] = item
	}
	for _, id := range sortedKeys(documents) {
		if _, dup := all[id]; dup {
			logger.Warn("duplicate content ID, keeping site content", "id", id)
			continue
		}
		all[id] = documents[id]
	}
	return all
}

// Successful returns only the entries that processed successfully.
func Successful(results map[string]ProcessedContent) map[string]ProcessedContent {
	ok := make(map[string]ProcessedContent, len(results))
	for id, r := range results {
		if r.Processed {
			ok[id] = r
		}
	}
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
