package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/ingestion"
	"github.com/jonathan/voice-agent-builder/internal/knowledge"
)

func shopDiscovery() *crawling.DiscoveryResult {
	return &crawling.DiscoveryResult{
		SeedURL:    "https://shop.example.com",
		TargetHost: "shop.example.com",
		Discovered: []crawling.DiscoveredPage{
			{URL: "https://shop.example.com", Title: "Home", Type: crawling.PageTypePage, Importance: 2},
			{URL: "https://shop.example.com/products", Title: "Products", Type: crawling.PageTypeProduct, Importance: 3},
			{URL: "https://shop.example.com/products/kettle", Title: "Kettle", Type: crawling.PageTypeProduct, Importance: 3},
			{URL: "https://shop.example.com/privacy", Title: "", Type: crawling.PageTypePage, Importance: 1},
		},
		Failed: []string{"https://shop.example.com/broken"},
	}
}

func TestPrintDiscoverySummary(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintDiscoverySummary(shopDiscovery())
	output := buf.String()

	assert.Contains(t, output, "SITE DISCOVERY")
	assert.Contains(t, output, "Discovered: 4")
	assert.Contains(t, output, "Failed:     1")
	assert.Contains(t, output, "product  2")
	assert.Contains(t, output, "✗ https://shop.example.com/broken")
	assert.NotContains(t, output, "page limit")
}

func TestPrintDiscoverySummary_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintDiscoverySummary(nil)
	assert.Empty(t, buf.String())
}

func TestPrintTree(t *testing.T) {
	var buf bytes.Buffer
	tree := crawling.BuildTree(shopDiscovery().Discovered)
	NewPrinter(&buf).PrintTree(tree, 2)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Contains(t, lines, "■ ★★★ Products [product]")
	assert.Contains(t, lines, "  ├─ ★★★ Kettle [product]")
	assert.Contains(t, lines, "     https://shop.example.com/products/kettle")
	assert.Contains(t, lines, "■ ★☆☆ https://shop.example.com/privacy [page] (skipped)")
}

func TestPrintTree_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTree(nil, 1)
	assert.Equal(t, "(no pages discovered)\n", buf.String())
}

func TestPrintScraped(t *testing.T) {
	var buf bytes.Buffer
	content := crawling.ScrapedContent{}
	for i := range 7 {
		url := fmt.Sprintf("https://shop.example.com/p%d", i)
		content[url] = crawling.ScrapedPage{Content: "abc", Metadata: crawling.ScrapedMetadata{Title: fmt.Sprintf("Page %d", i), Type: crawling.PageTypePage}}
	}

	NewPrinter(&buf).PrintScraped(content)
	output := buf.String()

	assert.Contains(t, output, "Scraped 7 pages")
	assert.Contains(t, output, "• Page 0")
	assert.Contains(t, output, "3 chars, page")
	assert.NotContains(t, output, "Page 6")
	assert.Contains(t, output, "... and 2 more pages")
}

func TestPrintDocuments(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintDocuments(ingestion.Documents{
		"returns.md": {Metadata: ingestion.DocumentMetadata{Title: "Returns Policy", Format: ingestion.FormatMarkdown}},
	})
	output := buf.String()

	assert.Contains(t, output, "Ingested 1 documents")
	assert.Contains(t, output, "• returns.md (md)")
	assert.Contains(t, output, "Returns Policy")
}

func TestPrintProcessed(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintProcessed(map[string]knowledge.ProcessedContent{
		"a": {ContentID: "a", Processed: true, SourceType: knowledge.SourceWebsite, Sections: []knowledge.Section{{Heading: "h"}}},
		"b": {ContentID: "b", Error: "Empty content"},
	})
	output := buf.String()

	assert.Contains(t, output, "Processed: 1   Failed: 1")
	assert.Contains(t, output, "✓ a")
	assert.Contains(t, output, "1 sections, website")
	assert.Contains(t, output, "✗ b")
	assert.Contains(t, output, "Empty content")
}

func TestPrintKnowledgeDocument(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintKnowledgeDocument(&knowledge.Document{
		Title:       "Acme Support",
		AgentType:   knowledge.AgentVoice,
		SourceCount: 3,
		Sections: []knowledge.DocumentSection{
			{Heading: "Shipping", Subheadings: []knowledge.Subsection{{Heading: "Times"}, {Heading: "Costs"}}},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "KNOWLEDGE DOCUMENT")
	assert.Contains(t, output, "Agent:    voice")
	assert.Contains(t, output, "• Shipping (2 topics)")

	buf.Reset()
	NewPrinter(&buf).PrintKnowledgeDocument(nil)
	assert.Empty(t, buf.String())
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("T", strings.Repeat("x", 100))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)))
	}
	assert.Contains(t, buf.String(), "...")
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	NewLogger(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
