package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/ingestion"
	"github.com/jonathan/voice-agent-builder/internal/knowledge"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer writes human-readable summaries of each build step.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func writeMore(sb *strings.Builder, total int, noun string) {
	if total > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more %s\n", total-maxItemsToShow, noun))
	}
}

// PrintDiscoverySummary outputs page counts by type and the first failures.
func (p *Printer) PrintDiscoverySummary(result *crawling.DiscoveryResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Seed:       %s\n", result.SeedURL))
	sb.WriteString(fmt.Sprintf("Host:       %s\n", result.TargetHost))
	sb.WriteString(fmt.Sprintf("Discovered: %d\n", len(result.Discovered)))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", len(result.Failed)))
	if result.Truncated {
		sb.WriteString("Stopped at the page limit\n")
	}

	if len(result.Discovered) > 0 {
		byType := make(map[crawling.PageType]int)
		for _, page := range result.Discovered {
			byType[page.Type]++
		}
		types := make([]string, 0, len(byType))
		for t := range byType {
			types = append(types, string(t))
		}
		sort.Strings(types)

		sb.WriteString("\nBy type:\n")
		for _, t := range types {
			sb.WriteString(fmt.Sprintf("  • %-8s %d\n", t, byType[crawling.PageType(t)]))
		}
	}

	if len(result.Failed) > 0 {
		sb.WriteString("\nFailed:\n")
		for _, url := range result.Failed[:min(len(result.Failed), maxItemsToShow)] {
			sb.WriteString(fmt.Sprintf("  ✗ %s\n", url))
		}
		writeMore(&sb, len(result.Failed), "failures")
	}

	p.printBox("SITE DISCOVERY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTree outputs the site hierarchy, one page per line, indented by level.
// Pages below minImportance are marked as skipped.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintTree(tree *crawling.Tree, minImportance int) {
	if tree == nil || len(tree.Roots) == 0 {
		fmt.Fprintln(p.out, "(no pages discovered)")
		return
	}

	tree.Walk(func(node *crawling.TreeNode, level int) {
		marker := "├─"
		if level == 0 {
			marker = "■"
		}
		line := fmt.Sprintf("%s%s %s %s [%s]",
			strings.Repeat("  ", level), marker,
			crawling.Stars(node.Page.Importance), node.Page.Label(), node.Page.Type)
		if node.Page.Importance < minImportance {
			line += " (skipped)"
		}
		fmt.Fprintln(p.out, line)
		if node.Page.Title != "" {
			fmt.Fprintf(p.out, "%s   %s\n", strings.Repeat("  ", level), node.Page.URL)
		}
	})
}

// PrintScraped outputs the scraped pages with their content size.
func (p *Printer) PrintScraped(content crawling.ScrapedContent) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scraped %d pages\n", len(content)))

	urls := make([]string, 0, len(content))
	for url := range content {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	if len(urls) > 0 {
		sb.WriteString("\n")
	}
	for _, url := range urls[:min(len(urls), maxItemsToShow)] {
		page := content[url]
		title := page.Metadata.Title
		if title == "" {
			title = url
		}
		sb.WriteString(fmt.Sprintf("• %s\n", title))
		sb.WriteString(fmt.Sprintf("  %d chars, %s\n", len([]rune(page.Content)), page.Metadata.Type))
	}
	writeMore(&sb, len(urls), "pages")

	p.printBox("SCRAPED CONTENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDocuments outputs ingested documents with their title and format.
func (p *Printer) PrintDocuments(docs ingestion.Documents) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Ingested %d documents\n", len(docs)))

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		sb.WriteString("\n")
	}
	for _, name := range names[:min(len(names), maxItemsToShow)] {
		doc := docs[name]
		sb.WriteString(fmt.Sprintf("• %s (%s)\n", name, doc.Metadata.Format))
		sb.WriteString(fmt.Sprintf("  %s\n", doc.Metadata.Title))
	}
	writeMore(&sb, len(names), "documents")

	p.printBox("INGESTED DOCUMENTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProcessed outputs section counts for processed items and the errors
// of failed ones.
func (p *Printer) PrintProcessed(results map[string]knowledge.ProcessedContent) {
	ids := make([]string, 0, len(results))
	failed := 0
	for id, r := range results {
		ids = append(ids, id)
		if !r.Processed {
			failed++
		}
	}
	sort.Strings(ids)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Processed: %d   Failed: %d\n", len(results)-failed, failed))
	if len(ids) > 0 {
		sb.WriteString("\n")
	}
	for _, id := range ids[:min(len(ids), maxItemsToShow)] {
		r := results[id]
		if r.Processed {
			sb.WriteString(fmt.Sprintf("✓ %s\n", id))
			sb.WriteString(fmt.Sprintf("  %d sections, %s\n", len(r.Sections), r.SourceType))
		} else {
			sb.WriteString(fmt.Sprintf("✗ %s\n", id))
			sb.WriteString(fmt.Sprintf("  %s\n", r.Error))
		}
	}
	writeMore(&sb, len(ids), "items")

	p.printBox("PROCESSED CONTENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintKnowledgeDocument outputs the combined document outline.
func (p *Printer) PrintKnowledgeDocument(doc *knowledge.Document) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", doc.Title))
	sb.WriteString(fmt.Sprintf("Agent:    %s\n", doc.AgentType))
	sb.WriteString(fmt.Sprintf("Sources:  %d\n", doc.SourceCount))
	sb.WriteString(fmt.Sprintf("Sections: %d\n", len(doc.Sections)))

	if len(doc.Sections) > 0 {
		sb.WriteString("\n")
	}
	for _, section := range doc.Sections[:min(len(doc.Sections), maxItemsToShow)] {
		sb.WriteString(fmt.Sprintf("• %s (%d topics)\n", section.Heading, len(section.Subheadings)))
	}
	writeMore(&sb, len(doc.Sections), "sections")

	p.printBox("KNOWLEDGE DOCUMENT", strings.TrimSuffix(sb.String(), "\n"))
}
