package fetch

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
)

// noiseSelector matches page chrome that never carries answer content.
const noiseSelector = "nav, header, footer, aside, script, style, noscript, form, iframe, template, svg, .cookie-banner, .popup"

// blockElements start a new line in extracted text.
var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "dd": true,
	"div": true, "dl": true, "dt": true, "figcaption": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "hr": true,
	"li": true, "main": true, "ol": true, "p": true, "pre": true,
	"section": true, "summary": true, "details": true, "ul": true,
}

// DefaultTextSelectors returns standard selectors for the main content region,
// in order of preference.
func DefaultTextSelectors() []string {
	return []string{
		"main",
		"article",
		"[role=main]",
		"#content",
		".content",
		"#main-content",
		".main-content",
	}
}

// Extractor pulls metadata and readable text out of HTML. It satisfies
// crawling.Extractor.
type Extractor struct {
	// ContentSelectors overrides DefaultTextSelectors.
	ContentSelectors []string
}

// NewExtractor returns an Extractor using DefaultTextSelectors.
func NewExtractor() *Extractor {
	return &Extractor{ContentSelectors: DefaultTextSelectors()}
}

// ExtractMetadata returns the page title and description. The <title> element
// wins over og:title and the description meta tag over og:description.
// Unparseable markup yields empty metadata.
func (e *Extractor) ExtractMetadata(markup string) crawling.Metadata {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return crawling.Metadata{}
	}

	title := collapseSpaces(doc.Find("head title").First().Text())
	if title == "" {
		title = collapseSpaces(doc.Find("title").First().Text())
	}
	if title == "" {
		title = metaContent(doc, `meta[property="og:title"]`)
	}

	description := metaContent(doc, `meta[name="description"]`)
	if description == "" {
		description = metaContent(doc, `meta[property="og:description"]`)
	}

	return crawling.Metadata{Title: title, Description: description}
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return collapseSpaces(content)
}

// ExtractText returns the main readable text of markup, one block per line.
func (e *Extractor) ExtractText(markup string, opts crawling.TextOptions) (string, error) {
	return ExtractMainText(markup, e.selectors(), opts)
}

func (e *Extractor) selectors() []string {
	if len(e.ContentSelectors) == 0 {
		return DefaultTextSelectors()
	}
	return e.ContentSelectors
}

// ExtractMainText parses HTML and returns the main body text.
// It removes noise elements, then renders the first region matching
// contentSelectors, falling back to the body element. Tables are rendered one
// row per line with cells separated by " | " when opts.IncludeTables is set
// and dropped otherwise. HTML comments are kept only with opts.IncludeComments.
func ExtractMainText(markup string, contentSelectors []string, opts crawling.TextOptions) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}
	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	var sb strings.Builder
	for _, node := range mainContent.Nodes {
		renderText(&sb, node, opts)
	}

	return cleanWhitespace(sb.String()), nil
}

func renderText(sb *strings.Builder, n *html.Node, opts crawling.TextOptions) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.CommentNode:
		if opts.IncludeComments {
			sb.WriteString("\n")
			sb.WriteString(strings.TrimSpace(n.Data))
			sb.WriteString("\n")
		}
		return
	case html.ElementNode:
		if n.Data == "table" {
			if opts.IncludeTables {
				renderTable(sb, n)
			}
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		sb.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(sb, c, opts)
	}
	if block {
		sb.WriteString("\n")
	}
}

func renderTable(sb *strings.Builder, table *html.Node) {
	sb.WriteString("\n")
	goquery.NewDocumentFromNode(table).Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			if text := collapseSpaces(cell.Text()); text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			sb.WriteString(strings.Join(cells, " | "))
			sb.WriteString("\n")
		}
	})
}

// cleanWhitespace collapses runs of spaces within lines and drops empty lines.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = collapseSpaces(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
