// Package ingestion turns uploaded documents into plain text with metadata so
// they can be processed alongside scraped site content.
package ingestion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
)

const descriptionLength = 200

// DocumentType is the metadata type shared by every ingested file.
const DocumentType = "document"

// Format is a supported file format, named by its extension without the dot.
type Format string

// Supported formats.
const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatHTM      Format = "htm"
	FormatDOCX     Format = "docx"
	FormatDOC      Format = "doc"
	FormatPDF      Format = "pdf"
)

// DocumentMetadata describes an ingested file.
type DocumentMetadata struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Format      Format `json:"format"`
	Filename    string `json:"filename"`
	Description string `json:"description,omitempty"`
}

// Document is the extracted text of one file.
type Document struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// Documents maps filename to its parsed document.
type Documents map[string]Document

type parseFunc func(filename string, content []byte) (text string, title string, description string)

var parsers = map[Format]parseFunc{
	FormatText:     parseText,
	FormatMarkdown: parseText,
	FormatHTML:     parseHTML,
	FormatHTM:      parseHTML,
	FormatDOCX:     parseDOCX,
	FormatDOC:      parseDOC,
	FormatPDF:      parsePDF,
}

// SupportedExtensions lists the accepted file extensions, with the dot.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(parsers))
	for f := range parsers {
		exts = append(exts, "."+string(f))
	}
	sort.Strings(exts)
	return exts
}

// FormatOf returns the format for a filename and whether it is supported.
func FormatOf(filename string) (Format, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	f := Format(ext)
	_, ok := parsers[f]
	return f, ok
}

// ParseDocument reads and parses the file at path.
func ParseDocument(path string) (*Document, error) {
	name := filepath.Base(path)
	if _, ok := FormatOf(name); !ok {
		return nil, &UnsupportedFormatError{Filename: name, Extension: strings.ToLower(filepath.Ext(name))}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseBytes(name, content)
}

// ParseBytes parses uploaded file content, choosing the parser by the
// extension of filename.
func ParseBytes(filename string, content []byte) (*Document, error) {
	format, ok := FormatOf(filename)
	if !ok {
		return nil, &UnsupportedFormatError{Filename: filename, Extension: strings.ToLower(filepath.Ext(filename))}
	}

	text, title, description := parsers[format](filename, content)
	if title == "" {
		title = filename
	}
	return &Document{
		Content: text,
		Metadata: DocumentMetadata{
			Title:       title,
			Type:        DocumentType,
			Format:      format,
			Filename:    filename,
			Description: description,
		},
	}, nil
}

// IngestFiles parses each path, logging and skipping files that fail.
// Documents are keyed by base filename; a later file with the same name
// replaces an earlier one.
func IngestFiles(paths []string, logger *log.Logger) Documents {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	docs := make(Documents, len(paths))
	for _, path := range paths {
		doc, err := ParseDocument(path)
		if err != nil {
			logger.Warn("skipping document", "path", path, "err", err)
			continue
		}
		if doc.Metadata.Format == FormatDOC {
			logger.Warn("legacy .doc format may not parse correctly, consider converting to .docx", "file", doc.Metadata.Filename)
		}
		logger.Debug("parsed document", "file", doc.Metadata.Filename, "title", doc.Metadata.Title, "chars", len(doc.Content))
		docs[doc.Metadata.Filename] = *doc
	}
	return docs
}

// IngestDirectory parses every supported file directly inside dir.
func IngestDirectory(dir string, logger *log.Logger) (Documents, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatOf(e.Name()); ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return IngestFiles(paths, logger), nil
}

func parseText(_ string, content []byte) (string, string, string) {
	text := CleanText(DecodeText(content))
	return text, ExtractTitle(text), describe(text)
}

func parseHTML(_ string, content []byte) (string, string, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(DecodeText(content)))
	if err != nil {
		text := CleanText(DecodeText(content))
		return text, ExtractTitle(text), describe(text)
	}

	doc.Find("script, style").Remove()

	var parts []string
	var collect func(*goquery.Selection)
	collect = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				if t := strings.TrimSpace(c.Text()); t != "" {
					parts = append(parts, t)
				}
				return
			}
			collect(c)
		})
	}
	collect(doc.Selection)
	text := collapseHTMLText(strings.Join(parts, "\n"))

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = ExtractTitle(text)
	}

	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	if description = strings.TrimSpace(description); description == "" {
		description = describe(text)
	}
	return text, title, description
}

func parsePDF(filename string, _ []byte) (string, string, string) {
	return fmt.Sprintf("[PDF content from %s - PDF text extraction is not available]", filename), filename, ""
}

func stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
