package ingestion

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		body.WriteString(p)
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseBytes_Text(t *testing.T) {
	doc, err := ParseBytes("faq.txt", []byte("Frequently Asked Questions\n\nQ: Do you ship abroad?\nA: Yes."))
	require.NoError(t, err)

	assert.Equal(t, "Frequently Asked Questions", doc.Metadata.Title)
	assert.Equal(t, DocumentType, doc.Metadata.Type)
	assert.Equal(t, FormatText, doc.Metadata.Format)
	assert.Equal(t, "faq.txt", doc.Metadata.Filename)
	assert.Contains(t, doc.Content, "Do you ship abroad?")
	assert.Equal(t, doc.Content, doc.Metadata.Description)
}

func TestParseBytes_MarkdownDescriptionTruncated(t *testing.T) {
	text := "# Services\n\n" + strings.Repeat("We repair boilers. ", 20)
	doc, err := ParseBytes("services.MD", []byte(text))
	require.NoError(t, err)

	assert.Equal(t, FormatMarkdown, doc.Metadata.Format)
	assert.Equal(t, "# Services", doc.Metadata.Title)
	assert.True(t, strings.HasSuffix(doc.Metadata.Description, "..."))
	assert.Len(t, []rune(doc.Metadata.Description), 203)
}

func TestParseBytes_LegacyEncodings(t *testing.T) {
	latin1 := []byte("Caf\xe9 opening hours")
	doc, err := ParseBytes("hours.txt", latin1)
	require.NoError(t, err)
	assert.Equal(t, "Café opening hours", doc.Content)

	cp1252 := []byte("\x93Quoted\x94 returns policy")
	doc, err = ParseBytes("returns.txt", cp1252)
	require.NoError(t, err)
	assert.Equal(t, "“Quoted” returns policy", doc.Content)
}

func TestParseBytes_HTML(t *testing.T) {
	markup := `<html><head><title> Contact Acme </title>
		<meta name="description" content="How to reach us">
		<style>body { color: red }</style></head>
		<body><h1>Contact</h1><p>Call    555-0100</p><script>track()</script>
		<p>Email help@acme.test</p></body></html>`

	doc, err := ParseBytes("contact.html", []byte(markup))
	require.NoError(t, err)

	assert.Equal(t, "Contact Acme", doc.Metadata.Title)
	assert.Equal(t, "How to reach us", doc.Metadata.Description)
	assert.Equal(t, FormatHTML, doc.Metadata.Format)
	assert.Contains(t, doc.Content, "Call 555-0100")
	assert.Contains(t, doc.Content, "Email help@acme.test")
	assert.NotContains(t, doc.Content, "track()")
	assert.NotContains(t, doc.Content, "color: red")
	assert.NotContains(t, doc.Content, "\n\n")
}

func TestParseBytes_HTMLWithoutTitle(t *testing.T) {
	doc, err := ParseBytes("page.htm", []byte(`<body><p>Warranty Information</p><p>Two years on parts.</p></body>`))
	require.NoError(t, err)

	assert.Equal(t, "Warranty Information", doc.Metadata.Title)
	assert.Equal(t, "Warranty Information\nTwo years on parts.", doc.Metadata.Description)
}

func TestParseBytes_DOCX(t *testing.T) {
	content := buildDOCX(t, "Customer Handbook", "Returns are accepted within 30 days.", "Refunds take 5 days.")

	doc, err := ParseBytes("handbook.docx", content)
	require.NoError(t, err)

	assert.Equal(t, "Customer Handbook", doc.Metadata.Title)
	assert.Equal(t, "Customer Handbook\nReturns are accepted within 30 days.\nRefunds take 5 days.", doc.Content)
	assert.Equal(t, FormatDOCX, doc.Metadata.Format)
}

func TestParseBytes_DOCXNotAZip(t *testing.T) {
	doc, err := ParseBytes("old.docx", []byte("definitely not a zip archive"))
	require.NoError(t, err)

	assert.Contains(t, doc.Content, "older .doc format")
	assert.Equal(t, "old", doc.Metadata.Title)
}

func TestParseBytes_DOCSalvage(t *testing.T) {
	content := []byte("\x00\x01\xd0\xcf\x11\xe0\nOur store opens at nine\n\x02\x03\x04\x05\x06\x07\x08\n1234567890\nFree delivery over fifty\n")

	doc, err := ParseBytes("legacy.doc", content)
	require.NoError(t, err)

	assert.Equal(t, "Our store opens at nine\nFree delivery over fifty", doc.Content)
	assert.Equal(t, "Our store opens at nine", doc.Metadata.Title)
	assert.Equal(t, FormatDOC, doc.Metadata.Format)
}

func TestParseBytes_DOCUnreadable(t *testing.T) {
	doc, err := ParseBytes("binary.doc", []byte{0x00, 0x01, 0x02, 0xff})
	require.NoError(t, err)

	assert.Contains(t, doc.Content, "Could not extract readable text from .doc file: binary.doc")
	assert.Equal(t, "binary", doc.Metadata.Title)
}

func TestParseBytes_PDFPlaceholder(t *testing.T) {
	doc, err := ParseBytes("brochure.pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)

	assert.Equal(t, "[PDF content from brochure.pdf - PDF text extraction is not available]", doc.Content)
	assert.Equal(t, "brochure.pdf", doc.Metadata.Title)
}

func TestParseBytes_Unsupported(t *testing.T) {
	_, err := ParseBytes("sheet.xlsx", []byte("x"))
	require.Error(t, err)

	var unsupported *UnsupportedFormatError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, ".xlsx", unsupported.Extension)
	assert.Equal(t, "unsupported file type: .xlsx", err.Error())

	_, err = ParseBytes("README", []byte("x"))
	require.True(t, errors.As(err, &unsupported))
	assert.Contains(t, err.Error(), "no extension")
}

func TestParseDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.md")
	require.NoError(t, os.WriteFile(path, []byte("Privacy Policy\nWe never sell your data."), 0o644))

	doc, err := ParseDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "policy.md", doc.Metadata.Filename)
	assert.Equal(t, "Privacy Policy", doc.Metadata.Title)

	_, err = ParseDocument(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestIngestDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Alpha Services"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.html"), []byte("<title>Beta</title><p>Beta page</p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.csv"), []byte("x,y"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	docs, err := IngestDirectory(dir, nil)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "Alpha Services", docs["a.txt"].Metadata.Title)
	assert.Equal(t, "Beta", docs["b.html"].Metadata.Title)

	_, err = IngestDirectory(filepath.Join(dir, "nope"), nil)
	assert.Error(t, err)
}

func TestIngestFiles_SkipsFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("Good Document"), 0o644))

	docs := IngestFiles([]string{good, filepath.Join(dir, "missing.txt"), filepath.Join(dir, "x.bin")}, nil)
	require.Len(t, docs, 1)
	assert.Contains(t, docs, "good.txt")
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".doc", ".docx", ".htm", ".html", ".md", ".pdf", ".txt"}, SupportedExtensions())
}
