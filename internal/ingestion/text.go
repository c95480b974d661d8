package ingestion

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	spaceRunRe   = regexp.MustCompile(`\s+`)
	blankRunRe   = regexp.MustCompile(`\n\n\n+`)
	newlineRunRe = regexp.MustCompile(`\n+`)
	spacesRe     = regexp.MustCompile(` +`)
)

// CleanText cleans and normalizes text content while preserving structure
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	// CRLF and CR become LF
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	cleanedLines := make([]string, 0, len(lines))
	for _, line := range lines {
		cleanedLines = append(cleanedLines, cleanLine(line))
	}

	result := strings.Join(cleanedLines, "\n")
	result = removeExcessiveBlankLines(result)
	return strings.TrimSpace(result)
}

// cleanLine cleans a single line while preserving structure
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	if strings.TrimSpace(line) == "" {
		return ""
	}

	// Markdown headings lose their indentation
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	leadingSpace := len(line) - len(trimmed)
	if isBulletLine(line) {
		return strings.Repeat(" ", leadingSpace) + trimmed
	}

	content := spaceRunRe.ReplaceAllString(strings.TrimSpace(line), " ")
	return strings.Repeat(" ", leadingSpace) + content
}

// isBulletLine checks if a line is a bullet list item
func isBulletLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") ||
		strings.HasPrefix(trimmed, "• ") || strings.HasPrefix(trimmed, "· ")
}

// removeExcessiveBlankLines reduces consecutive blank lines to max 2
func removeExcessiveBlankLines(content string) string {
	return blankRunRe.ReplaceAllString(content, "\n\n")
}

// collapseHTMLText squeezes newline runs and space runs left by markup removal.
func collapseHTMLText(text string) string {
	text = newlineRunRe.ReplaceAllString(text, "\n")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// DecodeText converts raw bytes to a UTF-8 string. Invalid UTF-8 is read as
// Windows-1252 when it carries bytes in the 0x80-0x9F range, which are
// printable there and control codes in ISO-8859-1, and as ISO-8859-1 otherwise.
func DecodeText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}

	decoder := charmap.ISO8859_1.NewDecoder()
	for _, b := range content {
		if b >= 0x80 && b <= 0x9F {
			decoder = charmap.Windows1252.NewDecoder()
			break
		}
	}
	decoded, err := decoder.Bytes(content)
	if err != nil {
		return strings.ToValidUTF8(string(content), "�")
	}
	return string(decoded)
}

// describe returns the first 200 characters of text, with "..." when cut.
func describe(text string) string {
	if utf8.RuneCountInString(text) <= descriptionLength {
		return text
	}
	return string([]rune(text)[:descriptionLength]) + "..."
}
