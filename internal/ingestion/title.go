package ingestion

import (
	"strings"
	"unicode/utf8"
)

// UntitledDocument is the title used when no line qualifies.
const UntitledDocument = "Untitled Document"

// titleSplitters are tried in order on long lines; the first one present
// whose head is long enough wins.
var titleSplitters = []string{":", "-", "–", "|"}

// ExtractTitle picks a title from the first meaningful line of text.
// A line under 100 characters without ':', ';', '=' or '|' is used as is.
// A line under 200 characters is cut at the first separator that leaves a
// head longer than 3 characters, or truncated to 97 characters plus "...".
// Longer lines are skipped.
func ExtractTitle(text string) string {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		n := utf8.RuneCountInString(line)
		if n <= 3 {
			continue
		}

		if n < 100 && !strings.ContainsAny(line, ":;=|") {
			return line
		}
		if n >= 200 {
			continue
		}

		for _, sep := range titleSplitters {
			head, _, found := strings.Cut(line, sep)
			if !found {
				continue
			}
			if head = strings.TrimSpace(head); utf8.RuneCountInString(head) > 3 {
				return head
			}
		}
		return truncateTitle(line)
	}
	return UntitledDocument
}

func truncateTitle(title string) string {
	if utf8.RuneCountInString(title) > 100 {
		return string([]rune(title)[:97]) + "..."
	}
	return title
}
