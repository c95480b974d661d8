package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \n  \n  ", ""},
		{"headings kept, body spaces collapsed", "# Hours\n## Weekdays\n9am   to   5pm", "# Hours\n## Weekdays\n9am to 5pm"},
		{"indented heading", "Policies\n   ## Refunds", "Policies\n## Refunds"},
		{"bullets keep indentation", "Payment options:\n  - Card\n  • Cash", "Payment options:\n  - Card\n  • Cash"},
		{"line endings", "Call us\r\nor email\rsupport", "Call us\nor email\nsupport"},
		{"blank runs capped", "Billing\n\n\n\n\nShipping", "Billing\n\nShipping"},
		{"trailing blanks", "Open daily \t\n", "Open daily"},
		{"indented paragraph", "Intro\n    Indented   note", "Intro\n    Indented note"},
		{"unicode", "Café   hours ☕", "Café hours ☕"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"utf-8 untouched", []byte("naïve"), "naïve"},
		{"windows-1252 quotes", []byte{0x93, 'h', 'i', 0x94}, "“hi”"},
		{"latin-1", []byte{'c', 'a', 'f', 0xE9}, "café"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeText(tt.input))
		})
	}
}

func TestDescribe(t *testing.T) {
	exact := strings.Repeat("é", descriptionLength)
	assert.Equal(t, exact, describe(exact))
	assert.Equal(t, exact+"...", describe(exact+"é"))
}

func TestCollapseHTMLText(t *testing.T) {
	assert.Equal(t, "Title \nBody text", collapseHTMLText("\n\n Title  \n\n\nBody  text \n"))
}
