package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTitle(t *testing.T) {
	long := strings.Repeat("word ", 30) // 150 chars, no separators

	tests := []struct {
		name string
		text string
		want string
	}{
		{"first line", "Acme Plumbing\nWe fix pipes.", "Acme Plumbing"},
		{"skips short lines", "#\n--\nReturns Policy\n", "Returns Policy"},
		{"splits on colon", "Shipping: how orders leave the warehouse", "Shipping"},
		{"splits on dash", "Opening Hours - Monday to Friday; weekends closed", "Opening Hours"},
		{"head too short tries next separator", "FAQ: Warranty claims - what to expect", "FAQ: Warranty claims"},
		{"separator with short heads", "a: b; c = d | e and more words here", "a: b; c = d"},
		{"truncates long line", strings.TrimSpace(long), strings.TrimSpace(long)[:97] + "..."},
		{"skips very long lines", strings.Repeat("x", 250) + "\nContact Us", "Contact Us"},
		{"empty", "", UntitledDocument},
		{"nothing usable", "a\nbb\n", UntitledDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.text))
		})
	}
}
