package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/voice-agent-builder/internal/knowledge"
)

// Format names an export rendering of a knowledge document.
type Format string

// Export formats.
const (
	FormatJSON           Format = "json"
	FormatText           Format = "text"
	FormatElevenLabsJSON Format = "elevenlabs-json"
	FormatElevenLabsText Format = "elevenlabs-txt"
)

// Formats lists every export format in the order Export writes them.
func Formats() []Format {
	return []Format{FormatJSON, FormatText, FormatElevenLabsJSON, FormatElevenLabsText}
}

// ContentType is the HTTP media type of the rendered format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON, FormatElevenLabsJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render returns doc in the given format. JSON formats are indented by two spaces.
func Render(doc *knowledge.Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		if doc == nil {
			return nil, knowledge.ErrUnprocessed
		}
		return json.MarshalIndent(doc, "", "  ")
	case FormatText:
		if doc == nil {
			return nil, knowledge.ErrUnprocessed
		}
		return []byte(knowledge.PlainText(doc)), nil
	case FormatElevenLabsJSON:
		out, err := knowledge.ElevenLabsJSON(doc)
		if err != nil {
			return nil, err
		}
		return json.MarshalIndent(out, "", "  ")
	case FormatElevenLabsText:
		out, err := knowledge.ElevenLabsText(doc)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
