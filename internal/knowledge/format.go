package knowledge

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const defaultTitle = "Knowledge Base"

// ElevenLabsEntry is one knowledge base item in the ElevenLabs upload.
type ElevenLabsEntry struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// ElevenLabsDocument is the JSON upload format for ElevenLabs agents.
type ElevenLabsDocument struct {
	Title         string            `json:"title"`
	SystemPrompt  string            `json:"system_prompt"`
	KnowledgeBase []ElevenLabsEntry `json:"knowledge_base"`
}

func (d *Document) title() string {
	if d.Title == "" {
		return defaultTitle
	}
	return d.Title
}

func rule(char string, text string, pad int) string {
	return strings.Repeat(char, utf8.RuneCountInString(text)+pad)
}

// PlainText renders doc for download: the title, description, every section
// and subsection with underlines, then the system prompt.
func PlainText(doc *Document) string {
	if doc == nil {
		return ""
	}

	parts := []string{
		strings.ToUpper(doc.title()),
		"",
		doc.Description,
		"\n" + strings.Repeat("=", 50) + "\n",
	}
	for _, section := range doc.Sections {
		parts = append(parts,
			"\n\n"+strings.ToUpper(section.Heading)+"\n",
			rule("=", section.Heading, 0)+"\n",
		)
		for _, sub := range section.Subheadings {
			parts = append(parts,
				"\n"+sub.Heading+"\n",
				rule("-", sub.Heading, 0)+"\n",
				sub.Content+"\n",
			)
		}
	}
	parts = append(parts,
		"\n\n"+strings.Repeat("=", 50)+"\n",
		"SYSTEM PROMPT:\n",
		doc.SystemPrompt,
	)
	return strings.Join(parts, "\n")
}

// ElevenLabsJSON converts doc into ElevenLabs knowledge base entries with
// banner-delimited sections and topics so retrieval chunks stay aligned with
// the document structure.
func ElevenLabsJSON(doc *Document) (*ElevenLabsDocument, error) {
	if doc == nil || !doc.Processed {
		return nil, ErrUnprocessed
	}

	out := &ElevenLabsDocument{
		Title:         doc.title(),
		SystemPrompt:  doc.SystemPrompt,
		KnowledgeBase: []ElevenLabsEntry{},
	}
	for i, section := range doc.Sections {
		n := i + 1
		heading := fmt.Sprintf("SECTION %d: %s", n, strings.ToUpper(section.Heading))
		border := rule("=", heading, 4)
		out.KnowledgeBase = append(out.KnowledgeBase, ElevenLabsEntry{
			Heading: heading,
			Content: border + "\n" + heading + "\n" + border,
		})

		for j, sub := range section.Subheadings {
			topic := fmt.Sprintf("TOPIC %d.%d: %s", n, j+1, sub.Heading)
			subBorder := rule("-", topic, 4)
			out.KnowledgeBase = append(out.KnowledgeBase, ElevenLabsEntry{
				Heading: topic,
				Content: subBorder + "\n" + topic + "\n" + subBorder + "\n\n" + sub.Content + "\n\n",
			})
		}

		out.KnowledgeBase = append(out.KnowledgeBase, ElevenLabsEntry{
			Heading: fmt.Sprintf("End of Section %d", n),
			Content: "\n" + strings.Repeat("*", 50) + "\n\n",
		})
	}
	return out, nil
}

// ElevenLabsText renders doc as a single text file for ElevenLabs upload.
func ElevenLabsText(doc *Document) (string, error) {
	if doc == nil || !doc.Processed {
		return "", ErrUnprocessed
	}

	title := strings.ToUpper(doc.title())
	titleBorder := rule("=", title, 0)
	parts := []string{titleBorder, title, titleBorder, "\n\n"}

	if doc.Description != "" {
		parts = append(parts, "DESCRIPTION:", doc.Description, "\n"+strings.Repeat("-", 80)+"\n\n")
	}

	for i, section := range doc.Sections {
		n := i + 1
		heading := fmt.Sprintf("SECTION %d: %s", n, strings.ToUpper(section.Heading))
		border := rule("=", heading, 0)
		parts = append(parts, border, heading, border, "\n\n")

		for j, sub := range section.Subheadings {
			topic := fmt.Sprintf("TOPIC %d.%d: %s", n, j+1, sub.Heading)
			subBorder := rule("-", topic, 0)
			parts = append(parts, subBorder, topic, subBorder, "\n\n", sub.Content, "\n\n")
		}

		parts = append(parts, "\n"+strings.Repeat("*", 80)+"\n\n")
	}
	return strings.Join(parts, "\n"), nil
}
