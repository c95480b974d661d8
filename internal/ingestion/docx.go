package ingestion

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var nonPrintableASCII = regexp.MustCompile(`[^\x20-\x7E\n\r\t]`)

// parseDOCX reads the paragraphs of word/document.xml. Files that are not zip
// containers are reported as legacy .doc content needing conversion.
func parseDOCX(filename string, content []byte) (string, string, string) {
	paragraphs, err := docxParagraphs(content)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return "[This file appears to be in the older .doc format. Please convert to .docx format for proper parsing.]", stem(filename), ""
		}
		return fmt.Sprintf("[Error parsing DOCX: %v]", err), filename, ""
	}

	text := strings.Join(paragraphs, "\n")
	title := stem(filename)
	if len(paragraphs) > 0 {
		if first := strings.TrimSpace(paragraphs[0]); first != "" {
			title = truncateTitle(first)
		}
	}
	return text, title, describe(text)
}

func docxParagraphs(content []byte) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	var body *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return nil, errors.New("word/document.xml not found")
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document body: %w", err)
	}
	defer func() { _ = rc.Close() }()

	dec := xml.NewDecoder(rc)
	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br", "cr":
				current.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				if inPara {
					paragraphs = append(paragraphs, current.String())
				}
				inPara = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}

// parseDOC salvages readable lines from a legacy binary .doc file: lines
// longer than 5 characters that are more than half letters.
func parseDOC(filename string, content []byte) (string, string, string) {
	raw := strings.ToValidUTF8(string(content), "")
	raw = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		return -1
	}, raw)
	raw = nonPrintableASCII.ReplaceAllString(raw, "")

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 5 {
			continue
		}
		letters := 0
		for _, r := range line {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		if float64(letters) > float64(len(line))*0.5 {
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return fmt.Sprintf("[Could not extract readable text from .doc file: %s. Please convert to .docx format.]", filename), stem(filename), ""
	}
	text := strings.Join(lines, "\n")
	return text, ExtractTitle(text), describe(text)
}
