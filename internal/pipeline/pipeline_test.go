package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonathan/voice-agent-builder/internal/llm"
)

// mapFetcher serves pages from a map.
type mapFetcher map[string]string

func (f mapFetcher) Fetch(_ context.Context, url string) (string, error) {
	markup, ok := f[url]
	if !ok {
		return "", fmt.Errorf("HTTP status 404")
	}
	return markup, nil
}

func sitePage(title, body string, links ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>" + title + "</title></head><body><nav>")
	for _, l := range links {
		sb.WriteString(`<a href="` + l + `">link</a>`)
	}
	sb.WriteString("</nav><main><p>" + body + "</p></main></body></html>")
	return sb.String()
}

func supportSite() mapFetcher {
	links := []string{"/", "/faq", "/contact", "/privacy"}
	return mapFetcher{
		"http://help.example":         sitePage("Help Center", "Welcome to support.", links...),
		"http://help.example/faq":     sitePage("FAQ", "Orders ship in two days.", links...),
		"http://help.example/contact": sitePage("Contact", "Call 555-0100.", links...),
		"http://help.example/privacy": sitePage("Privacy", "We keep your data safe.", links...),
	}
}

const sectionsResponse = `{"source_type": "website", "title": "Support", "sections": [{"heading": "Shipping", "content": "Orders ship in two days.", "content_type": "policy"}]}`

const documentResponse = `{
  "title": "Help Center Knowledge Base",
  "description": "Everything callers ask about.",
  "sections": [{"heading": "Orders", "subheadings": [{"heading": "Shipping", "content": "Orders ship in two days."}]}],
  "system_prompt": "You are a friendly support agent."
}`

// fakeLLM answers processing prompts with sectionsResponse and combine
// prompts with documentResponse.
type fakeLLM struct {
	mu       sync.Mutex
	processN int
	combineN int
	fail     bool
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeLLM) GenerateJSON(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("quota exceeded")
	}
	if tier == llm.TierAdvanced {
		f.combineN++
		return documentResponse, nil
	}
	f.processN++
	return sectionsResponse, nil
}

func (f *fakeLLM) GetModel(tier llm.ModelTier) string { return "fake-" + string(tier) }

func (f *fakeLLM) Close() error { return nil }

// noRetry keeps failing clients from sleeping between attempts.
func noRetry(client llm.Client) *llm.RetryClient {
	r := llm.NewRetryClient(client, nil)
	r.MaxAttempts = 1
	return r
}

type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) record(e ProgressEvent) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) steps() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int)
	for _, e := range l.events {
		out[e.Step]++
	}
	return out
}

func (l *eventLog) artifacts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		if e.Artifact != "" {
			out = append(out, e.Artifact)
		}
	}
	return out
}
