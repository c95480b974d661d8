package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/voice-agent-builder/internal/llm"
)

const sectionsJSON = `{
  "source_type": "website",
  "title": "Shipping FAQ",
  "sections": [
    {"heading": "Delivery times", "content": "Orders arrive in 3-5 days.", "content_type": "faq"},
    {"heading": "Costs", "content": "Free over $50.", "content_type": null}
  ],
  "metadata": {"primary_topics": ["shipping"], "suggested_questions": ["How long does delivery take?"]}
}`

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestProcessor(f *fakeClient) *Processor {
	p := NewProcessor(singleAttempt(f), nil)
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestProcess_Success(t *testing.T) {
	f := &fakeClient{respond: staticResponse("```json\n" + sectionsJSON + "\n```")}
	p := newTestProcessor(f)

	item := ContentItem{Content: "We ship in 3-5 days.", Metadata: ItemMetadata{Title: "Shipping", Type: "faq"}}
	got := p.Process(context.Background(), "https://shop.example/faq", item)

	require.True(t, got.Processed, got.Error)
	assert.Equal(t, "https://shop.example/faq", got.ContentID)
	assert.Equal(t, SourceWebsite, got.SourceType)
	assert.Equal(t, "Shipping FAQ", got.Title)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, Section{Heading: "Delivery times", Content: "Orders arrive in 3-5 days.", ContentType: "faq"}, got.Sections[0])
	assert.Empty(t, got.Sections[1].ContentType)
	assert.Equal(t, []string{"shipping"}, got.Metadata.PrimaryTopics)
	assert.Equal(t, "2025-03-01T12:00:00Z", got.ProcessedAt)
	assert.Equal(t, []llm.ModelTier{llm.TierStandard}, f.tiers)
}

func TestProcess_PromptCarriesContext(t *testing.T) {
	f := &fakeClient{respond: staticResponse(sectionsJSON)}
	p := newTestProcessor(f)

	p.Process(context.Background(), "https://shop.example/faq", ContentItem{
		Content:  "Body text",
		Metadata: ItemMetadata{Title: "Shipping"},
	})
	p.Process(context.Background(), "manual.docx", ContentItem{
		Content:  "Manual text",
		Metadata: ItemMetadata{Title: "Manual", Format: "docx"},
	})
	p.Process(context.Background(), "bare", ContentItem{Content: "Just text"})

	require.Equal(t, 3, f.calls())
	assert.Contains(t, f.prompts[0], "Title: Shipping\nURL: https://shop.example/faq\n\nBody text")
	assert.Contains(t, f.prompts[1], "Title: Manual\nDocument format: docx\n\nManual text")
	assert.Contains(t, f.prompts[2], "Content to analyze:\nJust text")
	assert.NotContains(t, f.prompts[2], "Title:")
	for _, prompt := range f.prompts {
		assert.Contains(t, prompt, "organizing customer service information")
		assert.NotContains(t, prompt, "{{.Content}}")
	}
}

func TestProcess_SourceTypeFallsBackToItem(t *testing.T) {
	f := &fakeClient{respond: staticResponse(`{"title":"Manual","sections":[]}`)}
	p := newTestProcessor(f)

	got := p.Process(context.Background(), "manual.pdf", ContentItem{Content: "x", Metadata: ItemMetadata{Format: "pdf"}})
	require.True(t, got.Processed)
	assert.Equal(t, SourceDocument, got.SourceType)
}

func TestProcess_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		respond func(string) (string, error)
		errPart string
	}{
		{
			name:    "empty content",
			content: "   ",
			respond: staticResponse(sectionsJSON),
			errPart: "Empty content",
		},
		{
			name:    "model error",
			content: "text",
			respond: func(string) (string, error) { return "", errors.New("quota exceeded") },
			errPart: "quota exceeded",
		},
		{
			name:    "not JSON",
			content: "text",
			respond: staticResponse("I cannot help with that."),
			errPart: "not valid JSON",
		},
		{
			name:    "missing sections",
			content: "text",
			respond: staticResponse(`{"title":"Only a title"}`),
			errPart: "Invalid result structure",
		},
		{
			name:    "section without heading",
			content: "text",
			respond: staticResponse(`{"title":"T","sections":[{"content":"c"}]}`),
			errPart: "Invalid result structure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeClient{respond: tt.respond}
			got := newTestProcessor(f).Process(context.Background(), "id-1", ContentItem{Content: tt.content})

			assert.False(t, got.Processed)
			assert.Equal(t, "id-1", got.ContentID)
			assert.Contains(t, got.Error, tt.errPart)
			assert.Empty(t, got.Sections)
		})
	}
}

func TestProcess_EmptyContentSkipsModel(t *testing.T) {
	f := &fakeClient{respond: staticResponse(sectionsJSON)}
	newTestProcessor(f).Process(context.Background(), "id", ContentItem{})
	assert.Zero(t, f.calls())
}

func itemsFixture() map[string]ContentItem {
	return map[string]ContentItem{
		"https://shop.example/c": {Content: "c"},
		"https://shop.example/a": {Content: "a"},
		"https://shop.example/b": {Content: ""},
		"https://shop.example/e": {Content: "e"},
		"https://shop.example/d": {Content: "d"},
	}
}

type progressCall struct {
	msg      string
	fraction float64
}

func TestProcessAll_ModeAll(t *testing.T) {
	f := &fakeClient{respond: staticResponse(sectionsJSON)}
	p := newTestProcessor(f)

	var calls []progressCall
	results, err := p.ProcessAll(context.Background(), itemsFixture(), ModeAll, func(msg string, fraction float64) {
		calls = append(calls, progressCall{msg, fraction})
	})
	require.NoError(t, err)

	assert.Len(t, results, 4, "empty item is dropped")
	assert.NotContains(t, results, "https://shop.example/b")
	require.Len(t, calls, 5)
	assert.Equal(t, progressCall{"Processing 1/5: https://shop.example/a", 0.2}, calls[0])
	assert.Equal(t, progressCall{"Processing 5/5: https://shop.example/e", 1}, calls[4])
}

func TestProcessAll_ModeBatch(t *testing.T) {
	f := &fakeClient{respond: staticResponse(sectionsJSON)}
	p := newTestProcessor(f)
	p.BatchSize = 2

	var batches [][2]int
	p.OnBatch = func(done, total int) { batches = append(batches, [2]int{done, total}) }

	var msgs []string
	results, err := p.ProcessAll(context.Background(), itemsFixture(), ModeBatch, func(msg string, _ float64) {
		msgs = append(msgs, msg)
	})
	require.NoError(t, err)

	assert.Len(t, results, 4)
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, batches)
	assert.Equal(t, []string{
		"Processing 1/2: https://shop.example/a",
		"Processing 2/2: https://shop.example/b",
		"Processing 1/2: https://shop.example/c",
		"Processing 2/2: https://shop.example/d",
		"Processing 1/1: https://shop.example/e",
	}, msgs)
}

func TestProcessAll_DefaultBatchSize(t *testing.T) {
	f := &fakeClient{respond: staticResponse(sectionsJSON)}
	p := newTestProcessor(f)
	p.BatchSize = 0

	var batches int
	p.OnBatch = func(int, int) { batches++ }

	_, err := p.ProcessAll(context.Background(), itemsFixture(), ModeBatch, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, batches)
}

func TestProcessAll_InvalidMode(t *testing.T) {
	p := newTestProcessor(&fakeClient{respond: staticResponse(sectionsJSON)})
	_, err := p.ProcessAll(context.Background(), itemsFixture(), Mode("interactive"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive")
}

func TestProcessAll_Empty(t *testing.T) {
	p := newTestProcessor(&fakeClient{respond: staticResponse(sectionsJSON)})
	results, err := p.ProcessAll(context.Background(), nil, "", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProcessAll_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeClient{}
	f.respond = func(string) (string, error) {
		cancel()
		return sectionsJSON, nil
	}
	p := newTestProcessor(f)

	results, err := p.ProcessAll(ctx, itemsFixture(), ModeAll, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.calls())
	assert.Len(t, results, 1)
}

func TestNewProcessor_WrapsWithRetry(t *testing.T) {
	f := &fakeClient{respond: staticResponse(sectionsJSON)}
	p := NewProcessor(f, nil)
	_, ok := p.client.(*llm.RetryClient)
	assert.True(t, ok)

	r := singleAttempt(f)
	p = NewProcessor(r, nil)
	assert.Same(t, r, p.client)
}

func TestProcessPrompt_UnknownTitle(t *testing.T) {
	prompt := processPrompt("https://x.example", ContentItem{Content: "c", Metadata: ItemMetadata{Type: "page"}})
	assert.True(t, strings.Contains(prompt, "Title: Unknown\nURL: https://x.example\n"))
}
