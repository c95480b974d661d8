package knowledge

import (
	"context"
	"sync"

	"github.com/jonathan/voice-agent-builder/internal/llm"
)

// fakeClient answers prompts with respond and records what it saw.
type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	tiers   []llm.ModelTier
	respond func(prompt string) (string, error)
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.tiers = append(f.tiers, tier)
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeClient) GetModel(tier llm.ModelTier) string { return "fake-" + string(tier) }

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// singleAttempt disables retries so failure tests do not sleep.
func singleAttempt(f *fakeClient) *llm.RetryClient {
	r := llm.NewRetryClient(f, nil)
	r.MaxAttempts = 1
	return r
}

func staticResponse(body string) func(string) (string, error) {
	return func(string) (string, error) { return body, nil }
}
