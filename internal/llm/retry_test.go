package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns the queued responses in order.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
	onCall    func()
}

func (c *scriptedClient) next() (string, error) {
	i := c.calls
	c.calls++
	if c.onCall != nil {
		c.onCall()
	}
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	var resp string
	if i < len(c.responses) {
		resp = c.responses[i]
	}
	return resp, err
}

func (c *scriptedClient) GenerateContent(context.Context, string, ModelTier) (string, error) {
	return c.next()
}

func (c *scriptedClient) GenerateJSON(context.Context, string, ModelTier) (string, error) {
	return c.next()
}

func (c *scriptedClient) GetModel(ModelTier) string { return "test-model" }

func (c *scriptedClient) Close() error { return nil }

func newTestRetryClient(inner Client) (*RetryClient, *[]time.Duration) {
	var delays []time.Duration
	r := NewRetryClient(inner, nil)
	r.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return r, &delays
}

func TestRetryClient_SucceedsFirstTry(t *testing.T) {
	inner := &scriptedClient{responses: []string{`{"ok": true}`}}
	r, delays := newTestRetryClient(inner)

	out, err := r.GenerateJSON(context.Background(), "prompt", TierStandard)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, out)
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, *delays)
}

func TestRetryClient_ExponentialBackoff(t *testing.T) {
	boom := errors.New("rate limited")
	inner := &scriptedClient{
		responses: []string{"", "", "done"},
		errs:      []error{boom, boom, nil},
	}
	r, delays := newTestRetryClient(inner)

	out, err := r.GenerateContent(context.Background(), "prompt", TierLite)
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *delays)
}

func TestRetryClient_GivesUp(t *testing.T) {
	boom := errors.New("server error")
	inner := &scriptedClient{errs: []error{boom, boom, boom, boom}}
	r, _ := newTestRetryClient(inner)

	_, err := r.GenerateContent(context.Background(), "prompt", TierLite)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, inner.calls)
}

func TestRetryClient_RetriesInvalidJSON(t *testing.T) {
	inner := &scriptedClient{responses: []string{"not json at all", "Here you go: {\"title\": \"FAQ\"}"}}
	r, _ := newTestRetryClient(inner)

	out, err := r.GenerateJSON(context.Background(), "prompt", TierStandard)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "FAQ"}`, out)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryClient_InvalidJSONExhausted(t *testing.T) {
	inner := &scriptedClient{responses: []string{"nope", "nope", "nope"}}
	r, _ := newTestRetryClient(inner)

	_, err := r.GenerateJSON(context.Background(), "prompt", TierStandard)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestRetryClient_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inner := &scriptedClient{errs: []error{errors.New("flaky"), nil}, responses: []string{"", "late"}, onCall: cancel}
	r := NewRetryClient(inner, nil)
	r.BaseDelay = time.Hour

	_, err := r.GenerateContent(ctx, "prompt", TierLite)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryClient_SingleAttempt(t *testing.T) {
	inner := &scriptedClient{errs: []error{errors.New("x")}}
	r, delays := newTestRetryClient(inner)
	r.MaxAttempts = 0

	_, err := r.GenerateContent(context.Background(), "prompt", TierLite)
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, *delays)
}
