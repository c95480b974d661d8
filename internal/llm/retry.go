package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
)

// ErrInvalidJSON is returned when a JSON response does not parse.
var ErrInvalidJSON = errors.New("response is not valid JSON")

// RetryClient retries failed generations with exponential backoff:
// attempt n waits BaseDelay * 2^(n-1) before running.
type RetryClient struct {
	Client
	MaxAttempts int
	BaseDelay   time.Duration
	logger      *log.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRetryClient wraps client with the default retry policy.
func NewRetryClient(client Client, logger *log.Logger) *RetryClient {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &RetryClient{
		Client:      client,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// GenerateContent retries the wrapped client's GenerateContent.
func (r *RetryClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return r.do(ctx, "generate content", tier, func() (string, error) {
		return r.Client.GenerateContent(ctx, prompt, tier)
	})
}

// GenerateJSON retries the wrapped client's GenerateJSON, also retrying
// responses that are not valid JSON.
func (r *RetryClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return r.do(ctx, "generate JSON", tier, func() (string, error) {
		text, err := r.Client.GenerateJSON(ctx, prompt, tier)
		if err != nil {
			return "", err
		}
		text = CleanJSONBlock(text)
		if !json.Valid([]byte(text)) {
			return "", ErrInvalidJSON
		}
		return text, nil
	})
}

func (r *RetryClient) do(ctx context.Context, op string, tier ModelTier, call func() (string, error)) (string, error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := r.BaseDelay * time.Duration(1<<(attempt-1))
			r.logger.Warn("retrying LLM request", "op", op, "attempt", attempt+1, "of", attempts, "delay", delay, "err", lastErr)
			if err := r.sleep(ctx, delay); err != nil {
				return "", err
			}
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		r.logger.Debug("sending LLM request", "op", op, "model", r.GetModel(tier), "attempt", attempt+1)
		text, err := call()
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
