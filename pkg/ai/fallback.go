package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claimpilot/backend/pkg/logger"
)

// DefaultFallbackModels is the fallback priority order tried after the
// requested model. Ordered configuration, not code: reordering or adding
// models requires no logic changes.
var DefaultFallbackModels = []string{
	"anthropic/claude-sonnet-4",
	"openai/gpt-4o",
	"google/gemini-2.5-flash",
	"openai/gpt-4o-mini",
}

// retryableErrorPatterns are substrings of provider error messages that mark
// an error as transient. Anything not matching is fatal and aborts the whole
// call chain immediately, so genuine client-request bugs are never masked as
// transient failures.
var retryableErrorPatterns = []string{
	"insufficient credits",
	"key limit exceeded",
	"requires renewal",
	"forbidden",
	"gateway timeout",
	"timed out",
	"rate limit",
	"too many requests",
	"service unavailable",
	"internal server error",
	"overloaded",
	"429",
	"502",
	"503",
	"504",
}

// IsRetryableModelError reports whether err looks like a transient provider
// failure worth retrying on the same or a fallback model.
func IsRetryableModelError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range retryableErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// FallbackClient wraps a RecordAIClient with per-model retries and a fixed
// model fallback order. It is the single choke point for every AI call in the
// analysis pipeline: text, image, one-shot file, and chunked file requests
// all share the same retry and fallback policy.
type FallbackClient struct {
	inner         RecordAIClient
	fallbacks     []string
	triesPerModel int
	backoffBase   time.Duration
}

// NewFallbackClientParams contains configuration for creating a FallbackClient.
type NewFallbackClientParams struct {
	Inner          RecordAIClient
	FallbackModels []string      // defaults to DefaultFallbackModels
	TriesPerModel  int           // defaults to 2 (initial + 1 retry)
	BackoffBase    time.Duration // defaults to 500ms, grows linearly per retry
}

// NewFallbackClient creates a FallbackClient around the given inner client.
func NewFallbackClient(params NewFallbackClientParams) *FallbackClient {
	fallbacks := params.FallbackModels
	if fallbacks == nil {
		fallbacks = DefaultFallbackModels
	}
	tries := params.TriesPerModel
	if tries <= 0 {
		tries = 2
	}
	backoff := params.BackoffBase
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &FallbackClient{
		inner:         params.Inner,
		fallbacks:     fallbacks,
		triesPerModel: tries,
		backoffBase:   backoff,
	}
}

// candidateModels returns the requested model followed by the fallback list,
// with duplicates removed while preserving order. An empty requested model
// yields the fallback list alone.
func candidateModels(requested string, fallbacks []string) []string {
	candidates := make([]string, 0, len(fallbacks)+1)
	seen := make(map[string]bool, len(fallbacks)+1)
	if requested != "" {
		candidates = append(candidates, requested)
		seen[requested] = true
	}
	for _, model := range fallbacks {
		if seen[model] {
			continue
		}
		seen[model] = true
		candidates = append(candidates, model)
	}
	return candidates
}

func requestedModel(opts []GenerateOption) string {
	options := GenerateOptions{}
	for _, o := range opts {
		o(&options)
	}
	return options.Model
}

// generate runs call against each candidate model in priority order, with up
// to triesPerModel attempts per model and a short increasing backoff between
// attempts of the same model. Success is the first non-empty content.
func (c *FallbackClient) generate(
	ctx context.Context,
	requested string,
	call func(ctx context.Context, model string) (string, error),
) (string, error) {
	candidates := candidateModels(requested, c.fallbacks)

	var lastErr error
	attempts := 0
	for _, model := range candidates {
		for try := 0; try < c.triesPerModel; try++ {
			if try > 0 {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(c.backoffBase * time.Duration(try)):
				}
			}
			attempts++

			content, err := call(ctx, model)
			if err == nil {
				if strings.TrimSpace(content) != "" {
					return content, nil
				}
				lastErr = fmt.Errorf("model %s returned empty content", model)
				logger.Warn("Empty model response", "model", model, "attempt", attempts)
				continue
			}
			if !IsRetryableModelError(err) {
				return "", err
			}
			lastErr = err
			logger.Warn("Transient model error", "model", model, "attempt", attempts, "err", err)
		}
	}

	return "", fmt.Errorf(
		"all %d candidate models failed after %d attempts, likely exhausted AI credits, retry later: %w",
		len(candidates), attempts, lastErr,
	)
}

// GenerateChat routes a chat completion through the fallback chain.
func (c *FallbackClient) GenerateChat(
	ctx context.Context,
	messages []ChatMessage,
	opts ...GenerateOption,
) (string, error) {
	return c.generate(ctx, requestedModel(opts), func(ctx context.Context, model string) (string, error) {
		return c.inner.GenerateChat(ctx, messages, append(opts, WithModel(model))...)
	})
}

// GenerateChatWithFormat routes a structured-output chat completion through
// the fallback chain. The out value holds the last successful response.
func (c *FallbackClient) GenerateChatWithFormat(
	ctx context.Context,
	name string,
	description string,
	messages []ChatMessage,
	out any,
	opts ...GenerateOption,
) error {
	_, err := c.generate(ctx, requestedModel(opts), func(ctx context.Context, model string) (string, error) {
		err := c.inner.GenerateChatWithFormat(ctx, name, description, messages, out, append(opts, WithModel(model))...)
		if err != nil {
			return "", err
		}
		return "ok", nil
	})
	return err
}

// GenerateChatWithFile routes a document-attachment completion through the
// fallback chain.
func (c *FallbackClient) GenerateChatWithFile(
	ctx context.Context,
	prompt string,
	file FilePayload,
	opts ...GenerateOption,
) (string, error) {
	return c.generate(ctx, requestedModel(opts), func(ctx context.Context, model string) (string, error) {
		return c.inner.GenerateChatWithFile(ctx, prompt, file, append(opts, WithModel(model))...)
	})
}

// GenerateImageAnalysis routes a vision completion through the fallback chain.
func (c *FallbackClient) GenerateImageAnalysis(
	ctx context.Context,
	prompt string,
	image ImagePayload,
	opts ...GenerateOption,
) (string, error) {
	return c.generate(ctx, requestedModel(opts), func(ctx context.Context, model string) (string, error) {
		return c.inner.GenerateImageAnalysis(ctx, prompt, image, append(opts, WithModel(model))...)
	})
}

// ResetMetrics resets the wrapped client's metrics.
func (c *FallbackClient) ResetMetrics() {
	c.inner.ResetMetrics()
}

// GetMetrics returns the wrapped client's accumulated metrics.
func (c *FallbackClient) GetMetrics() ModelMetrics {
	return c.inner.GetMetrics()
}
