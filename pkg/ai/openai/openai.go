package openai

import (
	"context"
	"sync"

	"github.com/claimpilot/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// RecordOpenAIClient is a client for the chat-completion API used by the
// medical record analyzer. It works against any OpenAI-compatible endpoint;
// in production it points at an OpenRouter-style gateway so the model
// fallback list can span vendors.
//
// A RecordOpenAIClient should be created using NewRecordOpenAIClient.
type RecordOpenAIClient struct {
	chatModel string

	chatURL string
	chatKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	requestLock *semaphore.Weighted

	ChatClient *openai.Client
}

// NewRecordOpenAIClientParams defines the configuration parameters for
// creating a new RecordOpenAIClient.
//
// ChatModel is the default model when a request does not specify one.
// ChatURL and ChatKey configure the chat/completion API endpoint.
// MaxConcurrentRequests bounds in-flight requests; 0 means 8.
type NewRecordOpenAIClientParams struct {
	ChatModel string

	ChatURL string
	ChatKey string

	MaxConcurrentRequests int64
}

// NewRecordOpenAIClient creates and returns a new RecordOpenAIClient
// configured with the provided parameters.
func NewRecordOpenAIClient(
	params NewRecordOpenAIClientParams,
) *RecordOpenAIClient {
	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}

	return &RecordOpenAIClient{
		chatModel: params.ChatModel,

		chatURL: params.ChatURL,
		chatKey: params.ChatKey,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		requestLock: semaphore.NewWeighted(maxConcurrent),

		ChatClient: newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

// acquireRequestSlot blocks until an in-flight request slot is free.
func (c *RecordOpenAIClient) acquireRequestSlot(ctx context.Context) error {
	return c.requestLock.Acquire(ctx, 1)
}

func (c *RecordOpenAIClient) releaseRequestSlot() {
	c.requestLock.Release(1)
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

func (c *RecordOpenAIClient) modifyMetrics(metrics ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += metrics.InputTokens
	c.metrics.OutputTokens += metrics.OutputTokens
	c.metrics.TotalTokens += metrics.TotalTokens
	c.metrics.DurationMs += metrics.DurationMs
}

// ResetMetrics clears the accumulated model metrics.
func (c *RecordOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the accumulated model metrics.
func (c *RecordOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
