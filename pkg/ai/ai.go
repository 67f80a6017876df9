package ai

import (
	"context"
	"errors"
)

// ErrFileInputUnsupported is returned by adapters that cannot attach whole
// document files to a chat request (e.g. self-hosted Ollama). Callers treat
// it as fatal: switching models on the same adapter will not help.
var ErrFileInputUnsupported = errors.New("file attachments are not supported by this AI adapter")

// ChatMessage represents a single message in a chat conversation.
//
// Role must be one of:
//   - "user"      → a user-provided message
//   - "assistant" → a message from the AI assistant
type ChatMessage struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

// FilePayload is a whole document attached to a chat request, encoded as a
// base64 data URL. Used for scanned PDFs that need provider-side OCR parsing.
type FilePayload struct {
	Filename string
	DataURL  string
}

// ImagePayload is an inline image encoded as a base64 data URL.
type ImagePayload struct {
	DataURL string
}

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
	MaxTokens     int      // Maximum output tokens, 0 for provider default
	DocumentOCR   bool     // Request OCR-enabled document parsing for file payloads
}

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens returns a GenerateOption that caps the output token count.
func WithMaxTokens(maxTokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = maxTokens
	}
}

// WithDocumentOCR returns a GenerateOption that asks the provider to run its
// document/OCR parser over attached files so scanned pages are read as text
// instead of being treated as opaque binary.
func WithDocumentOCR() GenerateOption {
	return func(o *GenerateOptions) {
		o.DocumentOCR = true
	}
}

// RecordAIClient defines the interface for AI operations used in medical
// record analysis. Implementations handle plain chat completion, structured
// output, document-file attachments, and image (vision) input.
type RecordAIClient interface {
	GenerateChat(
		ctx context.Context,
		messages []ChatMessage,
		opts ...GenerateOption,
	) (string, error)
	GenerateChatWithFormat(
		ctx context.Context,
		name string,
		description string,
		messages []ChatMessage,
		out any,
		opts ...GenerateOption,
	) error
	GenerateChatWithFile(
		ctx context.Context,
		prompt string,
		file FilePayload,
		opts ...GenerateOption,
	) (string, error)
	GenerateImageAnalysis(
		ctx context.Context,
		prompt string,
		image ImagePayload,
		opts ...GenerateOption,
	) (string, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}
