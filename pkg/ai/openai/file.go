package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/claimpilot/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// GenerateChatWithFile sends a prompt together with a whole document
// attachment (base64 data URL) and returns the model's reply. When the
// DocumentOCR option is set, the request carries the gateway's file-parser
// plugin flag so scanned pages are OCR'd instead of being treated as
// opaque binary.
func (c *RecordOpenAIClient) GenerateChatWithFile(
	ctx context.Context,
	prompt string,
	file ai.FilePayload,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	msgs := []openai.ChatCompletionMessageParamUnion{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
			FileData: openai.String(file.DataURL),
			Filename: openai.String(file.Filename),
		}),
	}))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		body.MaxTokens = openai.Int(int64(options.MaxTokens))
	}

	requestOpts := []option.RequestOption{}
	if options.DocumentOCR {
		// OpenRouter-style plugin block; ignored by endpoints that don't know it.
		requestOpts = append(requestOpts, option.WithJSONSet("plugins", []map[string]any{
			{
				"id": "file-parser",
				"pdf": map[string]string{
					"engine": "mistral-ocr",
				},
			},
		}))
	}

	if err := c.acquireRequestSlot(ctx); err != nil {
		return "", err
	}
	defer c.releaseRequestSlot()

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(ctx, body, requestOpts...)
	if err != nil {
		return "", err
	}
	duration := time.Since(start).Milliseconds()

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
	})

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from model")
	}
	return response.Choices[0].Message.Content, nil
}
