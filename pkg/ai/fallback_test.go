package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeInnerClient struct {
	chat func(model string) (string, error)

	calls  int
	models []string
}

func (f *fakeInnerClient) record(opts []GenerateOption) string {
	options := GenerateOptions{}
	for _, o := range opts {
		o(&options)
	}
	f.calls++
	f.models = append(f.models, options.Model)
	return options.Model
}

func (f *fakeInnerClient) GenerateChat(ctx context.Context, messages []ChatMessage, opts ...GenerateOption) (string, error) {
	return f.chat(f.record(opts))
}

func (f *fakeInnerClient) GenerateChatWithFormat(ctx context.Context, name, description string, messages []ChatMessage, out any, opts ...GenerateOption) error {
	_, err := f.chat(f.record(opts))
	return err
}

func (f *fakeInnerClient) GenerateChatWithFile(ctx context.Context, prompt string, file FilePayload, opts ...GenerateOption) (string, error) {
	return f.chat(f.record(opts))
}

func (f *fakeInnerClient) GenerateImageAnalysis(ctx context.Context, prompt string, image ImagePayload, opts ...GenerateOption) (string, error) {
	return f.chat(f.record(opts))
}

func (f *fakeInnerClient) ResetMetrics() {}

func (f *fakeInnerClient) GetMetrics() ModelMetrics { return ModelMetrics{} }

func newTestFallbackClient(inner RecordAIClient, fallbacks []string) *FallbackClient {
	return NewFallbackClient(NewFallbackClientParams{
		Inner:          inner,
		FallbackModels: fallbacks,
		TriesPerModel:  2,
		BackoffBase:    time.Millisecond,
	})
}

func TestFallbackClient_ExhaustsAllCandidates(t *testing.T) {
	inner := &fakeInnerClient{
		chat: func(model string) (string, error) {
			return "", errors.New("429 rate limit exceeded")
		},
	}
	client := newTestFallbackClient(inner, []string{"model-b", "model-c"})

	_, err := client.GenerateChat(context.Background(), nil, WithModel("model-a"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	// 3 candidates x 2 tries each
	if inner.calls != 6 {
		t.Fatalf("expected 6 attempts, got %d", inner.calls)
	}
	if !strings.Contains(err.Error(), "retry later") {
		t.Fatalf("expected aggregated error with retry guidance, got %v", err)
	}
}

func TestFallbackClient_FatalErrorShortCircuits(t *testing.T) {
	fatal := errors.New("invalid request: messages must not be empty")
	inner := &fakeInnerClient{
		chat: func(model string) (string, error) {
			return "", fatal
		},
	}
	client := newTestFallbackClient(inner, []string{"model-b"})

	_, err := client.GenerateChat(context.Background(), nil, WithModel("model-a"))
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error to propagate unchanged, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 attempt before short-circuit, got %d", inner.calls)
	}
}

func TestFallbackClient_FallsBackToNextModel(t *testing.T) {
	inner := &fakeInnerClient{
		chat: func(model string) (string, error) {
			if model == "model-a" {
				return "", errors.New("503 service unavailable")
			}
			return "answer", nil
		},
	}
	client := newTestFallbackClient(inner, []string{"model-b"})

	got, err := client.GenerateChat(context.Background(), nil, WithModel("model-a"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != "answer" {
		t.Fatalf("expected answer, got %q", got)
	}
	// model-a twice, then model-b once
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
	if inner.models[2] != "model-b" {
		t.Fatalf("expected third attempt on model-b, got %q", inner.models[2])
	}
}

func TestFallbackClient_EmptyContentRetried(t *testing.T) {
	first := true
	inner := &fakeInnerClient{
		chat: func(model string) (string, error) {
			if first {
				first = false
				return "   ", nil
			}
			return "content", nil
		},
	}
	client := newTestFallbackClient(inner, []string{})

	got, err := client.GenerateChat(context.Background(), nil, WithModel("model-a"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != "content" {
		t.Fatalf("expected content, got %q", got)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", inner.calls)
	}
}

func TestFallbackClient_DeduplicatesRequestedModel(t *testing.T) {
	inner := &fakeInnerClient{
		chat: func(model string) (string, error) {
			return "", errors.New("gateway timeout")
		},
	}
	client := newTestFallbackClient(inner, []string{"model-a", "model-b"})

	_, err := client.GenerateChat(context.Background(), nil, WithModel("model-a"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	// model-a appears once despite being requested and listed: 2 models x 2 tries
	if inner.calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", inner.calls)
	}
}

func TestIsRetryableModelError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("429 Too Many Requests"), true},
		{"credits", errors.New("Insufficient credits to complete request"), true},
		{"key renewal", errors.New("API key requires renewal"), true},
		{"gateway timeout", errors.New("504 gateway timeout"), true},
		{"server error", errors.New("internal server error"), true},
		{"bad request", errors.New("400 invalid request body"), false},
		{"auth", errors.New("401 unauthorized: malformed token"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryableModelError(tc.err); got != tc.want {
				t.Fatalf("IsRetryableModelError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
