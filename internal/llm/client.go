// Package llm provides generative-language client interfaces and implementations.
package llm

import (
	"context"
	"errors"
)

// ErrVisionUnsupported is returned when the configured provider cannot take images.
var ErrVisionUnsupported = errors.New("configured LLM provider does not support images")

// CompletionRequest represents a single-prompt completion request.
type CompletionRequest struct {
	Model     string
	Prompt    string
	MaxTokens int
}

// VisionRequest represents a completion request over a prompt plus image.
type VisionRequest struct {
	Model    string
	Prompt   string
	Image    []byte
	MIMEType string
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content   string
	Model     string
	TokensIn  int
	TokensOut int
	LatencyMs int64
}

// Client is the interface for text completion providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// VisionClient is the interface for image-capable completion providers.
type VisionClient interface {
	// CompleteVision sends a prompt with an attached image.
	CompleteVision(ctx context.Context, req *VisionRequest) (*CompletionResponse, error)
}

// Summarizer is the interface for text summarization providers.
type Summarizer interface {
	// Summarize condenses the given text.
	Summarize(ctx context.Context, text string) (string, error)
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// NewClient creates a new LLM client based on provider.
func NewClient(ctx context.Context, provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey)
	default:
		return NewGeminiClient(ctx, apiKey)
	}
}
