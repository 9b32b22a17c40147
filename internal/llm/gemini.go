package llm

import (
	"context"
	"errors"
	"time"

	genai "google.golang.org/genai"

	"github.com/walkingday-ai/walkbot/pkg/metrics"
)

// ErrEmptyCandidates is returned when the model answers without content.
var ErrEmptyCandidates = errors.New("gemini returned no candidates")

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli *genai.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli}, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return "gemini"
}

// Models returns available models.
func (c *GeminiClient) Models() []string {
	return []string{
		"gemini-2.5-flash",
		"gemini-2.5-pro",
		"gemini-1.5-flash",
	}
}

// Complete sends a completion request.
func (c *GeminiClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: req.Prompt}}},
	}
	return c.generate(ctx, model, contents)
}

// CompleteVision sends a prompt with an attached image as inline data.
func (c *GeminiClient) CompleteVision(ctx context.Context, req *VisionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: req.MIMEType, Data: req.Image}},
			{Text: req.Prompt},
		}},
	}
	return c.generate(ctx, model, contents)
}

func (c *GeminiClient) generate(ctx context.Context, model string, contents []*genai.Content) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.cli.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyCandidates
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		content += part.Text
	}

	var tokensIn, tokensOut int
	if resp.UsageMetadata != nil {
		tokensIn = int(resp.UsageMetadata.PromptTokenCount)
		tokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	metrics.RecordLLMUsage(model, tokensIn, tokensOut)

	return &CompletionResponse{
		Content:   content,
		Model:     model,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}
