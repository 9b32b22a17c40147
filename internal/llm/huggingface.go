package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/walkingday-ai/walkbot/internal/retry"
	"github.com/walkingday-ai/walkbot/pkg/metrics"
)

// ErrEmptySummary is returned when the inference API answers without a summary.
var ErrEmptySummary = errors.New("summarization returned no output")

// HuggingFaceSummarizer calls a hosted summarization model through the
// HuggingFace Inference API.
type HuggingFaceSummarizer struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
	policy     retry.Policy
}

// NewHuggingFaceSummarizer creates a summarizer backed by the given model.
func NewHuggingFaceSummarizer(baseURL, token, model string, policy retry.Policy) *HuggingFaceSummarizer {
	return &HuggingFaceSummarizer{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		token:      token,
		model:      model,
		policy:     policy,
	}
}

type summarizeRequest struct {
	Inputs string `json:"inputs"`
}

type summarizeResult struct {
	SummaryText string `json:"summary_text"`
}

// Summarize condenses the given text.
func (s *HuggingFaceSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return retry.DoValue(ctx, s.policy, func() (string, error) {
		start := time.Now()

		body, err := json.Marshal(summarizeRequest{Inputs: text})
		if err != nil {
			return "", fmt.Errorf("failed to encode summarize request: %w", err)
		}

		endpoint := fmt.Sprintf("%s/models/%s", s.baseURL, s.model)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if s.token != "" {
			req.Header.Set("Authorization", "Bearer "+s.token)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			metrics.RecordProviderRequest("huggingface", "error", time.Since(start).Seconds())
			return "", fmt.Errorf("summarize request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			metrics.RecordProviderRequest("huggingface", http.StatusText(resp.StatusCode), time.Since(start).Seconds())
			return "", fmt.Errorf("summarization provider status %d", resp.StatusCode)
		}

		var results []summarizeResult
		if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
			metrics.RecordProviderRequest("huggingface", "decode_error", time.Since(start).Seconds())
			return "", fmt.Errorf("failed to decode summarize payload: %w", err)
		}
		if len(results) == 0 || results[0].SummaryText == "" {
			metrics.RecordProviderRequest("huggingface", "empty", time.Since(start).Seconds())
			return "", ErrEmptySummary
		}

		metrics.RecordProviderRequest("huggingface", "success", time.Since(start).Seconds())
		return results[0].SummaryText, nil
	})
}
