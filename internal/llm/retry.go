package llm

import (
	"context"

	"github.com/walkingday-ai/walkbot/internal/retry"
)

// retryClient decorates a Client (and its vision capability, when present)
// with the provider retry policy.
type retryClient struct {
	inner  Client
	policy retry.Policy
}

// WithRetry wraps client so each completion runs under the policy. With the
// default single-attempt policy the wrapper is behaviourally transparent.
func WithRetry(client Client, policy retry.Policy) Client {
	return &retryClient{inner: client, policy: policy}
}

func (c *retryClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return retry.DoValue(ctx, c.policy, func() (*CompletionResponse, error) {
		return c.inner.Complete(ctx, req)
	})
}

func (c *retryClient) Name() string {
	return c.inner.Name()
}

func (c *retryClient) Models() []string {
	return c.inner.Models()
}

// CompleteVision satisfies VisionClient when the wrapped client does.
func (c *retryClient) CompleteVision(ctx context.Context, req *VisionRequest) (*CompletionResponse, error) {
	vc, ok := c.inner.(VisionClient)
	if !ok {
		return nil, ErrVisionUnsupported
	}
	return retry.DoValue(ctx, c.policy, func() (*CompletionResponse, error) {
		return vc.CompleteVision(ctx, req)
	})
}
