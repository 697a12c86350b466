package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/faktgate/faktgate/internal/model"
)

const (
	maxAttempts  = 3
	retryBackoff = 2 * time.Second
)

// Client wraps a Provider with the two fact-checking operations and
// retry handling for rate limits. The provider stays a plain text
// generator; the prompts and response parsing live here so every
// backend behaves identically.
type Client struct {
	provider Provider
	config   Config
	backoff  time.Duration // initial retry delay, doubles per attempt
}

func NewClient(provider Provider, config Config) *Client {
	return &Client{provider: provider, config: config, backoff: retryBackoff}
}

// Provider exposes the wrapped backend (for availability checks)
func (c *Client) Provider() Provider {
	return c.provider
}

// ExtractClaims pulls checkable claims out of one transcript chunk.
// A nil slice with nil error means the chunk contained nothing
// checkable, which is a normal outcome for filler segments.
func (c *Client) ExtractClaims(ctx context.Context, chunk model.Chunk, lang string) ([]model.Claim, error) {
	resp, err := c.generate(ctx, GenerateRequest{
		System:    extractionSystem,
		Prompt:    buildExtractionPrompt(chunk, lang),
		MaxTokens: c.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("extract claims from chunk %d: %w", chunk.Index, err)
	}

	claims, err := parseClaims(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("extract claims from chunk %d: %w", chunk.Index, err)
	}
	return claims, nil
}

// Verify asks the provider for a verdict on one claim. The raw text
// goes to the verdict normalizer untouched; grounding sources arrive
// out-of-band from providers that support web search.
func (c *Client) Verify(ctx context.Context, claim model.Claim, lang string) (string, []model.EvidenceItem, error) {
	resp, err := c.generate(ctx, GenerateRequest{
		System:    verificationSystem,
		Prompt:    buildVerificationPrompt(claim, lang),
		MaxTokens: c.config.MaxTokens,
		Grounding: c.config.Grounding,
	})
	if err != nil {
		return "", nil, fmt.Errorf("verify claim: %w", err)
	}
	return resp.Text, resp.Sources, nil
}

// generate runs one call with retry on rate limits. Backoff doubles
// per attempt and respects context cancellation.
func (c *Client) generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var lastErr error
	backoff := c.backoff
	if backoff <= 0 {
		backoff = retryBackoff
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.provider.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}
