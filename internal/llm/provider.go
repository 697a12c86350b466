package llm

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/faktgate/faktgate/internal/model"
)

// ErrRateLimited is wrapped by providers when the upstream API
// rejects a call for quota reasons. The client retries these with
// backoff; every other error is terminal for the call.
var ErrRateLimited = errors.New("rate limited")

// Provider is a single text-generation backend. Providers stay dumb:
// they turn a prompt into text (plus grounding sources when the
// backend supports web search) and leave the fact-checking semantics
// to the Client.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate runs one completion
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for one LLM call
type GenerateRequest struct {
	// System is the system instruction (may be empty)
	System string

	// Prompt is the user message
	Prompt string

	// Model overrides the configured model for this call
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Grounding asks the provider to back the answer with web search.
	// Providers without search support ignore it.
	Grounding bool
}

// GenerateResponse contains one LLM completion
type GenerateResponse struct {
	// Text is the raw model output, unparsed
	Text string

	// Sources are citations delivered out-of-band by the provider:
	// grounding metadata where the backend supports web search, URLs
	// extracted from the response text everywhere else
	Sources []model.EvidenceItem

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "gemini", "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Grounding enables web-search-backed answers where supported
	Grounding bool

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "gemini",
		Timeout:   60,
		MaxTokens: 2000,
		Grounding: true,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig, http model.HTTPConfig) Config {
	return Config{
		Provider:   mc.Provider,
		Model:      mc.Model,
		APIKey:     mc.APIKey,
		BaseURL:    mc.BaseURL,
		Timeout:    mc.Timeout,
		MaxTokens:  mc.MaxTokens,
		Grounding:  mc.Grounding,
		HTTPProxy:  http.HTTPProxy,
		HTTPSProxy: http.HTTPSProxy,
		NoProxy:    http.NoProxy,
	}
}

// citedSources surfaces URLs mentioned in response text as untiered
// evidence items. Providers without native search grounding use this
// so their citations still reach the source-tier scoring; the verdict
// normalizer classifies and de-duplicates them.
func citedSources(text string) []model.EvidenceItem {
	urls := extractURLs(text)
	if len(urls) == 0 {
		return nil
	}
	out := make([]model.EvidenceItem, 0, len(urls))
	for _, u := range urls {
		out = append(out, model.EvidenceItem{URL: u})
	}
	return out
}

// extractURLs extracts all URLs from text using regex
func extractURLs(text string) []string {
	// Match http(s) URLs
	urlPattern := regexp.MustCompile(`https?://[^\s\)\]]+`)
	matches := urlPattern.FindAllString(text, -1)

	// Deduplicate
	seen := make(map[string]bool)
	var unique []string
	for _, url := range matches {
		// Clean up trailing punctuation
		url = strings.TrimRight(url, ".,;:!?\"'")
		if !seen[url] {
			seen[url] = true
			unique = append(unique, url)
		}
	}

	return unique
}
