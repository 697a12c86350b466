package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/faktgate/faktgate/internal/model"
)

// GeminiProvider implements the Provider interface for Google Gemini
// models. It is the default backend because Gemini can ground its
// answers in Google Search and return the consulted URLs, which feeds
// the source-tier scoring with real citations instead of whatever the
// model chose to mention in prose.
type GeminiProvider struct {
	config Config

	initOnce sync.Once
	client   *genai.Client
	initErr  error
}

// NewGeminiProvider creates a new Gemini provider. The underlying
// client is initialized lazily on first use because construction
// needs a context.
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	return &GeminiProvider{config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.initOnce.Do(func() {
		p.client, p.initErr = genai.NewClient(ctx, option.WithAPIKey(p.config.APIKey))
	})
	return p.client, p.initErr
}

// IsAvailable checks if the provider is properly configured
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	client, err := p.ensureClient(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gemini API check failed: %v\n", err)
		return false
	}

	// Lightweight call: fetch metadata for the configured model
	name := p.config.Model
	if name == "" {
		name = defaultGeminiModel
	}
	if _, err := client.GenerativeModel(name).Info(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Gemini API check failed: %v\n", err)
		return false
	}
	return true
}

const defaultGeminiModel = "gemini-1.5-flash"

// Generate runs one completion. When req.Grounding is set the search
// retrieval tool is attached and citation URLs come back as Sources.
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Gemini client init: %w", err)
	}

	name := req.Model
	if name == "" {
		name = p.config.Model
	}
	if name == "" {
		name = defaultGeminiModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 2000
	}

	gm := client.GenerativeModel(name)
	gm.SetTemperature(0.2) // Low temperature for deterministic fact-checking output
	gm.SetMaxOutputTokens(int32(maxTokens))
	if req.System != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.Grounding {
		gm.Tools = []*genai.Tool{
			{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}},
		}
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return nil, fmt.Errorf("Gemini: %w: %v", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from Gemini")
	}
	candidate := resp.Candidates[0]

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	text := strings.TrimSpace(b.String())

	out := &GenerateResponse{
		Text:    text,
		Model:   name,
		Sources: citationSources(candidate),
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// citationSources collects the URLs Gemini consulted while grounding
// the answer. They arrive untiered and undated; the verdict
// normalizer classifies them.
func citationSources(c *genai.Candidate) []model.EvidenceItem {
	if c.CitationMetadata == nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []model.EvidenceItem
	for _, s := range c.CitationMetadata.CitationSources {
		if s.URI == nil || *s.URI == "" || seen[*s.URI] {
			continue
		}
		seen[*s.URI] = true
		out = append(out, model.EvidenceItem{URL: *s.URI})
	}
	return out
}
