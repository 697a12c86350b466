// Package pipeline orchestrates a complete fact-check run: transcript
// loading, chunking, claim extraction, verification, verdict
// normalization and optional source validation.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/faktgate/faktgate/internal/cache"
	"github.com/faktgate/faktgate/internal/llm"
	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/score"
	"github.com/faktgate/faktgate/internal/tier"
	"github.com/faktgate/faktgate/internal/transcript"
	"github.com/faktgate/faktgate/internal/validate"
	"github.com/faktgate/faktgate/internal/verdict"
	"github.com/faktgate/faktgate/internal/worker"
)

// defaultLangs orders caption-language preference for YouTube fetches.
var defaultLangs = []string{"de", "en"}

// Runner wires the collaborators of one fact-check run. It is safe
// for concurrent use by the batch processor: all fields are set once
// at construction and never mutated.
type Runner struct {
	fetcher    *transcript.Fetcher
	client     *llm.Client
	normalizer *verdict.Normalizer
	calculator *score.Calculator
	validator  *validate.Validator
	limiter    *worker.CallLimiter
	store      cache.Cache
	registry   *tier.Registry
	renderer   *Renderer
	config     *model.Config
	verbose    bool
}

// NewRunner creates a runner from the given configuration
func NewRunner(cfg *model.Config) (*Runner, error) {
	registry, err := tier.NewRegistry(&cfg.Sources)
	if err != nil {
		return nil, fmt.Errorf("load source registry: %w", err)
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("init LLM provider: %w", err)
	}

	var store cache.Cache
	if cfg.Cache.Enabled {
		store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	return &Runner{
		fetcher:    transcript.NewFetcher(cfg.HTTP),
		client:     llm.NewClient(provider, llm.ConfigFromModel(cfg.LLM, cfg.HTTP)),
		normalizer: verdict.NewNormalizer(registry),
		calculator: score.NewCalculator(registry),
		validator:  validate.NewValidator(registry, cfg.Concurrency.ValidationWorkers, cfg.HTTP),
		limiter:    worker.NewCallLimiter(cfg.Limiter),
		store:      store,
		registry:   registry,
		renderer:   NewRenderer(),
		config:     cfg,
		verbose:    cfg.Output.Verbose,
	}, nil
}

// CheckSource checks one source (a YouTube URL or a local transcript
// file) and returns the complete report. It implements worker.Runner.
func (r *Runner) CheckSource(ctx context.Context, source string) (*model.RunReport, error) {
	// 1. Load the transcript
	t, err := r.loadTranscript(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	full := t.FullText()
	if strings.TrimSpace(full) == "" {
		return nil, fmt.Errorf("transcript of %q is empty", source)
	}

	lang := t.Language
	if lang == "" {
		lang = verdict.DetectLanguage(full)
	}

	// 2. Chunk the transcript
	chunks := transcript.Chunks(t, r.config.Output.ChunkSize)
	r.logf("Transcript: %d characters, %d chunks, language %q", len(full), len(chunks), lang)

	// 3. Extract and verify chunk by chunk
	for i := range chunks {
		claims, err := r.client.ExtractClaims(ctx, chunks[i], lang)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunks[i].Index, err)
		}
		r.logf("Chunk %d (%s): %d claims", chunks[i].Index, chunks[i].VideoTime, len(claims))

		for _, claim := range claims {
			checked, err := r.checkClaim(ctx, claim, lang)
			if err != nil {
				return nil, fmt.Errorf("chunk %d: %w", chunks[i].Index, err)
			}
			chunks[i].Claims = append(chunks[i].Claims, checked)
		}
	}

	// 4. Assemble the report
	subject := t.Title
	if subject == "" {
		subject = source
	}
	report := &model.RunReport{
		Subject:   subject,
		SourceURL: t.SourceURL,
		CheckedAt: time.Now().UTC(),
		Language:  lang,
		Chunks:    chunks,
	}

	// 5. Validate cited sources concurrently
	evidence := collectEvidence(chunks)
	if r.validator != nil && len(evidence) > 0 {
		validation, err := r.validator.Validate(ctx, evidence)
		if err != nil {
			return nil, fmt.Errorf("validate sources: %w", err)
		}
		report.Validation = validation
	}

	return report, nil
}

// checkClaim resolves one claim to a verdict: cache first, then a
// rate-limited verification call followed by normalization.
func (r *Runner) checkClaim(ctx context.Context, claim model.Claim, lang string) (model.CheckedClaim, error) {
	if v, ok := r.cachedVerdict(claim); ok {
		r.logf("  cached: %s", excerpt(claim.Text))
		return model.CheckedClaim{Claim: claim, Verification: *v}, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return model.CheckedClaim{}, fmt.Errorf("verify %q: %w", excerpt(claim.Text), err)
	}

	raw, grounding, err := r.client.Verify(ctx, claim, lang)
	if err != nil {
		return model.CheckedClaim{}, fmt.Errorf("verify %q: %w", excerpt(claim.Text), err)
	}

	v, meta := r.normalizer.NormalizeDetailed(raw, claim, grounding)
	if meta.ConfidenceDefaulted && stillDefault(v.Confidence) {
		// The model gave no usable confidence and no guardrail has
		// overridden the placeholder; derive a value from the
		// evidence instead, keeping the causal ceiling intact.
		conf := r.calculator.Confidence(v.Sources)
		if v.IsCausal && conf > verdict.CausalCap {
			conf = verdict.CausalCap
		}
		v.Confidence = conf
	}

	r.storeVerdict(claim, v)
	return model.CheckedClaim{Claim: claim, Verification: v}, nil
}

func (r *Runner) cachedVerdict(claim model.Claim) (*model.Verdict, bool) {
	if r.store == nil {
		return nil, false
	}
	data, ok := r.store.Get(cache.ClaimKey(claim.Text))
	if !ok {
		return nil, false
	}
	var v model.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func (r *Runner) storeVerdict(claim model.Claim, v model.Verdict) {
	if r.store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.store.Set(cache.ClaimKey(claim.Text), data, r.config.Cache.DiskTTL); err != nil {
		r.logf("  cache write failed: %v", err)
	}
}

// loadTranscript dispatches between YouTube sources and local files.
// Bare video IDs are accepted, but an existing file of the same name
// wins.
func (r *Runner) loadTranscript(ctx context.Context, source string) (*transcript.Transcript, error) {
	if isYouTubeSource(source) {
		return r.fetcher.FetchYouTube(ctx, source, defaultLangs)
	}
	if _, err := os.Stat(source); err == nil {
		return transcript.FromFile(source)
	}
	if _, err := transcript.VideoID(source); err == nil {
		return r.fetcher.FetchYouTube(ctx, source, defaultLangs)
	}
	return transcript.FromFile(source)
}

func isYouTubeSource(source string) bool {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return true
	}
	return strings.Contains(source, "youtube.com/") || strings.Contains(source, "youtu.be/")
}

// collectEvidence gathers the cited sources of all verdicts, deduplicated by URL
func collectEvidence(chunks []model.Chunk) []model.EvidenceItem {
	seen := make(map[string]bool)
	var evidence []model.EvidenceItem
	for _, ch := range chunks {
		for _, c := range ch.Claims {
			for _, s := range c.Verification.Sources {
				if s.URL == "" || seen[s.URL] {
					continue
				}
				seen[s.URL] = true
				evidence = append(evidence, s)
			}
		}
	}
	return evidence
}

// RenderReport writes the report to the configured outputs and prints
// the summary to stdout.
func (r *Runner) RenderReport(report *model.RunReport, jsonPath string, dumpPath string, verbose bool) error {
	if jsonPath != "" {
		if err := r.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if dumpPath != "" {
		if err := r.renderer.RenderDump(report, dumpPath); err != nil {
			return fmt.Errorf("render chunk dump: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote chunk dump: %s\n", dumpPath)
		}
	}

	r.renderer.RenderSummary(report)
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if r.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// stillDefault reports whether the normalized confidence is one of
// the placeholder values, meaning no floor or fixed-value guardrail
// replaced it.
func stillDefault(conf float64) bool {
	return conf == verdict.DefaultConfidence || conf == verdict.UnparseableConf
}

// excerpt shortens claim text for error messages and progress lines
func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= 60 {
		return s
	}
	return string(runes[:57]) + "..."
}
