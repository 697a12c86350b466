package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/faktgate/faktgate/internal/gate"
	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outJSON     string
	outDump     string
	timeout     time.Duration
	userAgent   string
	maxBytes    int64
	noCache     bool
	insecureTLS bool
	httpProxy   string
	httpsProxy  string
	llmProvider string
	llmModel    string
	noGrounding bool
	sourcesFile string
	chunkSize   int
	runGate     bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <video-url|transcript-file>",
	Short: "Fact-check one video transcript",
	Long: `Check fetches a transcript (YouTube URL, bare video ID, or local
text/JSON file), extracts atomic claims chunk by chunk, verifies each
claim through a search-grounded LLM call, and normalizes the model's
answer into a calibrated verdict:
- Sources are tiered by authority (1 official .. 5 flagged)
- Confidence is recomputed from tier, recency, and agreement
- Weakly sourced "true" verdicts are downgraded
- Causal claims are capped and timeline-checked
- Numeric outliers override the model's verdict

Example:
  faktgate check https://www.youtube.com/watch?v=dQw4w9WgXcQ
  faktgate check transcript.txt --json report.json --dump chunks.json
  faktgate check dQw4w9WgXcQ --provider openai --model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	// Output flags
	checkCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	checkCmd.Flags().StringVar(&outDump, "dump", "", "processed-chunk dump path (gate input, optional)")
	checkCmd.Flags().BoolVar(&runGate, "gate", false, "run the quality gate on the fresh result")

	// HTTP flags
	checkCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall check timeout (one LLM round-trip per claim)")
	checkCmd.Flags().StringVar(&userAgent, "ua", "Faktgate/0.1 (+https://github.com/faktgate/faktgate)", "HTTP User-Agent")
	checkCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")
	checkCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable verdict cache (force fresh verification)")
	checkCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	checkCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	checkCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// LLM flags
	checkCmd.Flags().StringVar(&llmProvider, "provider", "gemini", "LLM provider (gemini, openai, anthropic, ollama)")
	checkCmd.Flags().StringVar(&llmModel, "model", "", "LLM model name (provider default if empty)")
	checkCmd.Flags().BoolVar(&noGrounding, "no-grounding", false, "disable web-search grounding")

	// Engine flags
	checkCmd.Flags().StringVar(&sourcesFile, "sources", "", "source-tier registry file (JSON/YAML, optional)")
	checkCmd.Flags().IntVar(&chunkSize, "chunk-size", 2500, "transcript characters per chunk")
}

func runCheck(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking: %s\n", source)
		fmt.Fprintf(os.Stderr, "Provider: %s\n", cfg.LLM.Provider)
		fmt.Fprintf(os.Stderr, "Timeout:  %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache:    %v\n", !noCache)
		fmt.Fprintln(os.Stderr)
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	report, err := runner.CheckSource(ctx, source)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Checked %d claims in %d chunks\n", report.TotalClaims(), len(report.Chunks))
		if len(report.Validation) > 0 {
			fmt.Fprintf(os.Stderr, "✓ Validated %d cited sources\n", len(report.Validation))
		}
		fmt.Fprintln(os.Stderr)
	}

	if err := runner.RenderReport(report, outJSON, outDump, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if runGate {
		gateReport := newGate(cfg).Run(gate.FromChunks(report.Chunks), source)
		fmt.Println()
		fmt.Print(gate.RenderText(gateReport))
	}

	return nil
}

// buildConfig assembles the run configuration from defaults overridden
// by CLI flags, with API keys taken from the environment only.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 30 * time.Second
	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.InsecureTLS = insecureTLS
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	cfg.Cache.Enabled = !noCache
	cfg.Sources.File = sourcesFile
	cfg.Output.Verbose = verbose
	if chunkSize > 0 {
		cfg.Output.ChunkSize = chunkSize
	}

	cfg.LLM.Provider = llmProvider
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	cfg.LLM.Grounding = !noGrounding

	// Get API key from environment
	switch llmProvider {
	case "gemini", "google":
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	return cfg, nil
}
