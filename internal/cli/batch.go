package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/faktgate/faktgate/internal/pipeline"
	"github.com/faktgate/faktgate/internal/transcript"
	"github.com/faktgate/faktgate/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Fact-check multiple transcripts from a file in parallel",
	Long: `Batch processes multiple transcript sources concurrently:
- Read sources from input file (one YouTube URL or file path per line)
- Check sources in parallel with configurable worker count
- Each check verifies claims sequentially to respect API rate limits
- Generate individual reports and chunk dumps for each source

Example:
  faktgate batch videos.txt
  faktgate batch videos.txt --concurrency 4 --output-dir ./reports
  faktgate batch videos.txt --provider openai --timeout 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchCheck,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 2, "number of concurrent checks (keep low, one API budget is shared)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./faktgate-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 2*time.Hour, "total timeout for batch processing")

	// Shared flags from check
	batchCmd.Flags().StringVar(&userAgent, "ua", "Faktgate/0.1 (+https://github.com/faktgate/faktgate)", "HTTP User-Agent")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable verdict cache (force fresh verification)")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// LLM flags
	batchCmd.Flags().StringVar(&llmProvider, "provider", "gemini", "LLM provider (gemini, openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "model", "", "LLM model name (provider default if empty)")
	batchCmd.Flags().BoolVar(&noGrounding, "no-grounding", false, "disable web-search grounding")

	// Engine flags
	batchCmd.Flags().StringVar(&sourcesFile, "sources", "", "source-tier registry file (JSON/YAML, optional)")
	batchCmd.Flags().IntVar(&chunkSize, "chunk-size", 2500, "transcript characters per chunk")
}

func runBatchCheck(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Faktgate Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.BatchWorkers = concurrency

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	processor := worker.NewBatchProcessor(runner, concurrency)

	start := time.Now()
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	succeeded := 0
	failed := 0
	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}
		succeeded++

		base := reportBaseName(result.Source)
		jsonPath := filepath.Join(outputDir, base+".json")
		dumpPath := filepath.Join(outputDir, base+".chunks.json")
		if err := runner.RenderReport(result.Report, jsonPath, dumpPath, false); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: write report: %v\n", result.Source, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d claims → %s\n", result.Source, result.Report.TotalClaims(), jsonPath)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Completed: %d succeeded, %d failed in %v\n", succeeded, failed, time.Since(start).Round(time.Second))
	fmt.Fprintf(os.Stderr, "\n")

	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(results))
	}
	return nil
}

// reportBaseName derives a filesystem-safe report name from a source.
// YouTube sources use the video ID; file sources use the file name.
func reportBaseName(source string) string {
	if id, err := transcript.VideoID(source); err == nil {
		return id
	}
	base := filepath.Base(source)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	safe := make([]rune, 0, len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			safe = append(safe, r)
		default:
			safe = append(safe, '_')
		}
	}
	if len(safe) == 0 {
		return "report"
	}
	return string(safe)
}
