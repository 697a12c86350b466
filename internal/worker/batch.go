package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/faktgate/faktgate/internal/model"
)

// Runner checks a single transcript source (YouTube URL or local file)
type Runner interface {
	CheckSource(ctx context.Context, source string) (*model.RunReport, error)
}

// CheckJob represents one transcript source to check
type CheckJob struct {
	Source string
	Runner Runner
}

// Execute runs the check
func (j *CheckJob) Execute(ctx context.Context) Result {
	report, err := j.Runner.CheckSource(ctx, j.Source)
	if err != nil {
		return &CheckResult{
			Source: j.Source,
			Report: nil,
			Error:  err,
		}
	}
	return &CheckResult{
		Source: j.Source,
		Report: report,
		Error:  nil,
	}
}

// CheckResult is the outcome of checking one source
type CheckResult struct {
	Source string
	Report *model.RunReport
	Error  error
}

// GetError returns the error from the check result
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor checks multiple transcript sources concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessSources checks multiple sources concurrently
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*CheckResult {
	if len(sources) == 0 {
		return []*CheckResult{}
	}

	// Create worker pool
	pool := NewPool(b.concurrency)
	pool.Start()

	// Submit jobs
	for _, source := range sources {
		job := &CheckJob{
			Source: source,
			Runner: b.runner,
		}
		pool.Submit(job)
	}

	// Wait for all jobs to complete
	results := pool.Wait()

	// Convert to CheckResults
	checkResults := make([]*CheckResult, len(results))
	for i, result := range results {
		checkResults[i] = result.(*CheckResult)
	}

	return checkResults
}

// ProcessFile reads sources from a file and checks them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CheckResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads sources from a file (one per line)
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate sources
		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
