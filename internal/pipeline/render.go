package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/faktgate/faktgate/internal/model"
)

// Renderer writes run reports as JSON and prints stdout summaries
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON writes the full report to path
func (r *Renderer) RenderJSON(report *model.RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderDump writes only the processed chunks to path, the format the
// quality gate audits.
func (r *Renderer) RenderDump(report *model.RunReport, path string) error {
	data, err := json.MarshalIndent(report.Chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderSummary prints a human-readable run summary to stdout
func (r *Renderer) RenderSummary(report *model.RunReport) {
	sep := strings.Repeat("=", 64)

	fmt.Println(sep)
	fmt.Printf("FACT CHECK: %s\n", report.Subject)
	if report.SourceURL != "" {
		fmt.Printf("Source:     %s\n", report.SourceURL)
	}
	fmt.Printf("Checked:    %s\n", report.CheckedAt.Format("2006-01-02 15:04 UTC"))
	if report.Language != "" {
		fmt.Printf("Language:   %s\n", report.Language)
	}
	fmt.Println(sep)

	total := report.TotalClaims()
	fmt.Printf("\n%d claims in %d chunks\n\n", total, len(report.Chunks))

	for _, lc := range sortedVerdictCounts(report) {
		fmt.Printf("  %-16s %d\n", lc.label, lc.count)
	}

	for _, chunk := range report.Chunks {
		if len(chunk.Claims) == 0 {
			continue
		}
		fmt.Printf("\n[%s] Chunk %d\n", chunk.VideoTime, chunk.Index)
		for _, c := range chunk.Claims {
			v := c.Verification
			fmt.Printf("  %-14s (%.2f) %s\n", string(v.DisplayVerdict), v.Confidence, c.Text)
			if v.Explanation != "" {
				fmt.Printf("                 %s\n", v.Explanation)
			}
		}
	}

	if len(report.Validation) > 0 {
		dead, stale := 0, 0
		for _, res := range report.Validation {
			if res.IsDead {
				dead++
			}
			if res.IsStale {
				stale++
			}
		}
		fmt.Printf("\nSources: %d checked, %d dead, %d stale\n", len(report.Validation), dead, stale)
	}
	fmt.Println()
}

type labelCount struct {
	label string
	count int
}

func verdictCounts(report *model.RunReport) map[string]int {
	counts := make(map[string]int)
	for _, chunk := range report.Chunks {
		for _, c := range chunk.Claims {
			counts[string(c.Verification.DisplayVerdict)]++
		}
	}
	return counts
}

func sortedVerdictCounts(report *model.RunReport) []labelCount {
	counts := verdictCounts(report)
	out := make([]labelCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, labelCount{label, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].label < out[j].label
	})
	return out
}
