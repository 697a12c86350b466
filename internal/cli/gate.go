package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/faktgate/faktgate/internal/gate"
	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/tier"
	"github.com/spf13/cobra"
)

var (
	gateFix    bool
	gateFixOut string
	gateStrict bool
	gateJSON   bool
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate <dump.json>",
	Short: "Audit a processed-chunk dump before release",
	Long: `Gate runs deterministic quality checks against a chunk dump
(written by "check --dump"):
- Structural: explanations present, sources typed, confidence sane,
  verdict vocabulary valid, no API-endpoint source leaks
- Semantic: banned platforms cited as evidence, explanation language
  mismatches, irrelevant search entities
- Consistency: duplicate claims, contradictory verdicts, confidence
  and source-verdict coherence
- Extraction: speaker-action leaks, uncheckable claims, future tense

Findings are graded critical/warning/info and rolled into a weighted
0-100 scorecard. Auto-fixable findings can be repaired in place.

Example:
  faktgate gate chunks.json
  faktgate gate chunks.json --fix --out chunks.fixed.json
  faktgate gate chunks.json --strict --json`,
	Args: cobra.ExactArgs(1),
	RunE: runGateAudit,
}

func init() {
	rootCmd.AddCommand(gateCmd)

	gateCmd.Flags().BoolVar(&gateFix, "fix", false, "apply auto-fixes and write the corrected dump")
	gateCmd.Flags().StringVar(&gateFixOut, "out", "", "path for the fixed dump (default: <input>.fixed.json)")
	gateCmd.Flags().BoolVar(&gateStrict, "strict", false, "exit non-zero unless the dump is production-ready")
	gateCmd.Flags().BoolVar(&gateJSON, "json", false, "print the report as JSON instead of text")
	gateCmd.Flags().StringVar(&sourcesFile, "sources", "", "source-tier registry file (JSON/YAML, optional)")
}

func runGateAudit(cmd *cobra.Command, args []string) error {
	input := args[0]

	dump, err := gate.LoadDump(input)
	if err != nil {
		return err
	}

	cfg := model.DefaultConfig()
	cfg.Sources.File = sourcesFile
	g := newGate(cfg)

	report := g.Run(dump, input)

	if gateFix {
		fixed, count := g.ApplyFixes(dump, report.AllViolations())
		if count > 0 {
			out := gateFixOut
			if out == "" {
				out = input + ".fixed.json"
			}
			if err := writeDump(fixed, out); err != nil {
				return fmt.Errorf("write fixed dump: %w", err)
			}
			fmt.Fprintf(os.Stderr, "✓ Applied %d fixes → %s\n", count, out)

			// Re-audit the fixed dump so the report reflects the
			// released artifact, not the broken input.
			report = g.Run(fixed, out)
		} else {
			fmt.Fprintln(os.Stderr, "No auto-fixable findings")
		}
	}

	if gateJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Print(gate.RenderText(report))
	}

	if gateStrict && !report.ProductionReady() {
		return fmt.Errorf("gate failed: %d critical findings, score %.1f", report.CriticalCount(), report.OverallScore)
	}
	return nil
}

// newGate builds a gate backed by the configured source registry. A
// registry that fails to load falls back to the built-in defaults so
// the audit still runs.
func newGate(cfg *model.Config) *gate.Gate {
	registry, err := tier.NewRegistry(&cfg.Sources)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using built-in source registry\n", err)
		registry, _ = tier.NewRegistry(nil)
	}
	return gate.NewGate(registry)
}

func writeDump(dump gate.Dump, path string) error {
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dump: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
