package gate

import (
	"fmt"
	"sort"
	"strings"
)

// RenderText produces the human-readable gate report
func RenderText(report *Report) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 70)
	thin := strings.Repeat("-", 70)

	sb.WriteString(rule + "\n")
	sb.WriteString("  TRANSCRIPT QUALITY GATE REPORT\n")
	fmt.Fprintf(&sb, "  Input: %s\n", report.Input)
	fmt.Fprintf(&sb, "  Claims: %d across %d chunks\n", report.TotalClaims, report.TotalChunks)
	sb.WriteString(rule + "\n\n")

	fmt.Fprintf(&sb, "  OVERALL SCORE: %.1f/100  [%s]\n\n", report.OverallScore, report.Grade)

	sb.WriteString("  CATEGORY SCORES:\n")
	var categories []string
	for cat := range report.CategoryScores {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	for _, cat := range categories {
		score := report.CategoryScores[cat]
		filled := int(score / 5)
		if filled > 20 {
			filled = 20
		}
		bar := strings.Repeat("#", filled) + strings.Repeat(".", 20-filled)
		fmt.Fprintf(&sb, "    %-15s: %5.1f/100  %s\n", cat, score, bar)
	}
	sb.WriteString("\n")

	all := report.AllViolations()
	counts := report.CountBySeverity()

	fmt.Fprintf(&sb, "  VIOLATIONS: %d total\n", len(all))
	for _, sev := range []Severity{SeverityCritical, SeverityWarning, SeverityInfo} {
		if counts[sev] > 0 {
			fmt.Fprintf(&sb, "    %s: %d\n", sev, counts[sev])
		}
	}
	sb.WriteString("\n")

	byCheck := make(map[string][]Violation)
	for _, v := range all {
		byCheck[v.CheckID] = append(byCheck[v.CheckID], v)
	}
	var checkIDs []string
	for id := range byCheck {
		checkIDs = append(checkIDs, id)
	}
	sort.Strings(checkIDs)

	sb.WriteString(thin + "\n")
	sb.WriteString("  DETAILED FINDINGS\n")
	sb.WriteString(thin + "\n")

	for _, id := range checkIDs {
		items := byCheck[id]
		fixable := ""
		if items[0].AutoFixable {
			fixable = " [AUTO-FIXABLE]"
		}
		fmt.Fprintf(&sb, "\n  %s %s (%d occurrences)%s\n", items[0].Severity, id, len(items), fixable)
		if items[0].FixHint != "" {
			fmt.Fprintf(&sb, "     Fix: %s\n", items[0].FixHint)
		}

		limit := len(items)
		if limit > 3 {
			limit = 3
		}
		for _, item := range items[:limit] {
			loc := "run-level"
			if item.ChunkIndex >= 0 {
				loc = fmt.Sprintf("chunk %d", item.ChunkIndex)
			}
			fmt.Fprintf(&sb, "     - [%s] %s\n", loc, truncate(item.Message, 100))
		}
		if len(items) > 3 {
			fmt.Fprintf(&sb, "     ... and %d more\n", len(items)-3)
		}
	}

	fixableCount := 0
	for _, v := range all {
		if v.AutoFixable {
			fixableCount++
		}
	}
	if fixableCount > 0 {
		sb.WriteString("\n" + thin + "\n")
		fmt.Fprintf(&sb, "  AUTO-FIXABLE: %d/%d violations can be automatically repaired\n", fixableCount, len(all))
		sb.WriteString("  Run with --fix to apply corrections\n")
		sb.WriteString(thin + "\n")
	}

	sb.WriteString("\n" + rule + "\n")
	switch {
	case report.ProductionReady():
		sb.WriteString("  PRODUCTION READY\n")
	case counts[SeverityCritical] == 0:
		sb.WriteString("  ACCEPTABLE - no critical issues but quality below target\n")
	default:
		fmt.Fprintf(&sb, "  NOT PRODUCTION READY - %d critical issues must be resolved\n", counts[SeverityCritical])
	}
	sb.WriteString(rule + "\n")

	return sb.String()
}
