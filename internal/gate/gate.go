// Package gate audits a processed-chunk dump without making any model
// calls. Every check is deterministic, independently testable, and
// graded by severity, so the gate can run in CI as a release blocker.
package gate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/tier"
	"github.com/faktgate/faktgate/internal/verdict"
)

// Severity grades a violation
type Severity string

const (
	SeverityCritical Severity = "CRITICAL" // Blocks release, user-visible error
	SeverityWarning  Severity = "WARNING"  // Degrades quality, fix before release
	SeverityInfo     Severity = "INFO"     // Cosmetic or needs human review
)

// Violation is one finding against a claim or the whole run
type Violation struct {
	CheckID     string   `json:"check_id"`
	Severity    Severity `json:"severity"`
	ClaimIndex  int      `json:"claim_index"` // -1 for run-level findings
	ChunkIndex  int      `json:"chunk_index"` // -1 for run-level findings
	Message     string   `json:"message"`
	AutoFixable bool     `json:"auto_fixable"`
	FixHint     string   `json:"fix_hint,omitempty"`
}

// ClaimAudit collects the findings for one claim
type ClaimAudit struct {
	ChunkIndex int         `json:"chunk_index"`
	ClaimIndex int         `json:"claim_index"`
	Claim      string      `json:"claim"`
	Verdict    string      `json:"verdict"`
	Confidence float64     `json:"confidence"`
	Violations []Violation `json:"violations,omitempty"`
}

// Report is the complete gate result for one dump
type Report struct {
	Input          string             `json:"input"`
	TotalChunks    int                `json:"total_chunks"`
	TotalClaims    int                `json:"total_claims"`
	ClaimAudits    []ClaimAudit       `json:"claim_audits"`
	RunViolations  []Violation        `json:"run_violations"`
	CategoryScores map[string]float64 `json:"category_scores"`
	OverallScore   float64            `json:"overall_score"`
	Grade          string             `json:"grade"`
}

// AllViolations flattens run-level and per-claim findings
func (r *Report) AllViolations() []Violation {
	out := make([]Violation, 0, len(r.RunViolations))
	out = append(out, r.RunViolations...)
	for _, a := range r.ClaimAudits {
		out = append(out, a.Violations...)
	}
	return out
}

// CountBySeverity tallies findings per severity
func (r *Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, v := range r.AllViolations() {
		counts[v.Severity]++
	}
	return counts
}

// CriticalCount returns the number of critical findings
func (r *Report) CriticalCount() int {
	return r.CountBySeverity()[SeverityCritical]
}

// ProductionReady reports whether the dump passes the release bar:
// no critical findings and an overall score of at least 85.
func (r *Report) ProductionReady() bool {
	return r.CriticalCount() == 0 && r.OverallScore >= 85
}

// Dump is the gate's input: the JSON chunk array a check run writes.
// Parsing is lenient so dumps from older pipeline versions still
// audit: unknown fields are ignored, sources may be bare domain
// strings, and claim text falls back to legacy key names.
type Dump []DumpChunk

// DumpChunk mirrors model.Chunk with lenient claims
type DumpChunk struct {
	Index     int         `json:"index"`
	VideoTime string      `json:"videoTime,omitempty"`
	FullText  string      `json:"fullText"`
	Claims    []DumpClaim `json:"claims"`
}

// DumpClaim is one claim row of a dump
type DumpClaim struct {
	Text         string      `json:"text"`
	CleanedText  string      `json:"cleanedText,omitempty"`
	Type         string      `json:"type,omitempty"`
	Timestamps   []string    `json:"timestamps,omitempty"`
	Verification DumpVerdict `json:"verification"`
}

// UnmarshalJSON accepts legacy key names for the claim text
func (c *DumpClaim) UnmarshalJSON(data []byte) error {
	type alias DumpClaim
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = DumpClaim(a)

	if c.Text == "" {
		var legacy struct {
			Claim         string `json:"claim"`
			OriginalClaim string `json:"originalClaim"`
		}
		if err := json.Unmarshal(data, &legacy); err == nil {
			if legacy.OriginalClaim != "" {
				c.Text = legacy.OriginalClaim
			} else {
				c.Text = legacy.Claim
			}
		}
	}
	return nil
}

// DumpVerdict is the verification block of a dump claim. Confidence is
// a pointer so a missing value is distinguishable from 0.
type DumpVerdict struct {
	Verdict     string       `json:"verdict"`
	Confidence  *float64     `json:"confidence"`
	Explanation string       `json:"explanation"`
	Sources     []DumpSource `json:"sources,omitempty"`
}

// DumpSource is one cited source, either a structured object or a
// bare domain string from an older dump.
type DumpSource struct {
	URL       string `json:"url,omitempty"`
	Domain    string `json:"domain,omitempty"`
	Tier      int    `json:"tier,omitempty"`
	WasString bool   `json:"-"`
}

// UnmarshalJSON accepts both string and object source entries
func (s *DumpSource) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.URL = str
		s.Domain = tier.Hostname(str)
		if s.Domain == "" {
			s.Domain = str
		}
		s.WasString = true
		return nil
	}

	type alias DumpSource
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = DumpSource(a)
	if s.Domain == "" {
		s.Domain = tier.Hostname(s.URL)
	}
	return nil
}

// hostname returns the best domain identifier for tier lookups
func (s DumpSource) hostname() string {
	if s.Domain != "" {
		return s.Domain
	}
	return tier.Hostname(s.URL)
}

// ParseDump decodes a dump from raw JSON
func ParseDump(data []byte) (Dump, error) {
	var dump Dump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parse dump: %w", err)
	}
	return dump, nil
}

// LoadDump reads and decodes a dump file
func LoadDump(path string) (Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	return ParseDump(data)
}

// FromChunks converts a fresh run's chunks into gate input, so a run
// can be audited without a round trip through a dump file.
func FromChunks(chunks []model.Chunk) Dump {
	dump := make(Dump, 0, len(chunks))
	for _, ch := range chunks {
		dc := DumpChunk{
			Index:     ch.Index,
			VideoTime: ch.VideoTime,
			FullText:  ch.FullText,
		}
		for _, cl := range ch.Claims {
			conf := cl.Verification.Confidence
			sources := make([]DumpSource, 0, len(cl.Verification.Sources))
			for _, s := range cl.Verification.Sources {
				sources = append(sources, DumpSource{
					URL:    s.URL,
					Domain: tier.Hostname(s.URL),
					Tier:   int(s.Tier),
				})
			}
			dc.Claims = append(dc.Claims, DumpClaim{
				Text: cl.Text,
				Type: string(cl.Type),
				Verification: DumpVerdict{
					Verdict:     string(cl.Verification.Verdict),
					Confidence:  &conf,
					Explanation: cl.Verification.Explanation,
					Sources:     sources,
				},
			})
		}
		dump = append(dump, dc)
	}
	return dump
}

// Gate runs the quality checks against a dump
type Gate struct {
	registry *tier.Registry
}

// NewGate creates a gate backed by the given source-tier registry
func NewGate(registry *tier.Registry) *Gate {
	return &Gate{registry: registry}
}

// Run executes all checks and scores the result
func (g *Gate) Run(dump Dump, inputName string) *Report {
	report := &Report{
		Input:       inputName,
		TotalChunks: len(dump),
	}
	for _, ch := range dump {
		report.TotalClaims += len(ch.Claims)
	}

	transcriptLang := dumpLanguage(dump)

	for chi, chunk := range dump {
		for ci, claim := range chunk.Claims {
			audit := ClaimAudit{
				ChunkIndex: chi,
				ClaimIndex: ci,
				Claim:      truncate(claim.Text, 100),
				Verdict:    claim.Verification.Verdict,
			}
			if claim.Verification.Confidence != nil {
				audit.Confidence = *claim.Verification.Confidence
			}

			audit.Violations = append(audit.Violations, g.structuralChecks(claim, ci, chi)...)
			audit.Violations = append(audit.Violations, g.semanticChecks(claim, ci, chi, transcriptLang)...)

			report.ClaimAudits = append(report.ClaimAudits, audit)
		}
	}

	report.RunViolations = append(report.RunViolations, g.consistencyChecks(dump)...)
	report.RunViolations = append(report.RunViolations, g.extractionChecks(dump)...)

	report.CategoryScores, report.OverallScore, report.Grade = calculateScores(
		report.TotalClaims, report.AllViolations(),
	)

	return report
}

// dumpLanguage detects the primary transcript language from the first
// few chunks
func dumpLanguage(dump Dump) string {
	var sb strings.Builder
	for i, ch := range dump {
		if i >= 5 {
			break
		}
		sb.WriteString(ch.FullText)
		sb.WriteString(" ")
	}
	return verdict.DetectLanguage(sb.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
