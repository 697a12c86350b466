package verdict

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseKind tags how a raw model response was recovered
type ParseKind int

const (
	KindUnparseable ParseKind = iota
	KindStructuredJSON
	KindLabeledText
	KindFreeText
)

func (k ParseKind) String() string {
	switch k {
	case KindStructuredJSON:
		return "structured-json"
	case KindLabeledText:
		return "labeled-text"
	case KindFreeText:
		return "free-text"
	default:
		return "unparseable"
	}
}

// ParsedVerdict is the tagged union produced at the parse boundary.
// Exactly one conversion function (Normalizer.build) turns it into the
// canonical Verdict, so every shape the model can emit funnels through
// the same post-processing.
type ParsedVerdict struct {
	Kind    ParseKind
	Payload payload
}

// payload is the permissive wire shape of a model verdict. Unknown
// fields are ignored, missing optional fields stay at their zero value.
type payload struct {
	Verdict     string      `json:"verdict"`
	Confidence  *float64    `json:"confidence"`
	Explanation string      `json:"explanation"`
	Sources     []rawSource `json:"sources"`

	// Causal timeline fields, present only for causal claims
	IntentDate  string `json:"intentDate"`
	TriggerDate string `json:"triggerDate"`

	// Numeric magnitudes, present when the model compared figures
	ClaimValue    *float64 `json:"claimValue"`
	EvidenceValue *float64 `json:"evidenceValue"`
}

// rawSource accepts both bare URL strings and structured objects
type rawSource struct {
	URL       string `json:"url"`
	Domain    string `json:"domain"`
	Tier      int    `json:"tier"`
	Sentiment string `json:"sentiment"`
	Date      string `json:"date"`
	Quote     string `json:"quote"`
}

func (s *rawSource) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.URL = str
		return nil
	}
	type alias rawSource
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = rawSource(a)
	return nil
}

var fenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Parse recovers a verdict payload from raw model output. It never
// fails: when every strategy is exhausted the result is tagged
// KindUnparseable and the caller degrades to an unverifiable verdict.
//
// Ladder, in order: whole-string JSON, fenced JSON, first balanced
// JSON substring, truncation repair, labeled lines, keyword matching.
func Parse(raw string) ParsedVerdict {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ParsedVerdict{Kind: KindUnparseable}
	}

	// (a) the whole string is JSON
	if p, ok := tryJSON(raw); ok {
		return ParsedVerdict{Kind: KindStructuredJSON, Payload: p}
	}

	// (b) fenced code block
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		if p, ok := tryJSON(strings.TrimSpace(m[1])); ok {
			return ParsedVerdict{Kind: KindStructuredJSON, Payload: p}
		}
	}

	// (c) first balanced JSON object/array inside prose
	if candidate, complete := extractBalanced(raw); candidate != "" {
		if p, ok := tryJSON(candidate); ok {
			return ParsedVerdict{Kind: KindStructuredJSON, Payload: p}
		}
		// (d) truncated output: close open strings and brackets
		if !complete {
			if p, ok := tryJSON(repairTruncated(candidate)); ok {
				return ParsedVerdict{Kind: KindStructuredJSON, Payload: p}
			}
		}
	}

	// (e) labeled lines (VERDICT: ... / CONFIDENCE: ...)
	if p, ok := parseLabeled(raw); ok {
		return ParsedVerdict{Kind: KindLabeledText, Payload: p}
	}

	// (f) bare keyword matching across languages
	if label, ok := matchVerdictKeyword(raw); ok {
		return ParsedVerdict{
			Kind:    KindFreeText,
			Payload: payload{Verdict: string(label), Explanation: raw},
		}
	}

	return ParsedVerdict{Kind: KindUnparseable}
}

// ExtractJSON recovers the first balanced JSON object or array
// embedded in s, repairing truncated output when the input ended
// early. ok is false when s contains no JSON at all.
func ExtractJSON(s string) (string, bool) {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	candidate, complete := extractBalanced(s)
	if candidate == "" {
		return "", false
	}
	if !complete {
		candidate = repairTruncated(candidate)
	}
	return candidate, true
}

// tryJSON parses s as a payload object, or as an array whose first
// element is a payload object.
func tryJSON(s string) (payload, bool) {
	var p payload
	if err := json.Unmarshal([]byte(s), &p); err == nil {
		if !emptyPayload(p) {
			return p, true
		}
		return p, false
	}
	var arr []payload
	if err := json.Unmarshal([]byte(s), &arr); err == nil && len(arr) > 0 && !emptyPayload(arr[0]) {
		return arr[0], true
	}
	return payload{}, false
}

// emptyPayload guards against JSON that parses but carries nothing
// verdict-shaped (e.g. an unrelated object embedded in prose).
func emptyPayload(p payload) bool {
	return p.Verdict == "" && p.Confidence == nil && p.Explanation == "" && len(p.Sources) == 0
}

// extractBalanced finds the first JSON object or array substring using
// a bracket-depth scan that respects string and escape state. The
// second return is false when the input ended before balance was
// restored (truncated output).
func extractBalanced(s string) (string, bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if s[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == open:
			depth++
		case !inString && c == close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return s[start:], false
}

// repairTruncated closes an unterminated string and appends the
// bracket closers needed to rebalance a truncated JSON fragment.
func repairTruncated(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && (c == '{' || c == '['):
			stack = append(stack, c)
		case !inString && (c == '}' || c == ']'):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	out := s
	// A truncated value like `"explanation": "cut of` needs its string closed
	if inString {
		out += `"`
	}
	// Trim a dangling comma or colon before closing
	trimmed := strings.TrimRight(out, " \t\n\r")
	if strings.HasSuffix(trimmed, ",") || strings.HasSuffix(trimmed, ":") {
		out = strings.TrimRight(trimmed, ",:")
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			out += "}"
		} else {
			out += "]"
		}
	}
	return out
}

var labeledRe = regexp.MustCompile(`(?im)^\s*(?:\*\*)?(VERDICT|URTEIL|CONFIDENCE|KONFIDENZ|EXPLANATION|BEGRÜNDUNG|SOURCES|QUELLEN)(?:\*\*)?\s*:\s*(.+)$`)

// parseLabeled recovers a payload from VERDICT:/CONFIDENCE:/
// EXPLANATION:/SOURCES: style line output (German labels accepted).
func parseLabeled(s string) (payload, bool) {
	matches := labeledRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return payload{}, false
	}

	var p payload
	found := false
	for _, m := range matches {
		key := strings.ToUpper(m[1])
		val := strings.TrimSpace(m[2])
		switch key {
		case "VERDICT", "URTEIL":
			p.Verdict = val
			found = true
		case "CONFIDENCE", "KONFIDENZ":
			if f, ok := parseConfidenceValue(val); ok {
				p.Confidence = &f
				found = true
			}
		case "EXPLANATION", "BEGRÜNDUNG":
			p.Explanation = val
			found = true
		case "SOURCES", "QUELLEN":
			for _, tok := range splitSourceList(val) {
				p.Sources = append(p.Sources, rawSource{URL: tok})
			}
			if len(p.Sources) > 0 {
				found = true
			}
		}
	}
	return p, found && p.Verdict != ""
}

// parseConfidenceValue accepts "0.8", "0,8", "80%" and "80".
func parseConfidenceValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if percent || f > 1 {
		f /= 100
	}
	return f, true
}

func splitSourceList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, "[]()<>\"'")
		if strings.Contains(f, ".") {
			out = append(out, f)
		}
	}
	return out
}

// dateLayouts accepted for causal timeline and source dates
var dateLayouts = []string{
	"2006-01-02", time.RFC3339, "02.01.2006", "2006/01/02", "January 2, 2006", "2. January 2006",
}

// parseDate tries the accepted layouts; ok is false when none match.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
