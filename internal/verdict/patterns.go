package verdict

import (
	"regexp"
	"strings"

	"github.com/faktgate/faktgate/internal/model"
)

// langPattern tags a verdict keyword in one language. Patterns are
// matched in order, so more specific phrases ("teilweise wahr") must
// come before their substrings ("wahr").
type langPattern struct {
	lang    string
	pattern *regexp.Regexp
	label   model.Label
}

var verdictPatterns = []langPattern{
	// German
	{"de", regexp.MustCompile(`(?i)\bteilweise\s+(wahr|richtig|korrekt)\b`), model.LabelPartiallyTrue},
	{"de", regexp.MustCompile(`(?i)\bgrößtenteils\s+(wahr|richtig)\b`), model.LabelMostlyTrue},
	{"de", regexp.MustCompile(`(?i)\bgrößtenteils\s+falsch\b`), model.LabelMostlyFalse},
	{"de", regexp.MustCompile(`(?i)\bnicht\s+(überprüfbar|verifizierbar|belegbar)\b`), model.LabelUnverifiable},
	{"de", regexp.MustCompile(`(?i)\birreführend\b`), model.LabelMisleading},
	{"de", regexp.MustCompile(`(?i)\btäuschend\b`), model.LabelDeceptive},
	{"de", regexp.MustCompile(`(?i)\bmeinung\b`), model.LabelOpinion},
	{"de", regexp.MustCompile(`(?i)\b(falsch|widerlegt|unzutreffend)\b`), model.LabelFalse},
	{"de", regexp.MustCompile(`(?i)\b(wahr|richtig|korrekt|bestätigt|zutreffend)\b`), model.LabelTrue},

	// English
	{"en", regexp.MustCompile(`(?i)\bpart(?:ially|ly)\s+true\b`), model.LabelPartiallyTrue},
	{"en", regexp.MustCompile(`(?i)\bmostly\s+true\b`), model.LabelMostlyTrue},
	{"en", regexp.MustCompile(`(?i)\bmostly\s+false\b`), model.LabelMostlyFalse},
	{"en", regexp.MustCompile(`(?i)\b(unverifiable|cannot\s+be\s+verified|not\s+verifiable)\b`), model.LabelUnverifiable},
	{"en", regexp.MustCompile(`(?i)\bmisleading\b`), model.LabelMisleading},
	{"en", regexp.MustCompile(`(?i)\bdeceptive\b`), model.LabelDeceptive},
	{"en", regexp.MustCompile(`(?i)\bopinion\b`), model.LabelOpinion},
	{"en", regexp.MustCompile(`(?i)\b(false|incorrect|debunked|refuted)\b`), model.LabelFalse},
	{"en", regexp.MustCompile(`(?i)\b(true|correct|confirmed|accurate)\b`), model.LabelTrue},
}

// matchVerdictKeyword scans free text for a verdict keyword in any
// configured language. Returns the matched label and true on success.
func matchVerdictKeyword(text string) (model.Label, bool) {
	for _, p := range verdictPatterns {
		if p.pattern.MatchString(text) {
			return p.label, true
		}
	}
	return "", false
}

// Frequent function words used for cheap language identification.
var deIndicators = map[string]bool{
	"der": true, "die": true, "das": true, "ist": true, "und": true,
	"ein": true, "eine": true, "wird": true, "dass": true, "nicht": true,
	"auch": true, "den": true, "dem": true, "des": true, "von": true,
	"mit": true, "für": true, "auf": true, "sich": true, "hat": true,
	"als": true, "nach": true, "bei": true, "über": true,
}

var enIndicators = map[string]bool{
	"the": true, "is": true, "and": true, "that": true, "this": true,
	"has": true, "was": true, "are": true, "not": true, "with": true,
	"from": true, "which": true, "have": true, "been": true, "their": true,
	"would": true, "could": true, "should": true, "about": true, "into": true,
}

// DetectLanguage reports whether text is primarily German or English.
func DetectLanguage(text string) string {
	deCount, enCount := 0, 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if deIndicators[w] {
			deCount++
		}
		if enIndicators[w] {
			enCount++
		}
	}
	if deCount > enCount {
		return "de"
	}
	return "en"
}
