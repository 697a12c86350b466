package verdict

import (
	"regexp"
	"strconv"
	"strings"
)

// numberRe matches a numeral optionally followed by a scale word, in
// German or English formats ("3,5 Milliarden", "2.4 billion", "1500").
var numberRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)*)\s*(milliarden?|mrd\.?|millionen?|mio\.?|tausend|billions?|millions?|trillions?|thousand|bn|m\b|k\b)?`)

var scaleFactors = map[string]float64{
	"tausend": 1e3, "thousand": 1e3, "k": 1e3,
	"millionen": 1e6, "million": 1e6, "millions": 1e6, "mio": 1e6, "mio.": 1e6, "m": 1e6,
	"milliarden": 1e9, "milliarde": 1e9, "mrd": 1e9, "mrd.": 1e9,
	"billion": 1e9, "billions": 1e9, "bn": 1e9,
	"trillion": 1e12, "trillions": 1e12,
}

// extractMagnitudes pulls comparable numeric magnitudes out of prose.
// Year-like values (1900-2100 standalone integers) are skipped so
// dates never trip the outlier guardrail.
func extractMagnitudes(text string) []float64 {
	if text == "" {
		return nil
	}

	var out []float64
	for _, m := range numberRe.FindAllStringSubmatch(text, -1) {
		value, ok := parseNumeral(m[1])
		if !ok {
			continue
		}

		scale := 1.0
		if m[2] != "" {
			if f, ok := scaleFactors[strings.ToLower(strings.TrimSpace(m[2]))]; ok {
				scale = f
			}
		}

		v := value * scale
		if scale == 1 && isYearLike(m[1], v) {
			continue
		}
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// parseNumeral handles both German ("1.234,5") and English
// ("1,234.5") digit grouping, plus plain decimals.
func parseNumeral(s string) (float64, bool) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// German: dots group, comma is decimal
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// English: commas group, dot is decimal
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// A single comma with exactly three trailing digits is grouping
		if len(s)-lastComma-1 == 3 && strings.Count(s, ",") == 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		// Multiple dots are German grouping
		s = strings.ReplaceAll(s, ".", "")
	case lastDot >= 0 && len(s)-lastDot-1 == 3 && len(s) > 4:
		// "1.234" style grouping
		s = strings.ReplaceAll(s, ".", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isYearLike(raw string, v float64) bool {
	if strings.ContainsAny(raw, ".,") {
		return false
	}
	return v >= 1900 && v <= 2100 && v == float64(int64(v))
}
