package gate

import "math"

// Category weights for the overall score. Consistency weighs heaviest:
// contradictions across claims are the most user-visible failure.
var categoryWeights = map[string]float64{
	"structural":  0.20,
	"semantic":    0.25,
	"consistency": 0.30,
	"extraction":  0.25,
}

// severityPenalty is the base deduction per unique issue type
var severityPenalty = map[Severity]float64{
	SeverityCritical: 15,
	SeverityWarning:  5,
	SeverityInfo:     1,
}

// checkCategory maps a check ID prefix to its scoring category
func checkCategory(checkID string) string {
	if checkID == "" {
		return "other"
	}
	switch checkID[0] {
	case 'S':
		return "structural"
	case 'M':
		return "semantic"
	case 'C':
		return "consistency"
	case 'E':
		return "extraction"
	default:
		return "other"
	}
}

// calculateScores turns violations into category scores, an overall
// 0-100 score, and a letter grade.
//
// Systemic issues are counted once per check ID, not per claim: 44
// language violations are one systemic problem, not 44 penalties. The
// base penalty scales mildly with prevalence (capped at 2x) and is
// halved when the issue is auto-fixable.
func calculateScores(totalClaims int, violations []Violation) (map[string]float64, float64, string) {
	if totalClaims == 0 {
		return map[string]float64{}, 0, "F"
	}

	byCheck := make(map[string][]Violation)
	for _, v := range violations {
		byCheck[v.CheckID] = append(byCheck[v.CheckID], v)
	}

	penalties := make(map[string]float64)
	for checkID, items := range byCheck {
		category := checkCategory(checkID)
		base := severityPenalty[items[0].Severity]

		prevalence := math.Min(2.0, 1.0+float64(len(items))/float64(totalClaims))

		discount := 1.0
		if items[0].AutoFixable {
			discount = 0.5
		}

		penalties[category] += base * prevalence * discount
	}

	categoryScores := make(map[string]float64)
	for category := range categoryWeights {
		raw := math.Max(0, 100-penalties[category])
		categoryScores[category] = round1(raw)
	}

	overall := 0.0
	for category, weight := range categoryWeights {
		overall += categoryScores[category] * weight
	}
	overall = round1(math.Max(0, math.Min(100, overall)))

	return categoryScores, overall, gradeFor(overall)
}

func gradeFor(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
