package gate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/verdict"
)

// API wrapper domains that grounding responses leak instead of the
// real source URLs
var apiEndpointDomains = map[string]bool{
	"vertexaisearch.cloud.google.com":   true,
	"generativelanguage.googleapis.com": true,
	"aiplatform.googleapis.com":         true,
}

// Known ASR error pairs (phonetically similar, seen in real transcripts)
var asrErrorPatterns = map[string]string{
	"bios":             "pius",
	"griechang":        "kriechgang",
	"griechgang":       "kriechgang",
	"aust firstst":     "austria first",
	"lohnstück kosten": "lohnstückkosten",
}

// Metaphor markers that indicate non-factual language
var metaphorMarkers = []string{
	"nebelsuppe", "rollatormodus", "schneckentempo", "raketenstaat",
	"pannenstreifen", "beiwagen", "abschleppwagen", "sonnenstaat",
}

// Speaker-action patterns that should have been filtered at extraction
var speakerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^der sprecher`),
	regexp.MustCompile(`^die sprecherin`),
	regexp.MustCompile(`hat sich .* angeschaut`),
	regexp.MustCompile(`war neugierig`),
	regexp.MustCompile(`war geschockt`),
	regexp.MustCompile(`war überrascht`),
	regexp.MustCompile(`freut sich`),
	regexp.MustCompile(`ist froh`),
	regexp.MustCompile(`kritisiert die`),
	regexp.MustCompile(`bezeichnet .* als`),
}

var futurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bwird\b.*\bwerden\b`),
	regexp.MustCompile(`\bwill\b`),
	regexp.MustCompile(`\bnächstes jahr\b`),
	regexp.MustCompile(`\bin zukunft\b`),
	regexp.MustCompile(`\bwird eine\b.*\bbilden\b`),
}

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// capitalizedWordPattern matches candidate named entities in German
// and English text
var capitalizedWordPattern = regexp.MustCompile(`[A-ZÄÖÜ][a-zäöüß]{3,}`)

// Common sentence starters that are not named entities
var nonEntityStarters = map[string]bool{
	"Der": true, "Die": true, "Das": true, "Ein": true, "Eine": true,
	"Es": true, "Er": true, "Sie": true, "Wir": true, "Ich": true,
	"Man": true, "Wenn": true, "Dass": true, "Ob": true, "Wie": true,
	"Was": true, "Wer": true, "Alle": true, "Viele": true, "Einige": true,
	"Jeder": true, "Dieser": true, "Jene": true, "Im": true, "Am": true,
	"Zum": true, "Zur": true, "Vom": true, "Beim": true, "Seit": true,
	"Durch": true, "The": true, "A": true, "An": true, "It": true,
	"He": true, "She": true, "We": true, "They": true, "This": true,
	"That": true,
}

// Capitalized filler words excluded from foreign-entity counting
var commonCapitalized = map[string]bool{
	"Der": true, "Die": true, "Das": true, "Ein": true, "Eine": true,
	"Und": true, "Oder": true, "Aber": true, "The": true, "This": true,
	"That": true, "However": true, "While": true, "According": true,
	"Also": true, "Based": true, "Evidence": true, "Claim": true,
	"Sources": true,
}

// structuralChecks covers data integrity per claim
func (g *Gate) structuralChecks(claim DumpClaim, ci, chi int) []Violation {
	var violations []Violation
	v := claim.Verification

	// Explanation present and meaningful
	if len(v.Explanation) < 10 {
		violations = append(violations, Violation{
			CheckID:    "S1_explanation_present",
			Severity:   SeverityCritical,
			ClaimIndex: ci, ChunkIndex: chi,
			Message: fmt.Sprintf("Explanation missing or too short (%d chars)", len(v.Explanation)),
			FixHint: "Verification must produce an explanation for every claim",
		})
	}

	// Sources should be structured objects, not bare strings
	bareStrings := 0
	for _, s := range v.Sources {
		if s.WasString {
			bareStrings++
		}
	}
	if bareStrings > 0 {
		violations = append(violations, Violation{
			CheckID:    "S2_sources_typed",
			Severity:   SeverityWarning,
			ClaimIndex: ci, ChunkIndex: chi,
			Message:     fmt.Sprintf("Sources are bare strings, not structured objects. Found %d string sources.", bareStrings),
			AutoFixable: true,
			FixHint:     "Convert source strings to {url, domain, tier} objects",
		})
	}

	// Confidence range sanity
	if v.Confidence == nil {
		violations = append(violations, Violation{
			CheckID:    "S3_confidence_range",
			Severity:   SeverityCritical,
			ClaimIndex: ci, ChunkIndex: chi,
			Message: "Confidence missing",
		})
	} else {
		conf := *v.Confidence
		if conf < 0 || conf > 1 {
			violations = append(violations, Violation{
				CheckID:    "S3_confidence_range",
				Severity:   SeverityCritical,
				ClaimIndex: ci, ChunkIndex: chi,
				Message: fmt.Sprintf("Confidence %g outside valid range [0,1]", conf),
			})
		}
		if conf == 0.5 {
			violations = append(violations, Violation{
				CheckID:    "S3_confidence_range",
				Severity:   SeverityWarning,
				ClaimIndex: ci, ChunkIndex: chi,
				Message: "Confidence is exactly 0.5, likely a hardcoded default rather than a calculated value",
				FixHint: "Apply the deterministic confidence formula",
			})
		}
		if conf == 0.28 {
			violations = append(violations, Violation{
				CheckID:    "S3_confidence_range",
				Severity:   SeverityWarning,
				ClaimIndex: ci, ChunkIndex: chi,
				Message: "Confidence is 0.28, a known fallback value from legacy code",
				FixHint: "Apply the deterministic confidence formula",
			})
		}
	}

	// Valid verdict
	if !model.Label(v.Verdict).Known() {
		violations = append(violations, Violation{
			CheckID:    "S5_verdict_valid",
			Severity:   SeverityCritical,
			ClaimIndex: ci, ChunkIndex: chi,
			Message: fmt.Sprintf("Invalid verdict %q", v.Verdict),
		})
	}

	// Source domain monoculture / API endpoint leak. When every source
	// resolves to one API wrapper host, the pipeline stored the
	// grounding endpoint instead of the cited pages.
	if len(v.Sources) > 0 {
		unique := make(map[string]bool)
		var leaked []string
		for _, s := range v.Sources {
			host := s.hostname()
			unique[host] = true
			if apiEndpointDomains[host] {
				leaked = append(leaked, host)
			}
		}
		if len(leaked) > 0 {
			violations = append(violations, Violation{
				CheckID:    "S6_source_api_leak",
				Severity:   SeverityCritical,
				ClaimIndex: ci, ChunkIndex: chi,
				Message: fmt.Sprintf("Sources contain API endpoint domain instead of actual source URLs: %v", leaked),
				FixHint: "Surface the cited page URLs from the grounding metadata, not the search wrapper",
			})
		} else if len(unique) == 1 && len(v.Sources) >= 3 {
			var only string
			for d := range unique {
				only = d
			}
			violations = append(violations, Violation{
				CheckID:    "S6_source_monoculture",
				Severity:   SeverityWarning,
				ClaimIndex: ci, ChunkIndex: chi,
				Message: fmt.Sprintf("All %d sources are from a single domain %q. Real fact-checks should cite multiple independent sources.", len(v.Sources), only),
				FixHint: "Verify source URL extraction returns actual website domains",
			})
		}
	}

	return violations
}

// semanticChecks covers the quality of individual verification results
func (g *Gate) semanticChecks(claim DumpClaim, ci, chi int, transcriptLang string) []Violation {
	var violations []Violation
	v := claim.Verification

	// Banned platform cited as evidence
	for _, s := range v.Sources {
		host := s.hostname()
		if g.registry != nil && g.registry.IsSelfReferential(host) {
			violations = append(violations, Violation{
				CheckID:    "M1_banned_source",
				Severity:   SeverityCritical,
				ClaimIndex: ci, ChunkIndex: chi,
				Message:     fmt.Sprintf("Banned source %q used as evidence. This is circular when the checked content comes from that platform.", host),
				AutoFixable: true,
				FixHint:     fmt.Sprintf("Remove %q from the sources array", host),
			})
			break // One finding per claim is enough
		}
	}

	// ASR name mismatch between claim and explanation
	if wrong, right, ok := asrNameMismatch(claim.Text, v.Explanation); ok {
		violations = append(violations, Violation{
			CheckID:    "M2_asr_name_mismatch",
			Severity:   SeverityCritical,
			ClaimIndex: ci, ChunkIndex: chi,
			Message:     fmt.Sprintf("ASR error detected: claim says %q but verification found %q", wrong, right),
			AutoFixable: true,
			FixHint:     fmt.Sprintf("Replace %q with %q in the claim display text", wrong, right),
		})
	}

	// Explanation language mismatch
	if len(v.Explanation) > 30 {
		if transcriptLang == "de" && verdict.DetectLanguage(v.Explanation) == "en" {
			violations = append(violations, Violation{
				CheckID:    "M3_explanation_language",
				Severity:   SeverityWarning,
				ClaimIndex: ci, ChunkIndex: chi,
				Message: "Explanation is in English but the transcript is German",
				FixHint: "Instruct the verification prompt to answer in the transcript language",
			})
		}
	}

	// Polluted search results: explanation full of entities absent
	// from the claim
	if irrelevantSearch(claim.Text, v.Explanation) {
		violations = append(violations, Violation{
			CheckID:    "M4_irrelevant_search",
			Severity:   SeverityWarning,
			ClaimIndex: ci, ChunkIndex: chi,
			Message: "Explanation contains multiple entities not present in the claim, likely polluted search results",
			FixHint: "Build search queries from claim keywords only",
		})
	}

	return violations
}

// consistencyChecks covers cross-claim coherence (run-level)
func (g *Gate) consistencyChecks(dump Dump) []Violation {
	var violations []Violation

	type indexed struct {
		chi, ci int
		claim   DumpClaim
	}
	var all []indexed
	for chi, chunk := range dump {
		for ci, claim := range chunk.Claims {
			all = append(all, indexed{chi, ci, claim})
		}
	}

	// Duplicate claims, number-aware. For short claims similarity
	// alone is dangerous: "Inflation is 5%" vs "Inflation is 50%"
	// score ~0.93 but are opposite facts, so numbers must match too.
	type seenEntry struct {
		text string
		chi  int
	}
	var seen []seenEntry
	for _, entry := range all {
		text := truncate(entry.claim.Text, 80)
		duplicate := false
		for _, prev := range seen {
			sim := textSimilarity(text, prev.text)
			textNums := sortedNumbers(text)
			prevNums := sortedNumbers(prev.text)

			if len([]rune(text)) < 50 {
				numbersMatch := equalStrings(textNums, prevNums)
				duplicate = sim > 0.95 && (numbersMatch || (len(textNums) == 0 && len(prevNums) == 0))
			} else if len(textNums) > 0 && len(prevNums) > 0 && !equalStrings(textNums, prevNums) {
				duplicate = false
			} else {
				duplicate = sim > 0.85
			}

			if duplicate {
				violations = append(violations, Violation{
					CheckID:    "C1_duplicate_claims",
					Severity:   SeverityWarning,
					ClaimIndex: entry.ci, ChunkIndex: entry.chi,
					Message:     fmt.Sprintf("Duplicate of claim in chunk %d (sim=%.2f): %q", prev.chi, sim, truncate(text, 60)),
					AutoFixable: true,
					FixHint:     "Merge into a single claim with multiple timestamps",
				})
				break
			}
		}
		if !duplicate {
			seen = append(seen, seenEntry{text, entry.chi})
		}
	}

	// Contradictory verdicts for near-identical claim text
	verdictsByText := make(map[string][]string)
	for _, entry := range all {
		key := strings.ToLower(truncate(entry.claim.Text, 60))
		verdictsByText[key] = append(verdictsByText[key], entry.claim.Verification.Verdict)
	}
	var keys []string
	for key := range verdictsByText {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		verdicts := verdictsByText[key]
		unique := make(map[string]bool)
		for _, v := range verdicts {
			unique[v] = true
		}
		if len(unique) > 1 && !onlyInconclusive(unique) {
			violations = append(violations, Violation{
				CheckID:    "C2_contradictory_verdicts",
				Severity:   SeverityCritical,
				ClaimIndex: -1, ChunkIndex: -1,
				Message: fmt.Sprintf("Contradictory verdicts %v for claim %q", verdicts, key),
				FixHint: "Deduplicate before verification, or flag as disputed when verdicts conflict",
			})
		}
	}

	// Confidence coherence
	for _, entry := range all {
		v := entry.claim.Verification
		if v.Confidence == nil {
			continue
		}
		conf := *v.Confidence
		label := model.Label(v.Verdict)

		if (label == model.LabelTrue || label == model.LabelFalse) && conf < 0.3 {
			violations = append(violations, Violation{
				CheckID:    "C3_confidence_coherence",
				Severity:   SeverityWarning,
				ClaimIndex: entry.ci, ChunkIndex: entry.chi,
				Message: fmt.Sprintf("%s with confidence %g: the verdict is definitive but the confidence says uncertain", strings.ToUpper(v.Verdict), conf),
				FixHint: "Recalibrate the confidence formula; definitive verdicts with tier-1 sources should score 0.5+",
			})
		}
		if label == model.LabelUnverifiable && conf > 0.5 {
			violations = append(violations, Violation{
				CheckID:    "C3_confidence_coherence",
				Severity:   SeverityWarning,
				ClaimIndex: entry.ci, ChunkIndex: entry.chi,
				Message: fmt.Sprintf("UNVERIFIABLE with confidence %g: this much confidence warrants a verdict", conf),
				FixHint: "High-confidence unverifiable suggests uncertainty about category, not evidence",
			})
		}
	}

	// Source-verdict alignment
	for _, entry := range all {
		v := entry.claim.Verification
		if model.Label(v.Verdict) != model.LabelUnverifiable || len(v.Sources) == 0 {
			continue
		}
		var tier1 []string
		for _, s := range v.Sources {
			if g.registry != nil && g.registry.Classify(s.hostname()) == model.TierOfficial {
				tier1 = append(tier1, s.hostname())
			}
		}
		if len(tier1) > 0 {
			violations = append(violations, Violation{
				CheckID:    "C4_source_verdict_alignment",
				Severity:   SeverityCritical,
				ClaimIndex: entry.ci, ChunkIndex: entry.chi,
				Message: fmt.Sprintf("Verdict is UNVERIFIABLE but tier-1 sources are present: %v", tier1),
				FixHint: "If authoritative sources found evidence, the claim is verifiable. Re-judge.",
			})
		}
	}

	// Explanation-verdict alignment
	for _, entry := range all {
		v := entry.claim.Verification
		if !explanationVerdictAligned(v.Explanation, model.Label(v.Verdict)) {
			violations = append(violations, Violation{
				CheckID:    "C5_explanation_verdict_alignment",
				Severity:   SeverityCritical,
				ClaimIndex: entry.ci, ChunkIndex: entry.chi,
				Message: fmt.Sprintf("Explanation language contradicts verdict %q", v.Verdict),
				FixHint: "Incoherent judgment, retry verification for this claim",
			})
		}
	}

	return violations
}

// extractionChecks covers claim extraction quality (run-level)
func (g *Gate) extractionChecks(dump Dump) []Violation {
	var violations []Violation

	for chi, chunk := range dump {
		for ci, claim := range chunk.Claims {
			lower := strings.ToLower(claim.Text)

			// Speaker action leaked through the extraction filter
			for _, pattern := range speakerPatterns {
				if pattern.MatchString(lower) {
					violations = append(violations, Violation{
						CheckID:    "E1_speaker_action_leak",
						Severity:   SeverityWarning,
						ClaimIndex: ci, ChunkIndex: chi,
						Message: fmt.Sprintf("Speaker action/emotion leaked through the filter: %q", truncate(lower, 80)),
						FixHint: "Extraction must skip speaker actions, emotions, and personal anecdotes",
					})
					break
				}
			}

			// Metaphor as the factual core. Info-only: deterministic
			// matching cannot reliably separate metaphorical from
			// literal usage, so this flags for human review instead
			// of blocking.
			for _, marker := range metaphorMarkers {
				if strings.Contains(lower, marker) {
					hasNumber := numberPattern.MatchString(lower)
					if !hasNumber && !hasNamedEntity(claim.Text) {
						violations = append(violations, Violation{
							CheckID:    "E2_metaphor_leak",
							Severity:   SeverityInfo,
							ClaimIndex: ci, ChunkIndex: chi,
							Message: fmt.Sprintf("Metaphor %q is the core of this claim, no factual kernel found. Review manually.", marker),
							FixHint: "Extract the underlying factual claim, not the metaphorical framing",
						})
					}
					break
				}
			}

			// Uncheckable claim: no entity, number, or date at all
			if !hasNamedEntity(claim.Text) {
				violations = append(violations, Violation{
					CheckID:    "E4_uncheckable_claim",
					Severity:   SeverityWarning,
					ClaimIndex: ci, ChunkIndex: chi,
					Message: fmt.Sprintf("No named entity, number, or date found, claim may be uncheckable: %q", truncate(lower, 80)),
					FixHint: "Apply a checkability pre-filter at extraction",
				})
			}

			// Future-tense claim with a definitive verdict
			for _, pattern := range futurePatterns {
				if pattern.MatchString(lower) {
					label := model.Label(claim.Verification.Verdict)
					if label != model.LabelOpinion && label != model.LabelUnverifiable {
						violations = append(violations, Violation{
							CheckID:    "E5_future_tense_leak",
							Severity:   SeverityInfo,
							ClaimIndex: ci, ChunkIndex: chi,
							Message: fmt.Sprintf("Future-tense claim assigned definitive verdict %q: %q", claim.Verification.Verdict, truncate(lower, 80)),
							FixHint: "Future claims should be skipped or tagged as predictions",
						})
					}
					break
				}
			}
		}

		// Rhetorical list atomized into near-identical claims
		if len(chunk.Claims) >= 3 {
			texts := make([]string, len(chunk.Claims))
			for i, c := range chunk.Claims {
				texts[i] = truncate(c.Text, 60)
			}
			for i := range texts {
				similar := 0
				for j := range texts {
					if i != j && textSimilarity(texts[i], texts[j]) > 0.6 {
						similar++
					}
				}
				if similar >= 2 {
					violations = append(violations, Violation{
						CheckID:    "E3_atomization",
						Severity:   SeverityWarning,
						ClaimIndex: i, ChunkIndex: chi,
						Message: fmt.Sprintf("Rhetorical list atomized into %d similar claims in chunk %d", similar+1, chi),
						FixHint: "Extract one unified claim from rhetorical lists, not one per item",
					})
					break // One flag per chunk
				}
			}
		}
	}

	return violations
}

// hasNamedEntity reports whether text contains at least one named
// entity, number, or date
func hasNamedEntity(text string) bool {
	if numberPattern.MatchString(text) {
		return true
	}
	for i, word := range strings.Fields(text) {
		clean := strings.TrimRight(word, `.,;:!?()[]"'`)
		if clean == "" {
			continue
		}
		runes := []rune(clean)
		if !isUpper(runes[0]) || len(runes) <= 2 {
			continue
		}
		if i == 0 {
			// First word only counts when it is not a sentence starter
			if !nonEntityStarters[clean] {
				return true
			}
		} else {
			// Articles mid-sentence stay excluded
			switch clean {
			case "Der", "Die", "Das", "Ein", "Eine":
			default:
				return true
			}
		}
	}
	return false
}

func isUpper(r rune) bool {
	return (r >= 'A' && r <= 'Z') || r == 'Ä' || r == 'Ö' || r == 'Ü'
}

// asrNameMismatch detects when the explanation corrected a
// transcription error the claim still contains. Known pairs are always
// flagged; unknown pairs require a different initial consonant,
// similar length, no substring or stem relationship, and high
// phonetic similarity.
func asrNameMismatch(claimText, explanation string) (string, string, bool) {
	claimLower := strings.ToLower(claimText)

	for wrong, right := range asrErrorPatterns {
		if strings.Contains(claimLower, wrong) {
			return wrong, right, true
		}
	}

	claimCaps := capitalizedSet(claimText)
	expCaps := capitalizedSet(explanation)

	for oc := range claimCaps {
		if expCaps[oc] {
			continue
		}
		for oe := range expCaps {
			if claimCaps[oe] {
				continue
			}
			ocLower, oeLower := strings.ToLower(oc), strings.ToLower(oe)
			// Skip compound noun / substring relationships
			if strings.Contains(ocLower, oeLower) || strings.Contains(oeLower, ocLower) {
				continue
			}
			// Skip morphological variants (German suffixes)
			ocStem := strings.TrimRight(ocLower, "snem")
			oeStem := strings.TrimRight(oeLower, "snem")
			if ocStem == oeStem && len(ocStem) > 3 {
				continue
			}
			// Classic ASR swap changes the initial consonant
			if ocLower[0] == oeLower[0] {
				continue
			}
			if abs(len([]rune(oc))-len([]rune(oe))) > 3 {
				continue
			}
			if textSimilarity(oc, oe) > 0.65 {
				return oc, oe, true
			}
		}
	}

	return "", "", false
}

func capitalizedSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range capitalizedWordPattern.FindAllString(text, -1) {
		set[w] = true
	}
	return set
}

// explanationVerdictAligned checks whether the explanation's tone
// matches the verdict for the two definitive labels
func explanationVerdictAligned(explanation string, label model.Label) bool {
	lower := strings.ToLower(explanation)

	positive := []string{
		"confirmed", "supported", "bestätigt", "belegt", "korrekt",
		"is true", "is correct", "stimmt", "trifft zu",
	}
	negative := []string{
		"contradicted", "false", "falsch", "widerlegt", "not supported",
		"nicht bestätigt", "incorrect", "not true",
	}

	hasPositive := containsAny(lower, positive)
	hasNegative := containsAny(lower, negative)

	if label == model.LabelTrue && hasNegative && !hasPositive {
		return false
	}
	if label == model.LabelFalse && hasPositive && !hasNegative {
		return false
	}
	return true
}

// irrelevantSearch flags explanations dominated by entities that never
// appear in the claim
func irrelevantSearch(claimText, explanation string) bool {
	expEntities := capitalizedSet(explanation)
	claimEntities := capitalizedSet(claimText)

	foreign := 0
	for e := range expEntities {
		if !claimEntities[e] && !commonCapitalized[e] {
			foreign++
		}
	}
	return foreign > 3
}

func sortedNumbers(text string) []string {
	nums := numberPattern.FindAllString(text, -1)
	sort.Strings(nums)
	return nums
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// onlyInconclusive reports whether the verdict set is a subset of
// {opinion, unverifiable}, which is not a real contradiction
func onlyInconclusive(verdicts map[string]bool) bool {
	for v := range verdicts {
		if model.Label(v) != model.LabelOpinion && model.Label(v) != model.LabelUnverifiable {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
