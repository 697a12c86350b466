package verdict

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/tier"
)

// Normalization constants. The guardrail order below them is
// load-bearing: tier floors, then the causal checks, then the math
// outlier, so a later rule overrides an earlier one.
const (
	MaxSources        = 8
	MaxExplanationLen = 500
	DefaultConfidence = 0.5  // Missing or NaN model confidence
	UnparseableConf   = 0.2  // Nothing recoverable from the model
	Tier1Floor        = 0.85 // Positive verdict backed by an official source
	Tier2Floor        = 0.75 // Positive verdict with >=2 quality-media sources
	WeakEvidenceCap   = 0.60 // Cap after the insufficiency downgrade
	CausalCap         = 0.70 // Ceiling for any causal claim
	DeceptiveTimeline = 0.90 // Fixed confidence when intent predates trigger
	outlierRatio      = 10.0 // Claimed magnitude vs evidence magnitude
)

// Normalizer converts raw model output into calibrated verdicts.
// Pure and reentrant: each call owns its inputs and returns a fresh
// Verdict with no aliasing back to caller state.
type Normalizer struct {
	registry *tier.Registry
}

func NewNormalizer(registry *tier.Registry) *Normalizer {
	return &Normalizer{registry: registry}
}

// Meta reports how a verdict was recovered, for diagnostics and for
// callers that substitute an evidence-derived confidence when the
// model supplied none.
type Meta struct {
	Kind                ParseKind
	ConfidenceDefaulted bool
}

// Normalize parses raw model output (a string, raw JSON bytes, or an
// already-structured map) and produces the canonical Verdict for the
// claim. It never fails: unparseable input degrades to an
// unverifiable verdict with a diagnostic explanation.
func (n *Normalizer) Normalize(raw any, claim model.Claim, grounding []model.EvidenceItem) model.Verdict {
	v, _ := n.NormalizeDetailed(raw, claim, grounding)
	return v
}

// NormalizeDetailed is Normalize plus parse metadata.
func (n *Normalizer) NormalizeDetailed(raw any, claim model.Claim, grounding []model.EvidenceItem) (model.Verdict, Meta) {
	parsed := n.parseAny(raw)
	return n.build(parsed, claim, grounding)
}

// parseAny funnels every accepted input shape into the tagged union.
func (n *Normalizer) parseAny(raw any) ParsedVerdict {
	switch v := raw.(type) {
	case nil:
		return ParsedVerdict{Kind: KindUnparseable}
	case string:
		return Parse(v)
	case []byte:
		return Parse(string(v))
	case json.RawMessage:
		return Parse(string(v))
	case payload:
		return ParsedVerdict{Kind: KindStructuredJSON, Payload: v}
	case ParsedVerdict:
		return v
	default:
		// Structured input (map or struct): round-trip through JSON so
		// one permissive decoder handles every shape.
		data, err := json.Marshal(v)
		if err != nil {
			return ParsedVerdict{Kind: KindUnparseable}
		}
		if p, ok := tryJSON(string(data)); ok {
			return ParsedVerdict{Kind: KindStructuredJSON, Payload: p}
		}
		return ParsedVerdict{Kind: KindUnparseable}
	}
}

// build is the single exhaustive conversion from the parse-boundary
// union into the canonical Verdict.
func (n *Normalizer) build(parsed ParsedVerdict, claim model.Claim, grounding []model.EvidenceItem) (model.Verdict, Meta) {
	meta := Meta{Kind: parsed.Kind}

	out := model.Verdict{IsCausal: claim.IsCausal()}

	if parsed.Kind == KindUnparseable {
		out.Verdict = model.LabelUnverifiable
		out.Confidence = UnparseableConf
		out.Explanation = "Could not parse the model response; the claim remains unverified."
		out.Sources = n.attachSources(nil, grounding)
		out.DisplayVerdict = Display(out.Verdict)
		meta.ConfidenceDefaulted = true
		return out, meta
	}

	p := parsed.Payload

	// Step 2: coerce the verdict into the internal vocabulary
	out.Verdict = coerceLabel(p.Verdict)

	// Step 3: clamp confidence; missing or NaN defaults to 0.5
	switch {
	case p.Confidence == nil:
		out.Confidence = DefaultConfidence
		meta.ConfidenceDefaulted = true
	case math.IsNaN(*p.Confidence) || math.IsInf(*p.Confidence, 0):
		out.Confidence = DefaultConfidence
		meta.ConfidenceDefaulted = true
	default:
		out.Confidence = clamp01(*p.Confidence)
	}

	// Step 4: sanitize the explanation
	out.Explanation = sanitizeExplanation(p.Explanation)

	// Step 5: merge payload sources with out-of-band grounding sources
	out.Sources = n.attachSources(p.Sources, grounding)

	// Step 6: tier-aware floors and the evidence-insufficiency downgrade
	n.applyTierAdjustment(&out)

	// Step 7: causal ceiling and the intent-before-trigger override
	if out.IsCausal {
		n.applyCausalRules(&out, p)
	}

	// Step 8: numeric magnitude guardrail, allowed to override a model "true"
	n.applyMathOutlier(&out, p, claim)

	// Step 9: collapse to the display vocabulary
	out.DisplayVerdict = Display(out.Verdict)

	return out, meta
}

// coerceLabel normalizes case and punctuation, accepts localized
// verdict words via the pattern table, and falls back to
// unverifiable for anything outside the vocabulary. Models routinely
// invent near-miss labels; that is not an error.
func coerceLabel(s string) model.Label {
	cleaned := strings.ToLower(strings.TrimSpace(s))
	cleaned = strings.Trim(cleaned, ".!?\"'")
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	cleaned = strings.ReplaceAll(cleaned, "-", "_")

	if l := model.Label(cleaned); l.Known() {
		return l
	}
	if label, ok := matchVerdictKeyword(s); ok {
		return label
	}
	return model.LabelUnverifiable
}

func sanitizeExplanation(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if runes := []rune(out); len(runes) > MaxExplanationLen {
		out = strings.TrimRight(string(runes[:MaxExplanationLen]), " ")
	}
	return out
}

// attachSources merges parsed and grounding sources, de-duplicates by
// URL, caps the count, and tiers every item that arrives untiered.
func (n *Normalizer) attachSources(parsed []rawSource, grounding []model.EvidenceItem) []model.EvidenceItem {
	seen := make(map[string]bool)
	var out []model.EvidenceItem

	add := func(item model.EvidenceItem) {
		if item.URL == "" || seen[item.URL] || len(out) >= MaxSources {
			return
		}
		seen[item.URL] = true
		if item.Tier == 0 {
			item.Tier = n.registry.Classify(item.URL)
		}
		if item.Sentiment == "" {
			item.Sentiment = model.SentimentSupporting
		}
		out = append(out, item)
	}

	for _, s := range parsed {
		url := s.URL
		if url == "" {
			url = s.Domain
		}
		item := model.EvidenceItem{
			URL:       url,
			Tier:      model.Tier(s.Tier),
			Sentiment: model.Sentiment(strings.ToLower(s.Sentiment)),
			Quote:     s.Quote,
		}
		if item.Sentiment != model.SentimentContradicting {
			item.Sentiment = ""
		}
		if s.Tier < 1 || s.Tier > 5 {
			item.Tier = 0
		}
		if t, ok := parseDate(s.Date); ok {
			item.Timestamp = &t
		}
		add(item)
	}
	for _, g := range grounding {
		g.Tier = 0 // re-tier through the registry for consistency
		add(g)
	}
	return out
}

// applyTierAdjustment raises the confidence floor for well-sourced
// positive verdicts and enforces the evidence-insufficiency downgrade:
// a single weak source never supports a full "true".
func (n *Normalizer) applyTierAdjustment(v *model.Verdict) {
	if v.Verdict != model.LabelTrue && v.Verdict != model.LabelMostlyTrue {
		return
	}

	best := bestTier(v.Sources)
	switch {
	case best == model.TierOfficial:
		if v.Confidence < Tier1Floor {
			v.Confidence = Tier1Floor
		}
	case best == model.TierQualityMedia && len(v.Sources) >= 2:
		if v.Confidence < Tier2Floor {
			v.Confidence = Tier2Floor
		}
	case len(v.Sources) < 2 && (best == 0 || best >= model.TierNeutral):
		v.Verdict = model.LabelPartiallyTrue
		if v.Confidence > WeakEvidenceCap {
			v.Confidence = WeakEvidenceCap
		}
	}
}

// bestTier returns the lowest (strongest) tier present, or 0 for none
func bestTier(sources []model.EvidenceItem) model.Tier {
	var best model.Tier
	for _, s := range sources {
		if s.Tier == 0 {
			continue
		}
		if best == 0 || s.Tier < best {
			best = s.Tier
		}
	}
	return best
}

// applyCausalRules caps causal-claim confidence and encodes the
// timeline check: when the alleged effect was already planned before
// the claimed cause occurred, the causal framing is deceptive no
// matter what the model concluded.
func (n *Normalizer) applyCausalRules(v *model.Verdict, p payload) {
	if v.Confidence > CausalCap {
		v.Confidence = CausalCap
	}

	intent, okIntent := parseDate(p.IntentDate)
	trigger, okTrigger := parseDate(p.TriggerDate)
	if okIntent && okTrigger && intent.Before(trigger) {
		v.Verdict = model.LabelDeceptive
		v.Confidence = DeceptiveTimeline
	}
}

// applyMathOutlier forces a false verdict when the claimed magnitude
// is off from the evidence by a factor of ten or more. Language
// models are unreliable at large-number plausibility, so this is the
// one rule allowed to override an explicit "true".
func (n *Normalizer) applyMathOutlier(v *model.Verdict, p payload, claim model.Claim) {
	claimMag, evidenceMag := magnitudes(p, claim, v.Sources)
	if claimMag <= 0 || evidenceMag <= 0 {
		return
	}

	ratio := claimMag / evidenceMag
	if ratio >= outlierRatio || ratio <= 1/outlierRatio {
		v.Verdict = model.LabelFalse
		v.MathOutlier = true
	}
}

// magnitudes picks the numbers to compare: explicit payload values
// when the model supplied them, otherwise the largest magnitude found
// in the claim text versus the largest found in evidence quotes and
// the explanation.
func magnitudes(p payload, claim model.Claim, sources []model.EvidenceItem) (float64, float64) {
	if p.ClaimValue != nil && p.EvidenceValue != nil {
		return *p.ClaimValue, *p.EvidenceValue
	}

	claimMag := maxMagnitude(extractMagnitudes(claim.Text))

	evidenceText := p.Explanation
	for _, s := range sources {
		evidenceText += " " + s.Quote
	}
	evidenceMag := maxMagnitude(extractMagnitudes(evidenceText))

	return claimMag, evidenceMag
}

func maxMagnitude(values []float64) float64 {
	var max float64
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Display collapses the internal vocabulary into the UI-facing one.
// The mapping is total: every internal label has an entry and unknown
// values fall back to unverifiable, so the renderer can never receive
// an undefined display value.
func Display(l model.Label) model.DisplayLabel {
	switch l {
	case model.LabelTrue, model.LabelMostlyTrue:
		return model.DisplayTrue
	case model.LabelFalse, model.LabelMostlyFalse:
		return model.DisplayFalse
	case model.LabelPartiallyTrue, model.LabelMisleading:
		return model.DisplayPartiallyTrue
	case model.LabelDeceptive:
		return model.DisplayDeceptive
	case model.LabelOpinion:
		return model.DisplayOpinion
	default:
		return model.DisplayUnverifiable
	}
}
