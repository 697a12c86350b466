package verdict

import (
	"math"
	"strings"
	"testing"

	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/tier"
)

func newNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	r, err := tier.NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewNormalizer(r)
}

func factual(text string) model.Claim {
	return model.Claim{Text: text, Type: model.ClaimFactual}
}

func causal(text string) model.Claim {
	return model.Claim{Text: text, Type: model.ClaimCausal}
}

// Normalize must never panic or fail, whatever the model emitted.
func TestNormalize_TotalOverArbitraryInput(t *testing.T) {
	n := newNormalizer(t)
	claim := factual("the sky is blue")

	inputs := []any{
		nil,
		"",
		"   \n\t  ",
		"complete gibberish with no verdict words at all zzz",
		`{"verdict": "true"`,
		`{"unrelated": "object"}`,
		"```json\nnot actually json\n```",
		`{"verdict": "true", "confidence": "NaN"}`,
		[]byte(`{"verdict": "false"}`),
		map[string]any{"verdict": "true", "confidence": 0.7},
		12345,
		strings.Repeat("{", 10000),
	}

	for _, raw := range inputs {
		v := n.Normalize(raw, claim, nil)
		if !v.Verdict.Known() {
			t.Errorf("Normalize(%.40v) verdict = %q, not in vocabulary", raw, v.Verdict)
		}
		if v.Confidence < 0 || v.Confidence > 1 {
			t.Errorf("Normalize(%.40v) confidence = %v out of range", raw, v.Confidence)
		}
		if v.DisplayVerdict == "" {
			t.Errorf("Normalize(%.40v) empty display verdict", raw)
		}
	}
}

func TestNormalize_UnparseableFallback(t *testing.T) {
	n := newNormalizer(t)

	v, meta := n.NormalizeDetailed("qqq zzz", factual("x"), nil)
	if v.Verdict != model.LabelUnverifiable {
		t.Errorf("verdict = %q, want unverifiable", v.Verdict)
	}
	if v.Confidence != UnparseableConf {
		t.Errorf("confidence = %v, want %v", v.Confidence, UnparseableConf)
	}
	if meta.Kind != KindUnparseable || !meta.ConfidenceDefaulted {
		t.Errorf("meta = %+v", meta)
	}
	if v.Explanation == "" {
		t.Error("expected a diagnostic explanation")
	}
}

func TestNormalize_MissingConfidenceDefaults(t *testing.T) {
	n := newNormalizer(t)

	v, meta := n.NormalizeDetailed(`{"verdict": "unverifiable", "explanation": "no data"}`, factual("x"), nil)
	if v.Confidence != DefaultConfidence {
		t.Errorf("confidence = %v, want %v", v.Confidence, DefaultConfidence)
	}
	if !meta.ConfidenceDefaulted {
		t.Error("expected ConfidenceDefaulted")
	}

	nan := math.NaN()
	v2, meta2 := n.NormalizeDetailed(payload{Verdict: "unverifiable", Confidence: &nan}, factual("x"), nil)
	if v2.Confidence != DefaultConfidence || !meta2.ConfidenceDefaulted {
		t.Errorf("NaN confidence: got %v, defaulted=%v", v2.Confidence, meta2.ConfidenceDefaulted)
	}
}

func TestNormalize_ConfidenceClamped(t *testing.T) {
	n := newNormalizer(t)

	v := n.Normalize(`{"verdict": "opinion", "confidence": 3.5}`, factual("x"), nil)
	if v.Confidence != 1 {
		t.Errorf("confidence = %v, want clamp to 1", v.Confidence)
	}
	v = n.Normalize(`{"verdict": "opinion", "confidence": -0.2}`, factual("x"), nil)
	if v.Confidence != 0 {
		t.Errorf("confidence = %v, want clamp to 0", v.Confidence)
	}
}

func TestNormalize_LabelCoercion(t *testing.T) {
	n := newNormalizer(t)

	tests := []struct {
		in   string
		want model.Label
	}{
		{"TRUE", model.LabelTrue},
		{" Mostly True ", model.LabelMostlyTrue},
		{"partially-true", model.LabelPartiallyTrue},
		{"falsch", model.LabelFalse},
		{"teilweise wahr", model.LabelPartiallyTrue},
		{"made_up_label", model.LabelUnverifiable},
		{"", model.LabelUnverifiable},
	}

	for _, tt := range tests {
		if got := coerceLabel(tt.in); got != tt.want {
			t.Errorf("coerceLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	// Downgrade must not retrigger: coerced labels flow through the
	// tier adjustment like native ones.
	v := n.Normalize(`{"verdict": "WAHR", "confidence": 0.9, "sources": ["https://parlament.gv.at/x"]}`, factual("x"), nil)
	if v.Verdict != model.LabelTrue {
		t.Errorf("verdict = %q, want true", v.Verdict)
	}
}

func TestNormalize_ExplanationSanitized(t *testing.T) {
	n := newNormalizer(t)

	long := strings.Repeat("word ", 200) // 1000 chars
	raw := payload{Verdict: "opinion", Explanation: "line1\nline2\x00ctrl\t" + long}
	v := n.Normalize(raw, factual("x"), nil)

	if strings.ContainsAny(v.Explanation, "\n\t\x00") {
		t.Error("control characters survived sanitization")
	}
	if got := len([]rune(v.Explanation)); got > MaxExplanationLen {
		t.Errorf("explanation length = %d, want <= %d", got, MaxExplanationLen)
	}
}

func TestNormalize_SourceMergeDedupeCap(t *testing.T) {
	n := newNormalizer(t)

	raw := `{"verdict": "unverifiable", "confidence": 0.4, "sources": [
		"https://a.example/1", "https://a.example/1",
		"https://a.example/2", "https://a.example/3", "https://a.example/4",
		"https://a.example/5", "https://a.example/6", "https://a.example/7"
	]}`
	grounding := []model.EvidenceItem{
		{URL: "https://a.example/2"},
		{URL: "https://b.example/8"},
		{URL: "https://b.example/9"},
	}

	v := n.Normalize(raw, factual("x"), grounding)
	if len(v.Sources) != MaxSources {
		t.Fatalf("len(sources) = %d, want %d", len(v.Sources), MaxSources)
	}
	seen := make(map[string]bool)
	for _, s := range v.Sources {
		if seen[s.URL] {
			t.Errorf("duplicate source %q", s.URL)
		}
		seen[s.URL] = true
		if s.Tier < 1 || s.Tier > 5 {
			t.Errorf("source %q untiered: %d", s.URL, s.Tier)
		}
		if s.Sentiment == "" {
			t.Errorf("source %q has no sentiment", s.URL)
		}
	}
}

func TestNormalize_Tier1Floor(t *testing.T) {
	n := newNormalizer(t)

	raw := `{"verdict": "true", "confidence": 0.5, "explanation": "Official figures confirm it.", "sources": ["https://www.statistik.at/report"]}`
	v := n.Normalize(raw, factual("x"), nil)

	if v.Verdict != model.LabelTrue {
		t.Fatalf("verdict = %q", v.Verdict)
	}
	if v.Confidence < Tier1Floor {
		t.Errorf("confidence = %v, want >= %v", v.Confidence, Tier1Floor)
	}
	if v.DisplayVerdict != model.DisplayTrue {
		t.Errorf("display = %q", v.DisplayVerdict)
	}
}

func TestNormalize_Tier2Floor(t *testing.T) {
	n := newNormalizer(t)

	raw := `{"verdict": "mostly_true", "confidence": 0.6, "sources": ["https://reuters.com/a", "https://apnews.com/b"]}`
	v := n.Normalize(raw, factual("x"), nil)

	if v.Confidence < Tier2Floor {
		t.Errorf("confidence = %v, want >= %v", v.Confidence, Tier2Floor)
	}
	if v.Verdict != model.LabelMostlyTrue {
		t.Errorf("verdict = %q", v.Verdict)
	}
}

func TestNormalize_WeakEvidenceDowngrade(t *testing.T) {
	n := newNormalizer(t)

	// Single tier-3 source cannot support a full "true"
	raw := `{"verdict": "true", "confidence": 0.9, "sources": ["https://someblog.example/post"]}`
	v := n.Normalize(raw, factual("x"), nil)

	if v.Verdict != model.LabelPartiallyTrue {
		t.Errorf("verdict = %q, want partially_true", v.Verdict)
	}
	if v.Confidence > WeakEvidenceCap {
		t.Errorf("confidence = %v, want <= %v", v.Confidence, WeakEvidenceCap)
	}
	if v.DisplayVerdict != model.DisplayPartiallyTrue {
		t.Errorf("display = %q", v.DisplayVerdict)
	}
}

func TestNormalize_NoSourcesDowngrade(t *testing.T) {
	n := newNormalizer(t)

	v := n.Normalize(`{"verdict": "true", "confidence": 0.9}`, factual("x"), nil)
	if v.Verdict != model.LabelPartiallyTrue {
		t.Errorf("verdict = %q, want partially_true", v.Verdict)
	}
	if v.Confidence > WeakEvidenceCap {
		t.Errorf("confidence = %v", v.Confidence)
	}
}

func TestNormalize_NegativeVerdictNotDowngraded(t *testing.T) {
	n := newNormalizer(t)

	v := n.Normalize(`{"verdict": "false", "confidence": 0.9}`, factual("x"), nil)
	if v.Verdict != model.LabelFalse {
		t.Errorf("verdict = %q, want false untouched", v.Verdict)
	}
	if v.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", v.Confidence)
	}
}

func TestNormalize_CausalCap(t *testing.T) {
	n := newNormalizer(t)

	raw := `{"verdict": "true", "confidence": 0.95, "sources": ["https://www.bmf.gv.at/x"]}`
	v := n.Normalize(raw, causal("the tax cut caused the boom"), nil)

	if !v.IsCausal {
		t.Error("IsCausal not set")
	}
	if v.Confidence > CausalCap {
		t.Errorf("confidence = %v, want <= %v", v.Confidence, CausalCap)
	}
}

func TestNormalize_CausalTimelineDeceptive(t *testing.T) {
	n := newNormalizer(t)

	// Intent predates the claimed trigger: the causal framing is a lie
	// regardless of the model's own conclusion.
	raw := `{"verdict": "true", "confidence": 0.9, "intentDate": "2026-01-10", "triggerDate": "2026-01-17", "sources": ["https://www.bmf.gv.at/x"]}`
	v := n.Normalize(raw, causal("the decision was a reaction to the event"), nil)

	if v.Verdict != model.LabelDeceptive {
		t.Errorf("verdict = %q, want deceptive", v.Verdict)
	}
	if v.Confidence != DeceptiveTimeline {
		t.Errorf("confidence = %v, want %v", v.Confidence, DeceptiveTimeline)
	}
	if v.DisplayVerdict != model.DisplayDeceptive {
		t.Errorf("display = %q", v.DisplayVerdict)
	}
}

func TestNormalize_CausalTimelineOrderedOK(t *testing.T) {
	n := newNormalizer(t)

	raw := `{"verdict": "true", "confidence": 0.9, "intentDate": "2026-01-20", "triggerDate": "2026-01-17", "sources": ["https://www.bmf.gv.at/x"]}`
	v := n.Normalize(raw, causal("x"), nil)

	if v.Verdict != model.LabelTrue {
		t.Errorf("verdict = %q, want true", v.Verdict)
	}
	if v.Confidence != CausalCap {
		t.Errorf("confidence = %v, want causal cap %v", v.Confidence, CausalCap)
	}
}

func TestNormalize_MathOutlierExplicitValues(t *testing.T) {
	n := newNormalizer(t)

	raw := `{"verdict": "true", "confidence": 0.9, "claimValue": 450000000, "evidenceValue": 2000000, "sources": ["https://www.statistik.at/x"]}`
	v := n.Normalize(raw, factual("the project cost 450 million"), nil)

	if v.Verdict != model.LabelFalse {
		t.Errorf("verdict = %q, want false", v.Verdict)
	}
	if !v.MathOutlier {
		t.Error("MathOutlier flag not set")
	}
	if v.DisplayVerdict != model.DisplayFalse {
		t.Errorf("display = %q", v.DisplayVerdict)
	}
}

func TestNormalize_MathOutlierFromText(t *testing.T) {
	n := newNormalizer(t)

	raw := `{"verdict": "true", "confidence": 0.9, "explanation": "The official budget shows 2 Millionen Euro for this item.", "sources": ["https://www.statistik.at/x"]}`
	v := n.Normalize(raw, factual("das Projekt kostete 450 Millionen Euro"), nil)

	if v.Verdict != model.LabelFalse {
		t.Errorf("verdict = %q, want false (225x discrepancy)", v.Verdict)
	}
	if !v.MathOutlier {
		t.Error("MathOutlier flag not set")
	}
}

func TestNormalize_MathWithinTolerance(t *testing.T) {
	n := newNormalizer(t)

	raw := `{"verdict": "true", "confidence": 0.9, "explanation": "Records show about 4 Millionen Euro.", "sources": ["https://www.statistik.at/x"]}`
	v := n.Normalize(raw, factual("es kostete 5 Millionen Euro"), nil)

	if v.Verdict != model.LabelTrue {
		t.Errorf("verdict = %q, want true (1.25x is within tolerance)", v.Verdict)
	}
	if v.MathOutlier {
		t.Error("MathOutlier flag set spuriously")
	}
}

func TestDisplay_Total(t *testing.T) {
	for _, l := range model.InternalLabels {
		d := Display(l)
		switch d {
		case model.DisplayTrue, model.DisplayFalse, model.DisplayPartiallyTrue,
			model.DisplayDeceptive, model.DisplayOpinion, model.DisplayUnverifiable:
		default:
			t.Errorf("Display(%q) = %q, not a display label", l, d)
		}
	}
	if Display(model.Label("garbage")) != model.DisplayUnverifiable {
		t.Error("unknown label must map to unverifiable")
	}
}
