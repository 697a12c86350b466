package score

import (
	"testing"
	"time"

	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/tier"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	registry, err := tier.NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	c := NewCalculator(registry)
	// Pin the clock so recency tests are stable
	c.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func ts(year int) *time.Time {
	t := time.Date(year, 3, 15, 0, 0, 0, 0, time.UTC)
	return &t
}

func item(url string, t model.Tier, s model.Sentiment, year int) model.EvidenceItem {
	e := model.EvidenceItem{URL: url, Tier: t, Sentiment: s}
	if year > 0 {
		e.Timestamp = ts(year)
	}
	return e
}

func TestConfidence_EmptyAndNil(t *testing.T) {
	c := newTestCalculator(t)

	if got := c.Confidence(nil); got != Floor {
		t.Errorf("Confidence(nil) = %v, want %v", got, Floor)
	}
	if got := c.Confidence([]model.EvidenceItem{}); got != Floor {
		t.Errorf("Confidence([]) = %v, want %v", got, Floor)
	}
}

func TestConfidence_AlwaysWithinBounds(t *testing.T) {
	c := newTestCalculator(t)

	lists := [][]model.EvidenceItem{
		nil,
		{item("", model.TierOfficial, model.SentimentSupporting, 2026)},
		{item("https://imf.org/a", model.TierOfficial, model.SentimentSupporting, 2026)},
		{
			item("https://imf.org/a", model.TierOfficial, model.SentimentSupporting, 2026),
			item("https://oecd.org/b", model.TierOfficial, model.SentimentSupporting, 2026),
			item("https://reuters.com/c", model.TierQualityMedia, model.SentimentSupporting, 2026),
			item("https://orf.at/d", model.TierQualityMedia, model.SentimentContradicting, 2019),
		},
	}
	for i, evidence := range lists {
		got := c.Confidence(evidence)
		if got < Floor || got > Cap {
			t.Errorf("case %d: confidence %v outside [%v, %v]", i, got, Floor, Cap)
		}
	}
}

func TestConfidence_SingleTier1BelowCap(t *testing.T) {
	c := newTestCalculator(t)

	got := c.Confidence([]model.EvidenceItem{
		item("https://parlament.gv.at/x", model.TierOfficial, model.SentimentSupporting, 2026),
	})
	if got >= Cap {
		t.Errorf("single tier-1 source reached the cap: %v", got)
	}
	if got != 0.5 {
		t.Errorf("single current tier-1 source = %v, want 0.5", got)
	}
}

func TestConfidence_TwoTier1ReachCap(t *testing.T) {
	c := newTestCalculator(t)

	got := c.Confidence([]model.EvidenceItem{
		item("https://parlament.gv.at/x", model.TierOfficial, model.SentimentSupporting, 2026),
		item("https://imf.org/y", model.TierOfficial, model.SentimentSupporting, 2026),
	})
	if got != Cap {
		t.Errorf("two unanimous tier-1 sources = %v, want cap %v", got, Cap)
	}
}

func TestConfidence_ContradictionHalvesTotal(t *testing.T) {
	c := newTestCalculator(t)

	unanimous := []model.EvidenceItem{
		item("https://imf.org/a", model.TierOfficial, model.SentimentSupporting, 2026),
		item("https://reuters.com/b", model.TierQualityMedia, model.SentimentSupporting, 2026),
	}
	mixed := []model.EvidenceItem{
		item("https://imf.org/a", model.TierOfficial, model.SentimentSupporting, 2026),
		item("https://reuters.com/b", model.TierQualityMedia, model.SentimentContradicting, 2026),
	}

	// Same items, one sentiment flipped: the pre-cap total halves exactly
	if got, want := c.Confidence(mixed), c.Confidence(unanimous)/2; got != want {
		t.Errorf("mixed sentiments = %v, want %v", got, want)
	}
}

func TestConfidence_AllContradictingHalved(t *testing.T) {
	c := newTestCalculator(t)

	got := c.Confidence([]model.EvidenceItem{
		item("https://imf.org/a", model.TierOfficial, model.SentimentContradicting, 2026),
		item("https://oecd.org/b", model.TierOfficial, model.SentimentContradicting, 2026),
	})
	// (0.5 + 0.5) * 0.5
	if got != 0.5 {
		t.Errorf("all contradicting = %v, want 0.5", got)
	}
}

func TestConfidence_OldSourceHalfWeight(t *testing.T) {
	c := newTestCalculator(t)

	current := c.Confidence([]model.EvidenceItem{
		item("https://imf.org/a", model.TierOfficial, model.SentimentSupporting, 2026),
	})
	old := c.Confidence([]model.EvidenceItem{
		item("https://imf.org/a", model.TierOfficial, model.SentimentSupporting, 2020),
	})
	if old != current/2 {
		t.Errorf("old source = %v, want half of %v", old, current)
	}

	// No timestamp defaults to current
	undated := c.Confidence([]model.EvidenceItem{
		item("https://imf.org/a", model.TierOfficial, model.SentimentSupporting, 0),
	})
	if undated != current {
		t.Errorf("undated source = %v, want %v", undated, current)
	}
}

func TestConfidence_RecencyBoundary(t *testing.T) {
	c := newTestCalculator(t)

	// 2024 is within 2 years of the pinned 2026 clock, 2023 is not
	within := c.Confidence([]model.EvidenceItem{
		item("https://imf.org/a", model.TierOfficial, model.SentimentSupporting, 2024),
	})
	outside := c.Confidence([]model.EvidenceItem{
		item("https://imf.org/a", model.TierOfficial, model.SentimentSupporting, 2023),
	})
	if within != 0.5 {
		t.Errorf("source from 2024 = %v, want full weight 0.5", within)
	}
	if outside != 0.25 {
		t.Errorf("source from 2023 = %v, want half weight 0.25", outside)
	}
}

func TestConfidence_SelfReferentialFiltered(t *testing.T) {
	c := newTestCalculator(t)

	got := c.Confidence([]model.EvidenceItem{
		item("https://www.youtube.com/watch?v=abc", model.TierFlagged, model.SentimentSupporting, 2026),
		item("https://de.wikipedia.org/wiki/Inflation", model.TierFlagged, model.SentimentSupporting, 2026),
	})
	if got != Floor {
		t.Errorf("only self-referential sources = %v, want floor %v", got, Floor)
	}

	// Missing URLs are treated conservatively as well
	got = c.Confidence([]model.EvidenceItem{
		{Tier: model.TierOfficial, Sentiment: model.SentimentSupporting},
	})
	if got != Floor {
		t.Errorf("evidence without URL = %v, want floor %v", got, Floor)
	}
}

func TestConfidence_LowTierScoresLow(t *testing.T) {
	c := newTestCalculator(t)

	got := c.Confidence([]model.EvidenceItem{
		item("https://someblog.example.com/post", model.TierUnclassified, model.SentimentSupporting, 2026),
	})
	if got != 0.15 {
		t.Errorf("single low-tier source = %v, want 0.15", got)
	}
}
