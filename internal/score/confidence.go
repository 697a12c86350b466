package score

import (
	"math"
	"time"

	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/tier"
)

// Calibration constants. Two independent tier-1 sources are needed to
// approach the cap: one tier-1 source contributes 0.40 * 1.25 = 0.50,
// two unanimous current ones sum to 1.0 and clamp at the cap.
const (
	Floor = 0.1  // No independent evidence
	Cap   = 0.95 // Never fully certain

	tier1Base      = 0.40
	sovereignBoost = 1.25 // Official/sovereign sourcing
	tier2Score     = 0.30
	lowTierScore   = 0.15 // Tier 3 and worse

	recencyYears   = 2   // Items within this many years keep full weight
	staleWeight    = 0.5 // Weight for older items
	conflictFactor = 0.5 // Applied when any source contradicts
)

// Calculator computes a bounded confidence value from evidence.
// It is pure: no I/O, safe for concurrent use.
type Calculator struct {
	registry *tier.Registry
	now      func() time.Time // injectable for tests
}

// NewCalculator creates a calculator using the given source registry
// to filter self-referential platforms.
func NewCalculator(registry *tier.Registry) *Calculator {
	return &Calculator{
		registry: registry,
		now:      time.Now,
	}
}

// Confidence combines per-source tier scores, recency weights and
// cross-source agreement into a single value in [Floor, Cap].
//
//	confidence = min(Cap, Σ(S_i × W_i) × V_c)
//
// where S_i is the tier score, W_i the recency weight and V_c the
// consistency multiplier. The result is rounded to 2 decimals and
// floored at 0.1.
func (c *Calculator) Confidence(evidence []model.EvidenceItem) float64 {
	independent := c.filterSelfReferential(evidence)
	if len(independent) == 0 {
		return Floor
	}

	var sum float64
	anyContradicting := false
	for _, item := range independent {
		sum += c.sourceScore(item) * c.recencyWeight(item)
		if item.Sentiment == model.SentimentContradicting {
			anyContradicting = true
		}
	}

	if anyContradicting {
		sum *= conflictFactor
	}

	conf := math.Min(Cap, sum)
	conf = math.Round(conf*100) / 100
	if conf <= 0 {
		return Floor
	}
	if conf < Floor {
		return Floor
	}
	return conf
}

// filterSelfReferential drops items hosted on the checked platform
// itself or on general reference wikis. Items without a URL are
// treated conservatively and dropped as well.
func (c *Calculator) filterSelfReferential(evidence []model.EvidenceItem) []model.EvidenceItem {
	var out []model.EvidenceItem
	for _, item := range evidence {
		if item.URL == "" {
			continue
		}
		if c.registry.IsSelfReferential(item.URL) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (c *Calculator) sourceScore(item model.EvidenceItem) float64 {
	switch item.Tier {
	case model.TierOfficial:
		return tier1Base * sovereignBoost
	case model.TierQualityMedia:
		return tier2Score
	default:
		return lowTierScore
	}
}

// recencyWeight gives full weight to items published within
// recencyYears of now, and to items with no timestamp (which default
// to "current"). Anything older contributes half.
func (c *Calculator) recencyWeight(item model.EvidenceItem) float64 {
	if item.Timestamp == nil {
		return 1.0
	}
	if c.now().Year()-item.Timestamp.Year() <= recencyYears {
		return 1.0
	}
	return staleWeight
}
