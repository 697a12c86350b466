package model

import "time"

// EvidenceItem is one piece of attributed support or contradiction for a claim
type EvidenceItem struct {
	URL       string     `json:"url"`                 // Source URL (required for tiering)
	Tier      Tier       `json:"tier"`                // Authority tier, resolved once and immutable
	Sentiment Sentiment  `json:"sentiment"`           // Whether the source supports or contradicts
	Timestamp *time.Time `json:"timestamp,omitempty"` // Publication date; nil means "current"
	Quote     string     `json:"quote,omitempty"`     // Attributed snippet text
}

// Sentiment classifies how a source relates to the claim
type Sentiment string

const (
	SentimentSupporting    Sentiment = "supporting"
	SentimentContradicting Sentiment = "contradicting"
)

// Tier is the authority rank of a source domain.
// 1 is highest (official/sovereign), 5 lowest (flagged unreliable).
type Tier int

const (
	TierOfficial     Tier = 1 // Government, statistics offices, international institutions
	TierQualityMedia Tier = 2 // Quality media, wire services, press agencies
	TierNeutral      Tier = 3 // Default for unclassifiable or unparsable URLs
	TierUnclassified Tier = 4 // Parsed but matched nothing in the registry
	TierFlagged      Tier = 5 // Known unreliable or banned as circular evidence
)

func (t Tier) String() string {
	switch t {
	case TierOfficial:
		return "official"
	case TierQualityMedia:
		return "quality-media"
	case TierNeutral:
		return "neutral"
	case TierUnclassified:
		return "unclassified"
	case TierFlagged:
		return "flagged"
	default:
		return "unknown"
	}
}

// ValidationResult records an accessibility check on a cited source URL
type ValidationResult struct {
	URL          string     `json:"url"`
	IsAccessible bool       `json:"is_accessible"`
	StatusCode   int        `json:"status_code,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	AgeDays      *int       `json:"age_days,omitempty"`
	IsStale      bool       `json:"is_stale"`      // > 1 year old
	IsDead       bool       `json:"is_dead"`       // 404, 410, or timeout
	RedirectURL  string     `json:"redirect_url,omitempty"`
	Tier         Tier       `json:"tier"`
	Error        string     `json:"error,omitempty"`
}
