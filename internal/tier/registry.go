package tier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/faktgate/faktgate/internal/model"
)

// Registry maps source domains to authority tiers. A registry is built
// once at startup and treated as read-only afterwards.
type Registry struct {
	domains   map[string]model.Tier
	wildcards []wildcardRule
	selfRef   map[string]bool
}

type wildcardRule struct {
	suffix string // e.g. ".gov" for a "*.gov" pattern
	tier   model.Tier
}

// Built-in tier-1 domains: governments, statistics offices,
// research institutes, international institutions.
var defaultTier1 = []string{
	"parlament.gv.at", "ris.bka.gv.at", "bundeskanzleramt.gv.at",
	"bmf.gv.at", "statistik.at", "rechnungshof.gv.at", "bundespraesident.at",
	"wifo.ac.at", "ihs.ac.at", "oenb.at",
	"imf.org", "worldbank.org", "europa.eu", "oecd.org", "ecb.europa.eu",
	"destatis.de", "bls.gov", "eurostat.ec.europa.eu",
}

// Built-in tier-2 domains: quality media, wire services, press agencies.
var defaultTier2 = []string{
	"orf.at", "derstandard.at", "diepresse.com", "kurier.at",
	"kleinezeitung.at", "salzburg24.at", "vol.at",
	"spiegel.de", "zeit.de", "faz.net", "sueddeutsche.de", "tagesschau.de",
	"deutschlandfunk.de", "zdfheute.de",
	"reuters.com", "apnews.com", "afp.com",
	"ots.at", "apa.at",
}

// Platforms that must never count as independent evidence when the
// checked content itself comes from one of them, plus general-purpose
// reference wikis. They corroborate context but not confidence.
var defaultSelfReferential = []string{
	"youtube.com", "youtu.be", "facebook.com", "twitter.com",
	"x.com", "instagram.com", "tiktok.com", "reddit.com",
	"wikipedia.org",
}

var defaultWildcards = []wildcardRule{
	{suffix: ".gov", tier: model.TierOfficial},
	{suffix: ".edu", tier: model.TierOfficial},
	{suffix: ".ac.uk", tier: model.TierOfficial},
	{suffix: ".gv.at", tier: model.TierOfficial},
}

// NewRegistry builds a registry from built-in defaults, optionally
// overlaid with values from cfg (inline map, wildcard and banned
// additions, or an external sources.json file).
func NewRegistry(cfg *model.SourcesConfig) (*Registry, error) {
	r := &Registry{
		domains: make(map[string]model.Tier),
		selfRef: make(map[string]bool),
	}

	for _, d := range defaultTier1 {
		r.domains[d] = model.TierOfficial
	}
	for _, d := range defaultTier2 {
		r.domains[d] = model.TierQualityMedia
	}
	for _, d := range defaultSelfReferential {
		r.domains[d] = model.TierFlagged
		r.selfRef[d] = true
	}
	r.wildcards = append(r.wildcards, defaultWildcards...)

	if cfg == nil {
		return r, nil
	}

	if cfg.File != "" {
		if err := r.loadFile(cfg.File); err != nil {
			return nil, fmt.Errorf("load sources file: %w", err)
		}
	}
	for domain, t := range cfg.DomainMap {
		r.domains[domain] = clampTier(t)
	}
	for _, d := range cfg.ExtraBanned {
		r.domains[d] = model.TierFlagged
		r.selfRef[d] = true
	}
	for pattern, t := range cfg.ExtraWildcard {
		if suffix, ok := wildcardSuffix(pattern); ok {
			r.wildcards = append(r.wildcards, wildcardRule{suffix: suffix, tier: clampTier(t)})
		}
	}

	return r, nil
}

// sourcesFile mirrors the external sources file format:
// {"tier_1": {"domain": {...}}, "tier_2": {...}, "banned": {...}}
// Values may be mappings (with country/type metadata) or plain lists.
type sourcesFile struct {
	Tier1  any `yaml:"tier_1"`
	Tier2  any `yaml:"tier_2"`
	Banned any `yaml:"banned"`
}

func (r *Registry) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// YAML is a superset of JSON, so one decoder covers both formats.
	var sf sourcesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, d := range domainKeys(sf.Tier1) {
		r.domains[d] = model.TierOfficial
	}
	for _, d := range domainKeys(sf.Tier2) {
		r.domains[d] = model.TierQualityMedia
	}
	for _, d := range domainKeys(sf.Banned) {
		r.domains[d] = model.TierFlagged
		r.selfRef[d] = true
	}
	return nil
}

// domainKeys accepts either {"domain": {...}} mappings or ["domain"] lists.
func domainKeys(v any) []string {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		return keys
	case []any:
		keys := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				keys = append(keys, s)
			}
		}
		return keys
	}
	return nil
}

func wildcardSuffix(pattern string) (string, bool) {
	if len(pattern) > 1 && pattern[0] == '*' {
		return pattern[1:], true // "*.gov" -> ".gov"
	}
	return "", false
}

func clampTier(t int) model.Tier {
	if t < 1 {
		t = 1
	}
	if t > 5 {
		t = 5
	}
	return model.Tier(t)
}
