package tier

import (
	"net/url"
	"strings"

	"github.com/faktgate/faktgate/internal/model"
)

// Classify resolves a URL to an authority tier. It is total: every
// input, including the empty string and malformed URLs, yields a tier
// in [1,5] and it never errors.
//
// Resolution order:
//  1. empty or unparsable URL -> TierNeutral
//  2. exact hostname match against the registry
//  3. progressive leftmost-label stripping (sub.bmf.gv.at matches bmf.gv.at)
//  4. wildcard suffix patterns (*.gov, *.edu)
//  5. TierUnclassified
func (r *Registry) Classify(rawURL string) model.Tier {
	host := Hostname(rawURL)
	if host == "" {
		return model.TierNeutral
	}

	// Exact match, then strip subdomain labels one at a time
	for h := host; h != ""; h = stripLabel(h) {
		if t, ok := r.domains[h]; ok {
			return t
		}
	}

	for _, w := range r.wildcards {
		if strings.HasSuffix(host, w.suffix) {
			return w.tier
		}
	}

	return model.TierUnclassified
}

// IsSelfReferential reports whether the URL's host belongs to the
// checked platform itself or to a general-purpose reference wiki.
// Such sources are excluded from confidence accumulation.
func (r *Registry) IsSelfReferential(rawURL string) bool {
	host := Hostname(rawURL)
	if host == "" {
		return false
	}
	for h := host; h != ""; h = stripLabel(h) {
		if r.selfRef[h] {
			return true
		}
	}
	return false
}

// Hostname extracts a lowercase hostname without port from a raw URL.
// Returns "" when nothing host-like can be recovered.
func Hostname(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}

	parsed, err := url.Parse(s)
	if err == nil && parsed.Hostname() != "" {
		return strings.ToLower(parsed.Hostname())
	}

	// Bare domains like "orf.at/story" parse with an empty host
	if !strings.Contains(s, "://") {
		if parsed, err := url.Parse("https://" + s); err == nil && parsed.Hostname() != "" {
			h := strings.ToLower(parsed.Hostname())
			if strings.Contains(h, ".") {
				return h
			}
		}
	}
	return ""
}

// stripLabel removes the leftmost hostname label: "a.b.c" -> "b.c".
// Returns "" once no dot remains, so bare TLDs never match.
func stripLabel(host string) string {
	idx := strings.Index(host, ".")
	if idx < 0 {
		return ""
	}
	rest := host[idx+1:]
	if !strings.Contains(rest, ".") {
		return ""
	}
	return rest
}
