package gate

import (
	"regexp"
	"strings"
)

// ApplyFixes repairs every auto-fixable violation class that is
// present and returns the corrected dump with the number of
// individual fixes applied. The input dump is not modified.
//
// Repairs, in order: strip banned sources, write ASR corrections into
// cleanedClaim, convert bare-string sources to typed objects, and
// merge duplicate claims into one entry with multiple timestamps.
func (g *Gate) ApplyFixes(dump Dump, violations []Violation) (Dump, int) {
	fixed := cloneDump(dump)
	fixCount := 0

	present := make(map[string]bool)
	for _, v := range violations {
		if v.AutoFixable {
			present[v.CheckID] = true
		}
	}

	if present["M1_banned_source"] {
		fixCount += g.stripBannedSources(fixed)
	}
	if present["M2_asr_name_mismatch"] {
		fixCount += fixASRNames(fixed)
	}
	if present["S2_sources_typed"] {
		fixCount += g.typeSources(fixed)
	}
	if present["C1_duplicate_claims"] {
		fixCount += mergeDuplicates(fixed)
	}

	return fixed, fixCount
}

// stripBannedSources removes self-referential platforms from source
// lists
func (g *Gate) stripBannedSources(dump Dump) int {
	if g.registry == nil {
		return 0
	}
	fixes := 0
	for chi := range dump {
		for ci := range dump[chi].Claims {
			sources := dump[chi].Claims[ci].Verification.Sources
			kept := sources[:0]
			for _, s := range sources {
				if !g.registry.IsSelfReferential(s.hostname()) {
					kept = append(kept, s)
				}
			}
			if len(kept) < len(sources) {
				fixes++
			}
			dump[chi].Claims[ci].Verification.Sources = kept
		}
	}
	return fixes
}

// fixASRNames writes the corrected spelling into cleanedClaim for
// every claim whose explanation corrected a transcription error
func fixASRNames(dump Dump) int {
	fixes := 0
	for chi := range dump {
		for ci := range dump[chi].Claims {
			claim := &dump[chi].Claims[ci]
			wrong, right, ok := asrNameMismatch(claim.Text, claim.Verification.Explanation)
			if !ok {
				continue
			}
			pattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(wrong))
			if err != nil {
				continue
			}
			claim.CleanedText = pattern.ReplaceAllString(claim.Text, titleCase(right))
			fixes++
		}
	}
	return fixes
}

// typeSources converts bare-string sources to structured objects with
// a resolved tier
func (g *Gate) typeSources(dump Dump) int {
	fixes := 0
	for chi := range dump {
		for ci := range dump[chi].Claims {
			converted := false
			sources := dump[chi].Claims[ci].Verification.Sources
			for i := range sources {
				if !sources[i].WasString {
					continue
				}
				if g.registry != nil {
					sources[i].Tier = int(g.registry.Classify(sources[i].hostname()))
				}
				sources[i].WasString = false
				converted = true
			}
			if converted {
				fixes++
			}
		}
	}
	return fixes
}

// mergeDuplicates removes repeated claims, folding their video times
// into the first occurrence's timestamps. Matching, timestamp folding,
// and removal run as separate passes so removals never invalidate the
// indices recorded for kept claims.
func mergeDuplicates(dump Dump) int {
	type ref struct{ chi, ci int }
	type match struct{ dup, original ref }

	var seen []struct {
		text string
		at   ref
	}
	var matches []match

	for chi := range dump {
		for ci := range dump[chi].Claims {
			text := truncate(dump[chi].Claims[ci].Text, 80)

			duplicate := false
			for _, prev := range seen {
				if textSimilarity(text, prev.text) > 0.85 {
					matches = append(matches, match{ref{chi, ci}, prev.at})
					duplicate = true
					break
				}
			}
			if !duplicate {
				claim := &dump[chi].Claims[ci]
				if len(claim.Timestamps) == 0 {
					claim.Timestamps = []string{dump[chi].VideoTime}
				}
				seen = append(seen, struct {
					text string
					at   ref
				}{text, ref{chi, ci}})
			}
		}
	}

	for _, m := range matches {
		original := &dump[m.original.chi].Claims[m.original.ci]
		original.Timestamps = append(original.Timestamps, dump[m.dup.chi].VideoTime)
	}

	removeByChunk := make(map[int][]int)
	for _, m := range matches {
		removeByChunk[m.dup.chi] = append(removeByChunk[m.dup.chi], m.dup.ci)
	}
	for chi, indices := range removeByChunk {
		for i := len(indices) - 1; i >= 0; i-- {
			ci := indices[i]
			dump[chi].Claims = append(dump[chi].Claims[:ci], dump[chi].Claims[ci+1:]...)
		}
	}

	return len(matches)
}

// cloneDump deep-copies a dump so fixes never mutate the input
func cloneDump(dump Dump) Dump {
	out := make(Dump, len(dump))
	for i, ch := range dump {
		claims := make([]DumpClaim, len(ch.Claims))
		for j, cl := range ch.Claims {
			copied := cl
			copied.Timestamps = append([]string(nil), cl.Timestamps...)
			copied.Verification.Sources = append([]DumpSource(nil), cl.Verification.Sources...)
			if cl.Verification.Confidence != nil {
				conf := *cl.Verification.Confidence
				copied.Verification.Confidence = &conf
			}
			claims[j] = copied
		}
		ch.Claims = claims
		out[i] = ch
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
