package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/verdict"
)

// claimsEnvelope is the wire shape requested by the extraction prompt
type claimsEnvelope struct {
	Claims []claimWire `json:"claims"`
}

type claimWire struct {
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	SearchQueries []string `json:"searchQueries"`
	Anchors       []string `json:"anchors"`
	Checkability  int      `json:"checkability"`
	Importance    int      `json:"importance"`
}

// parseClaims recovers the claim list from raw extraction output.
// Tolerates fences, preamble prose, truncation, and a bare top-level
// array instead of the envelope. An empty result with no error means
// the chunk genuinely contained nothing checkable.
func parseClaims(raw string) ([]model.Claim, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	candidate, ok := verdict.ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON in extraction response")
	}

	var env claimsEnvelope
	if err := json.Unmarshal([]byte(candidate), &env); err != nil || env.Claims == nil {
		var bare []claimWire
		if err2 := json.Unmarshal([]byte(candidate), &bare); err2 != nil {
			return nil, fmt.Errorf("decode extraction response: %w", err)
		}
		env.Claims = bare
	}

	var out []model.Claim
	for _, w := range env.Claims {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		c := model.Claim{
			Text:         text,
			Type:         coerceClaimType(w.Type),
			Anchors:      w.Anchors,
			Checkability: clampScore(w.Checkability),
			Importance:   clampScore(w.Importance),
		}
		if len(w.SearchQueries) > model.MaxSearchQueries {
			w.SearchQueries = w.SearchQueries[:model.MaxSearchQueries]
		}
		c.SearchQueries = w.SearchQueries
		out = append(out, c)
	}
	return out, nil
}

func coerceClaimType(s string) model.ClaimType {
	switch model.ClaimType(strings.ToLower(strings.TrimSpace(s))) {
	case model.ClaimCausal:
		return model.ClaimCausal
	case model.ClaimOpinion:
		return model.ClaimOpinion
	case model.ClaimProcedural:
		return model.ClaimProcedural
	default:
		return model.ClaimFactual
	}
}

func clampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}
