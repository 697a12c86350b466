package model

// Claim represents an atomic factual assertion extracted from transcript text
type Claim struct {
	Text          string    `json:"text"`                    // Hydrated (pronoun-resolved) claim sentence
	Type          ClaimType `json:"type"`                    // Controls the verification path
	SearchQueries []string  `json:"searchQueries,omitempty"` // Short keyword hints for evidence search (max 3)
	Anchors       []string  `json:"anchors,omitempty"`       // Named entities backing the claim
	Checkability  int       `json:"checkability,omitempty"`  // Heuristic score 1-5
	Importance    int       `json:"importance,omitempty"`    // Heuristic score 1-5
}

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimFactual    ClaimType = "factual"    // Verifiable statement of fact
	ClaimCausal     ClaimType = "causal"     // "X happened because of Y"
	ClaimOpinion    ClaimType = "opinion"    // Value judgment, not checkable
	ClaimProcedural ClaimType = "procedural" // Description of a process or plan
)

// IsCausal reports whether the claim asserts a cause-effect relationship.
// Causal claims get a confidence ceiling and the timeline check.
func (c Claim) IsCausal() bool {
	return c.Type == ClaimCausal
}

// MaxSearchQueries caps the keyword hints carried per claim
const MaxSearchQueries = 3
