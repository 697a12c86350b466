package model

// Label is the internal verdict vocabulary produced by normalization
type Label string

const (
	LabelTrue          Label = "true"
	LabelMostlyTrue    Label = "mostly_true"
	LabelPartiallyTrue Label = "partially_true"
	LabelMostlyFalse   Label = "mostly_false"
	LabelFalse         Label = "false"
	LabelDeceptive     Label = "deceptive"
	LabelUnverifiable  Label = "unverifiable"
	LabelOpinion       Label = "opinion"
	LabelMisleading    Label = "misleading"
)

// InternalLabels lists every value of the internal vocabulary
var InternalLabels = []Label{
	LabelTrue, LabelMostlyTrue, LabelPartiallyTrue, LabelMostlyFalse,
	LabelFalse, LabelDeceptive, LabelUnverifiable, LabelOpinion,
	LabelMisleading,
}

// Known reports whether l is part of the internal vocabulary
func (l Label) Known() bool {
	for _, k := range InternalLabels {
		if l == k {
			return true
		}
	}
	return false
}

// DisplayLabel is the collapsed UI-facing vocabulary
type DisplayLabel string

const (
	DisplayTrue           DisplayLabel = "true"
	DisplayFalse          DisplayLabel = "false"
	DisplayPartiallyTrue  DisplayLabel = "partially_true"
	DisplayDeceptive      DisplayLabel = "deceptive"
	DisplayUnverifiable   DisplayLabel = "unverifiable"
	DisplayOpinion        DisplayLabel = "opinion"
	DisplayMissingContext DisplayLabel = "missing_context" // Reserved, kept for forward compatibility
)

// Verdict is the final, displayable judgment for a claim
type Verdict struct {
	Verdict        Label          `json:"verdict"`
	DisplayVerdict DisplayLabel   `json:"displayVerdict"`
	Confidence     float64        `json:"confidence"` // Always within [0,1]
	Explanation    string         `json:"explanation"`
	Sources        []EvidenceItem `json:"sources,omitempty"` // Tier-annotated, capped
	IsCausal       bool           `json:"isCausal"`
	MathOutlier    bool           `json:"mathOutlier,omitempty"` // Set when the numeric guardrail fired
}
