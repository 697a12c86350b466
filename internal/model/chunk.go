package model

import "time"

// Chunk is one processed slice of a transcript with its verified claims.
// A run produces a JSON array of chunks; that array is the audit dump
// consumed by the quality gate and by export tooling. Unknown fields in
// a dump are ignored and missing optional fields are defaulted, so the
// shape stays forward-compatible.
type Chunk struct {
	Index     int            `json:"index"`
	VideoTime string         `json:"videoTime,omitempty"` // "mm:ss" position of the chunk start
	FullText  string         `json:"fullText"`
	Claims    []CheckedClaim `json:"claims"`
}

// CheckedClaim pairs an extracted claim with its normalized verdict
type CheckedClaim struct {
	Claim
	Verification Verdict `json:"verification"`
}

// RunReport is the top-level result of checking one transcript
type RunReport struct {
	Subject    string             `json:"subject"`              // Video title or source identifier
	SourceURL  string             `json:"source_url,omitempty"` // Video URL when checked from YouTube
	CheckedAt  time.Time          `json:"checked_at"`
	Language   string             `json:"language,omitempty"` // Detected transcript language ("de", "en")
	Chunks     []Chunk            `json:"chunks"`
	Validation []ValidationResult `json:"validation,omitempty"` // Optional link-accessibility results
}

// TotalClaims counts claims across all chunks
func (r *RunReport) TotalClaims() int {
	n := 0
	for _, c := range r.Chunks {
		n += len(c.Claims)
	}
	return n
}
