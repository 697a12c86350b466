package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Segment is one caption line with its start offset
type Segment struct {
	Start time.Duration
	Text  string
}

// Transcript is the text of one video, timed when the source provides
// timing. Plain-text input (files, stdin) produces a single untimed
// segment per paragraph.
type Transcript struct {
	Title     string
	SourceURL string
	Language  string // BCP-47 code of the caption track, "" when unknown
	Segments  []Segment
}

// FullText joins all segments into one string
func (t *Transcript) FullText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

// FormatOffset renders a segment offset as mm:ss, or h:mm:ss past one hour
func FormatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
