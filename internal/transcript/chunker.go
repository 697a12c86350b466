package transcript

import (
	"strings"

	"github.com/faktgate/faktgate/internal/model"
)

// DefaultChunkSize is the target characters per chunk. Large enough
// that claims keep their surrounding context for pronoun resolution,
// small enough to stay well inside any model's input window.
const DefaultChunkSize = 2500

// Chunks slices the transcript into model.Chunk values of roughly
// size characters. Cuts happen at segment boundaries, and a timed
// transcript stamps each chunk with the offset of its first segment.
// A single oversized segment is split at sentence boundaries rather
// than dropped.
func Chunks(t *Transcript, size int) []model.Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var out []model.Chunk
	var buf strings.Builder
	var start Segment
	timed := isTimed(t)

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text == "" {
			return
		}
		c := model.Chunk{Index: len(out), FullText: text}
		if timed {
			c.VideoTime = FormatOffset(start.Start)
		}
		out = append(out, c)
		buf.Reset()
	}

	for _, seg := range t.Segments {
		pieces := []string{seg.Text}
		if len(seg.Text) > size {
			pieces = splitSentences(seg.Text, size)
		}
		for _, piece := range pieces {
			if buf.Len() == 0 {
				start = seg
			} else if buf.Len()+len(piece)+1 > size {
				flush()
				start = seg
			}
			if buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(piece)
		}
	}
	flush()

	return out
}

// splitSentences breaks text into pieces no longer than size,
// preferring sentence ends and falling back to word boundaries for
// run-on text without punctuation.
func splitSentences(text string, size int) []string {
	var out []string
	var buf strings.Builder

	for _, sentence := range sentences(text) {
		if buf.Len() > 0 && buf.Len()+len(sentence)+1 > size {
			out = append(out, strings.TrimSpace(buf.String()))
			buf.Reset()
		}
		if len(sentence) > size {
			// No usable sentence ends: cut at word boundaries
			for _, w := range splitWords(sentence, size) {
				if buf.Len() > 0 && buf.Len()+len(w)+1 > size {
					out = append(out, strings.TrimSpace(buf.String()))
					buf.Reset()
				}
				if buf.Len() > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(w)
			}
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(sentence)
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// sentences splits on sentence-ending punctuation followed by a space
func sentences(text string) []string {
	var out []string
	last := 0
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && text[i+1] == ' ' {
			out = append(out, strings.TrimSpace(text[last:i+1]))
			last = i + 2
		}
	}
	if last < len(text) {
		if s := strings.TrimSpace(text[last:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitWords(text string, size int) []string {
	words := strings.Fields(text)
	var out []string
	var buf strings.Builder
	for _, w := range words {
		if buf.Len() > 0 && buf.Len()+len(w)+1 > size {
			out = append(out, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(w)
	}
	if buf.Len() > 0 {
		out = append(out, buf.String())
	}
	return out
}

func isTimed(t *Transcript) bool {
	for _, s := range t.Segments {
		if s.Start > 0 {
			return true
		}
	}
	return false
}
