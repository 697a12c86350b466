package transcript

import (
	"strings"
	"testing"
	"time"
)

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{59 * time.Second, "00:59"},
		{90 * time.Second, "01:30"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour + 5*time.Second, "1:00:05"},
		{-time.Second, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatOffset(tt.d); got != tt.want {
			t.Errorf("FormatOffset(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestChunks_TimedSegments(t *testing.T) {
	tr := &Transcript{Segments: []Segment{
		{Start: 0, Text: strings.Repeat("a", 40)},
		{Start: 10 * time.Second, Text: strings.Repeat("b", 40)},
		{Start: 95 * time.Second, Text: strings.Repeat("c", 40)},
		{Start: 120 * time.Second, Text: strings.Repeat("d", 40)},
	}}

	chunks := Chunks(tr, 100)
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if chunks[0].VideoTime != "00:00" {
		t.Errorf("chunks[0].VideoTime = %q", chunks[0].VideoTime)
	}
	if chunks[1].VideoTime != "01:35" {
		t.Errorf("chunks[1].VideoTime = %q", chunks[1].VideoTime)
	}
	if chunks[0].Index != 0 || chunks[1].Index != 1 {
		t.Errorf("indices = %d, %d", chunks[0].Index, chunks[1].Index)
	}
}

func TestChunks_UntimedHasNoVideoTime(t *testing.T) {
	tr := &Transcript{Segments: []Segment{{Text: "plain text transcript"}}}
	chunks := Chunks(tr, 100)
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d", len(chunks))
	}
	if chunks[0].VideoTime != "" {
		t.Errorf("VideoTime = %q, want empty", chunks[0].VideoTime)
	}
}

func TestChunks_OversizedSegmentSplitsAtSentences(t *testing.T) {
	long := strings.Repeat("This is a sentence. ", 30) // ~600 chars
	tr := &Transcript{Segments: []Segment{{Text: strings.TrimSpace(long)}}}

	chunks := Chunks(tr, 200)
	if len(chunks) < 3 {
		t.Fatalf("len(chunks) = %d, want >= 3", len(chunks))
	}
	for i, c := range chunks {
		if len(c.FullText) > 200 {
			t.Errorf("chunk %d length = %d, want <= 200", i, len(c.FullText))
		}
		if !strings.HasSuffix(c.FullText, ".") {
			t.Errorf("chunk %d does not end at a sentence: %q", i, c.FullText)
		}
	}
}

func TestChunks_RunOnTextSplitsAtWords(t *testing.T) {
	long := strings.Repeat("wordwithoutpunctuation ", 50)
	tr := &Transcript{Segments: []Segment{{Text: strings.TrimSpace(long)}}}

	chunks := Chunks(tr, 100)
	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want >= 2", len(chunks))
	}
	for i, c := range chunks {
		if len(c.FullText) > 100 {
			t.Errorf("chunk %d length = %d", i, len(c.FullText))
		}
	}
}

func TestChunks_Empty(t *testing.T) {
	if got := Chunks(&Transcript{}, 100); len(got) != 0 {
		t.Errorf("Chunks(empty) = %+v", got)
	}
}

func TestFromReader(t *testing.T) {
	input := "First paragraph\nwith a wrapped line.\n\nSecond paragraph.\n\n\n"
	tr, err := FromReader(strings.NewReader(input), "notes")
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	if tr.Title != "notes" {
		t.Errorf("title = %q", tr.Title)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("segments = %+v", tr.Segments)
	}
	if tr.Segments[0].Text != "First paragraph with a wrapped line." {
		t.Errorf("segments[0] = %q", tr.Segments[0].Text)
	}
}

func TestFromReader_Empty(t *testing.T) {
	if _, err := FromReader(strings.NewReader("  \n\n "), "x"); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestFullText(t *testing.T) {
	tr := &Transcript{Segments: []Segment{{Text: "a"}, {Text: ""}, {Text: "b"}}}
	if got := tr.FullText(); got != "a b" {
		t.Errorf("FullText() = %q", got)
	}
}
