package transcript

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FromReader builds an untimed transcript from plain text. Paragraphs
// become segments so the chunker still gets natural break points.
func FromReader(r io.Reader, title string) (*Transcript, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	var segments []Segment
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		segments = append(segments, Segment{Text: para})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("transcript is empty")
	}

	return &Transcript{Title: title, Segments: segments}, nil
}

// FromFile reads a plain-text transcript from disk
func FromFile(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return FromReader(f, name)
}
