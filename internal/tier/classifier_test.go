package tier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/faktgate/faktgate/internal/model"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestClassify_ExactMatch(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		url  string
		want model.Tier
	}{
		{"https://parlament.gv.at/gesetze", model.TierOfficial},
		{"https://imf.org/report.pdf", model.TierOfficial},
		{"https://derstandard.at/story/123", model.TierQualityMedia},
		{"https://reuters.com/world/europe", model.TierQualityMedia},
		{"https://youtube.com/watch?v=abc", model.TierFlagged},
	}

	for _, tt := range tests {
		if got := r.Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestClassify_SubdomainStripping(t *testing.T) {
	r := newTestRegistry(t)

	// sub.domain matches via progressive label stripping
	if got := r.Classify("https://data.statistik.at/web/catalog"); got != model.TierOfficial {
		t.Errorf("expected official tier for data.statistik.at, got %v", got)
	}
	if got := r.Classify("https://www.spiegel.de/politik"); got != model.TierQualityMedia {
		t.Errorf("expected quality-media tier for www.spiegel.de, got %v", got)
	}
	if got := r.Classify("https://m.youtube.com/watch?v=abc"); got != model.TierFlagged {
		t.Errorf("expected flagged tier for m.youtube.com, got %v", got)
	}
}

func TestClassify_WildcardSuffix(t *testing.T) {
	r := newTestRegistry(t)

	if got := r.Classify("https://www.census.gov/data"); got != model.TierOfficial {
		t.Errorf("expected official tier for *.gov, got %v", got)
	}
	if got := r.Classify("https://cs.stanford.edu/paper"); got != model.TierOfficial {
		t.Errorf("expected official tier for *.edu, got %v", got)
	}
	if got := r.Classify("https://www.ox.ac.uk/study"); got != model.TierOfficial {
		t.Errorf("expected official tier for *.ac.uk, got %v", got)
	}
}

func TestClassify_TotalAndNeverPanics(t *testing.T) {
	r := newTestRegistry(t)

	inputs := []string{
		"", "   ", "not a url at all", "://broken", "%%%",
		"https://", "ftp://weird.example/x", "just-a-word",
	}
	for _, in := range inputs {
		got := r.Classify(in)
		if got < 1 || got > 5 {
			t.Errorf("Classify(%q) = %v, outside [1,5]", in, got)
		}
	}

	// Unparsable inputs default to the neutral tier
	if got := r.Classify(""); got != model.TierNeutral {
		t.Errorf("Classify(\"\") = %v, want neutral", got)
	}
	if got := r.Classify("%%%"); got != model.TierNeutral {
		t.Errorf("Classify(%%%%%%) = %v, want neutral", got)
	}
}

func TestClassify_UnmatchedDefaultsToUnclassified(t *testing.T) {
	r := newTestRegistry(t)

	if got := r.Classify("https://random-blog.example.com/post"); got != model.TierUnclassified {
		t.Errorf("expected unclassified tier, got %v", got)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	r := newTestRegistry(t)

	url := "https://www.oecd.org/economy"
	first := r.Classify(url)
	for i := 0; i < 5; i++ {
		if got := r.Classify(url); got != first {
			t.Fatalf("Classify not idempotent: %v then %v", first, got)
		}
	}
}

func TestIsSelfReferential(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtu.be/abc", true},
		{"https://de.wikipedia.org/wiki/Inflation", true},
		{"https://x.com/user/status/1", true},
		{"https://reuters.com/article", false},
		{"https://parlament.gv.at", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := r.IsSelfReferential(tt.url); got != tt.want {
			t.Errorf("IsSelfReferential(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestRegistry_ConfigOverrides(t *testing.T) {
	cfg := &model.SourcesConfig{
		DomainMap:     map[string]int{"myblog.example": 2},
		ExtraBanned:   []string{"contentfarm.example"},
		ExtraWildcard: map[string]int{"*.int": 1},
	}
	r, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if got := r.Classify("https://myblog.example/post"); got != model.TierQualityMedia {
		t.Errorf("domain map override: got %v, want quality-media", got)
	}
	if got := r.Classify("https://contentfarm.example/x"); got != model.TierFlagged {
		t.Errorf("extra banned: got %v, want flagged", got)
	}
	if !r.IsSelfReferential("https://contentfarm.example/x") {
		t.Error("extra banned domain should be self-referential")
	}
	if got := r.Classify("https://www.who.int/news"); got != model.TierOfficial {
		t.Errorf("extra wildcard: got %v, want official", got)
	}
}

func TestRegistry_SourcesFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "sources.json",
			content: `{"tier_1": {"ages.at": {"country": "AT", "type": "agency"}}, "tier_2": ["profil.at"], "banned": ["clickbait.example"]}`,
		},
		{
			name: "yaml",
			file: "sources.yaml",
			content: "tier_1:\n  ages.at:\n    country: AT\n    type: agency\ntier_2:\n  - profil.at\nbanned:\n  - clickbait.example\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}

			r, err := NewRegistry(&model.SourcesConfig{File: path})
			if err != nil {
				t.Fatalf("NewRegistry: %v", err)
			}

			if got := r.Classify("https://ages.at/corona"); got != model.TierOfficial {
				t.Errorf("tier_1 mapping entry: got %v, want official", got)
			}
			if got := r.Classify("https://profil.at/politik"); got != model.TierQualityMedia {
				t.Errorf("tier_2 list entry: got %v, want quality-media", got)
			}
			if got := r.Classify("https://clickbait.example/x"); got != model.TierFlagged {
				t.Errorf("banned entry: got %v, want flagged", got)
			}
			if !r.IsSelfReferential("https://clickbait.example/x") {
				t.Error("banned domain should be self-referential")
			}
		})
	}
}

func TestRegistry_SourcesFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte("tier_1: [unclosed"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := NewRegistry(&model.SourcesConfig{File: path}); err == nil {
		t.Error("expected parse error for malformed sources file")
	}
}
