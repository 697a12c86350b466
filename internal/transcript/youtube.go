package transcript

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/util"
)

// Fetcher retrieves YouTube caption tracks by scraping the watch page
// for ytInitialPlayerResponse and downloading the selected track in
// json3 format. No API key needed; works for any video with captions.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	baseURL    string // overridden in tests
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(cfg model.HTTPConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes < 6*1024*1024 {
		maxBytes = 6 * 1024 * 1024 // Watch pages run to several MB
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
				TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureTLS},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		baseURL:   "https://www.youtube.com",
	}
}

// Watch page player response structures (only the fields we read)
type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	VideoDetails struct {
		Title string `json:"title"`
	} `json:"videoDetails"`
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" for auto-generated
}

// json3 caption format structures
type json3Body struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	StartMs int64      `json:"tStartMs"`
	Segs    []json3Seg `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/(?:shorts|embed|live)/([A-Za-z0-9_-]{11})`),
}

var bareVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// VideoID extracts the 11-character video ID from a YouTube URL or
// accepts a bare ID as-is.
func VideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if bareVideoID.MatchString(raw) {
		return raw, nil
	}
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("no video ID in %q", raw)
}

const playerResponseMarker = "ytInitialPlayerResponse = "

// FetchYouTube downloads the transcript of one video. langs orders
// caption-language preference; manual tracks beat auto-generated ones
// within the same language.
func (f *Fetcher) FetchYouTube(ctx context.Context, rawURL string, langs []string) (*Transcript, error) {
	videoID, err := VideoID(rawURL)
	if err != nil {
		return nil, err
	}
	watchURL := f.baseURL + "/watch?v=" + videoID

	body, err := f.get(ctx, watchURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	idx := strings.Index(string(body), playerResponseMarker)
	if idx < 0 {
		return nil, fmt.Errorf("player response not found in watch page for %s", videoID)
	}
	jsonData := firstJSONObject(body[idx+len(playerResponseMarker):])
	if jsonData == nil {
		return nil, fmt.Errorf("malformed player response for %s", videoID)
	}

	var pr playerResponse
	if err := json.Unmarshal(jsonData, &pr); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	if pr.Captions == nil {
		if pr.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable for %s: %s", videoID, pr.PlayabilityStatus.Reason)
		}
		return nil, fmt.Errorf("no captions for %s", videoID)
	}
	tracks := pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no caption tracks for %s", videoID)
	}

	track := pickTrack(tracks, langs)
	segments, err := f.fetchTrack(ctx, track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("caption track %s: %w", track.LanguageCode, err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("empty caption track for %s", videoID)
	}

	return &Transcript{
		Title:     pr.VideoDetails.Title,
		SourceURL: "https://www.youtube.com/watch?v=" + videoID,
		Language:  baseLang(track.LanguageCode),
		Segments:  segments,
	}, nil
}

// pickTrack selects the caption track: manual track in preferred
// language, then any track in preferred language, then English, then
// whatever is first.
func pickTrack(tracks []captionTrack, langs []string) captionTrack {
	for _, lang := range langs {
		for _, t := range tracks {
			if baseLang(t.LanguageCode) == lang && t.Kind != "asr" {
				return t
			}
		}
	}
	for _, lang := range langs {
		for _, t := range tracks {
			if baseLang(t.LanguageCode) == lang {
				return t
			}
		}
	}
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t
		}
	}
	return tracks[0]
}

// baseLang strips a region subtag ("de-AT" -> "de")
func baseLang(code string) string {
	if i := strings.IndexByte(code, '-'); i > 0 {
		return code[:i]
	}
	return code
}

// fetchTrack downloads one caption track in json3 format
func (f *Fetcher) fetchTrack(ctx context.Context, baseURL string) ([]Segment, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse track URL: %w", err)
	}
	q := u.Query()
	q.Set("fmt", "json3")
	u.RawQuery = q.Encode()

	body, err := f.get(ctx, u.String(), "application/json")
	if err != nil {
		return nil, err
	}

	var track json3Body
	if err := json.Unmarshal(body, &track); err != nil {
		return nil, fmt.Errorf("decode json3 captions: %w", err)
	}

	var segments []Segment
	for _, ev := range track.Events {
		var b strings.Builder
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
		}
		text := strings.Join(strings.Fields(b.String()), " ")
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start: time.Duration(ev.StartMs) * time.Millisecond,
			Text:  text,
		})
	}
	return segments, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "de-AT,de;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// firstJSONObject extracts the first balanced JSON object from b,
// respecting string and escape state. Returns nil when b holds no
// complete object.
func firstJSONObject(b []byte) []byte {
	start := -1
	for i, c := range b {
		if c == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(b); i++ {
		c := b[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return b[start : i+1]
			}
		}
	}
	return nil
}
