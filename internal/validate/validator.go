package validate

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/faktgate/faktgate/internal/model"
	"github.com/faktgate/faktgate/internal/tier"
	"github.com/faktgate/faktgate/internal/util"
	"github.com/faktgate/faktgate/internal/worker"
)

const validateMaxRetries = 3

const defaultUserAgent = "faktgate/0.1 (+https://github.com/faktgate/faktgate)"

// validateSleepFunc is the sleep function used between retries (injectable for tests)
var validateSleepFunc = time.Sleep

// Validator checks cited source URLs concurrently: accessibility,
// redirects, Last-Modified staleness, and authority tier.
type Validator struct {
	httpClient *http.Client
	maxWorkers int
	registry   *tier.Registry
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	userAgent  string
}

// NewValidator creates a validator. A nil registry disables tier
// resolution (results carry TierNeutral).
func NewValidator(registry *tier.Registry, maxWorkers int, httpCfg model.HTTPConfig) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = 20
	}

	timeout := httpCfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	userAgent := httpCfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	proxyFunc := util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy)

	return &Validator{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           proxyFunc,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: httpCfg.InsecureTLS},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxWorkers: maxWorkers,
		registry:   registry,
		robots:     util.NewRobotsChecker(userAgent, timeout),
		limiter:    worker.NewLimiter(2, 2), // per-domain politeness
		userAgent:  userAgent,
	}
}

// Validate checks all evidence URLs concurrently
func (v *Validator) Validate(ctx context.Context, evidence []model.EvidenceItem) ([]model.ValidationResult, error) {
	if len(evidence) == 0 {
		return []model.ValidationResult{}, nil
	}

	results := make([]model.ValidationResult, len(evidence))
	var wg sync.WaitGroup

	// Semaphore limits concurrent requests
	semaphore := make(chan struct{}, v.maxWorkers)

	for i, ev := range evidence {
		wg.Add(1)
		go func(idx int, e model.EvidenceItem) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = model.ValidationResult{
					URL:          e.URL,
					IsAccessible: false,
					Tier:         v.classify(e.URL),
					Error:        "context cancelled",
				}
				return
			case semaphore <- struct{}{}:
			}

			defer func() { <-semaphore }()

			results[idx] = v.validateSingleWithRetry(ctx, e)
		}(i, ev)
	}

	wg.Wait()

	return results, nil
}

func (v *Validator) classify(rawURL string) model.Tier {
	if v.registry == nil {
		return model.TierNeutral
	}
	return v.registry.Classify(rawURL)
}

// validateSingle checks a single evidence URL
func (v *Validator) validateSingle(ctx context.Context, evidence model.EvidenceItem) model.ValidationResult {
	result := model.ValidationResult{
		URL:          evidence.URL,
		IsAccessible: false,
		Tier:         v.classify(evidence.URL),
	}

	// Respect robots.txt before touching the site
	var crawlDelay time.Duration
	if v.robots != nil {
		allowed, delay, err := v.robots.CanFetch(ctx, evidence.URL)
		if err == nil && !allowed {
			result.Error = "disallowed by robots.txt"
			return result
		}
		crawlDelay = delay
	}

	// Pace requests per domain, honoring any crawl-delay directive
	if v.limiter != nil {
		if err := v.limiter.WaitWithDelay(ctx, evidence.URL, crawlDelay); err != nil {
			result.Error = fmt.Sprintf("rate limit wait: %v", err)
			return result
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, evidence.URL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		result.IsDead = true
		return result
	}

	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.IsDead = true
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.IsAccessible = true
	} else if resp.StatusCode == 404 || resp.StatusCode == 410 {
		result.IsDead = true
	}

	if resp.Request.URL.String() != evidence.URL {
		result.RedirectURL = resp.Request.URL.String()
	}

	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if t, err := time.Parse(time.RFC1123, lastModified); err == nil {
			result.LastModified = &t

			ageDays := int(time.Since(t).Hours() / 24)
			result.AgeDays = &ageDays

			if ageDays > 365 {
				result.IsStale = true
			}
		}
	}

	return result
}

// validateSingleWithRetry retries transient failures with exponential backoff
func (v *Validator) validateSingleWithRetry(ctx context.Context, evidence model.EvidenceItem) model.ValidationResult {
	var result model.ValidationResult
	for attempt := 0; attempt < validateMaxRetries; attempt++ {
		result = v.validateSingle(ctx, evidence)
		if !isRetryableValidationResult(result) {
			return result
		}
		if attempt < validateMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			validateSleepFunc(backoff)
		}
	}
	return result
}

// isRetryableValidationResult returns true for results that indicate transient failures
func isRetryableValidationResult(result model.ValidationResult) bool {
	// Retry on 5xx server errors
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	// Retry on 429 rate limit
	if result.StatusCode == 429 {
		return true
	}
	// Retry on network errors (timeout, connection refused)
	if result.Error != "" {
		if isRetryableNetworkError(result.Error) {
			return true
		}
	}
	return false
}

// isRetryableNetworkError checks error strings for transient network failures
func isRetryableNetworkError(errMsg string) bool {
	s := strings.ToLower(errMsg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
