package worker

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/faktgate/faktgate/internal/model"
)

// Limiter implements per-domain rate limiting
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait waits for rate limit clearance for the given URL
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain, err := extractDomain(rawURL)
	if err != nil {
		return err
	}

	limiter := l.getLimiter(domain)
	return limiter.Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(rawURL string) bool {
	domain, err := extractDomain(rawURL)
	if err != nil {
		return false
	}

	limiter := l.getLimiter(domain)
	return limiter.Allow()
}

// getLimiter returns the rate limiter for a domain
func (l *Limiter) getLimiter(domain string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[domain]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[domain]; exists {
		return limiter
	}

	// Create new limiter for this domain
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[domain] = limiter

	return limiter
}

// SetDomainRate sets a custom rate limit for a specific domain
func (l *Limiter) SetDomainRate(domain string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[domain] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// extractDomain extracts the domain from a URL
func extractDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}

// WaitWithDelay waits for rate limit and adds an additional delay
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, additionalDelay time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}

	if additionalDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(additionalDelay):
		}
	}

	return nil
}

// ErrBudgetExhausted is returned when the rolling-window call budget
// has been spent. Unlike a rate limit it cannot be waited out within
// the current window, so callers should stop issuing calls.
var ErrBudgetExhausted = errors.New("call budget exhausted")

// CallLimiter bounds model API usage with a token bucket plus a hard
// rolling-window call budget. The bucket smooths the request rate; the
// budget caps total calls regardless of pacing.
type CallLimiter struct {
	limiter *rate.Limiter

	mu     sync.Mutex
	window time.Duration
	budget int
	calls  []time.Time

	now func() time.Time
}

// NewCallLimiter builds a CallLimiter from config. A zero or negative
// WindowBudget disables the budget; zero RequestsPerMinute disables
// the token bucket.
func NewCallLimiter(cfg model.LimiterConfig) *CallLimiter {
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), burst)
	}

	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return &CallLimiter{
		limiter: limiter,
		window:  window,
		budget:  cfg.WindowBudget,
		now:     time.Now,
	}
}

// Wait blocks until a call slot is available or returns
// ErrBudgetExhausted when the window budget is spent.
func (c *CallLimiter) Wait(ctx context.Context) error {
	if err := c.reserve(); err != nil {
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.release()
			return err
		}
	}

	return nil
}

// Allow reports whether a call may proceed right now without waiting
func (c *CallLimiter) Allow() bool {
	if err := c.reserve(); err != nil {
		return false
	}

	if c.limiter != nil && !c.limiter.Allow() {
		c.release()
		return false
	}

	return true
}

// Remaining returns how many budget slots are left in the current
// window, or -1 when no budget is configured.
func (c *CallLimiter) Remaining() int {
	if c.budget <= 0 {
		return -1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()
	return c.budget - len(c.calls)
}

// reserve records a call against the window budget
func (c *CallLimiter) reserve() error {
	if c.budget <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune()
	if len(c.calls) >= c.budget {
		return ErrBudgetExhausted
	}

	c.calls = append(c.calls, c.now())
	return nil
}

// release gives back the most recent reservation after a failed wait
func (c *CallLimiter) release() {
	if c.budget <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.calls) > 0 {
		c.calls = c.calls[:len(c.calls)-1]
	}
}

// prune drops calls that have aged out of the window (caller holds mu)
func (c *CallLimiter) prune() {
	cutoff := c.now().Add(-c.window)
	i := 0
	for i < len(c.calls) && c.calls[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		c.calls = c.calls[i:]
	}
}
