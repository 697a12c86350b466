package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete runtime configuration.
// Hierarchy: CLI flags > FAKTGATE_* env vars > config file > defaults.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" json:"http"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Limiter     LimiterConfig     `yaml:"limiter" json:"limiter"`
	Sources     SourcesConfig     `yaml:"sources" json:"sources"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// HTTPConfig controls outbound HTTP behavior (transcript fetch, link validation)
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" json:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" json:"http_proxy,omitempty"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" json:"https_proxy,omitempty"`
	NoProxy      string        `yaml:"no_proxy,omitempty" json:"no_proxy,omitempty"`
}

// LLMConfig selects and configures the model provider
type LLMConfig struct {
	Provider  string `yaml:"provider" json:"provider"` // gemini, openai, anthropic, ollama
	Model     string `yaml:"model" json:"model"`
	APIKey    string `yaml:"-" json:"-"` // Only from env, never serialized
	BaseURL   string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout" json:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
	Grounding bool   `yaml:"grounding" json:"grounding"` // Enable web-search grounding where supported
}

// CacheConfig controls the verdict cache keyed by normalized-claim hash
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir" json:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" json:"disk_ttl"`
}

// LimiterConfig bounds LLM API usage
type LimiterConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int     `yaml:"burst" json:"burst"`
	WindowBudget      int     `yaml:"window_budget" json:"window_budget"` // Max calls per window
	Window            time.Duration `yaml:"window" json:"window"`
}

// SourcesConfig points at the source-tier registry
type SourcesConfig struct {
	File          string            `yaml:"file,omitempty" json:"file,omitempty"` // Optional sources.json override
	DomainMap     map[string]int    `yaml:"domain_map,omitempty" json:"domain_map,omitempty"`
	ExtraBanned   []string          `yaml:"extra_banned,omitempty" json:"extra_banned,omitempty"`
	ExtraWildcard map[string]int    `yaml:"extra_wildcard,omitempty" json:"extra_wildcard,omitempty"`
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	BatchWorkers      int `yaml:"batch_workers" json:"batch_workers"`
	ValidationWorkers int `yaml:"validation_workers" json:"validation_workers"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose" json:"verbose"`
	JSONPath  string `yaml:"json_path,omitempty" json:"json_path,omitempty"`
	ChunkSize int    `yaml:"chunk_size" json:"chunk_size"` // Transcript characters per chunk
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Faktgate/0.1 (+https://github.com/faktgate/faktgate)",
			MaxBodyBytes: 2_000_000,
		},
		LLM: LLMConfig{
			Provider:  "gemini",
			Timeout:   60,
			MaxTokens: 2000,
			Grounding: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Limiter: LimiterConfig{
			RequestsPerMinute: 10,
			Burst:             2,
			WindowBudget:      60,
			Window:            time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers:      2,
			ValidationWorkers: 20,
		},
		Output: OutputConfig{
			ChunkSize: 2500,
		},
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".faktgate-cache"
	}
	return filepath.Join(home, ".faktgate", "cache")
}
