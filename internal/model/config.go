package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the single immutable configuration value passed into every
// component constructor. Built once in the CLI layer; no global state.
type Config struct {
	Store        StoreConfig        `yaml:"store"`
	Brief        BriefConfig        `yaml:"brief"`
	Scope        ScopeConfig        `yaml:"scope"`
	LLM          LLMConfig          `yaml:"llm"`
	HTTP         HTTPConfig         `yaml:"http"`
	Cache        CacheConfig        `yaml:"cache"`
	Ingest       IngestConfig       `yaml:"ingest"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Output       OutputConfig       `yaml:"output"`

	// PolicyPath points at the scoring policy YAML; empty uses the
	// built-in default policy.
	PolicyPath string `yaml:"policy_path"`
}

// StoreConfig configures the durable claim store.
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite database file
}

// BriefConfig configures rendering of the daily brief.
type BriefConfig struct {
	WordBudget    int    `yaml:"word_budget"`     // hard total budget
	MaxPerTicker  int    `yaml:"max_per_ticker"`  // per-group item cap in tier 3
	LookbackDays  int    `yaml:"lookback_days"`   // drift comparison window
	OutputDir     string `yaml:"output_dir"`      // where briefing_YYYY-MM-DD.md goes
	IncludeFooter bool   `yaml:"include_footer"`
}

// ScopeConfig is the analyst-defined filter applied before tiering.
type ScopeConfig struct {
	Sector     string   `yaml:"sector"`      // "ALL" disables sector filtering
	SubSectors []string `yaml:"sub_sectors"`
	Analysts   []string `yaml:"analysts"` // whitelist, empty allows all
	Tickers    []string `yaml:"tickers"`  // whitelist, empty allows all
}

// LLMConfig configures the external classification/extraction provider.
type LLMConfig struct {
	Provider   string `yaml:"provider"` // "openai", "anthropic", "ollama", "" disables
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	Timeout    int    `yaml:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// HTTPConfig configures outbound fetching at the ingestion boundary.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty"`
	NoProxy      string        `yaml:"no_proxy,omitempty"` // comma-separated host suffixes
}

// CacheConfig configures the layered fetch cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// IngestConfig configures the source collection orchestrator.
type IngestConfig struct {
	Workers       int           `yaml:"workers"`
	SourceTimeout time.Duration `yaml:"source_timeout"` // per-source time box
	InputDir      string        `yaml:"input_dir"`      // where collected documents land
}

// RateLimitingConfig configures per-domain request pacing.
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// OutputConfig configures CLI output behavior.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".daybrief")

	return &Config{
		Store: StoreConfig{
			Path: filepath.Join(base, "claims.db"),
		},
		Brief: BriefConfig{
			WordBudget:    2500,
			MaxPerTicker:  3,
			LookbackDays:  5,
			OutputDir:     filepath.Join(base, "briefings"),
			IncludeFooter: true,
		},
		Scope: ScopeConfig{
			Sector: "TMT",
		},
		LLM: LLMConfig{
			Provider:  "", // disabled by default
			Timeout:   30,
			MaxTokens: 1000,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Daybrief/0.1 (+https://github.com/ppiankov/daybrief)",
			MaxBodyBytes: 2_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join(base, "cache"),
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Ingest: IngestConfig{
			Workers:       4,
			SourceTimeout: 3 * time.Minute,
			InputDir:      filepath.Join(base, "inbox"),
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         5,
		},
		Output: OutputConfig{
			Verbose: false,
		},
	}
}
