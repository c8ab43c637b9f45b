package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/harvester/models"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Browser   BrowserConfig   `yaml:"browser"`
	Harvest   HarvestConfig   `yaml:"harvest"`
	Cache     CacheConfig     `yaml:"cache"`
	Output    OutputConfig    `yaml:"output"`
	Dump      DumpConfig      `yaml:"dump"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     `yaml:"enabled"` // default: true
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting of the HTTP API.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // default: 2
	Burst             int     `yaml:"burst"`               // default: 4
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"

	// File, when set, additionally writes logs to a rotated file.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"` // default: 100
	MaxBackups int    `yaml:"max_backups"` // default: 3
}

// FetchConfig controls how pages are retrieved.
type FetchConfig struct {
	// Mode selects the engines: "http" (default), "browser" or "auto".
	Mode string `yaml:"mode"`

	// Timeout is the per-page deadline.
	Timeout time.Duration `yaml:"timeout"` // default: 30s

	// EscalationDelays[i] is how long engine i-1 may run in auto mode before
	// the next engine is tried. Zero waits for it to fail. Engines never overlap.
	EscalationDelays []time.Duration `yaml:"escalation_delays"` // default: [0s, 3s]

	// UserAgent overrides the default browser-like user agent.
	UserAgent string `yaml:"user_agent"`

	// Headers are sent with every page request.
	Headers map[string]string `yaml:"headers"`
}

// BrowserConfig controls the Rod browser instance used in browser/auto mode.
type BrowserConfig struct {
	Headless   bool   `yaml:"headless"`    // default: true
	MaxPages   int    `yaml:"max_pages"`   // default: 2
	NoSandbox  bool   `yaml:"no_sandbox"`  // default: false
	BrowserBin string `yaml:"browser_bin"` // default: auto-download
	Proxy      string `yaml:"proxy"`
	Stealth    bool   `yaml:"stealth"` // default: false

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string `yaml:"blocked_resource_types"`
}

// HarvestConfig controls crawling behaviour.
type HarvestConfig struct {
	// Delay is the fixed pause before every network fetch.
	Delay time.Duration `yaml:"delay"` // default: 1s

	// MinDelay is the lowest delay an API caller may request.
	MinDelay time.Duration `yaml:"min_delay"` // default: 500ms

	// FailurePolicy is "skip" (default), "abort" or "retry".
	FailurePolicy string `yaml:"failure_policy"`

	MaxRetries   int           `yaml:"max_retries"`   // default: 2
	RetryBackoff time.Duration `yaml:"retry_backoff"` // default: 2s
	MaxBackoff   time.Duration `yaml:"max_backoff"`   // default: 30s

	// MaxIndexPages bounds index pagination.
	MaxIndexPages int `yaml:"max_index_pages"` // default: 1

	// Limit truncates the locator list; 0 means all.
	Limit int `yaml:"limit"`

	Locators models.LocatorRules `yaml:"locators"`
	Records  models.RecordRules  `yaml:"records"`
}

// CacheConfig controls the page cache.
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"` // default: 1000
	TTL        time.Duration `yaml:"ttl"`         // default: 0 (disabled)
}

// OutputConfig controls the tabular writer.
type OutputConfig struct {
	Format string `yaml:"format"` // "csv" (default), "json", "table", "markdown"
	Path   string `yaml:"path"`   // default: stdout
	CRLF   bool   `yaml:"crlf"`   // terminate CSV lines with \r\n
}

// DumpConfig controls the JSON API dump.
type DumpConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"` // default: 15s
	Credentials string        `yaml:"credentials"`
}

// Default locator and record rules match a Wikipedia category listing and
// the company info box of its member articles.
var (
	DefaultLocatorRules = models.LocatorRules{
		Container: "div#mw-pages",
		Group:     "div.mw-category-group",
		Entry:     "li",
		Link:      "a",
	}
	DefaultRecordRules = models.RecordRules{
		Table:       "table.infobox",
		Row:         "tr",
		Label:       "th",
		Value:       "td",
		SeedField:   "Company_name",
		ValueFormat: "text",
	}
)

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads defaults, overlays the YAML document at path, then applies
// environment overrides. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Fetch.Mode {
	case "http", "browser", "auto":
	default:
		return fmt.Errorf("config: unknown fetch mode %q", c.Fetch.Mode)
	}
	switch c.Harvest.FailurePolicy {
	case "skip", "abort", "retry":
	default:
		return fmt.Errorf("config: unknown failure policy %q", c.Harvest.FailurePolicy)
	}
	switch c.Output.Format {
	case "csv", "json", "table", "markdown":
	default:
		return fmt.Errorf("config: unknown output format %q", c.Output.Format)
	}
	if c.Harvest.Delay < 0 {
		return fmt.Errorf("config: negative harvest delay %s", c.Harvest.Delay)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "release"},
		Auth:   AuthConfig{Enabled: true},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Log: LogConfig{Level: "info", Format: "json", MaxSizeMB: 100, MaxBackups: 3},
		Fetch: FetchConfig{
			Mode:             "http",
			Timeout:          30 * time.Second,
			EscalationDelays: []time.Duration{0, 3 * time.Second},
		},
		Browser: BrowserConfig{
			Headless:             true,
			MaxPages:             2,
			BlockedResourceTypes: []string{"Image", "Stylesheet", "Font", "Media"},
		},
		Harvest: HarvestConfig{
			Delay:         time.Second,
			MinDelay:      500 * time.Millisecond,
			FailurePolicy: "skip",
			MaxRetries:    2,
			RetryBackoff:  2 * time.Second,
			MaxBackoff:    30 * time.Second,
			MaxIndexPages: 1,
			Locators:      DefaultLocatorRules,
			Records:       DefaultRecordRules,
		},
		Cache:  CacheConfig{MaxEntries: 1000},
		Output: OutputConfig{Format: "csv"},
		Dump:   DumpConfig{Timeout: 15 * time.Second},
	}
}

func applyEnv(c *Config) {
	c.Server.Host = envOr("HARVESTER_HOST", c.Server.Host)
	c.Server.Port = envIntOr("HARVESTER_PORT", c.Server.Port)
	c.Server.Mode = envOr("HARVESTER_MODE", c.Server.Mode)

	c.Auth.Enabled = envBoolOr("HARVESTER_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.APIKeys = envSliceOr("HARVESTER_API_KEYS", c.Auth.APIKeys)

	c.RateLimit.RequestsPerSecond = envFloatOr("HARVESTER_RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("HARVESTER_RATE_BURST", c.RateLimit.Burst)

	c.Log.Level = envOr("HARVESTER_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("HARVESTER_LOG_FORMAT", c.Log.Format)
	c.Log.File = envOr("HARVESTER_LOG_FILE", c.Log.File)

	c.Fetch.Mode = envOr("HARVESTER_FETCH_MODE", c.Fetch.Mode)
	c.Fetch.Timeout = envDurationOr("HARVESTER_FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.EscalationDelays = envDurationSliceOr("HARVESTER_ESCALATION_DELAYS", c.Fetch.EscalationDelays)
	c.Fetch.UserAgent = envOr("HARVESTER_USER_AGENT", c.Fetch.UserAgent)

	c.Browser.Headless = envBoolOr("HARVESTER_HEADLESS", c.Browser.Headless)
	c.Browser.MaxPages = envIntOr("HARVESTER_MAX_PAGES", c.Browser.MaxPages)
	c.Browser.NoSandbox = envBoolOr("HARVESTER_NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.BrowserBin = envOr("HARVESTER_BROWSER_BIN", c.Browser.BrowserBin)
	c.Browser.Proxy = envOr("HARVESTER_PROXY", c.Browser.Proxy)
	c.Browser.Stealth = envBoolOr("HARVESTER_STEALTH", c.Browser.Stealth)
	c.Browser.BlockedResourceTypes = envSliceOr("HARVESTER_BLOCKED_RESOURCES", c.Browser.BlockedResourceTypes)

	c.Harvest.Delay = envDurationOr("HARVESTER_DELAY", c.Harvest.Delay)
	c.Harvest.MinDelay = envDurationOr("HARVESTER_MIN_DELAY", c.Harvest.MinDelay)
	c.Harvest.FailurePolicy = envOr("HARVESTER_FAILURE_POLICY", c.Harvest.FailurePolicy)
	c.Harvest.MaxRetries = envIntOr("HARVESTER_MAX_RETRIES", c.Harvest.MaxRetries)
	c.Harvest.RetryBackoff = envDurationOr("HARVESTER_RETRY_BACKOFF", c.Harvest.RetryBackoff)
	c.Harvest.MaxBackoff = envDurationOr("HARVESTER_MAX_BACKOFF", c.Harvest.MaxBackoff)
	c.Harvest.MaxIndexPages = envIntOr("HARVESTER_MAX_INDEX_PAGES", c.Harvest.MaxIndexPages)
	c.Harvest.Limit = envIntOr("HARVESTER_LIMIT", c.Harvest.Limit)
	c.Harvest.Records.SeedField = envOr("HARVESTER_SEED_FIELD", c.Harvest.Records.SeedField)

	c.Cache.MaxEntries = envIntOr("HARVESTER_CACHE_MAX_ENTRIES", c.Cache.MaxEntries)
	c.Cache.TTL = envDurationOr("HARVESTER_CACHE_TTL", c.Cache.TTL)

	c.Output.Format = envOr("HARVESTER_OUTPUT_FORMAT", c.Output.Format)
	c.Output.Path = envOr("HARVESTER_OUTPUT_PATH", c.Output.Path)
	c.Output.CRLF = envBoolOr("HARVESTER_OUTPUT_CRLF", c.Output.CRLF)

	c.Dump.BaseURL = envOr("HARVESTER_DUMP_BASE_URL", c.Dump.BaseURL)
	c.Dump.Timeout = envDurationOr("HARVESTER_DUMP_TIMEOUT", c.Dump.Timeout)
	c.Dump.Credentials = envOr("HARVESTER_DUMP_CREDENTIALS", c.Dump.Credentials)
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
