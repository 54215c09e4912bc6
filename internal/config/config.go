package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all settings for the service. Keys double as flag names; the
// environment variable for a key is YOUTUBEDOC_<KEY> unless listed in envAliases.
type Config struct {
	ListenAddr string `mapstructure:"listen"`
	LogLevel   string `mapstructure:"log-level"`
	LogJSON    bool   `mapstructure:"log-json"`

	YouTubeAPIKey string `mapstructure:"youtube-api-key"`
	HTTPProxy     string `mapstructure:"http-proxy"`
	HTTPSProxy    string `mapstructure:"https-proxy"`
	FetchTimeout  time.Duration

	Language            string `mapstructure:"language"`
	MaxTranscriptLength int    `mapstructure:"max-transcript-length"`
	IncludeComments     bool   `mapstructure:"include-comments"`
	MaxDisplaySize      int    `mapstructure:"max-display-size"`

	S3Bucket string `mapstructure:"s3-bucket"`
	S3Region string `mapstructure:"s3-region"`

	RedisURL        string `mapstructure:"redis-url"`
	CacheTTL        time.Duration
	CacheMaxEntries int `mapstructure:"cache-max-entries"`

	IndexRateLimit int  `mapstructure:"index-rate-limit"`
	VideoRateLimit int  `mapstructure:"video-rate-limit"`
	TrustProxy     bool `mapstructure:"trust-proxy"`

	LLMProvider  string `mapstructure:"llm-provider"`
	LLMModel     string `mapstructure:"llm-model"`
	AnthropicKey string `mapstructure:"anthropic-api-key"`
	GoogleKey    string `mapstructure:"google-api-key"`

	InboxDir  string `mapstructure:"inbox-dir"`
	OutputDir string `mapstructure:"output-dir"`
	NtfyTopic string `mapstructure:"ntfy-topic"`
}

var defaults = map[string]any{
	"listen":                ":8000",
	"log-level":             "info",
	"log-json":              false,
	"fetch-timeout":         30 * time.Second,
	"language":              "en",
	"max-transcript-length": 10_000_000,
	"include-comments":      false,
	"max-display-size":      300_000,
	"s3-region":             "us-east-1",
	"cache-ttl":             time.Hour,
	"cache-max-entries":     500,
	"index-rate-limit":      10,
	"video-rate-limit":      5,
	"trust-proxy":           false,
	"llm-provider":          "none",
	"inbox-dir":             "/data/inbox",
	"output-dir":            "/data/output",
}

// Environment names kept compatible with existing deployments.
var envAliases = map[string][]string{
	"youtube-api-key":   {"YOUTUBE_API_KEY"},
	"http-proxy":        {"YTA_HTTP_PROXY", "HTTP_PROXY"},
	"https-proxy":       {"YTA_HTTPS_PROXY", "HTTPS_PROXY"},
	"s3-bucket":         {"AWS_S3_BUCKET"},
	"s3-region":         {"AWS_REGION"},
	"anthropic-api-key": {"ANTHROPIC_API_KEY"},
	"google-api-key":    {"GOOGLE_API_KEY"},
}

// LoadDotEnv loads variables from the given .env files. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, environment and, when flags is
// not nil, command-line flags. Flags win over environment.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("YOUTUBEDOC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key, "YOUTUBEDOC_" + envName(key)}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.FetchTimeout = v.GetDuration("fetch-timeout")
	cfg.CacheTTL = v.GetDuration("cache-ttl")
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)

	// Set default model based on provider if not specified
	if cfg.LLMModel == "" {
		switch cfg.LLMProvider {
		case "claude":
			cfg.LLMModel = "claude-3-7-sonnet-latest"
		case "gemini":
			cfg.LLMModel = "gemini-2.5-flash"
		}
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.MaxTranscriptLength < 100 {
		return fmt.Errorf("max-transcript-length must be at least 100, got %d", c.MaxTranscriptLength)
	}
	if c.IndexRateLimit <= 0 || c.VideoRateLimit <= 0 {
		return errors.New("rate limits must be positive")
	}
	switch c.LLMProvider {
	case "none", "claude", "gemini":
	default:
		return fmt.Errorf("unknown llm-provider %q", c.LLMProvider)
	}
	return nil
}

// Warnings lists settings that are valid but will degrade behavior.
func (c *Config) Warnings() []string {
	var w []string
	if c.LLMProvider == "claude" && c.AnthropicKey == "" {
		w = append(w, "ANTHROPIC_API_KEY not set, Claude summaries will fail")
	}
	if c.LLMProvider == "gemini" && c.GoogleKey == "" {
		w = append(w, "GOOGLE_API_KEY not set, Gemini summaries will fail")
	}
	if c.YouTubeAPIKey == "" {
		w = append(w, "YOUTUBE_API_KEY not set, comments are disabled and metadata uses scraping sources")
	}
	return w
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
