// ABOUTME: Configuration loading and parsing for answer-gateway.
// ABOUTME: YAML or TOML by extension, with environment expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete answer-gateway configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server" toml:"server"`
	Database     DatabaseConfig     `yaml:"database" toml:"database"`
	Auth         AuthConfig         `yaml:"auth" toml:"auth"`
	Answer       AnswerConfig       `yaml:"answer" toml:"answer"`
	Coordination CoordinationConfig `yaml:"coordination" toml:"coordination"`
	RateLimit    RateLimitConfig    `yaml:"ratelimit" toml:"ratelimit"`
	Policy       PolicyConfig       `yaml:"policy" toml:"policy"`
	PII          PIIConfig          `yaml:"pii" toml:"pii"`
	Webchat      WebchatConfig      `yaml:"webchat" toml:"webchat"`
	Logging      LoggingConfig      `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the HTTP listener address.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// DatabaseConfig holds the audit ledger location.
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds sender token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// AnswerConfig points at the answer-generation engine.
type AnswerConfig struct {
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
}

// CoordinationConfig holds the TTLs for dedup, locks, and thread state.
type CoordinationConfig struct {
	DedupTTL       time.Duration `yaml:"-" toml:"-"`
	LockTTL        time.Duration `yaml:"-" toml:"-"`
	ThreadStateTTL time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	DedupTTLRaw       string `yaml:"dedup_ttl" toml:"dedup_ttl"`
	LockTTLRaw        string `yaml:"lock_ttl" toml:"lock_ttl"`
	ThreadStateTTLRaw string `yaml:"thread_state_ttl" toml:"thread_state_ttl"`
}

// RateLimitConfig shapes the per-user token buckets.
type RateLimitConfig struct {
	Capacity   int     `yaml:"capacity" toml:"capacity"`
	RefillRate float64 `yaml:"refill_rate" toml:"refill_rate"`
}

// ChannelPolicy holds one channel's policy switches.
type ChannelPolicy struct {
	Generation bool `yaml:"generation" toml:"generation"`
	AutoSend   bool `yaml:"autosend" toml:"autosend"`
}

// PolicyConfig holds per-channel policy tables and the fallback defaults.
type PolicyConfig struct {
	DefaultGeneration bool                     `yaml:"default_generation" toml:"default_generation"`
	DefaultAutoSend   bool                     `yaml:"default_autosend" toml:"default_autosend"`
	Channels          map[string]ChannelPolicy `yaml:"channels" toml:"channels"`
}

// PIIConfig selects the response-side PII filter behavior.
type PIIConfig struct {
	Mode string `yaml:"mode" toml:"mode"` // "block" or "redact"
}

// WebchatConfig configures the webchat delivery adapter.
type WebchatConfig struct {
	WebhookURL string `yaml:"webhook_url" toml:"webhook_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file and returns a parsed Config. Files
// ending in .toml parse as TOML; everything else parses as YAML.
// Environment variables in the form ${VAR_NAME} are expanded first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if filepath.Ext(path) == ".toml" {
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with the environment value, or an
// empty string when unset.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func parseDurations(cfg *Config) error {
	var err error

	if cfg.Coordination.DedupTTLRaw != "" {
		cfg.Coordination.DedupTTL, err = time.ParseDuration(cfg.Coordination.DedupTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedup_ttl %q: %w", cfg.Coordination.DedupTTLRaw, err)
		}
	}
	if cfg.Coordination.LockTTLRaw != "" {
		cfg.Coordination.LockTTL, err = time.ParseDuration(cfg.Coordination.LockTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing lock_ttl %q: %w", cfg.Coordination.LockTTLRaw, err)
		}
	}
	if cfg.Coordination.ThreadStateTTLRaw != "" {
		cfg.Coordination.ThreadStateTTL, err = time.ParseDuration(cfg.Coordination.ThreadStateTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing thread_state_ttl %q: %w", cfg.Coordination.ThreadStateTTLRaw, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Coordination.DedupTTL == 0 {
		c.Coordination.DedupTTL = 5 * time.Minute
	}
	if c.Coordination.LockTTL == 0 {
		c.Coordination.LockTTL = 30 * time.Second
	}
	if c.Coordination.ThreadStateTTL == 0 {
		c.Coordination.ThreadStateTTL = 15 * time.Minute
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 20
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 1.0
	}
	if c.PII.Mode == "" {
		c.PII.Mode = "redact"
	}
}

// Validate checks that required configuration fields are present and valid.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Answer.Endpoint == "" {
		return fmt.Errorf("answer.endpoint is required")
	}
	if c.PII.Mode != "block" && c.PII.Mode != "redact" {
		return fmt.Errorf("pii.mode must be \"block\" or \"redact\", got %q", c.PII.Mode)
	}
	if c.RateLimit.Capacity < 0 || c.RateLimit.RefillRate < 0 {
		return fmt.Errorf("ratelimit capacity and refill_rate must be non-negative")
	}
	return nil
}
