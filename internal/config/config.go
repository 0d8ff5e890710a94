// Package config loads the evalrepl configuration from a YAML file.
// EVALREPL_* environment variables override the file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/aretw0/evalrepl/internal/logging"
	"github.com/aretw0/evalrepl/pkg/format"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "evalrepl.yaml"

// History backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	Formatter     string        `yaml:"formatter" env:"EVALREPL_FORMATTER"`
	Timeout       time.Duration `yaml:"timeout" env:"EVALREPL_TIMEOUT"`
	FenceLanguage string        `yaml:"fence_language" env:"EVALREPL_FENCE_LANGUAGE"`
	MaxInputSize  int           `yaml:"max_input_size" env:"EVALREPL_MAX_INPUT_SIZE"`
	LogLevel      string        `yaml:"log_level" env:"EVALREPL_LOG_LEVEL"`
	LogJSON       bool          `yaml:"log_json" env:"EVALREPL_LOG_JSON"`

	History  HistoryConfig  `yaml:"history" envPrefix:"EVALREPL_HISTORY_"`
	Snippets SnippetsConfig `yaml:"snippets" envPrefix:"EVALREPL_SNIPPETS_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"EVALREPL_REDIS_"`
	HTTP     HTTPConfig     `yaml:"http" envPrefix:"EVALREPL_HTTP_"`
	MCP      MCPConfig      `yaml:"mcp" envPrefix:"EVALREPL_MCP_"`
}

// HistoryConfig selects where invocation records are kept.
type HistoryConfig struct {
	Backend    string        `yaml:"backend" env:"BACKEND"`
	Path       string        `yaml:"path" env:"PATH"`
	TTL        time.Duration `yaml:"ttl" env:"TTL"`
	MaxRecords int           `yaml:"max_records" env:"MAX_RECORDS"`

	// Redact lists regular expressions masked in stored records.
	Redact []string `yaml:"redact" env:"REDACT" envSeparator:","`
	// EncryptionKey is a base64 AES-256 key sealing stored records.
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	// FallbackKeys are older base64 keys still accepted for reading.
	FallbackKeys []string `yaml:"fallback_keys" env:"FALLBACK_KEYS" envSeparator:","`
}

// SnippetsConfig points at a directory of markdown snippets.
type SnippetsConfig struct {
	Dir string `yaml:"dir" env:"DIR"`
}

// RedisConfig is shared by the redis history backend and the session lock.
type RedisConfig struct {
	URL    string `yaml:"url" env:"URL"`
	Prefix string `yaml:"prefix" env:"PREFIX"`
	Lock   bool   `yaml:"lock" env:"LOCK"`
}

// HTTPConfig configures `evalrepl serve`.
type HTTPConfig struct {
	Addr    string `yaml:"addr" env:"ADDR"`
	Metrics bool   `yaml:"metrics" env:"METRICS"`
}

// MCPConfig configures `evalrepl mcp`.
type MCPConfig struct {
	Transport string `yaml:"transport" env:"TRANSPORT"`
	Port      int    `yaml:"port" env:"PORT"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Formatter:     format.NameSimple,
		Timeout:       10 * time.Second,
		FenceLanguage: "lua",
		LogLevel:      "info",
		History: HistoryConfig{
			Backend: BackendMemory,
		},
		Redis: RedisConfig{
			Prefix: "evalrepl:",
		},
		HTTP: HTTPConfig{
			Addr:    ":8080",
			Metrics: true,
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Port:      8081,
		},
	}
}

// Load reads path over the defaults, then applies the environment.
// A missing file is only an error when path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(format.Names(), c.Formatter) {
		errs = append(errs, fmt.Errorf("formatter: %w: %q", ErrInvalid, c.Formatter))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout: %w: must not be negative", ErrInvalid))
	}
	if c.MaxInputSize < 0 {
		errs = append(errs, fmt.Errorf("max_input_size: %w: must not be negative", ErrInvalid))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w: %v", ErrInvalid, err))
	}

	switch c.History.Backend {
	case BackendNone, BackendMemory, BackendFile:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, fmt.Errorf("redis.url: %w: required by the redis history backend", ErrMissing))
		}
	default:
		errs = append(errs, fmt.Errorf("history.backend: %w: %q", ErrInvalid, c.History.Backend))
	}
	for _, p := range c.History.Redact {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("history.redact: %w: %v", ErrInvalid, err))
		}
	}
	if _, _, err := c.History.Keys(); err != nil {
		errs = append(errs, err)
	}
	if c.Redis.Lock && c.Redis.URL == "" {
		errs = append(errs, fmt.Errorf("redis.url: %w: required by redis.lock", ErrMissing))
	}

	if c.HTTP.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr: %w", ErrMissing))
	}
	switch c.MCP.Transport {
	case "stdio", "sse":
	default:
		errs = append(errs, fmt.Errorf("mcp.transport: %w: %q", ErrInvalid, c.MCP.Transport))
	}
	if c.MCP.Transport == "sse" && (c.MCP.Port <= 0 || c.MCP.Port > 65535) {
		errs = append(errs, fmt.Errorf("mcp.port: %w: %d", ErrInvalid, c.MCP.Port))
	}

	return errors.Join(errs...)
}

// Keys decodes the encryption keys. A nil active key means records are
// stored in clear.
func (h HistoryConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if h.EncryptionKey == "" {
		if len(h.FallbackKeys) > 0 {
			return nil, nil, fmt.Errorf("history.encryption_key: %w: required by history.fallback_keys", ErrMissing)
		}
		return nil, nil, nil
	}
	if active, err = decodeKey("history.encryption_key", h.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for _, k := range h.FallbackKeys {
		key, err := decodeKey("history.fallback_keys", k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(field, encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: not base64", field, ErrInvalid)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s: %w: key must be 32 bytes, got %d", field, ErrInvalid, len(key))
	}
	return key, nil
}

// Level returns the parsed log level, info when invalid.
func (c *Config) Level() slog.Level {
	lvl, _ := logging.ParseLevel(c.LogLevel)
	return lvl
}

var (
	// ErrInvalid marks a field with an unsupported value.
	ErrInvalid = errors.New("invalid value")
	// ErrMissing marks a required field left empty.
	ErrMissing = errors.New("missing value")
)
