package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKey is 32 zero bytes.
const testKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evalrepl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
formatter: ipython
timeout: 2s
history:
  backend: file
  path: /tmp/history
snippets:
  dir: ./snippets
http:
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ipython", cfg.Formatter)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, BackendFile, cfg.History.Backend)
	assert.Equal(t, "/tmp/history", cfg.History.Path)
	assert.Equal(t, "./snippets", cfg.Snippets.Dir)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)

	// Untouched fields keep their defaults.
	assert.Equal(t, "lua", cfg.FenceLanguage)
	assert.Equal(t, "stdio", cfg.MCP.Transport)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "formatter: ipython\ntimeout: 2s\n")
	t.Setenv("EVALREPL_FORMATTER", "embed")
	t.Setenv("EVALREPL_HISTORY_BACKEND", "redis")
	t.Setenv("EVALREPL_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("EVALREPL_REDIS_LOCK", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "embed", cfg.Formatter)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, BackendRedis, cfg.History.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.True(t, cfg.Redis.Lock)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "formatter: [oops"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"Unknown formatter", func(c *Config) { c.Formatter = "html" }, ErrInvalid},
		{"Negative timeout", func(c *Config) { c.Timeout = -time.Second }, ErrInvalid},
		{"Bad log level", func(c *Config) { c.LogLevel = "loud" }, ErrInvalid},
		{"Unknown backend", func(c *Config) { c.History.Backend = "s3" }, ErrInvalid},
		{"Redis backend without URL", func(c *Config) { c.History.Backend = BackendRedis }, ErrMissing},
		{"Lock without URL", func(c *Config) { c.Redis.Lock = true }, ErrMissing},
		{"Empty HTTP addr", func(c *Config) { c.HTTP.Addr = "" }, ErrMissing},
		{"Bad redact pattern", func(c *Config) { c.History.Redact = []string{"("} }, ErrInvalid},
		{"Encryption key not base64", func(c *Config) { c.History.EncryptionKey = "%%%" }, ErrInvalid},
		{"Short encryption key", func(c *Config) { c.History.EncryptionKey = "c2hvcnQ=" }, ErrInvalid},
		{"Fallback keys without key", func(c *Config) { c.History.FallbackKeys = []string{testKey} }, ErrMissing},
		{"SSE without port", func(c *Config) { c.MCP.Transport = "sse"; c.MCP.Port = 0 }, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Formatter = "html"
	cfg.HTTP.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formatter")
	assert.Contains(t, err.Error(), "http.addr")
}

func TestHistoryKeys(t *testing.T) {
	h := HistoryConfig{}
	active, fallback, err := h.Keys()
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, fallback)

	h.EncryptionKey = testKey
	h.FallbackKeys = []string{testKey}
	active, fallback, err = h.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	assert.Len(t, fallback, 1)
}

func TestLoad_HistoryListsFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EVALREPL_HISTORY_REDACT", `sk-\w+,token=\S+`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{`sk-\w+`, `token=\S+`}, cfg.History.Redact)
}
