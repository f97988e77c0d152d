package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_OpenAIConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-test")
	t.Setenv("OPENAI_BASE_URL", "http://llm.local/v1")
	t.Setenv("OPENAI_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-test", cfg.OpenAI.Model)
	assert.Equal(t, "http://llm.local/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.OpenAI.Timeout)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
	assert.Equal(t, time.Duration(0), cfg.OpenAI.Timeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Analysis.MockDelay)
	assert.Equal(t, 10<<20, cfg.Analysis.MaxImageBytes)
	assert.Equal(t, []string{"*"}, cfg.App.AllowedOrigins)
	assert.Equal(t, 30, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.RateLimit.TrustProxy)
	assert.Equal(t, 10000, cfg.Cache.MaxEntries)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestLoad_CacheBounds(t *testing.T) {
	t.Setenv("CACHE_MEMORY_MAX_ENTRIES", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CACHE_MEMORY_MAX_ENTRIES", "500")
	t.Setenv("CACHE_MEMORY_TTL", "10m")
	t.Setenv("RATE_LIMIT_TRUST_PROXY", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.RateLimit.TrustProxy)
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBackOrFail(t *testing.T) {
	t.Setenv("OPENAI_TIMEOUT", "soon")
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SERVER_PORT", "9090")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.OpenAI.Timeout)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
}
