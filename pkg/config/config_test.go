package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traego/mcp-db-assistant/pkg/protocol"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:3000", cfg.ServerURL)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, protocol.ProtocolVersion20241105, cfg.ProtocolVersion)
	assert.Equal(t, "ai-assistant-client", cfg.ClientInfo.Name)
	assert.Equal(t, "1.0.0", cfg.ClientInfo.Version)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout.Std())
	assert.Equal(t, 5, cfg.SchemaTableLimit)
	assert.False(t, cfg.Cache.Enabled)
	assert.Nil(t, cfg.Cache.Redis)
	assert.NoError(t, cfg.Validate())
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig("http://127.0.0.1:9999")

	assert.Equal(t, "http://127.0.0.1:9999", cfg.ServerURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout.Std())

	defaultCfg := DefaultConfig()
	assert.Equal(t, defaultCfg.ClientInfo, cfg.ClientInfo)
	assert.Equal(t, defaultCfg.ProtocolVersion, cfg.ProtocolVersion)
	assert.Equal(t, defaultCfg.Cache, cfg.Cache)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assistant.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_url": "http://db-mcp:3000",
		"api_key": "secret",
		"rate_limit": {"requests_per_second": 5, "burst": 2},
		"cache": {"enabled": true, "ttl": 60000000000, "redis": {"address": "localhost:6379"}}
	}`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://db-mcp:3000", cfg.ServerURL)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 5.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 2, cfg.RateLimit.Burst)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL.Std())
	require.NotNil(t, cfg.Cache.Redis)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Address)

	// Untouched fields keep their defaults
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, 5, cfg.SchemaTableLimit)
	assert.NoError(t, cfg.Validate())

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadFileDurationStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"request_timeout": "45s", "cache": {"ttl": "2m"}}`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout.Std())
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL.Std())

	require.NoError(t, os.WriteFile(path, []byte(`{"request_timeout": "soon"}`), 0o600))
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Std())

	require.NoError(t, json.Unmarshal([]byte(`1500000000`), &d))
	assert.Equal(t, 1500*time.Millisecond, d.Std())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Equal(t, 1500*time.Millisecond, d.Std())

	out, err := json.Marshal(Duration(30 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"30s"`, string(out))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MCP_SERVER_URL", "http://env-host:3000")
	t.Setenv("MCP_API_KEY", "env-key")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MCP_RATE_LIMIT", "2.5")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "http://env-host:3000", cfg.ServerURL)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.Cache.Enabled)
	require.NotNil(t, cfg.Cache.Redis)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Address)
}

func TestValidate(t *testing.T) {
	t.Run("bad url", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ServerURL = "localhost"
		assert.ErrorContains(t, cfg.Validate(), "invalid server url")
	})

	t.Run("stdio without command", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Transport = TransportStdio
		assert.ErrorContains(t, cfg.Validate(), "requires a command")

		cfg.Command = "redi-mcp"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown transport and version", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Transport = "carrier-pigeon"
		cfg.ProtocolVersion = "1.0.0"
		err := cfg.Validate()
		assert.ErrorContains(t, err, "unknown transport")
		assert.ErrorContains(t, err, "unsupported protocol version")
	})

	t.Run("rate limit burst", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RateLimit = RateLimitConfig{RequestsPerSecond: 1, Burst: 0}
		assert.ErrorContains(t, cfg.Validate(), "burst")
	})
}
