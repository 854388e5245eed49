package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/traego/mcp-db-assistant/pkg/protocol"
)

// TransportType selects how the client reaches the MCP server.
type TransportType = string

const (
	TransportHTTP  TransportType = "http"
	TransportStdio TransportType = "stdio"
)

// ClientConfig holds the configuration for the database assistant client
type ClientConfig struct {
	// Base URL of the MCP server (HTTP transport)
	ServerURL string `json:"server_url"`

	// Optional API key, sent as a bearer token
	APIKey string `json:"api_key,omitempty"`

	Transport TransportType `json:"transport"`

	// Server command and arguments (stdio transport)
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`

	// Protocol version sent in initialize
	ProtocolVersion protocol.ProtocolVersion `json:"protocol_version"`

	// Client information sent in initialize
	ClientInfo protocol.ClientInfo `json:"client_info"`

	RequestTimeout Duration `json:"request_timeout"`

	RateLimit RateLimitConfig `json:"rate_limit"`

	Cache CacheConfig `json:"cache"`

	Log LogConfig `json:"log"`

	// Number of tables whose schema is inspected when the assistant builds its context
	SchemaTableLimit int `json:"schema_table_limit"`

	// Subscribe to the server's event stream
	SubscribeEvents bool `json:"subscribe_events"`
}

// RateLimitConfig holds the client-side request rate limit.
// A zero RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// CacheConfig holds the database context cache configuration
type CacheConfig struct {
	Enabled bool     `json:"enabled"`
	TTL     Duration `json:"ttl"`

	// Key prefix for cached contexts
	KeyPrefix string `json:"key_prefix"`

	// Redis configuration (optional, in-memory when nil)
	Redis *RedisConfig `json:"redis,omitempty"`
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

// LogConfig holds logging options
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		ServerURL:       "http://localhost:3000",
		Transport:       TransportHTTP,
		ProtocolVersion: protocol.ProtocolVersion20241105,
		ClientInfo: protocol.ClientInfo{
			Name:    "ai-assistant-client",
			Version: "1.0.0",
		},
		RequestTimeout: Duration(30 * time.Second),
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Cache: CacheConfig{
			Enabled:   false,
			TTL:       Duration(5 * time.Minute),
			KeyPrefix: "mcp:dbctx:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		SchemaTableLimit: 5,
	}
}

// LoadFile reads a JSON configuration file on top of the defaults.
// Durations may be strings such as "30s" or integer nanoseconds.
func LoadFile(path string) (*ClientConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *ClientConfig) ApplyEnv() {
	if v := os.Getenv("MCP_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("MCP_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("MCP_TRANSPORT"); v != "" {
		c.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("MCP_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.RequestsPerSecond = rps
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Enabled = true
		if c.Cache.Redis == nil {
			c.Cache.Redis = &RedisConfig{}
		}
		c.Cache.Redis.Address = v
	}
}

// Validate checks the configuration for inconsistencies.
func (c *ClientConfig) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportHTTP:
		u, err := url.Parse(c.ServerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid server url %q", c.ServerURL))
		}
	case TransportStdio:
		if c.Command == "" {
			errs = append(errs, errors.New("stdio transport requires a command"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}

	if !c.ProtocolVersion.IsSupported() {
		errs = append(errs, fmt.Errorf("unsupported protocol version %q", c.ProtocolVersion))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request timeout must not be negative"))
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate limit burst must be at least 1"))
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache ttl must be positive"))
	}
	if c.Cache.Redis != nil && c.Cache.Redis.Address == "" {
		errs = append(errs, errors.New("redis address is required"))
	}
	if c.SchemaTableLimit < 0 {
		errs = append(errs, errors.New("schema table limit must not be negative"))
	}

	return errors.Join(errs...)
}

// TestConfig returns a configuration suitable for testing against serverURL
func TestConfig(serverURL string) *ClientConfig {
	cfg := DefaultConfig()
	cfg.ServerURL = serverURL
	cfg.RequestTimeout = Duration(5 * time.Second)
	return cfg
}
