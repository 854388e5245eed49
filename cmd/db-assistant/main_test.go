package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traego/mcp-db-assistant/internal/testserver"
	"github.com/traego/mcp-db-assistant/pkg/config"
)

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := run(context.Background(), args, &out, io.Discard)
	return code, out.String()
}

func TestRunAllDemos(t *testing.T) {
	_, ts := testserver.Start(t, testserver.WithDatabase(testserver.SalesDatabase()))

	code, out := runCLI(t, "-url", ts.URL)
	require.Equal(t, 0, code, out)

	for _, want := range []string{
		"=== AI ASSISTANT DATABASE DEMO ===\n\nHuman: How many customers do we have?\n",
		"Assistant: There are 42 records in the customers table.\n\n",
		"Human: Can you analyze the database performance?\nAssistant: Database Performance Analysis:\n",
		"Human: Any optimization suggestions for the sales table?\n",
		"\n=== ADVANCED AI INTEGRATION ===\n\nGenerating executive summary report...\n\nEXECUTIVE SUMMARY - Last 30 Days\n",
		"\nPreparing data for ML model training...\n• Total training samples: 250\n",
		"\n=== Demo completed successfully! ===\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRunBasicOnly(t *testing.T) {
	_, ts := testserver.Start(t, testserver.WithDatabase(testserver.SalesDatabase()))

	code, out := runCLI(t, "-url", ts.URL, "-demo", "basic")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "=== AI ASSISTANT DATABASE DEMO ===")
	assert.NotContains(t, out, "ADVANCED AI INTEGRATION")
}

func TestRunAsk(t *testing.T) {
	_, ts := testserver.Start(t, testserver.WithDatabase(testserver.SalesDatabase()))

	code, out := runCLI(t, "-url", ts.URL, "-ask", "What's the average order value?")
	require.Equal(t, 0, code, out)
	assert.Equal(t, "Human: What's the average order value?\nAssistant: The average order value is $87.46\n", out)
}

func TestRunWithAPIKey(t *testing.T) {
	_, ts := testserver.Start(t,
		testserver.WithAPIKey("secret"),
		testserver.WithDatabase(testserver.SalesDatabase()),
	)

	code, out := runCLI(t, "-url", ts.URL, "-api-key", "secret", "-ask", "How many sales?")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "There are 1250 records in the sales table.")
}

func TestRunResources(t *testing.T) {
	_, ts := testserver.Start(t, testserver.WithDatabase(testserver.SalesDatabase()))

	t.Run("list", func(t *testing.T) {
		code, out := runCLI(t, "-url", ts.URL, "-resources")
		require.Equal(t, 0, code, out)
		assert.True(t, strings.HasPrefix(out, "Resources (4):\n  schema://database  Database Schema (application/json)\n"), out)
		assert.Contains(t, out, "  table://sales  Table: sales (application/json)\n")
		assert.NotContains(t, out, "Demo completed")
	})

	t.Run("read", func(t *testing.T) {
		code, out := runCLI(t, "-url", ts.URL, "-resource", "schema://database")
		require.Equal(t, 0, code, out)
		assert.Contains(t, out, `"database_type": "sqlite"`)
		assert.NotContains(t, out, "Human:")
	})

	t.Run("unknown", func(t *testing.T) {
		code, out := runCLI(t, "-url", ts.URL, "-resource", "table://secrets")
		assert.Equal(t, 1, code)
		assert.Contains(t, out, "unknown resource URI: table://secrets")
	})
}

func TestRunServerErrorPrintsHint(t *testing.T) {
	db := testserver.SalesDatabase()
	db.Queries = []testserver.CannedQuery{{Match: "COUNT(*)", Err: "database is locked"}}
	_, ts := testserver.Start(t, testserver.WithDatabase(db))

	code, out := runCLI(t, "-url", ts.URL, "-demo", "basic")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Human: How many customers do we have?\nError: tool query failed: Query error: database is locked\n")
	assert.True(t, strings.HasSuffix(out, "Make sure the MCP server is running:\n"+serverHint+"\n"))
}

func TestRunAskErrorFollowsQuestion(t *testing.T) {
	db := testserver.SalesDatabase()
	db.Queries = []testserver.CannedQuery{{Match: "avg_amount", Err: "no such column: amount"}}
	_, ts := testserver.Start(t, testserver.WithDatabase(db))

	code, out := runCLI(t, "-url", ts.URL, "-ask", "What's the average order value?")
	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(out, "Human: What's the average order value?\nError: tool query failed: Query error: no such column: amount\n"), out)
}

func TestRunUnauthorized(t *testing.T) {
	_, ts := testserver.Start(t, testserver.WithAPIKey("secret"), testserver.WithDatabase(testserver.SalesDatabase()))

	code, out := runCLI(t, "-url", ts.URL)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "unexpected response status: 401")
}

func TestParseArgs(t *testing.T) {
	t.Run("flags override the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"server_url":"http://file:3000","api_key":"from-file","schema_table_limit":2}`), 0o600))

		cfg, opts, err := parseArgs([]string{"-config", path, "-url", "http://flag:3000", "-demo", "advanced"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "http://flag:3000", cfg.ServerURL)
		assert.Equal(t, "from-file", cfg.APIKey)
		assert.Equal(t, 2, cfg.SchemaTableLimit)
		assert.Equal(t, demoAdvanced, opts.demo)
	})

	t.Run("stdio takes the remaining arguments", func(t *testing.T) {
		cfg, _, err := parseArgs([]string{"-transport", "stdio", "-command", "redi-orm", "mcp", "--db=sqlite://./a.db"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, config.TransportStdio, cfg.Transport)
		assert.Equal(t, "redi-orm", cfg.Command)
		assert.Equal(t, []string{"mcp", "--db=sqlite://./a.db"}, cfg.Args)
		assert.Equal(t, "stdio:redi-orm mcp --db=sqlite://./a.db", cacheKey(cfg))
	})

	t.Run("redis enables the cache", func(t *testing.T) {
		cfg, _, err := parseArgs([]string{"-redis", "localhost:6379"}, io.Discard)
		require.NoError(t, err)
		assert.True(t, cfg.Cache.Enabled)
		require.NotNil(t, cfg.Cache.Redis)
		assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Address)
	})

	t.Run("cache needs redis", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "")
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"cache":{"enabled":true,"ttl":"1m"}}`), 0o600))

		cfg, _, err := parseArgs([]string{"-config", path}, io.Discard)
		require.NoError(t, err)
		assert.False(t, cfg.Cache.Enabled)

		_, _, err = parseArgs([]string{"-cache"}, io.Discard)
		assert.Error(t, err)
	})

	t.Run("cache ttl", func(t *testing.T) {
		cfg, _, err := parseArgs([]string{"-redis", "localhost:6379", "-cache-ttl", "90s"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Cache.TTL.Std())
	})

	t.Run("invalid", func(t *testing.T) {
		_, _, err := parseArgs([]string{"-demo", "fancy"}, io.Discard)
		assert.Error(t, err)

		_, _, err = parseArgs([]string{"-transport", "stdio"}, io.Discard)
		assert.Error(t, err)

		_, _, err = parseArgs([]string{"-batch-size", "0"}, io.Discard)
		assert.Error(t, err)
	})

	assert.Equal(t, "http://localhost:3000", cacheKey(&config.ClientConfig{ServerURL: "http://localhost:3000/"}))
}
