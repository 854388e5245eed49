// Command db-assistant connects to a database MCP server and runs the
// assistant demos against it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/traego/mcp-db-assistant/pkg/assistant"
	"github.com/traego/mcp-db-assistant/pkg/client"
	"github.com/traego/mcp-db-assistant/pkg/config"
	"github.com/traego/mcp-db-assistant/pkg/contextstore"
	"github.com/traego/mcp-db-assistant/pkg/dbtools"
	"github.com/traego/mcp-db-assistant/pkg/protocol"
	"github.com/traego/mcp-db-assistant/pkg/utils"
)

const serverHint = "redi-orm mcp --db=sqlite://./assistant.db --transport=http --port=3000"

// Demo modes.
const (
	demoBasic    = "basic"
	demoAdvanced = "advanced"
	demoAll      = "all"
)

type options struct {
	configPath string
	demo       string
	question   string
	table      string
	batchSize  int

	listResources bool
	resourceURI   string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, runs the selected demo and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	utils.SetupDefault(utils.ParseLevel(cfg.Log.Level), stderr, utils.Format(cfg.Log.Format))

	if err := execute(ctx, cfg, opts, stdout); err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		fmt.Fprintln(stdout, "\nMake sure the MCP server is running:")
		fmt.Fprintln(stdout, serverHint)
		return 1
	}
	return 0
}

// parseArgs layers the configuration: defaults, then the config file, then
// the environment, then flags that were set explicitly.
func parseArgs(args []string, stderr io.Writer) (*config.ClientConfig, options, error) {
	fs := flag.NewFlagSet("db-assistant", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "path to a JSON config file")
	fs.StringVar(&opts.demo, "demo", demoAll, "demo to run: basic, advanced or all")
	fs.StringVar(&opts.question, "ask", "", "ask a single question instead of running a demo")
	fs.StringVar(&opts.table, "table", "sales", "table to suggest optimizations for")
	fs.IntVar(&opts.batchSize, "batch-size", dbtools.DefaultStreamBatchSize, "stream batch size for the training sample")
	fs.BoolVar(&opts.listResources, "resources", false, "list the resources the server exposes and exit")
	fs.StringVar(&opts.resourceURI, "resource", "", "print the resource at this URI and exit")

	serverURL := fs.String("url", "", "MCP server URL")
	apiKey := fs.String("api-key", "", "API key sent as a bearer token")
	transport := fs.String("transport", "", "transport: http or stdio")
	command := fs.String("command", "", "server command for the stdio transport; remaining arguments are passed to it")
	logLevel := fs.String("log-level", "", "log level: trace, debug, info, warn or error")
	logFormat := fs.String("log-format", "", "log format: text or json")
	rateLimit := fs.Float64("rate-limit", 0, "maximum requests per second, 0 for no limit")
	redisAddr := fs.String("redis", "", "cache the database context in Redis at this address")
	cacheTTL := fs.Duration("cache-ttl", 0, "how long a cached database context stays valid in Redis")
	subscribe := fs.Bool("subscribe", false, "log events pushed by the server")

	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}

	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, opts, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.ServerURL = *serverURL
		case "api-key":
			cfg.APIKey = *apiKey
		case "transport":
			cfg.Transport = strings.ToLower(*transport)
		case "command":
			cfg.Command = *command
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		case "rate-limit":
			cfg.RateLimit.RequestsPerSecond = *rateLimit
		case "cache-ttl":
			cfg.Cache.TTL = config.Duration(*cacheTTL)
		case "redis":
			cfg.Cache.Enabled = true
			cfg.Cache.Redis = &config.RedisConfig{Address: *redisAddr}
		case "subscribe":
			cfg.SubscribeEvents = *subscribe
		}
	})

	// A memory store would not outlive this process, so the CLI caches only in Redis.
	if cfg.Cache.Redis == nil {
		cfg.Cache.Enabled = false
	}
	if cfg.Transport == config.TransportStdio && fs.NArg() > 0 {
		cfg.Args = fs.Args()
	}

	switch opts.demo {
	case demoBasic, demoAdvanced, demoAll:
	default:
		return nil, opts, fmt.Errorf("unknown demo %q", opts.demo)
	}
	if opts.batchSize <= 0 {
		return nil, opts, errors.New("batch size must be positive")
	}

	if err := cfg.Validate(); err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}

func execute(ctx context.Context, cfg *config.ClientConfig, opts options, out io.Writer) error {
	mcpClient, err := client.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = mcpClient.Close(context.Background())
	}()

	if err := mcpClient.Connect(ctx); err != nil {
		return err
	}

	if cfg.SubscribeEvents {
		removeHandler := mcpClient.AddEventHandler(client.EventHandlerFunc(func(event *protocol.JSONRPCMessage) {
			slog.Info("Received event", "method", event.Method)
		}))
		defer removeHandler()
		if err := mcpClient.Subscribe(ctx); err != nil {
			slog.Warn("Failed to subscribe to server events", "error", err)
		}
	}

	if opts.listResources {
		return listResources(ctx, mcpClient, out)
	}
	if opts.resourceURI != "" {
		return printResource(ctx, mcpClient, opts.resourceURI, out)
	}

	store, err := contextstore.FromConfig(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	assistantOpts := []assistant.Option{assistant.WithSchemaTableLimit(cfg.SchemaTableLimit)}
	if store != nil {
		defer store.Close()
		assistantOpts = append(assistantOpts, assistant.WithStore(store, cacheKey(cfg), cfg.Cache.TTL.Std()))
	}

	a, err := assistant.New(ctx, dbtools.New(mcpClient), assistantOpts...)
	if err != nil {
		return err
	}

	if opts.question != "" {
		return askOne(ctx, a, opts.question, out)
	}

	if opts.demo == demoBasic || opts.demo == demoAll {
		if err := demoConversation(ctx, a, opts.table, out); err != nil {
			return err
		}
	}
	if opts.demo == demoAdvanced || opts.demo == demoAll {
		if err := advancedIntegration(ctx, a, opts.batchSize, out); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "\n=== Demo completed successfully! ===")
	return nil
}

// cacheKey identifies the database behind cfg.
func cacheKey(cfg *config.ClientConfig) string {
	if cfg.Transport == config.TransportStdio {
		return "stdio:" + strings.Join(append([]string{cfg.Command}, cfg.Args...), " ")
	}
	return strings.TrimRight(cfg.ServerURL, "/")
}
