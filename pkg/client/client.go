// Package client provides an MCP client that talks JSON-RPC 2.0 to a
// database-query MCP server, either over HTTP or over the stdio of a
// spawned server process.
package client

import (
	"context"
	"net/http"
	"time"

	"github.com/traego/mcp-db-assistant/pkg/config"
	"github.com/traego/mcp-db-assistant/pkg/protocol"
)

// ClientOptions contains configuration options for the MCP client.
type ClientOptions struct {
	// ProtocolVersion is sent in the initialize request.
	ProtocolVersion protocol.ProtocolVersion

	// HTTPClient allows providing a custom HTTP client for the transport layer.
	HTTPClient *http.Client

	// ClientInfo contains information about the client to send during initialization.
	ClientInfo protocol.ClientInfo

	// APIKey is sent as a bearer token when set.
	APIKey string

	// RequestTimeout bounds every request. Zero means no per-request timeout.
	RequestTimeout time.Duration

	// RequestsPerSecond enables client-side rate limiting when positive.
	RequestsPerSecond float64

	// Burst is the limiter bucket size.
	Burst int
}

// McpClient is the interface for an MCP client.
type McpClient interface {
	// Connect performs the initialize handshake and sends notifications/initialized.
	Connect(ctx context.Context) error

	// Close closes the client connection.
	Close(ctx context.Context) error

	// IsInitialized returns whether the client has been initialized.
	IsInitialized() bool

	// GetSessionID returns the current session ID, if any.
	GetSessionID() string

	// ServerInfo returns the server information received during initialization.
	ServerInfo() protocol.ServerInfo

	// SendRequest sends a request to the server and returns the response.
	SendRequest(ctx context.Context, method string, params interface{}) (*protocol.JSONRPCMessage, error)

	// SendNotification sends a notification to the server.
	SendNotification(ctx context.Context, method string, params interface{}) error

	// Subscribe opens the server event stream. Messages are delivered to the
	// registered event handlers until ctx is done or the client is closed.
	Subscribe(ctx context.Context) error

	// AddEventHandler adds an event handler for server-sent events and
	// returns a function that removes it.
	AddEventHandler(handler EventHandler) (remove func())

	// ListTools retrieves the list of available tools from the server.
	ListTools(ctx context.Context) (*protocol.ToolListResult, error)

	// FindTool searches for a tool by name in the tools list.
	FindTool(ctx context.Context, toolName string) (*protocol.Tool, error)

	// ListResources retrieves the resources the server exposes.
	ListResources(ctx context.Context) (*protocol.ResourceListResult, error)

	// ReadResource reads the resource at uri.
	ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error)

	// CallTool calls a tool and returns its result. A result flagged as an
	// error is returned as a *ToolError.
	CallTool(ctx context.Context, toolName string, arguments interface{}) (*protocol.CallToolResult, error)

	// CallToolJSON calls a tool and decodes the JSON carried by the first
	// text content into out.
	CallToolJSON(ctx context.Context, toolName string, arguments interface{}, out interface{}) error
}

// EventHandler is the interface for handling server-sent events.
type EventHandler interface {
	// HandleEvent handles a server-sent event.
	HandleEvent(event *protocol.JSONRPCMessage)
}

// EventHandlerFunc is a function that implements the EventHandler interface.
type EventHandlerFunc func(event *protocol.JSONRPCMessage)

// HandleEvent calls the function.
func (f EventHandlerFunc) HandleEvent(event *protocol.JSONRPCMessage) {
	f(event)
}

// DefaultClientOptions returns the default client options.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		ProtocolVersion: protocol.ProtocolVersion20241105,
		HTTPClient:      http.DefaultClient,
		ClientInfo: protocol.ClientInfo{
			Name:    "ai-assistant-client",
			Version: "1.0.0",
		},
		RequestTimeout: 30 * time.Second,
		Burst:          1,
	}
}

// OptionsFromConfig builds client options from a client configuration.
func OptionsFromConfig(cfg *config.ClientConfig) ClientOptions {
	options := DefaultClientOptions()
	if cfg.ProtocolVersion != "" {
		options.ProtocolVersion = cfg.ProtocolVersion
	}
	if cfg.ClientInfo.Name != "" {
		options.ClientInfo = cfg.ClientInfo
	}
	options.APIKey = cfg.APIKey
	options.RequestTimeout = cfg.RequestTimeout.Std()
	options.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
	if cfg.RateLimit.Burst > 0 {
		options.Burst = cfg.RateLimit.Burst
	}
	return options
}

// NewMcpClient creates a new MCP client with the given server URL and options.
func NewMcpClient(serverURL string, options ClientOptions) (McpClient, error) {
	transport, err := newHTTPTransport(serverURL, options)
	if err != nil {
		return nil, err
	}
	return newSessionClient(transport, options), nil
}

// NewStdioClient starts command with args and returns a client speaking
// newline-delimited JSON-RPC over the process's stdin and stdout.
func NewStdioClient(command string, args []string, options ClientOptions) (McpClient, error) {
	transport, err := newStdioTransport(command, args)
	if err != nil {
		return nil, err
	}
	return newSessionClient(transport, options), nil
}

// NewFromConfig creates the client selected by cfg.Transport.
func NewFromConfig(cfg *config.ClientConfig) (McpClient, error) {
	options := OptionsFromConfig(cfg)
	if cfg.Transport == config.TransportStdio {
		return NewStdioClient(cfg.Command, cfg.Args, options)
	}
	return NewMcpClient(cfg.ServerURL, options)
}
