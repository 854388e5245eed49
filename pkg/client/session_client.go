package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/traego/mcp-db-assistant/pkg/protocol"
)

// transport moves JSON-RPC messages between the client and one server.
type transport interface {
	// roundTrip sends a request and returns the response carrying the same id.
	// Messages without that id seen on the way are passed to notify.
	roundTrip(ctx context.Context, request *protocol.JSONRPCMessage, notify func(*protocol.JSONRPCMessage)) (*protocol.JSONRPCMessage, error)

	// send delivers a notification.
	send(ctx context.Context, notification *protocol.JSONRPCMessage) error

	// subscribe streams server-initiated messages to notify until ctx is done.
	subscribe(ctx context.Context, notify func(*protocol.JSONRPCMessage)) error

	sessionID() string
	setSessionID(id string)

	close() error
}

// sessionClient implements McpClient on top of a transport.
type sessionClient struct {
	transport transport
	options   ClientOptions
	limiter   *rate.Limiter

	requestIDCounter atomic.Int64

	stateMutex  sync.RWMutex
	initialized bool
	closed      bool
	serverInfo  protocol.ServerInfo

	eventHandlers []registeredHandler
	nextHandlerID uint64
	handlersMutex sync.RWMutex
}

// registeredHandler keys a handler by id. Handlers may be funcs, which
// cannot be compared.
type registeredHandler struct {
	id      uint64
	handler EventHandler
}

func newSessionClient(t transport, options ClientOptions) *sessionClient {
	c := &sessionClient{
		transport:     t,
		options:       options,
		eventHandlers: make([]registeredHandler, 0),
	}
	if options.RequestsPerSecond > 0 {
		burst := options.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), burst)
	}
	return c
}

// Connect performs the initialize handshake.
func (c *sessionClient) Connect(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}

	params := protocol.InitializeParams{
		ProtocolVersion: string(c.options.ProtocolVersion),
		ClientInfo:      c.options.ClientInfo,
	}

	resp, err := c.SendRequest(ctx, protocol.MethodInitialize, params)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	var result protocol.InitializeResult
	if err := resp.DecodeResult(&result); err != nil {
		return fmt.Errorf("failed to decode initialize result: %w", err)
	}

	if result.SessionID != "" && c.transport.sessionID() == "" {
		c.transport.setSessionID(result.SessionID)
		slog.Debug("Received session ID from initialize response", "sessionId", result.SessionID)
	}

	c.stateMutex.Lock()
	c.serverInfo = result.ServerInfo
	c.initialized = true
	c.stateMutex.Unlock()

	slog.Info(fmt.Sprintf("Connected to MCP server: %s v%s", result.ServerInfo.Name, result.ServerInfo.Version),
		"protocolVersion", result.ProtocolVersion)

	if err := c.SendNotification(ctx, protocol.MethodNotificationInitialized, nil); err != nil {
		slog.Warn("Failed to send initialized notification", "error", err)
	}

	return nil
}

// Close closes the transport. It is safe to call more than once.
func (c *sessionClient) Close(ctx context.Context) error {
	c.stateMutex.Lock()
	if c.closed {
		c.stateMutex.Unlock()
		return nil
	}
	c.closed = true
	c.initialized = false
	c.stateMutex.Unlock()

	return c.transport.close()
}

// IsInitialized returns whether the client is initialized.
func (c *sessionClient) IsInitialized() bool {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.initialized
}

// GetSessionID returns the current session ID, if any.
func (c *sessionClient) GetSessionID() string {
	return c.transport.sessionID()
}

// ServerInfo returns the server information received during initialization.
func (c *sessionClient) ServerInfo() protocol.ServerInfo {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.serverInfo
}

func (c *sessionClient) isClosed() bool {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.closed
}

// nextRequestID returns the next request id, starting at 1.
func (c *sessionClient) nextRequestID() int64 {
	return c.requestIDCounter.Add(1)
}

// prepare checks the client state, waits for the rate limiter and applies
// the request timeout.
func (c *sessionClient) prepare(ctx context.Context, method string) (context.Context, context.CancelFunc, error) {
	if c.isClosed() {
		return nil, nil, ErrClientClosed
	}
	if !c.IsInitialized() && method != protocol.MethodInitialize && method != protocol.MethodNotificationInitialized {
		return nil, nil, ErrNotInitialized
	}

	cancel := context.CancelFunc(func() {})
	if c.options.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.options.RequestTimeout)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			cancel()
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	return ctx, cancel, nil
}

// SendRequest sends a request to the server and waits for a response.
// A JSON-RPC error in the response is returned as a *protocol.JsonRpcError
// together with the response.
func (c *sessionClient) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.JSONRPCMessage, error) {
	ctx, cancel, err := c.prepare(ctx, method)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if params == nil {
		params = map[string]interface{}{}
	}

	request := &protocol.JSONRPCMessage{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      c.nextRequestID(),
		Method:  method,
		Params:  params,
	}

	slog.Debug("Sending request", "method", method, "id", request.ID)

	response, err := c.transport.roundTrip(ctx, request, c.dispatchEvent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	if response.Error != nil {
		return response, response.Error
	}

	return response, nil
}

// SendNotification sends a notification to the server without waiting for a response.
func (c *sessionClient) SendNotification(ctx context.Context, method string, params interface{}) error {
	ctx, cancel, err := c.prepare(ctx, method)
	if err != nil {
		return err
	}
	defer cancel()

	notification := &protocol.JSONRPCMessage{
		JSONRPC: protocol.JSONRPCVersion,
		Method:  method,
		Params:  params,
	}

	if err := c.transport.send(ctx, notification); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// Subscribe opens the server event stream.
func (c *sessionClient) Subscribe(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	if !c.IsInitialized() {
		return ErrNotInitialized
	}
	return c.transport.subscribe(ctx, c.dispatchEvent)
}

// AddEventHandler adds an event handler to the client and returns a
// function that removes it. Calling remove more than once is a no-op.
func (c *sessionClient) AddEventHandler(handler EventHandler) func() {
	c.handlersMutex.Lock()
	defer c.handlersMutex.Unlock()

	c.nextHandlerID++
	id := c.nextHandlerID
	c.eventHandlers = append(c.eventHandlers, registeredHandler{id: id, handler: handler})

	return func() { c.removeEventHandler(id) }
}

func (c *sessionClient) removeEventHandler(id uint64) {
	c.handlersMutex.Lock()
	defer c.handlersMutex.Unlock()

	for i, h := range c.eventHandlers {
		if h.id == id {
			c.eventHandlers = append(c.eventHandlers[:i], c.eventHandlers[i+1:]...)
			return
		}
	}
}

// dispatchEvent dispatches an event to all registered handlers. Handlers run
// outside the lock so they may add or remove handlers.
func (c *sessionClient) dispatchEvent(event *protocol.JSONRPCMessage) {
	c.handlersMutex.RLock()
	handlers := make([]registeredHandler, len(c.eventHandlers))
	copy(handlers, c.eventHandlers)
	c.handlersMutex.RUnlock()

	for _, h := range handlers {
		h.handler.HandleEvent(event)
	}
}

// ListTools retrieves the list of available tools from the server.
func (c *sessionClient) ListTools(ctx context.Context) (*protocol.ToolListResult, error) {
	resp, err := c.SendRequest(ctx, protocol.MethodToolsList, nil)
	if err != nil {
		return nil, err
	}

	var result protocol.ToolListResult
	if err := resp.DecodeResult(&result); err != nil {
		return nil, fmt.Errorf("failed to decode tools list: %w", err)
	}
	return &result, nil
}

// FindTool searches for a tool by name in the tools list.
func (c *sessionClient) FindTool(ctx context.Context, toolName string) (*protocol.Tool, error) {
	result, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	for i := range result.Tools {
		if result.Tools[i].Name == toolName {
			return &result.Tools[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
}

// ListResources retrieves the list of resources the server exposes.
func (c *sessionClient) ListResources(ctx context.Context) (*protocol.ResourceListResult, error) {
	resp, err := c.SendRequest(ctx, protocol.MethodResourcesList, nil)
	if err != nil {
		return nil, err
	}

	var result protocol.ResourceListResult
	if err := resp.DecodeResult(&result); err != nil {
		return nil, fmt.Errorf("failed to decode resources list: %w", err)
	}
	return &result, nil
}

// ReadResource reads the resource at uri.
func (c *sessionClient) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	if uri == "" {
		return nil, fmt.Errorf("resource uri is required")
	}

	resp, err := c.SendRequest(ctx, protocol.MethodResourcesRead, protocol.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, err
	}

	var result protocol.ReadResourceResult
	if err := resp.DecodeResult(&result); err != nil {
		return nil, fmt.Errorf("failed to decode resource %s: %w", uri, err)
	}
	return &result, nil
}

// CallTool calls a tool on the server.
func (c *sessionClient) CallTool(ctx context.Context, toolName string, arguments interface{}) (*protocol.CallToolResult, error) {
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	resp, err := c.SendRequest(ctx, protocol.MethodToolsCall, protocol.CallToolParams{
		Name:      toolName,
		Arguments: arguments,
	})
	if err != nil {
		return nil, err
	}

	var result protocol.CallToolResult
	if err := resp.DecodeResult(&result); err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", toolName, err)
	}

	if result.IsError {
		return &result, &ToolError{Tool: toolName, Message: result.FirstText()}
	}

	return &result, nil
}

// CallToolJSON calls a tool and decodes its first text content into out.
func (c *sessionClient) CallToolJSON(ctx context.Context, toolName string, arguments interface{}, out interface{}) error {
	result, err := c.CallTool(ctx, toolName, arguments)
	if err != nil {
		return err
	}

	text := result.FirstText()
	if text == "" {
		return fmt.Errorf("tool %s returned no text content", toolName)
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to decode %s content: %w", toolName, err)
	}
	return nil
}

// idKey normalizes a JSON-RPC id so a sent int64 and a decoded float64 compare equal.
func idKey(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// matchesRequest reports whether msg is the response to request.
func matchesRequest(request, msg *protocol.JSONRPCMessage) bool {
	return msg.IsResponse() && idKey(msg.ID) == idKey(request.ID)
}

var _ McpClient = (*sessionClient)(nil)

