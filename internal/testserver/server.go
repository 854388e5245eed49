// Package testserver provides an in-process MCP server for tests. It speaks
// the same HTTP surface as the database MCP server: JSON-RPC on POST / and
// an SSE event stream on GET /events.
package testserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/traego/mcp-db-assistant/pkg/protocol"
)

// ToolHandler executes a tool call. Returning an error produces a JSON-RPC
// error response; tool-level failures are returned as a result with IsError set.
type ToolHandler func(ctx context.Context, arguments json.RawMessage) (*protocol.CallToolResult, error)

// RecordedRequest is a message received by the server.
type RecordedRequest struct {
	Message protocol.JSONRPCMessage
	Header  http.Header
}

// Server is a fake MCP server.
type Server struct {
	router chi.Router

	serverInfo      protocol.ServerInfo
	apiKey          string
	sessionID       string
	streamResponses bool

	toolsMutex sync.RWMutex
	tools      []protocol.Tool
	handlers   map[string]ToolHandler

	resourcesMutex   sync.RWMutex
	resources        []protocol.Resource
	resourceContents map[string]protocol.ResourceContents

	requestsMutex sync.Mutex
	requests      []RecordedRequest

	subscribersMutex sync.Mutex
	subscribers      map[*SSEChannel]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey requires the key as a bearer token or X-API-Key header.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithSessionID returns id in the Mcp-Session-Id header of the initialize response.
func WithSessionID(id string) Option {
	return func(s *Server) { s.sessionID = id }
}

// WithStreamedResponses answers requests with a text/event-stream body.
func WithStreamedResponses() Option {
	return func(s *Server) { s.streamResponses = true }
}

// WithTool registers a tool.
func WithTool(tool protocol.Tool, handler ToolHandler) Option {
	return func(s *Server) { s.AddTool(tool, handler) }
}

// New creates a fake MCP server.
func New(opts ...Option) *Server {
	s := &Server{
		serverInfo:  protocol.ServerInfo{Name: "redi-orm-mcp", Version: "1.0.0"},
		handlers:         make(map[string]ToolHandler),
		resourceContents: make(map[string]protocol.ResourceContents),
		subscribers:      make(map[*SSEChannel]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", "Mcp-Session-Id"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
	}))
	r.Use(s.authMiddleware)

	r.Post("/", s.handlePost)
	r.Get("/events", s.handleEvents)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router = r
	return s
}

// Start serves s on a local listener that is closed when the test ends.
func Start(t testing.TB, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s := New(opts...)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddTool registers or replaces a tool.
func (s *Server) AddTool(tool protocol.Tool, handler ToolHandler) {
	s.toolsMutex.Lock()
	defer s.toolsMutex.Unlock()

	if _, exists := s.handlers[tool.Name]; !exists {
		s.tools = append(s.tools, tool)
	}
	s.handlers[tool.Name] = handler
}

// AddResource registers or replaces a resource whose contents are text.
func (s *Server) AddResource(resource protocol.Resource, text string) {
	s.resourcesMutex.Lock()
	defer s.resourcesMutex.Unlock()

	if _, exists := s.resourceContents[resource.URI]; !exists {
		s.resources = append(s.resources, resource)
	}
	s.resourceContents[resource.URI] = protocol.ResourceContents{
		URI:      resource.URI,
		MimeType: resource.MimeType,
		Text:     text,
	}
}

// Requests returns the messages received so far.
func (s *Server) Requests() []RecordedRequest {
	s.requestsMutex.Lock()
	defer s.requestsMutex.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// ToolCalls returns the params of every tools/call received, in order.
func (s *Server) ToolCalls() []protocol.CallToolParams {
	var calls []protocol.CallToolParams
	for _, req := range s.Requests() {
		if req.Message.Method != protocol.MethodToolsCall {
			continue
		}
		raw, _ := json.Marshal(req.Message.Params)
		var params protocol.CallToolParams
		_ = json.Unmarshal(raw, &params)
		calls = append(calls, params)
	}
	return calls
}

// SubscriberCount returns the number of open event streams.
func (s *Server) SubscriberCount() int {
	s.subscribersMutex.Lock()
	defer s.subscribersMutex.Unlock()
	return len(s.subscribers)
}

// Publish sends msg to every open event stream.
func (s *Server) Publish(msg protocol.JSONRPCMessage) {
	s.subscribersMutex.Lock()
	defer s.subscribersMutex.Unlock()

	for ch := range s.subscribers {
		_ = ch.Send("", msg)
	}
}

func (s *Server) record(msg protocol.JSONRPCMessage, header http.Header) {
	s.requestsMutex.Lock()
	defer s.requestsMutex.Unlock()
	s.requests = append(s.requests, RecordedRequest{Message: msg, Header: header.Clone()})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			key = strings.TrimPrefix(auth, "Bearer ")
		}

		if key != s.apiKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
