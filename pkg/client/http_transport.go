package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"

	"github.com/traego/mcp-db-assistant/pkg/protocol"
	"github.com/traego/mcp-db-assistant/pkg/utils"
)

const (
	sessionIDHeader = "Mcp-Session-Id"

	// maxErrorBodySize caps how much of a non-2xx body is kept in HTTPStatusError.
	maxErrorBodySize = 4096
)

// httpTransport posts JSON-RPC messages to the server's base URL.
type httpTransport struct {
	endpoint   string
	eventsURL  string
	httpClient *http.Client
	apiKey     string

	sessionIdMutex sync.Mutex
	session        string

	sseMutex  sync.Mutex
	cancelSSE context.CancelFunc
}

func newHTTPTransport(serverURL string, options ClientOptions) (*httpTransport, error) {
	endpoint := strings.TrimRight(serverURL, "/")

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", serverURL)
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &httpTransport{
		endpoint:   endpoint,
		eventsURL:  endpoint + "/events",
		httpClient: httpClient,
		apiKey:     options.APIKey,
	}, nil
}

func (t *httpTransport) sessionID() string {
	t.sessionIdMutex.Lock()
	defer t.sessionIdMutex.Unlock()
	return t.session
}

func (t *httpTransport) setSessionID(id string) {
	t.sessionIdMutex.Lock()
	defer t.sessionIdMutex.Unlock()
	t.session = id
}

// roundTrip posts the request and reads the response from the body, which is
// either a single JSON document or an SSE stream.
func (t *httpTransport) roundTrip(ctx context.Context, request *protocol.JSONRPCMessage, notify func(*protocol.JSONRPCMessage)) (*protocol.JSONRPCMessage, error) {
	resp, err := t.post(ctx, request, "application/json, text/event-stream")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if id := resp.Header.Get(sessionIDHeader); id != "" && request.Method == protocol.MethodInitialize {
		t.setSessionID(id)
	}

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	return t.processHTTPResponse(resp, request, notify)
}

// send posts a notification; the body of the answer is discarded.
func (t *httpTransport) send(ctx context.Context, notification *protocol.JSONRPCMessage) error {
	resp, err := t.post(ctx, notification, "application/json")
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return checkStatus(resp)
}

// post creates and sends an HTTP request with the given payload
func (t *httpTransport) post(ctx context.Context, payload *protocol.JSONRPCMessage, accept string) (*http.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	utils.GetLogger().WithContext(ctx).Trace("Sending message", "method", payload.Method, "body", string(reqBody))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	t.setCommonHeaders(ctx, req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

func (t *httpTransport) setCommonHeaders(ctx context.Context, req *http.Request) {
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}
	if id := t.sessionID(); id != "" {
		req.Header.Set(sessionIDHeader, id)
	}
	if traceID := utils.GetTraceId(ctx); traceID != "" {
		req.Header.Set(utils.TraceHeader, traceID)
	}
}

// checkStatus turns a non-2xx response into an *HTTPStatusError.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return &HTTPStatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// processHTTPResponse decodes the response body according to its content type.
func (t *httpTransport) processHTTPResponse(resp *http.Response, request *protocol.JSONRPCMessage, notify func(*protocol.JSONRPCMessage)) (*protocol.JSONRPCMessage, error) {
	mediaType := "application/json"
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, fmt.Errorf("invalid content type %q: %w", ct, err)
		}
		mediaType = parsed
	}

	switch mediaType {
	case "text/event-stream":
		return t.readSSEResponse(resp.Body, request, notify)
	case "application/json":
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		utils.GetLogger().Trace("Received message", "body", string(data))

		if len(bytes.TrimSpace(data)) == 0 {
			return nil, fmt.Errorf("server returned an empty response (status %d)", resp.StatusCode)
		}
		var response protocol.JSONRPCMessage
		if err := json.Unmarshal(data, &response); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return &response, nil
	default:
		return nil, fmt.Errorf("unexpected content type: %s", mediaType)
	}
}

// readSSEResponse reads events until the one answering request arrives.
// Other messages on the stream are passed to notify.
func (t *httpTransport) readSSEResponse(body io.Reader, request *protocol.JSONRPCMessage, notify func(*protocol.JSONRPCMessage)) (*protocol.JSONRPCMessage, error) {
	for event, err := range sse.Read(body, nil) {
		if err != nil {
			return nil, fmt.Errorf("failed to read event stream: %w", err)
		}
		if event.Data == "" {
			continue
		}
		utils.GetLogger().Trace("Received event", "type", event.Type, "data", event.Data)

		var message protocol.JSONRPCMessage
		if err := json.Unmarshal([]byte(event.Data), &message); err != nil {
			slog.Warn("Failed to parse SSE event", "error", err, "type", event.Type)
			continue
		}

		if matchesRequest(request, &message) || (message.ID == nil && message.Error != nil) {
			return &message, nil
		}

		notify(&message)
	}

	return nil, fmt.Errorf("event stream ended without a response to request %v", request.ID)
}

// subscribe opens the GET /events stream and forwards every JSON-RPC
// message to notify. It returns once the first event arrived.
func (t *httpTransport) subscribe(ctx context.Context, notify func(*protocol.JSONRPCMessage)) error {
	slog.Info("Setting up SSE connection", "endpoint", t.eventsURL)

	sseCtx, cancel := context.WithCancel(ctx)

	t.sseMutex.Lock()
	if t.cancelSSE != nil {
		t.cancelSSE()
	}
	t.cancelSSE = cancel
	t.sseMutex.Unlock()

	req, err := http.NewRequestWithContext(sseCtx, http.MethodGet, t.eventsURL, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create SSE request: %w", err)
	}
	t.setCommonHeaders(ctx, req)

	sseClient := &sse.Client{HTTPClient: t.httpClient}
	conn := sseClient.NewConnection(req)

	connectionEstablished := make(chan struct{}, 1)
	connectionError := make(chan error, 1)

	conn.SubscribeToAll(func(event sse.Event) {
		select {
		case connectionEstablished <- struct{}{}:
		default:
		}
		utils.GetLogger().Trace("Received event", "type", event.Type, "data", event.Data)

		var message protocol.JSONRPCMessage
		if err := json.Unmarshal([]byte(event.Data), &message); err != nil {
			slog.Warn("Failed to parse SSE event", "error", err)
			return
		}

		// Greeting and status events are plain JSON objects, not JSON-RPC.
		if message.JSONRPC == "" {
			slog.Debug("Ignoring non JSON-RPC event", "data", event.Data)
			return
		}

		notify(&message)
	})

	go func() {
		err := conn.Connect()
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("SSE connection error", "error", err)
			select {
			case connectionError <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case err := <-connectionError:
		cancel()
		return fmt.Errorf("failed to establish SSE connection: %w", err)
	case <-connectionEstablished:
		return nil
	case <-time.After(5 * time.Second):
		cancel()
		return fmt.Errorf("timeout waiting for SSE connection")
	}
}

func (t *httpTransport) close() error {
	t.sseMutex.Lock()
	defer t.sseMutex.Unlock()

	if t.cancelSSE != nil {
		t.cancelSSE()
		t.cancelSSE = nil
	}
	return nil
}
