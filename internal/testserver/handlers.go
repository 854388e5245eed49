package testserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/traego/mcp-db-assistant/pkg/protocol"
)

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var msg protocol.JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		handleError(w, protocol.NewParseError(err.Error(), nil), nil)
		return
	}
	s.record(msg, r.Header)

	if msg.IsNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	result, err := s.dispatch(r, msg)
	if err != nil {
		handleError(w, err, msg.ID)
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		handleError(w, err, msg.ID)
		return
	}

	response := protocol.JSONRPCMessage{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      msg.ID,
		Result:  raw,
	}

	if msg.Method == protocol.MethodInitialize && s.sessionID != "" {
		w.Header().Set("Mcp-Session-Id", s.sessionID)
	}

	if s.streamResponses {
		ch := NewSSEChannel(w)
		_ = ch.Send("message", protocol.JSONRPCMessage{
			JSONRPC: protocol.JSONRPCVersion,
			Method:  "notifications/progress",
			Params:  map[string]interface{}{"request": msg.ID},
		})
		_ = ch.Send("message", response)
		return
	}

	writeMessage(w, response)
}

func (s *Server) dispatch(r *http.Request, msg protocol.JSONRPCMessage) (interface{}, error) {
	switch msg.Method {
	case protocol.MethodInitialize:
		var params protocol.InitializeParams
		if err := decodeParams(msg.Params, &params); err != nil {
			return nil, protocol.NewInvalidParamsError(err.Error(), msg.ID)
		}
		return protocol.InitializeResult{
			ProtocolVersion: params.ProtocolVersion,
			ServerInfo:      s.serverInfo,
			Capabilities: protocol.ServerCapabilities{
				Tools:     &protocol.ToolsServerCapability{},
				Resources: &protocol.ResourcesServerCapability{},
			},
		}, nil

	case protocol.MethodPing:
		return map[string]interface{}{}, nil

	case protocol.MethodToolsList:
		s.toolsMutex.RLock()
		defer s.toolsMutex.RUnlock()
		return protocol.ToolListResult{Tools: append([]protocol.Tool{}, s.tools...)}, nil

	case protocol.MethodToolsCall:
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := decodeParams(msg.Params, &params); err != nil {
			return nil, protocol.NewInvalidParamsError(err.Error(), msg.ID)
		}

		s.toolsMutex.RLock()
		handler, ok := s.handlers[params.Name]
		s.toolsMutex.RUnlock()
		if !ok {
			return nil, protocol.NewInternalError(fmt.Sprintf("unknown tool: %s", params.Name), msg.ID)
		}

		if len(params.Arguments) == 0 {
			params.Arguments = json.RawMessage("{}")
		}
		result, err := handler(r.Context(), params.Arguments)
		if err != nil {
			return nil, err
		}
		return result, nil

	case protocol.MethodResourcesList:
		s.resourcesMutex.RLock()
		defer s.resourcesMutex.RUnlock()
		return protocol.ResourceListResult{Resources: append([]protocol.Resource{}, s.resources...)}, nil

	case protocol.MethodResourcesRead:
		var params protocol.ReadResourceParams
		if err := decodeParams(msg.Params, &params); err != nil {
			return nil, protocol.NewInvalidParamsError(err.Error(), msg.ID)
		}

		s.resourcesMutex.RLock()
		contents, ok := s.resourceContents[params.URI]
		s.resourcesMutex.RUnlock()
		if !ok {
			return nil, protocol.NewInternalError(fmt.Sprintf("unknown resource URI: %s", params.URI), msg.ID)
		}
		return protocol.ReadResourceResult{Contents: []protocol.ResourceContents{contents}}, nil

	default:
		return nil, protocol.NewMethodNotFoundError(msg.Method, msg.ID)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ch := NewSSEChannel(w)

	clientID := uuid.NewString()
	if err := ch.Send("", map[string]string{"type": "connected", "clientId": clientID}); err != nil {
		slog.Error("Failed to send connected event", "error", err)
		return
	}

	s.subscribersMutex.Lock()
	s.subscribers[ch] = struct{}{}
	s.subscribersMutex.Unlock()

	<-r.Context().Done()

	s.subscribersMutex.Lock()
	delete(s.subscribers, ch)
	s.subscribersMutex.Unlock()
}

// decodeParams converts the generic params value into out.
func decodeParams(params interface{}, out interface{}) error {
	if params == nil {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func writeMessage(w http.ResponseWriter, msg protocol.JSONRPCMessage) {
	responseJSON, err := json.Marshal(msg)
	if err != nil {
		handleError(w, err, msg.ID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(responseJSON)
}

// handleError writes err as a JSON-RPC error response. Errors that are not
// JSON-RPC errors become internal errors.
func handleError(w http.ResponseWriter, err error, id interface{}) {
	var jsonRpcError *protocol.JsonRpcError
	if !errors.As(err, &jsonRpcError) {
		jsonRpcError = &protocol.JsonRpcError{Code: protocol.ErrInternal, Message: err.Error()}
	}
	if jsonRpcError.ID == nil {
		jsonRpcError.ID = id
	}

	response := jsonRpcError.ToResponse()
	responseJSON, marshalErr := json.Marshal(response)
	if marshalErr != nil {
		slog.Error("Failed to marshal JSON-RPC error response", "error", marshalErr)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(responseJSON)
}
