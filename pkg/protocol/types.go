package protocol

import "encoding/json"

// JSONRPCVersion is the only JSON-RPC version spoken by the server.
const JSONRPCVersion = "2.0"

// JSONRPCMessage represents a JSON-RPC message
type JSONRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  interface{}     `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JsonRpcError   `json:"error,omitempty"`
}

// IsNotification reports whether the message carries no id.
func (m *JSONRPCMessage) IsNotification() bool {
	return m.ID == nil && m.Method != ""
}

// IsResponse reports whether the message is a response to a request.
func (m *JSONRPCMessage) IsResponse() bool {
	return m.ID != nil && m.Method == ""
}

// DecodeResult unmarshals the result payload into out.
func (m *JSONRPCMessage) DecodeResult(out interface{}) error {
	if len(m.Result) == 0 {
		return NewInternalError("response has no result", m.ID)
	}
	return json.Unmarshal(m.Result, out)
}

// ClientInfo represents information about the client
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo represents information about the server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams represents the parameters for an initialize request
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      ClientInfo         `json:"clientInfo"`
}

// InitializeResult represents the result of an initialize request
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	SessionID       string             `json:"sessionId,omitempty"`
}

// ClientCapabilities represents the capabilities of the client.
// The database client advertises none, which marshals as {}.
type ClientCapabilities struct {
	Roots        *RootsClientCapability    `json:"roots,omitempty"`
	Sampling     *SamplingClientCapability `json:"sampling,omitempty"`
	Experimental map[string]interface{}    `json:"experimental,omitempty"`
}

// RootsClientCapability represents the roots capability of the client
type RootsClientCapability struct {
	ListChanged bool `json:"listChanged"`
}

// SamplingClientCapability represents the sampling capability of the client
type SamplingClientCapability struct{}

// ServerCapabilities represents the capabilities of the server
type ServerCapabilities struct {
	Prompts      *PromptsServerCapability   `json:"prompts,omitempty"`
	Resources    *ResourcesServerCapability `json:"resources,omitempty"`
	Tools        *ToolsServerCapability     `json:"tools,omitempty"`
	Logging      *LoggingServerCapability   `json:"logging,omitempty"`
	Experimental map[string]interface{}     `json:"experimental,omitempty"`
}

// PromptsServerCapability represents the prompts capability of the server
type PromptsServerCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesServerCapability represents the resources capability of the server
type ResourcesServerCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// ToolsServerCapability represents the tools capability of the server
type ToolsServerCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// LoggingServerCapability represents the logging capability of the server
type LoggingServerCapability struct{}
