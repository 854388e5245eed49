package protocol

// ProtocolVersion represents the MCP protocol version to use.
type ProtocolVersion string

const (
	// ProtocolVersion20241105 represents the 2024-11-05 MCP specification.
	// This is the version the database server answers with.
	ProtocolVersion20241105 ProtocolVersion = "2024-11-05"

	// ProtocolVersion20250326 represents the 2025-03-26 MCP specification.
	ProtocolVersion20250326 ProtocolVersion = "2025-03-26"
)

// Core MCP methods
const (
	MethodInitialize              = "initialize"
	MethodNotificationInitialized = "notifications/initialized"
	MethodPing                    = "ping"
	MethodToolsList               = "tools/list"
	MethodToolsCall               = "tools/call"
	MethodResourcesList           = "resources/list"
	MethodResourcesRead           = "resources/read"
)

// IsSupported reports whether v is a version this client can negotiate.
func (v ProtocolVersion) IsSupported() bool {
	switch v {
	case ProtocolVersion20241105, ProtocolVersion20250326:
		return true
	default:
		return false
	}
}
