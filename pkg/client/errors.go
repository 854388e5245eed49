package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when a request other than initialize is
	// sent before Connect succeeded.
	ErrNotInitialized = errors.New("client not initialized")

	// ErrClientClosed is returned for any call made after Close.
	ErrClientClosed = errors.New("client closed")

	// ErrToolNotFound is returned by FindTool.
	ErrToolNotFound = errors.New("tool not found")
)

// HTTPStatusError is returned when the server answers with a non-2xx status.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected response status: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected response status: %d: %s", e.StatusCode, e.Body)
}

// ToolError is returned when a tool result is flagged with isError.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}
