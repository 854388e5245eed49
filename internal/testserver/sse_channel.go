package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// SSEChannel writes server-sent events to one client.
type SSEChannel struct {
	mu sync.Mutex
	w  http.ResponseWriter
}

// NewSSEChannel writes the SSE headers and status.
func NewSSEChannel(w http.ResponseWriter) *SSEChannel {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	return &SSEChannel{w: w}
}

// Send sends an event with the given event type and data
func (c *SSEChannel) Send(eventType string, data interface{}) error {
	var dataStr string
	switch d := data.(type) {
	case string:
		dataStr = d
	default:
		jsonData, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("error marshaling event data: %w", err)
		}
		dataStr = string(jsonData)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if eventType != "" {
		if _, err := fmt.Fprintf(c.w, "event: %s\n", eventType); err != nil {
			return fmt.Errorf("error writing event type: %w", err)
		}
	}

	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", dataStr); err != nil {
		return fmt.Errorf("error writing event data: %w", err)
	}

	if flusher, ok := c.w.(http.Flusher); ok {
		flusher.Flush()
		return nil
	}

	return fmt.Errorf("response writer does not support flushing")
}
