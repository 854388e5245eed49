package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/traego/mcp-db-assistant/pkg/protocol"
	"github.com/traego/mcp-db-assistant/pkg/utils"
)

// maxLineSize bounds a single message line read from the server.
const maxLineSize = 16 * 1024 * 1024

// stdioTransport exchanges newline-delimited JSON-RPC messages with a server
// process over its stdin and stdout.
type stdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader

	writeMutex sync.Mutex

	responses      map[string]chan *protocol.JSONRPCMessage
	responsesMutex sync.Mutex

	notifyMutex sync.RWMutex
	notify      func(*protocol.JSONRPCMessage)

	done      chan struct{}
	closeOnce sync.Once
	readErr   error
}

// newStdioTransport spawns command and starts reading its stdout.
func newStdioTransport(command string, args []string) (*stdioTransport, error) {
	if command == "" {
		return nil, errors.New("stdio transport requires a command")
	}

	cmd := exec.Command(command, args...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	slog.Info("Started MCP server process", "command", command, "pid", cmd.Process.Pid)

	t := newStdioIO(stdout, stdin)
	t.cmd = cmd
	return t, nil
}

// newStdioIO returns a transport over existing streams instead of a subprocess.
func newStdioIO(input io.Reader, output io.WriteCloser) *stdioTransport {
	t := &stdioTransport{
		stdin:     output,
		stdout:    input,
		responses: make(map[string]chan *protocol.JSONRPCMessage),
		done:      make(chan struct{}),
	}
	go t.readResponses()
	return t
}

// readResponses reads messages until stdout is closed and routes them to
// waiting requests or to the notification handler.
func (t *stdioTransport) readResponses() {
	scanner := bufio.NewScanner(t.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		utils.GetLogger().Trace("Received message", "body", string(line))

		var message protocol.JSONRPCMessage
		if err := json.Unmarshal(line, &message); err != nil {
			slog.Warn("Failed to parse message from server", "error", err)
			continue
		}

		t.handleMessage(&message)
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}

	t.responsesMutex.Lock()
	t.readErr = err
	for id, ch := range t.responses {
		close(ch)
		delete(t.responses, id)
	}
	t.responsesMutex.Unlock()
}

func (t *stdioTransport) handleMessage(message *protocol.JSONRPCMessage) {
	if message.IsResponse() {
		key := idKey(message.ID)

		t.responsesMutex.Lock()
		ch, ok := t.responses[key]
		if ok {
			delete(t.responses, key)
		}
		t.responsesMutex.Unlock()

		if ok {
			ch <- message
			return
		}
		slog.Debug("No pending request for response", "id", message.ID)
		return
	}

	t.notifyMutex.RLock()
	notify := t.notify
	t.notifyMutex.RUnlock()

	if notify != nil {
		notify(message)
	}
}

func (t *stdioTransport) setNotify(notify func(*protocol.JSONRPCMessage)) {
	t.notifyMutex.Lock()
	defer t.notifyMutex.Unlock()
	t.notify = notify
}

// writeMessage writes one message followed by a newline.
func (t *stdioTransport) writeMessage(ctx context.Context, message *protocol.JSONRPCMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	utils.GetLogger().WithContext(ctx).Trace("Sending message", "method", message.Method, "body", string(data))
	data = append(data, '\n')

	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	if _, err := t.stdin.Write(data); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

func (t *stdioTransport) roundTrip(ctx context.Context, request *protocol.JSONRPCMessage, notify func(*protocol.JSONRPCMessage)) (*protocol.JSONRPCMessage, error) {
	t.setNotify(notify)

	key := idKey(request.ID)
	ch := make(chan *protocol.JSONRPCMessage, 1)

	t.responsesMutex.Lock()
	if t.readErr != nil {
		err := t.readErr
		t.responsesMutex.Unlock()
		return nil, fmt.Errorf("server output closed: %w", err)
	}
	t.responses[key] = ch
	t.responsesMutex.Unlock()

	cleanup := func() {
		t.responsesMutex.Lock()
		delete(t.responses, key)
		t.responsesMutex.Unlock()
	}

	if err := t.writeMessage(ctx, request); err != nil {
		cleanup()
		return nil, err
	}

	select {
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	case <-t.done:
		return nil, ErrClientClosed
	case response, ok := <-ch:
		if !ok {
			return nil, errors.New("server output closed before a response arrived")
		}
		return response, nil
	}
}

func (t *stdioTransport) send(ctx context.Context, notification *protocol.JSONRPCMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.writeMessage(ctx, notification)
}

// subscribe registers notify for server-initiated messages. Notifications
// arrive on stdout, so no extra stream is opened.
func (t *stdioTransport) subscribe(ctx context.Context, notify func(*protocol.JSONRPCMessage)) error {
	t.setNotify(notify)
	return nil
}

// Session ids are an HTTP concept.
func (t *stdioTransport) sessionID() string     { return "" }
func (t *stdioTransport) setSessionID(id string) {}

// close closes stdin and waits for the server process to exit.
func (t *stdioTransport) close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)

		if cerr := t.stdin.Close(); cerr != nil {
			err = fmt.Errorf("failed to close stdin: %w", cerr)
		}

		if t.cmd != nil {
			if werr := t.cmd.Wait(); werr != nil && err == nil {
				var exitErr *exec.ExitError
				if !errors.As(werr, &exitErr) {
					err = fmt.Errorf("failed to wait for server process: %w", werr)
				}
			}
		}
	})
	return err
}
