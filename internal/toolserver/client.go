// Package toolserver connects to external tool servers over WebSocket
// and merges their advertised tools into the registry as ordinary
// contracts whose execution forwards over the socket.
package toolserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/inkwellai/inkwell/internal/tools"
)

// DefaultCallTimeout bounds a single remote tool invocation.
const DefaultCallTimeout = 60 * time.Second

// frame is the wire envelope in both directions.
type frame struct {
	Type      string         `json:"type"`
	ID        string         `json:"id,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Tools     []toolSpec     `json:"tools,omitempty"`
	Output    string         `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// toolSpec is a tool contract as advertised by the server.
type toolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Parameters  map[string]any `json:"parameters"`
}

// Client maintains one tool-server connection.
type Client struct {
	url      string
	registry *tools.Registry
	timeout  time.Duration

	mu         sync.Mutex
	conn       *websocket.Conn
	pending    map[string]chan *frame
	registered []string
	closed     bool
}

// NewClient creates a client for the given ws:// or wss:// URL.
func NewClient(url string, registry *tools.Registry) *Client {
	return &Client{
		url:      url,
		registry: registry,
		timeout:  DefaultCallTimeout,
		pending:  make(map[string]chan *frame),
	}
}

// Connect dials the server, requests its tool list, and registers each
// advertised tool. The read pump runs until the connection drops, at
// which point every registered tool is removed again.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial tool server %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	if err := conn.WriteJSON(&frame{Type: "list_tools"}); err != nil {
		conn.Close()
		return fmt.Errorf("request tool list: %w", err)
	}

	var listing frame
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.ReadJSON(&listing); err != nil {
		conn.Close()
		return fmt.Errorf("read tool list: %w", err)
	}
	conn.SetReadDeadline(time.Time{})
	if listing.Type != "tools" {
		conn.Close()
		return fmt.Errorf("unexpected handshake frame: %s", listing.Type)
	}

	for _, spec := range listing.Tools {
		category, ok := tools.ParseCategory(spec.Category)
		if !ok {
			// Unknown categories are treated as destructive so they
			// never run unconfirmed.
			category = tools.CategoryDestructive
		}
		remote := &RemoteTool{
			client:      c,
			name:        spec.Name,
			description: spec.Description,
			category:    category,
			parameters:  spec.Parameters,
		}
		if err := c.registry.Register(remote); err != nil {
			slog.Warn("Skipping remote tool", "tool", spec.Name, "error", err)
			continue
		}
		c.mu.Lock()
		c.registered = append(c.registered, spec.Name)
		c.mu.Unlock()
	}

	go c.readPump()
	slog.Info("Connected to tool server", "url", c.url, "tools", len(listing.Tools))
	return nil
}

// Close tears down the connection and unregisters its tools.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	names := c.registered
	c.registered = nil
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	for _, name := range names {
		c.registry.Unregister(name)
	}
	if conn != nil {
		conn.Close()
	}
}

// readPump dispatches correlated responses to waiting callers.
func (c *Client) readPump() {
	for {
		var f frame
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		if err := conn.ReadJSON(&f); err != nil {
			slog.Warn("Tool server connection lost", "url", c.url, "error", err)
			c.Close()
			return
		}
		if f.Type != "tool_result" || f.ID == "" {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		if ok {
			delete(c.pending, f.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- &f
		}
	}
}

// call sends one tool invocation and waits for its correlated result.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (string, error) {
	id := uuid.NewString()
	ch := make(chan *frame, 1)

	c.mu.Lock()
	if c.closed || c.conn == nil {
		c.mu.Unlock()
		return "", fmt.Errorf("tool server disconnected")
	}
	c.pending[id] = ch
	err := c.conn.WriteJSON(&frame{Type: "call_tool", ID: id, Tool: tool, Arguments: args})
	c.mu.Unlock()
	if err != nil {
		c.forget(id)
		return "", fmt.Errorf("send tool call: %w", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case f, ok := <-ch:
		if !ok {
			return "", fmt.Errorf("tool server disconnected")
		}
		if f.Error != "" {
			return "", fmt.Errorf("%s", f.Error)
		}
		return f.Output, nil
	case <-timer.C:
		c.forget(id)
		return "", fmt.Errorf("tool server call timed out after %s", c.timeout)
	case <-ctx.Done():
		c.forget(id)
		return "", ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// RemoteTool is a registry contract whose execution forwards to a
// connected tool server.
type RemoteTool struct {
	client      *Client
	name        string
	description string
	category    tools.Category
	parameters  map[string]any
}

func (t *RemoteTool) Name() string               { return t.name }
func (t *RemoteTool) Description() string        { return t.description }
func (t *RemoteTool) Category() tools.Category   { return t.category }
func (t *RemoteTool) Parameters() map[string]any { return t.parameters }

func (t *RemoteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	output, err := t.client.call(ctx, t.name, args)
	if err != nil {
		return fmt.Sprintf("Error calling remote tool %s: %v", t.name, err), nil
	}
	return output, nil
}
