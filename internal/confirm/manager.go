// Package confirm provides interactive confirmation gates for tool
// calls that mutate or destroy vault content.
package confirm

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout is how long a confirmation stays open before it is
// treated as declined.
const DefaultTimeout = 60 * time.Second

// Request describes one pending confirmation.
type Request struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Category  string         `json:"category"`
	Prompt    string         `json:"prompt"`
	Arguments map[string]any `json:"arguments"`
	SessionID string         `json:"session_id"`
	CreatedAt time.Time      `json:"created_at"`
}

// Confirmer is the gate the execution engine consults before running a
// tool that requires confirmation.
type Confirmer interface {
	// Confirm blocks until the user decides or the context expires.
	// A timeout counts as declined.
	Confirm(ctx context.Context, req *Request) (bool, error)
}

// AutoApprove is a Confirmer that grants everything. Useful for tests
// and for sessions explicitly run unattended.
type AutoApprove struct{}

func (AutoApprove) Confirm(ctx context.Context, req *Request) (bool, error) {
	return true, nil
}

// AutoDecline is a Confirmer that declines everything.
type AutoDecline struct{}

func (AutoDecline) Confirm(ctx context.Context, req *Request) (bool, error) {
	return false, nil
}

// Manager handles the confirmation lifecycle: create, wait, respond.
// Frontends observe pending requests via OnRequest and deliver
// decisions with Respond.
type Manager struct {
	mu        sync.Mutex
	pending   map[string]chan bool
	onRequest func(*Request)
	timeout   time.Duration
}

// NewManager creates a confirmation manager. onRequest is called for
// every new pending request so a frontend can surface it; it may be
// nil, in which case every request times out.
func NewManager(timeout time.Duration, onRequest func(*Request)) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		pending:   make(map[string]chan bool),
		onRequest: onRequest,
		timeout:   timeout,
	}
}

// Confirm registers the request, notifies the frontend, and blocks
// until a decision arrives or the window closes. Timeout and context
// cancellation both resolve to declined.
func (m *Manager) Confirm(ctx context.Context, req *Request) (bool, error) {
	id := m.create(req)

	waitCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	return m.wait(waitCtx, id)
}

// create registers a new pending request and returns its ID.
func (m *Manager) create(req *Request) string {
	id := newRequestID()
	req.ID = id
	req.CreatedAt = time.Now()

	ch := make(chan bool, 1)
	m.mu.Lock()
	m.pending[id] = ch
	m.mu.Unlock()

	if m.onRequest != nil {
		m.onRequest(req)
	}
	return id
}

// wait blocks until the request is responded to or the context expires.
func (m *Manager) wait(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	ch, ok := m.pending[id]
	m.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("no pending confirmation: %s", id)
	}

	select {
	case granted := <-ch:
		m.cleanup(id)
		return granted, nil
	case <-ctx.Done():
		m.cleanup(id)
		// An expired window is an ordinary decline, not an error.
		return false, nil
	}
}

// Respond delivers a decision for a pending request.
func (m *Manager) Respond(id string, granted bool) error {
	m.mu.Lock()
	ch, ok := m.pending[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending confirmation: %s", id)
	}

	// Non-blocking send (channel is buffered with size 1)
	select {
	case ch <- granted:
	default:
	}
	return nil
}

// Pending returns the IDs of requests still awaiting a decision.
func (m *Manager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) cleanup(id string) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return fmt.Sprintf("conf-%d", time.Now().UnixNano())
}
