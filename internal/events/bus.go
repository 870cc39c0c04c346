// Package events provides the async event bus frontends subscribe to
// for turn progress: rounds, tool activity, stream chunks, notices.
package events

import (
	"context"
	"sync"
	"time"
)

// Event types published during an agent turn.
const (
	TypeTurnStarted     = "turn_started"
	TypeRoundStarted    = "round_started"
	TypeToolStarted     = "tool_started"
	TypeToolFinished    = "tool_finished"
	TypeStreamChunk     = "stream_chunk"
	TypeStreamRestarted = "stream_restarted"
	TypeNotice          = "notice"
	TypeTurnFinished    = "turn_finished"
)

// Event is one turn progress notification.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	TurnID    string         `json:"turn_id,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Round     int            `json:"round,omitempty"`
	Text      string         `json:"text,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Bus decouples the agent core from frontends. A nil *Bus drops every
// event, so wiring one up is optional.
type Bus struct {
	events chan *Event
	subs   map[string][]func(*Event)
	mu     sync.RWMutex
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		events: make(chan *Event, 100),
		subs:   make(map[string][]func(*Event)),
	}
}

// Publish queues an event for dispatch. Publishing never blocks the
// agent; if the queue is full the event is dropped.
func (b *Bus) Publish(e *Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case b.events <- e:
	default:
	}
}

// Subscribe registers a callback for a specific event type. Subscribe
// to "*" to receive everything.
func (b *Bus) Subscribe(eventType string, callback func(*Event)) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[eventType] = append(b.subs[eventType], callback)
}

// Dispatch runs the event dispatcher until the context is cancelled.
// This should be run as a goroutine.
func (b *Bus) Dispatch(ctx context.Context) error {
	if b == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-b.events:
			b.mu.RLock()
			callbacks := append([]func(*Event){}, b.subs[e.Type]...)
			callbacks = append(callbacks, b.subs["*"]...)
			b.mu.RUnlock()

			for _, cb := range callbacks {
				cb(e)
			}
		}
	}
}

// Pending returns the number of queued, undispatched events.
func (b *Bus) Pending() int {
	if b == nil {
		return 0
	}
	return len(b.events)
}
