// Package trace publishes turn spans to a Kafka topic so agent
// activity can be observed off-process. The publisher is optional: a
// nil *Publisher drops every span.
package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Span is one observed unit of turn work.
type Span struct {
	TraceID   string         `json:"trace_id"`
	SessionID string         `json:"session_id"`
	Name      string         `json:"name"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Publisher writes spans to Kafka with a small bounded retry.
type Publisher struct {
	writer  *kafka.Writer
	agentID string
}

// NewPublisher creates a span publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic, agentID string) (*Publisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("brokers and topic are required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: writer, agentID: agentID}, nil
}

// Emit publishes a span, best-effort. Failures are logged, never
// surfaced: tracing must not affect the turn.
func (p *Publisher) Emit(ctx context.Context, span *Span) {
	if p == nil || p.writer == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"agent_id": p.agentID,
		"span":     span,
	})
	if err != nil {
		return
	}

	msg := kafka.Message{
		Key:   []byte(span.TraceID),
		Value: payload,
		Time:  time.Now(),
	}
	for attempt := 0; attempt < 3; attempt++ {
		wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = p.writer.WriteMessages(wctx, msg)
		cancel()
		if err == nil {
			return
		}
	}
	slog.Warn("Failed to publish trace span", "name", span.Name, "error", err)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
