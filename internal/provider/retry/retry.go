// Package retry decorates an LLM provider with bounded retries and
// exponential backoff.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwellai/inkwell/internal/provider"
)

const (
	// DefaultMaxRetries is the total number of attempts per call.
	DefaultMaxRetries = 3
	// DefaultInitialBackoff is the delay after the first failure; it
	// doubles after each subsequent failure (no jitter).
	DefaultInitialBackoff = 1000 * time.Millisecond
)

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("model call failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Options configures the decorator.
type Options struct {
	MaxRetries     int
	InitialBackoff time.Duration
	// OnStreamRestart is invoked before a streaming attempt is retried,
	// so renderers can discard the previous attempt's partial output.
	OnStreamRestart func(attempt int)
}

// Provider wraps an LLMProvider, retrying failed calls. It implements
// both provider.LLMProvider and provider.Streamer.
type Provider struct {
	inner           provider.LLMProvider
	maxRetries      int
	initialBackoff  time.Duration
	onStreamRestart func(attempt int)

	// sleep is swapped in tests to observe backoff without waiting.
	sleep func(time.Duration)
}

// New creates a retry-decorated provider.
func New(inner provider.LLMProvider, opts Options) *Provider {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = DefaultInitialBackoff
	}
	return &Provider{
		inner:           inner,
		maxRetries:      maxRetries,
		initialBackoff:  backoff,
		onStreamRestart: opts.OnStreamRestart,
		sleep:           time.Sleep,
	}
}

// DefaultModel returns the wrapped provider's default model.
func (p *Provider) DefaultModel() string { return p.inner.DefaultModel() }

// backoffFor returns the delay after the given failed attempt
// (0-indexed): initial × 2^attempt.
func (p *Provider) backoffFor(attempt int) time.Duration {
	return p.initialBackoff << uint(attempt)
}

// Chat calls the wrapped provider, retrying on failure until the
// attempt budget is spent.
func (p *Provider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := p.inner.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt+1 < p.maxRetries {
			delay := p.backoffFor(attempt)
			slog.Warn("Model call failed, retrying", "attempt", attempt+1, "backoff", delay, "error", err)
			p.sleep(delay)
		}
	}
	return nil, &ExhaustedError{Attempts: p.maxRetries, Last: lastErr}
}

// ChatStream calls the wrapped provider's streaming operation,
// retrying the stream as a whole on failure. Chunks emitted before a
// retry were already delivered and are not rolled back; the
// OnStreamRestart callback tells the consumer to treat them as a
// discarded partial render. If the wrapped provider has no streaming
// capability, the non-streaming call is used and the full text is
// synthesized as a single chunk.
func (p *Provider) ChatStream(ctx context.Context, req *provider.ChatRequest, onChunk func(string)) (*provider.ChatResponse, error) {
	streamer, canStream := p.inner.(provider.Streamer)

	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var resp *provider.ChatResponse
		var err error
		if canStream {
			resp, err = streamer.ChatStream(ctx, req, onChunk)
		} else {
			resp, err = p.inner.Chat(ctx, req)
			if err == nil && resp.Content != "" && onChunk != nil {
				onChunk(resp.Content)
			}
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// A cancelled context must suppress further attempts.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt+1 < p.maxRetries {
			delay := p.backoffFor(attempt)
			slog.Warn("Model stream failed, restarting", "attempt", attempt+1, "backoff", delay, "error", err)
			p.sleep(delay)
			if p.onStreamRestart != nil {
				p.onStreamRestart(attempt + 1)
			}
		}
	}
	return nil, &ExhaustedError{Attempts: p.maxRetries, Last: lastErr}
}
