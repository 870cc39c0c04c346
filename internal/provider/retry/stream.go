package retry

import (
	"context"
	"sync"

	"github.com/inkwellai/inkwell/internal/provider"
)

// StreamHandle represents an in-flight streaming call. Cancel stops
// chunk delivery and suppresses any further retry attempts.
type StreamHandle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	resp      *provider.ChatResponse
	err       error
}

// Cancel aborts the in-flight call. Chunks already delivered are not
// retracted; no further chunks or retries follow.
func (h *StreamHandle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.cancel()
}

// Cancelled reports whether Cancel was invoked.
func (h *StreamHandle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Wait blocks until the call completes and returns its outcome. After
// Cancel, Wait returns the context error.
func (h *StreamHandle) Wait() (*provider.ChatResponse, error) {
	<-h.done
	return h.resp, h.err
}

// StartStream begins a retry-wrapped streaming call in the background
// and returns a cancellable handle. Chunk callbacks stop once the
// handle is cancelled, even if the underlying attempt is still
// draining.
func (p *Provider) StartStream(ctx context.Context, req *provider.ChatRequest, onChunk func(string)) *StreamHandle {
	callCtx, cancel := context.WithCancel(ctx)
	h := &StreamHandle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	guarded := func(chunk string) {
		if h.Cancelled() {
			return
		}
		if onChunk != nil {
			onChunk(chunk)
		}
	}

	go func() {
		defer close(h.done)
		resp, err := p.ChatStream(callCtx, req, guarded)
		h.mu.Lock()
		h.resp, h.err = resp, err
		h.mu.Unlock()
	}()

	return h
}
