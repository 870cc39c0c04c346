// Package agent drives one user message through model calls and tool
// executions to a final answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellai/inkwell/internal/audit"
	"github.com/inkwellai/inkwell/internal/engine"
	"github.com/inkwellai/inkwell/internal/events"
	"github.com/inkwellai/inkwell/internal/provider"
	"github.com/inkwellai/inkwell/internal/session"
	"github.com/inkwellai/inkwell/internal/tools"
	"github.com/inkwellai/inkwell/internal/trace"
)

// DefaultMaxRounds bounds how many model-call/tool-execution cycles a
// single turn may run before it is terminated.
const DefaultMaxRounds = 10

// ErrTurnInFlight is returned when a session already has an active turn.
var ErrTurnInFlight = errors.New("a turn is already in flight for this session")

// MaxRoundsError reports that a turn hit the round ceiling without the
// model producing a final answer.
type MaxRoundsError struct {
	Rounds int
}

func (e *MaxRoundsError) Error() string {
	return fmt.Sprintf("turn exceeded %d tool-call rounds without a final answer", e.Rounds)
}

// TurnResult summarizes one completed turn.
type TurnResult struct {
	TurnID    string
	Content   string
	Notice    string
	Rounds    int
	ToolCalls int
	Usage     provider.Usage
}

// Options configures the orchestrator.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	MaxRounds   int
}

// Orchestrator runs agent turns: it builds model requests, executes
// the tool calls the model issues, and folds results back into the
// follow-up request until the model answers without tools.
type Orchestrator struct {
	llm      provider.LLMProvider
	registry *tools.Registry
	engine   *engine.Engine
	sessions *session.Manager
	store    *audit.Store
	bus      *events.Bus
	tracer   *trace.Publisher
	builder  *ContextBuilder

	model       string
	maxTokens   int
	temperature float64
	maxRounds   int

	executing sync.Map
}

// New creates a turn orchestrator. Audit store, event bus, and tracer
// may each be nil.
func New(llm provider.LLMProvider, registry *tools.Registry, eng *engine.Engine,
	sessions *session.Manager, store *audit.Store, bus *events.Bus,
	tracer *trace.Publisher, builder *ContextBuilder, opts Options) *Orchestrator {

	model := opts.Model
	if model == "" {
		model = llm.DefaultModel()
	}
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Orchestrator{
		llm:         llm,
		registry:    registry,
		engine:      eng,
		sessions:    sessions,
		store:       store,
		bus:         bus,
		tracer:      tracer,
		builder:     builder,
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		maxRounds:   maxRounds,
	}
}

// IsExecuting reports whether a turn is in flight for the session key.
// Frontends use this to reject or queue a second submission.
func (o *Orchestrator) IsExecuting(sessionKey string) bool {
	_, active := o.executing.Load(sessionKey)
	return active
}

// RunTurn drives one user message to completion. The user message is
// committed to the transcript before the first model call, so a failed
// or cancelled turn never loses input. onChunk may be nil to disable
// streaming.
func (o *Orchestrator) RunTurn(ctx context.Context, sess *session.Session, userText string, onChunk func(string)) (result *TurnResult, err error) {
	if _, loaded := o.executing.LoadOrStore(sess.Key, true); loaded {
		return nil, ErrTurnInFlight
	}
	defer o.executing.Delete(sess.Key)

	turnID := uuid.NewString()
	startedAt := time.Now()

	// Anything unexpected inside the loop must terminate the turn, not
	// crash the session.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Turn panicked", "turn", turnID, "panic", r)
			err = fmt.Errorf("turn failed unexpectedly: %v", r)
			result = nil
			o.finishTurn(ctx, sess, turnID, audit.TurnFailed, err.Error(), 0, 0, provider.Usage{}, startedAt)
		}
	}()

	if err := o.store.BeginTurn(turnID, sess.ID, o.model); err != nil {
		slog.Warn("Failed to record turn start", "turn", turnID, "error", err)
	}

	sess.AddMessage(session.RoleUser, userText)
	o.persist(sess)
	o.publish(&events.Event{Type: events.TypeTurnStarted, SessionID: sess.ID, TurnID: turnID, Text: userText})

	cfg := sess.GetConfig()
	policy := cfg.ToolPolicy()
	messages := o.builder.BuildMessages(sess)
	toolDefs := definitions(o.registry.EnabledTools(policy))

	var usage provider.Usage
	toolCalls := 0

	for round := 0; round < o.maxRounds; round++ {
		if ctx.Err() != nil {
			o.finishTurn(ctx, sess, turnID, audit.TurnCancelled, "", round, toolCalls, usage, startedAt)
			return nil, ctx.Err()
		}
		o.publish(&events.Event{Type: events.TypeRoundStarted, SessionID: sess.ID, TurnID: turnID, Round: round + 1})

		resp, callErr := o.modelCall(ctx, &provider.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			Model:       o.model,
			MaxTokens:   o.maxTokens,
			Temperature: o.temperature,
		}, sess.ID, turnID, onChunk)
		if callErr != nil {
			if ctx.Err() != nil {
				o.finishTurn(ctx, sess, turnID, audit.TurnCancelled, "", round, toolCalls, usage, startedAt)
				return nil, ctx.Err()
			}
			o.finishTurn(ctx, sess, turnID, audit.TurnFailed, callErr.Error(), round+1, toolCalls, usage, startedAt)
			return nil, fmt.Errorf("model call failed: %w", callErr)
		}
		usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			if resp.Content == "" {
				// Degraded terminal case: nothing to append, surface a
				// soft notice instead of fabricating content.
				notice := "The model returned an empty response. Please try again."
				o.publish(&events.Event{Type: events.TypeNotice, SessionID: sess.ID, TurnID: turnID, Text: notice})
				o.finishTurn(ctx, sess, turnID, audit.TurnCompleted, "empty response", round+1, toolCalls, usage, startedAt)
				return &TurnResult{TurnID: turnID, Notice: notice, Rounds: round + 1, ToolCalls: toolCalls, Usage: usage}, nil
			}

			sess.AddMessage(session.RoleAssistant, resp.Content)
			o.persist(sess)
			o.finishTurn(ctx, sess, turnID, audit.TurnCompleted, "", round+1, toolCalls, usage, startedAt)
			return &TurnResult{TurnID: turnID, Content: resp.Content, Rounds: round + 1, ToolCalls: toolCalls, Usage: usage}, nil
		}

		// Text alongside tool calls is valid; commit it before the batch.
		messages = append(messages, provider.Message{
			Role:      session.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		if resp.Content != "" {
			sess.AddMessage(session.RoleAssistant, resp.Content)
			o.persist(sess)
		}

		if ctx.Err() != nil {
			o.finishTurn(ctx, sess, turnID, audit.TurnCancelled, "", round+1, toolCalls, usage, startedAt)
			return nil, ctx.Err()
		}

		results := o.engine.ExecuteCalls(ctx, resp.ToolCalls, &engine.Context{
			SessionID:       sess.ID,
			TurnID:          turnID,
			Policy:          policy,
			HaltOnToolError: cfg.HaltOnToolError,
			OnToolStart: func(tool string) {
				o.publish(&events.Event{Type: events.TypeToolStarted, SessionID: sess.ID, TurnID: turnID, Tool: tool, Round: round + 1})
			},
			OnToolDone: func(res engine.Result) {
				o.publish(&events.Event{Type: events.TypeToolFinished, SessionID: sess.ID, TurnID: turnID, Tool: res.Tool, Round: round + 1,
					Metadata: map[string]any{"success": res.Success, "kind": string(res.Kind)}})
			},
		})
		toolCalls += len(results)

		messages = append(messages, toolMessages(resp.ToolCalls, results)...)
		sess.AddMessage(session.RoleTool, formatResults(results))
		o.persist(sess)
	}

	roundsErr := &MaxRoundsError{Rounds: o.maxRounds}
	o.finishTurn(ctx, sess, turnID, audit.TurnFailed, roundsErr.Error(), o.maxRounds, toolCalls, usage, startedAt)
	return nil, roundsErr
}

// modelCall issues one model call, streaming when a chunk callback is
// supplied and the provider supports it.
func (o *Orchestrator) modelCall(ctx context.Context, req *provider.ChatRequest, sessionID, turnID string, onChunk func(string)) (*provider.ChatResponse, error) {
	streamer, canStream := o.llm.(provider.Streamer)
	if onChunk == nil || !canStream {
		return o.llm.Chat(ctx, req)
	}
	return streamer.ChatStream(ctx, req, func(chunk string) {
		o.publish(&events.Event{Type: events.TypeStreamChunk, SessionID: sessionID, TurnID: turnID, Text: chunk})
		onChunk(chunk)
	})
}

// finishTurn closes out the audit row, emits the turn span, and
// publishes the terminal event.
func (o *Orchestrator) finishTurn(ctx context.Context, sess *session.Session, turnID, status, errorText string, rounds, toolCalls int, usage provider.Usage, startedAt time.Time) {
	if err := o.store.FinishTurn(turnID, status, errorText, rounds, toolCalls,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens); err != nil {
		slog.Warn("Failed to record turn finish", "turn", turnID, "error", err)
	}
	o.tracer.Emit(ctx, &trace.Span{
		TraceID:   turnID,
		SessionID: sess.ID,
		Name:      "turn",
		StartedAt: startedAt,
		EndedAt:   time.Now(),
		Attrs: map[string]any{
			"status":     status,
			"rounds":     rounds,
			"tool_calls": toolCalls,
			"tokens":     usage.TotalTokens,
		},
	})
	o.publish(&events.Event{Type: events.TypeTurnFinished, SessionID: sess.ID, TurnID: turnID,
		Metadata: map[string]any{"status": status, "rounds": rounds}})
}

func (o *Orchestrator) persist(sess *session.Session) {
	if o.sessions == nil {
		return
	}
	if err := o.sessions.Save(sess); err != nil {
		slog.Warn("Failed to persist session", "session", sess.Key, "error", err)
	}
}

func (o *Orchestrator) publish(e *events.Event) {
	o.bus.Publish(e)
}

// definitions converts registry tools into the wire descriptors
// advertised to the model, preserving registration order.
func definitions(list []tools.Tool) []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(list))
	for _, t := range list {
		defs = append(defs, provider.ToolDefinition{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// toolMessages builds the per-call tool response messages for the
// follow-up request. Calls skipped by a halted batch still get a
// response on the wire so the transcript stays well formed.
func toolMessages(calls []provider.ToolCall, results []engine.Result) []provider.Message {
	msgs := make([]provider.Message, 0, len(calls))
	for i, call := range calls {
		content := "Skipped: an earlier tool call in this batch failed."
		if i < len(results) {
			content = resultText(results[i])
		}
		msgs = append(msgs, provider.Message{
			Role:       session.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
		})
	}
	return msgs
}

func resultText(res engine.Result) string {
	if res.Success {
		return res.Output
	}
	return "Error: " + res.Error
}

// formatResults renders a batch into the single synthetic tool-results
// transcript entry.
func formatResults(results []engine.Result) string {
	var sb strings.Builder
	for i, res := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		status := "ok"
		if !res.Success {
			status = string(res.Kind)
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %s", status, res.Tool, resultText(res)))
	}
	return sb.String()
}
