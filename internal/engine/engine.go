// Package engine executes model-issued tool calls: validation,
// enablement, confirmation gating, execution, and audit bookkeeping.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwellai/inkwell/internal/audit"
	"github.com/inkwellai/inkwell/internal/confirm"
	"github.com/inkwellai/inkwell/internal/provider"
	"github.com/inkwellai/inkwell/internal/tools"
)

// FailureKind classifies why a tool call did not produce output.
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureToolNotFound      FailureKind = "tool_not_found"
	FailureInvalidParameters FailureKind = "invalid_parameters"
	FailureToolDisabled      FailureKind = "tool_disabled"
	FailureUserDeclined      FailureKind = "user_declined"
	FailureExecutionError    FailureKind = "execution_error"
)

// Result is the outcome of executing one tool call. Exactly one of
// Output and Error is meaningful, gated by Success.
type Result struct {
	Tool      string      `json:"tool"`
	CallID    string      `json:"call_id,omitempty"`
	Success   bool        `json:"success"`
	Output    string      `json:"output,omitempty"`
	Error     string      `json:"error,omitempty"`
	Kind      FailureKind `json:"kind,omitempty"`
	Confirmed bool        `json:"confirmed"`
}

// Context carries the per-session inputs the engine needs: identity
// for audit records and the session's tool policy.
type Context struct {
	SessionID       string
	TurnID          string
	Policy          tools.Policy
	HaltOnToolError bool

	// OnToolStart and OnToolDone, when set, are invoked around each
	// call in a batch so frontends can show progress.
	OnToolStart func(tool string)
	OnToolDone  func(Result)
}

// Engine validates, authorizes, executes, and records tool calls.
type Engine struct {
	registry  *tools.Registry
	confirmer confirm.Confirmer
	store     *audit.Store
}

// New creates an execution engine. The confirmer gates mutating tools;
// the audit store may be nil to disable recording.
func New(registry *tools.Registry, confirmer confirm.Confirmer, store *audit.Store) *Engine {
	if confirmer == nil {
		confirmer = confirm.AutoDecline{}
	}
	return &Engine{
		registry:  registry,
		confirmer: confirmer,
		store:     store,
	}
}

// ExecuteTool runs a single tool call through the full pipeline:
// lookup, parameter validation, enablement, confirmation, execution,
// audit record. Tool failures are captured into the Result, never
// propagated; the turn must survive any individual tool.
func (e *Engine) ExecuteTool(ctx context.Context, call provider.ToolCall, sctx *Context) Result {
	start := time.Now()
	res := Result{Tool: call.Name, CallID: call.ID}

	tool, ok := e.registry.Get(call.Name)
	if !ok {
		res.Kind = FailureToolNotFound
		res.Error = fmt.Sprintf("unknown tool: %s", call.Name)
		e.record(call, &res, sctx, start)
		return res
	}

	if v := e.registry.ValidateParams(call.Name, call.Arguments); !v.Valid {
		res.Kind = FailureInvalidParameters
		res.Error = fmt.Sprintf("invalid parameters for %s: %v", call.Name, v.Errors)
		e.record(call, &res, sctx, start)
		return res
	}

	if !e.registry.Enabled(call.Name, sctx.Policy) {
		res.Kind = FailureToolDisabled
		res.Error = fmt.Sprintf("tool disabled for this session: %s", call.Name)
		e.record(call, &res, sctx, start)
		return res
	}

	if e.registry.RequiresConfirmation(call.Name, sctx.Policy) {
		granted, err := e.confirmer.Confirm(ctx, &confirm.Request{
			Tool:      call.Name,
			Category:  tool.Category().String(),
			Prompt:    confirmPrompt(tool, call.Arguments),
			Arguments: call.Arguments,
			SessionID: sctx.SessionID,
		})
		if err != nil || !granted {
			res.Kind = FailureUserDeclined
			res.Error = fmt.Sprintf("user declined %s", call.Name)
			e.record(call, &res, sctx, start)
			return res
		}
		res.Confirmed = true
	}

	output, err := e.safeExecute(ctx, tool, call.Arguments)
	if err != nil {
		res.Kind = FailureExecutionError
		res.Error = err.Error()
		e.record(call, &res, sctx, start)
		return res
	}

	res.Success = true
	res.Output = output
	e.record(call, &res, sctx, start)
	return res
}

// ExecuteCalls runs a batch strictly in call order. Later calls may
// depend on earlier side effects and confirmation is serial, so there
// is no concurrency. When HaltOnToolError is set, the first failure
// ends the batch: the remaining calls are neither executed nor
// recorded and the partial result list is returned.
func (e *Engine) ExecuteCalls(ctx context.Context, calls []provider.ToolCall, sctx *Context) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		if sctx.OnToolStart != nil {
			sctx.OnToolStart(call.Name)
		}
		res := e.ExecuteTool(ctx, call, sctx)
		if sctx.OnToolDone != nil {
			sctx.OnToolDone(res)
		}
		results = append(results, res)
		if !res.Success && sctx.HaltOnToolError {
			slog.Warn("Tool batch halted on failure", "tool", call.Name, "kind", res.Kind, "remaining", len(calls)-len(results))
			break
		}
	}
	return results
}

// safeExecute invokes a tool, converting a panic into an ordinary
// execution error so one misbehaving tool cannot abort the turn.
func (e *Engine) safeExecute(ctx context.Context, tool tools.Tool, args map[string]any) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tool panicked", "tool", tool.Name(), "panic", r)
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, args)
}

// record appends the execution to the audit store, best-effort.
func (e *Engine) record(call provider.ToolCall, res *Result, sctx *Context, start time.Time) {
	if e.store == nil {
		return
	}

	category := "unknown"
	if tool, ok := e.registry.Get(call.Name); ok {
		category = tool.Category().String()
	}

	outcome := audit.OutcomeFailure
	switch {
	case res.Success:
		outcome = audit.OutcomeSuccess
	case res.Kind == FailureUserDeclined:
		outcome = audit.OutcomeDeclined
	}

	argsJSON, _ := json.Marshal(call.Arguments)
	if err := e.store.RecordExecution(&audit.Execution{
		SessionID:     sctx.SessionID,
		TurnID:        sctx.TurnID,
		Tool:          call.Name,
		Category:      category,
		Arguments:     string(argsJSON),
		Outcome:       outcome,
		FailureKind:   string(res.Kind),
		ResultPreview: preview(res),
		Confirmed:     res.Confirmed,
		DurationMS:    time.Since(start).Milliseconds(),
	}); err != nil {
		slog.Warn("Failed to record tool execution", "tool", call.Name, "error", err)
	}
}

// preview truncates the result for the audit row.
func preview(res *Result) string {
	text := res.Output
	if !res.Success {
		text = res.Error
	}
	const max = 500
	if len(text) > max {
		return text[:max] + "..."
	}
	return text
}

// confirmPrompt renders the confirmation message, preferring the
// tool's own prompt when it provides one.
func confirmPrompt(tool tools.Tool, args map[string]any) string {
	if cp, ok := tool.(tools.ConfirmPrompter); ok {
		if prompt := cp.ConfirmPrompt(args); prompt != "" {
			return prompt
		}
	}
	return fmt.Sprintf("Allow %s to run with %s?", tool.Name(), formatArgsPreview(args))
}

// formatArgsPreview renders a short single-line view of the argument bag.
func formatArgsPreview(args map[string]any) string {
	if len(args) == 0 {
		return "no arguments"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "arguments"
	}
	const max = 120
	s := string(data)
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
