package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/inkwellai/inkwell/internal/confirm"
	"github.com/inkwellai/inkwell/internal/provider"
	"github.com/inkwellai/inkwell/internal/tools"
)

// scriptedTool returns canned output or fails on demand.
type scriptedTool struct {
	name     string
	category tools.Category
	output   string
	fail     bool
	panics   bool
	calls    int
}

func (s *scriptedTool) Name() string        { return s.name }
func (s *scriptedTool) Description() string { return "scripted" }

func (s *scriptedTool) Category() tools.Category { return s.category }

func (s *scriptedTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{"type": "string"},
		},
		"required": []string{"input"},
	}
}

func (s *scriptedTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	s.calls++
	if s.panics {
		panic("scripted panic")
	}
	if s.fail {
		return "", fmt.Errorf("scripted failure")
	}
	return s.output, nil
}

// recordingConfirmer captures requests and answers with a fixed grant.
type recordingConfirmer struct {
	grant    bool
	requests []*confirm.Request
}

func (r *recordingConfirmer) Confirm(ctx context.Context, req *confirm.Request) (bool, error) {
	r.requests = append(r.requests, req)
	return r.grant, nil
}

func newTestEngine(t *testing.T, confirmer confirm.Confirmer, toolList ...tools.Tool) (*Engine, *tools.Registry) {
	t.Helper()
	registry := tools.NewRegistry()
	for _, tool := range toolList {
		if err := registry.Register(tool); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}
	return New(registry, confirmer, nil), registry
}

func defaultCtx() *Context {
	return &Context{
		SessionID:       "s1",
		Policy:          tools.DefaultPolicy(),
		HaltOnToolError: true,
	}
}

func TestExecuteToolNotFound(t *testing.T) {
	eng, _ := newTestEngine(t, confirm.AutoApprove{})

	res := eng.ExecuteTool(context.Background(), provider.ToolCall{Name: "ghost"}, defaultCtx())
	if res.Success || res.Kind != FailureToolNotFound {
		t.Fatalf("expected ToolNotFound, got %+v", res)
	}
}

func TestExecuteToolInvalidParameters(t *testing.T) {
	tool := &scriptedTool{name: "echo", category: tools.CategoryReadOnly}
	eng, _ := newTestEngine(t, confirm.AutoApprove{}, tool)

	res := eng.ExecuteTool(context.Background(), provider.ToolCall{Name: "echo"}, defaultCtx())
	if res.Success || res.Kind != FailureInvalidParameters {
		t.Fatalf("expected InvalidParameters, got %+v", res)
	}
	if tool.calls != 0 {
		t.Error("invalid parameters must not execute the tool")
	}
}

func TestExecuteToolDisabled(t *testing.T) {
	tool := &scriptedTool{name: "writer", category: tools.CategoryVault}
	eng, _ := newTestEngine(t, confirm.AutoApprove{}, tool)

	sctx := defaultCtx()
	sctx.Policy.EnabledCategories = map[tools.Category]bool{tools.CategoryReadOnly: true}

	res := eng.ExecuteTool(context.Background(), provider.ToolCall{
		Name: "writer", Arguments: map[string]any{"input": "x"},
	}, sctx)
	if res.Success || res.Kind != FailureToolDisabled {
		t.Fatalf("expected ToolDisabled, got %+v", res)
	}
	if tool.calls != 0 {
		t.Error("disabled tool must not execute")
	}
}

func TestExecuteToolDeclined(t *testing.T) {
	tool := &scriptedTool{name: "writer", category: tools.CategoryVault}
	confirmer := &recordingConfirmer{grant: false}
	eng, _ := newTestEngine(t, confirmer, tool)

	res := eng.ExecuteTool(context.Background(), provider.ToolCall{
		Name: "writer", Arguments: map[string]any{"input": "x"},
	}, defaultCtx())
	if res.Success || res.Kind != FailureUserDeclined {
		t.Fatalf("expected UserDeclined, got %+v", res)
	}
	if tool.calls != 0 {
		t.Error("declined tool must not execute")
	}
	if len(confirmer.requests) != 1 || confirmer.requests[0].Tool != "writer" {
		t.Errorf("confirmation request not raised: %+v", confirmer.requests)
	}
}

func TestExecuteToolReadOnlySkipsConfirmation(t *testing.T) {
	tool := &scriptedTool{name: "reader", category: tools.CategoryReadOnly, output: "data"}
	confirmer := &recordingConfirmer{grant: false}
	eng, _ := newTestEngine(t, confirmer, tool)

	res := eng.ExecuteTool(context.Background(), provider.ToolCall{
		Name: "reader", Arguments: map[string]any{"input": "x"},
	}, defaultCtx())
	if !res.Success || res.Output != "data" {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(confirmer.requests) != 0 {
		t.Error("read-only tool should not have been confirmed")
	}
	if res.Confirmed {
		t.Error("unconfirmed execution should not be flagged confirmed")
	}
}

func TestExecuteToolConfirmedSuccess(t *testing.T) {
	tool := &scriptedTool{name: "writer", category: tools.CategoryVault, output: "written"}
	eng, _ := newTestEngine(t, &recordingConfirmer{grant: true}, tool)

	res := eng.ExecuteTool(context.Background(), provider.ToolCall{
		Name: "writer", Arguments: map[string]any{"input": "x"},
	}, defaultCtx())
	if !res.Success || !res.Confirmed {
		t.Fatalf("expected confirmed success, got %+v", res)
	}
}

func TestExecuteToolErrorCaptured(t *testing.T) {
	tool := &scriptedTool{name: "broken", category: tools.CategoryReadOnly, fail: true}
	eng, _ := newTestEngine(t, confirm.AutoApprove{}, tool)

	res := eng.ExecuteTool(context.Background(), provider.ToolCall{
		Name: "broken", Arguments: map[string]any{"input": "x"},
	}, defaultCtx())
	if res.Success || res.Kind != FailureExecutionError {
		t.Fatalf("expected ExecutionError, got %+v", res)
	}
	if !strings.Contains(res.Error, "scripted failure") {
		t.Errorf("error message lost: %q", res.Error)
	}
}

func TestExecuteToolPanicRecovered(t *testing.T) {
	tool := &scriptedTool{name: "bomb", category: tools.CategoryReadOnly, panics: true}
	eng, _ := newTestEngine(t, confirm.AutoApprove{}, tool)

	res := eng.ExecuteTool(context.Background(), provider.ToolCall{
		Name: "bomb", Arguments: map[string]any{"input": "x"},
	}, defaultCtx())
	if res.Success || res.Kind != FailureExecutionError {
		t.Fatalf("panic should become ExecutionError, got %+v", res)
	}
	if !strings.Contains(res.Error, "panicked") {
		t.Errorf("panic not reported: %q", res.Error)
	}
}

func TestExecuteCallsHaltOnError(t *testing.T) {
	first := &scriptedTool{name: "one", category: tools.CategoryReadOnly, output: "1"}
	second := &scriptedTool{name: "two", category: tools.CategoryReadOnly, fail: true}
	third := &scriptedTool{name: "three", category: tools.CategoryReadOnly, output: "3"}
	eng, _ := newTestEngine(t, confirm.AutoApprove{}, first, second, third)

	calls := []provider.ToolCall{
		{Name: "one", Arguments: map[string]any{"input": "a"}},
		{Name: "two", Arguments: map[string]any{"input": "b"}},
		{Name: "three", Arguments: map[string]any{"input": "c"}},
	}

	sctx := defaultCtx()
	results := eng.ExecuteCalls(context.Background(), calls, sctx)
	if len(results) != 2 {
		t.Fatalf("halt flag set: expected 2 results, got %d", len(results))
	}
	if third.calls != 0 {
		t.Error("third call must never be invoked when halted")
	}

	// With the flag off, all three run.
	second.calls, third.calls = 0, 0
	sctx.HaltOnToolError = false
	results = eng.ExecuteCalls(context.Background(), calls, sctx)
	if len(results) != 3 {
		t.Fatalf("halt flag clear: expected 3 results, got %d", len(results))
	}
	if third.calls != 1 {
		t.Error("third call should run when halt is off")
	}
}

func TestExecuteCallsHooks(t *testing.T) {
	tool := &scriptedTool{name: "one", category: tools.CategoryReadOnly, output: "1"}
	eng, _ := newTestEngine(t, confirm.AutoApprove{}, tool)

	var started, finished []string
	sctx := defaultCtx()
	sctx.OnToolStart = func(name string) { started = append(started, name) }
	sctx.OnToolDone = func(res Result) { finished = append(finished, res.Tool) }

	eng.ExecuteCalls(context.Background(), []provider.ToolCall{
		{Name: "one", Arguments: map[string]any{"input": "a"}},
	}, sctx)

	if len(started) != 1 || len(finished) != 1 || started[0] != "one" {
		t.Errorf("hooks not invoked: started=%v finished=%v", started, finished)
	}
}
