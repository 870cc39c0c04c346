package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/inkwellai/inkwell/internal/vault"
)

func newTestVault(t *testing.T) *vault.DirStore {
	t.Helper()
	store, err := vault.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore failed: %v", err)
	}
	return store
}

func TestReadNoteTool(t *testing.T) {
	store := newTestVault(t)
	store.Write("hello.md", "# Hello")
	tool := NewReadNoteTool(store)

	out, err := tool.Execute(context.Background(), map[string]any{"path": "hello.md"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out != "# Hello" {
		t.Errorf("unexpected output: %q", out)
	}

	out, _ = tool.Execute(context.Background(), map[string]any{"path": "missing.md"})
	if !strings.HasPrefix(out, "Error:") {
		t.Errorf("missing note should return an error string, got %q", out)
	}

	out, _ = tool.Execute(context.Background(), map[string]any{})
	if !strings.HasPrefix(out, "Error:") {
		t.Errorf("missing path should return an error string, got %q", out)
	}
}

func TestWriteAndAppendNoteTools(t *testing.T) {
	store := newTestVault(t)
	write := NewWriteNoteTool(store)
	appendTool := NewAppendNoteTool(store)

	out, err := write.Execute(context.Background(), map[string]any{"path": "a.md", "content": "one"})
	if err != nil || !strings.Contains(out, "Successfully wrote") {
		t.Fatalf("write tool failed: %v %q", err, out)
	}

	out, err = appendTool.Execute(context.Background(), map[string]any{"path": "a.md", "content": "\ntwo"})
	if err != nil || !strings.Contains(out, "Successfully appended") {
		t.Fatalf("append tool failed: %v %q", err, out)
	}

	content, _ := store.Read("a.md")
	if content != "one\ntwo" {
		t.Errorf("unexpected content: %q", content)
	}

	prompt := write.ConfirmPrompt(map[string]any{"path": "a.md", "content": "xyz"})
	if !strings.Contains(prompt, "a.md") {
		t.Errorf("confirm prompt should name the note: %q", prompt)
	}
}

func TestListNotesTool(t *testing.T) {
	store := newTestVault(t)
	store.Write("a.md", "a")
	store.Write("sub/b.md", "b")
	tool := NewListNotesTool(store)

	out, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !strings.Contains(out, "[DIR]") || !strings.Contains(out, "a.md") {
		t.Errorf("unexpected listing: %q", out)
	}
}

func TestSearchNotesTool(t *testing.T) {
	store := newTestVault(t)
	store.Write("one.md", "the quick brown fox")
	store.Write("two.md", "nothing here")
	tool := NewSearchNotesTool(store)

	out, err := tool.Execute(context.Background(), map[string]any{"query": "QUICK"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !strings.Contains(out, "one.md") || strings.Contains(out, "two.md") {
		t.Errorf("unexpected search result: %q", out)
	}

	out, _ = tool.Execute(context.Background(), map[string]any{"query": "absent"})
	if !strings.Contains(out, "No notes matched") {
		t.Errorf("expected no-match message, got %q", out)
	}
}

func TestDeleteNoteTool(t *testing.T) {
	store := newTestVault(t)
	store.Write("gone.md", "x")
	tool := NewDeleteNoteTool(store)

	if !tool.AlwaysConfirm() {
		t.Error("delete tool must always confirm")
	}
	out, err := tool.Execute(context.Background(), map[string]any{"path": "gone.md"})
	if err != nil || !strings.Contains(out, "Deleted") {
		t.Fatalf("delete failed: %v %q", err, out)
	}
	if store.Exists("gone.md") {
		t.Error("note still exists after delete tool ran")
	}
}
