package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/inkwellai/inkwell/internal/vault"
)

// ReadNoteTool reads the contents of a vault note.
type ReadNoteTool struct {
	store vault.Store
}

func (t *ReadNoteTool) Name() string       { return "read_note" }
func (t *ReadNoteTool) Category() Category { return CategoryReadOnly }

func (t *ReadNoteTool) Description() string {
	return "Read the contents of a note at the given vault path."
}

func (t *ReadNoteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Vault-relative path of the note to read",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadNoteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path := GetString(args, "path", "")
	if path == "" {
		return "Error: path is required", nil
	}
	content, err := t.store.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("Error: note not found: %s", path), nil
		}
		return fmt.Sprintf("Error reading note: %v", err), nil
	}
	return content, nil
}

// WriteNoteTool writes content to a vault note.
type WriteNoteTool struct {
	store vault.Store
}

func (t *WriteNoteTool) Name() string       { return "write_note" }
func (t *WriteNoteTool) Category() Category { return CategoryVault }

func (t *WriteNoteTool) Description() string {
	return "Write content to a note at the given vault path, replacing any existing content. Creates parent folders if needed."
}

func (t *WriteNoteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Vault-relative path of the note to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The full note content",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteNoteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path := GetString(args, "path", "")
	content := GetString(args, "content", "")
	if path == "" {
		return "Error: path is required", nil
	}
	if err := t.store.Write(path, content); err != nil {
		return fmt.Sprintf("Error writing note: %v", err), nil
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}

func (t *WriteNoteTool) ConfirmPrompt(args map[string]any) string {
	path := GetString(args, "path", "?")
	content := GetString(args, "content", "")
	return fmt.Sprintf("Overwrite note %s with %d bytes of new content?", path, len(content))
}

// AppendNoteTool appends content to a vault note.
type AppendNoteTool struct {
	store vault.Store
}

func (t *AppendNoteTool) Name() string       { return "append_note" }
func (t *AppendNoteTool) Category() Category { return CategoryVault }

func (t *AppendNoteTool) Description() string {
	return "Append content to the end of a note, creating it if it does not exist."
}

func (t *AppendNoteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Vault-relative path of the note",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The content to append",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *AppendNoteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path := GetString(args, "path", "")
	content := GetString(args, "content", "")
	if path == "" {
		return "Error: path is required", nil
	}
	if err := t.store.Append(path, content); err != nil {
		return fmt.Sprintf("Error appending to note: %v", err), nil
	}
	return fmt.Sprintf("Successfully appended %d bytes to %s", len(content), path), nil
}

// ListNotesTool lists vault folder contents.
type ListNotesTool struct {
	store vault.Store
}

func (t *ListNotesTool) Name() string       { return "list_notes" }
func (t *ListNotesTool) Category() Category { return CategoryReadOnly }

func (t *ListNotesTool) Description() string {
	return "List the notes and folders directly under a vault folder."
}

func (t *ListNotesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Vault-relative folder path (default: vault root)",
			},
		},
	}
}

func (t *ListNotesTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path := GetString(args, "path", ".")
	entries, err := t.store.List(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("Error: folder not found: %s", path), nil
		}
		return fmt.Sprintf("Error listing folder: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Contents of %s:\n", path))
	for _, e := range entries {
		if e.IsDir {
			sb.WriteString(fmt.Sprintf("  [DIR]  %s/\n", e.Path))
		} else {
			sb.WriteString(fmt.Sprintf("  [FILE] %s (%d bytes)\n", e.Path, e.Size))
		}
	}
	return sb.String(), nil
}

// SearchNotesTool searches note contents for a substring.
type SearchNotesTool struct {
	store *vault.DirStore
}

func (t *SearchNotesTool) Name() string       { return "search_notes" }
func (t *SearchNotesTool) Category() Category { return CategoryReadOnly }

func (t *SearchNotesTool) Description() string {
	return "Search all notes for a text fragment. Returns matching paths with a line snippet."
}

func (t *SearchNotesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The text to search for (case-insensitive)",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of matches to return (default 20)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchNotesTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := GetString(args, "query", "")
	if query == "" {
		return "Error: query is required", nil
	}
	maxResults := GetInt(args, "max_results", 20)
	if maxResults <= 0 {
		maxResults = 20
	}
	lowered := strings.ToLower(query)

	var sb strings.Builder
	count := 0
	_ = t.store.Walk(func(path string) error {
		if count >= maxResults {
			return nil
		}
		content, err := t.store.Read(path)
		if err != nil {
			return nil
		}
		for _, line := range strings.Split(content, "\n") {
			if strings.Contains(strings.ToLower(line), lowered) {
				sb.WriteString(fmt.Sprintf("%s: %s\n", path, strings.TrimSpace(line)))
				count++
				break
			}
		}
		return nil
	})

	if count == 0 {
		return fmt.Sprintf("No notes matched %q.", query), nil
	}
	return sb.String(), nil
}

// DeleteNoteTool removes a note from the vault.
type DeleteNoteTool struct {
	store vault.Store
}

func (t *DeleteNoteTool) Name() string       { return "delete_note" }
func (t *DeleteNoteTool) Category() Category { return CategoryDestructive }

func (t *DeleteNoteTool) Description() string {
	return "Permanently delete a note from the vault."
}

func (t *DeleteNoteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Vault-relative path of the note to delete",
			},
		},
		"required": []string{"path"},
	}
}

func (t *DeleteNoteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path := GetString(args, "path", "")
	if path == "" {
		return "Error: path is required", nil
	}
	if err := t.store.Delete(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("Error: note not found: %s", path), nil
		}
		return fmt.Sprintf("Error deleting note: %v", err), nil
	}
	return fmt.Sprintf("Deleted %s", path), nil
}

func (t *DeleteNoteTool) ConfirmPrompt(args map[string]any) string {
	return fmt.Sprintf("Permanently delete note %s? This cannot be undone.", GetString(args, "path", "?"))
}

func (t *DeleteNoteTool) AlwaysConfirm() bool { return true }

// NewReadNoteTool creates a new ReadNoteTool.
func NewReadNoteTool(store vault.Store) *ReadNoteTool { return &ReadNoteTool{store: store} }

// NewWriteNoteTool creates a new WriteNoteTool.
func NewWriteNoteTool(store vault.Store) *WriteNoteTool { return &WriteNoteTool{store: store} }

// NewAppendNoteTool creates a new AppendNoteTool.
func NewAppendNoteTool(store vault.Store) *AppendNoteTool { return &AppendNoteTool{store: store} }

// NewListNotesTool creates a new ListNotesTool.
func NewListNotesTool(store vault.Store) *ListNotesTool { return &ListNotesTool{store: store} }

// NewSearchNotesTool creates a new SearchNotesTool.
func NewSearchNotesTool(store *vault.DirStore) *SearchNotesTool { return &SearchNotesTool{store: store} }

// NewDeleteNoteTool creates a new DeleteNoteTool.
func NewDeleteNoteTool(store vault.Store) *DeleteNoteTool { return &DeleteNoteTool{store: store} }
