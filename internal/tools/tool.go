// Package tools provides the tool contract, the registry, and the
// built-in vault tools for the assistant.
package tools

import (
	"context"
)

// Category classifies a tool by the kind of side effects it has. The
// default confirmation policy is derived from it.
type Category int

const (
	// CategoryReadOnly tools only observe state.
	CategoryReadOnly Category = iota
	// CategoryVault tools mutate vault content.
	CategoryVault
	// CategoryDestructive tools remove or irreversibly change state.
	CategoryDestructive
)

// String returns the category name used in config and audit records.
func (c Category) String() string {
	switch c {
	case CategoryReadOnly:
		return "read-only"
	case CategoryVault:
		return "vault"
	case CategoryDestructive:
		return "destructive"
	default:
		return "unknown"
	}
}

// ParseCategory maps a config string to a Category.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "read-only", "readonly":
		return CategoryReadOnly, true
	case "vault":
		return CategoryVault, true
	case "destructive":
		return CategoryDestructive, true
	}
	return CategoryReadOnly, false
}

// defaultConfirm is the category → default confirmation policy table.
// Read-only tools run unconfirmed; anything that mutates asks first.
var defaultConfirm = map[Category]bool{
	CategoryReadOnly:    false,
	CategoryVault:       true,
	CategoryDestructive: true,
}

// Tool is the interface all assistant tools implement.
type Tool interface {
	// Name returns the tool identifier used in model tool calls.
	Name() string
	// Description returns a human-readable description for the model.
	Description() string
	// Category returns the tool's side-effect class.
	Category() Category
	// Parameters returns the JSON Schema for tool parameters.
	Parameters() map[string]any
	// Execute runs the tool with the given arguments.
	// Returns result string and error. On error, return user-friendly message.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ConfirmPrompter is an optional interface for tools that render a
// custom confirmation message instead of the generic one.
type ConfirmPrompter interface {
	ConfirmPrompt(args map[string]any) string
}

// AlwaysConfirmer is an optional interface for tools that must be
// confirmed regardless of category or trust.
type AlwaysConfirmer interface {
	AlwaysConfirm() bool
}

// Policy is the per-session view the registry consults: which
// categories are enabled and which tools are trusted or pinned to
// confirmation.
type Policy struct {
	// EnabledCategories gates which tools are advertised and runnable.
	EnabledCategories map[Category]bool
	// TrustedTools are exempted from confirmation.
	TrustedTools map[string]bool
	// ConfirmRequired forces confirmation for read-only tools that
	// would otherwise run unconfirmed.
	ConfirmRequired map[string]bool
}

// DefaultPolicy enables every category with no trust overrides.
func DefaultPolicy() Policy {
	return Policy{
		EnabledCategories: map[Category]bool{
			CategoryReadOnly:    true,
			CategoryVault:       true,
			CategoryDestructive: true,
		},
		TrustedTools:    map[string]bool{},
		ConfirmRequired: map[string]bool{},
	}
}

// GetString extracts a string argument with a default value.
func GetString(args map[string]any, key string, defaultVal string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// GetInt extracts an int argument with a default value.
func GetInt(args map[string]any, key string, defaultVal int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return defaultVal
}

// GetBool extracts a bool argument with a default value.
func GetBool(args map[string]any, key string, defaultVal bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}
