package tools

import (
	"fmt"
	"sync"
)

// DuplicateToolError is returned when registering a name that is
// already taken.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// Registry manages tool registration and session-scoped policy
// questions. Registration order is preserved; it is the order tools
// are advertised to the model.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. It fails if the name exists.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return &DuplicateToolError{Name: name}
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Unregister removes a tool by name. Removing an absent name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}

// EnabledTools returns the tools whose category the policy enables, in
// registration order.
func (r *Registry) EnabledTools(policy Policy) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		if policy.EnabledCategories[tool.Category()] {
			result = append(result, tool)
		}
	}
	return result
}

// Enabled reports whether a single tool is enabled under the policy.
func (r *Registry) Enabled(name string, policy Policy) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return false
	}
	return policy.EnabledCategories[tool.Category()]
}

// RequiresConfirmation reports whether executing the named tool needs
// explicit user approval under the policy. Trust wins over everything
// except a tool's own always-confirm flag; read-only tools default to
// unconfirmed unless the session pinned them to confirmation.
func (r *Registry) RequiresConfirmation(name string, policy Policy) bool {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	if ac, yes := tool.(AlwaysConfirmer); yes && ac.AlwaysConfirm() {
		return true
	}
	if policy.TrustedTools[name] {
		return false
	}
	if policy.ConfirmRequired[name] {
		return true
	}
	return defaultConfirm[tool.Category()]
}
