// Package session provides conversation session state and persistence.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellai/inkwell/internal/tools"
)

// Message roles used in the transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single turn entry in a session transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Config is the per-session context configuration: which content is
// attached, which tool categories are live, and how tool failures and
// confirmations are handled.
type Config struct {
	// AttachedNotes are vault paths injected into the model context.
	AttachedNotes []string `json:"attached_notes,omitempty"`
	// TraversalDepth controls how many wiki-link hops from attached
	// notes are auto-included (0 = only the attached notes).
	TraversalDepth int `json:"traversal_depth"`
	// EnabledCategories lists enabled tool category names.
	EnabledCategories []string `json:"enabled_categories,omitempty"`
	// TrustedTools are exempted from confirmation.
	TrustedTools []string `json:"trusted_tools,omitempty"`
	// ConfirmRequired pins read-only tools to confirmation.
	ConfirmRequired []string `json:"confirm_required,omitempty"`
	// HaltOnToolError stops a tool-call batch at the first failure.
	HaltOnToolError bool `json:"halt_on_tool_error"`
}

// DefaultConfig enables every category and halts batches on failure.
func DefaultConfig() Config {
	return Config{
		EnabledCategories: []string{"read-only", "vault", "destructive"},
		HaltOnToolError:   true,
	}
}

// ToolPolicy converts the config into the registry's policy view.
func (c Config) ToolPolicy() tools.Policy {
	p := tools.Policy{
		EnabledCategories: map[tools.Category]bool{},
		TrustedTools:      map[string]bool{},
		ConfirmRequired:   map[string]bool{},
	}
	for _, name := range c.EnabledCategories {
		if cat, ok := tools.ParseCategory(name); ok {
			p.EnabledCategories[cat] = true
		}
	}
	for _, name := range c.TrustedTools {
		p.TrustedTools[name] = true
	}
	for _, name := range c.ConfirmRequired {
		p.ConfirmRequired[name] = true
	}
	return p
}

// Session represents a conversation session. History is append-only
// while a turn runs; Reset replaces it wholesale.
type Session struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Messages  []Message `json:"messages"`
	Config    Config    `json:"config"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	mu        sync.RWMutex
}

// NewSession creates a new session with the given key.
func NewSession(key string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Key:       key,
		Messages:  []Message{},
		Config:    DefaultConfig(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a message to the session.
func (s *Session) AddMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// History returns up to maxMessages of the most recent transcript.
func (s *Session) History(maxMessages int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.Messages) <= maxMessages {
		result := make([]Message, len(s.Messages))
		copy(result, s.Messages)
		return result
	}
	result := make([]Message, maxMessages)
	copy(result, s.Messages[len(s.Messages)-maxMessages:])
	return result
}

// Len returns the number of transcript messages.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// Reset removes all messages from the session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = []Message{}
	s.UpdatedAt = time.Now()
}

// SetConfig replaces the session configuration.
func (s *Session) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Config = cfg
	s.UpdatedAt = time.Now()
}

// GetConfig returns a copy of the session configuration.
func (s *Session) GetConfig() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Config
}
