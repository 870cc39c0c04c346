package agent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/inkwellai/inkwell/internal/provider"
	"github.com/inkwellai/inkwell/internal/session"
	"github.com/inkwellai/inkwell/internal/vault"
)

const (
	// DefaultHistoryWindow caps how many transcript messages are sent
	// to the model per request.
	DefaultHistoryWindow = 50
	// DefaultContextBudget caps the characters of attached-note
	// content injected into the system message.
	DefaultContextBudget = 6000
)

const defaultSystemPrompt = `You are an assistant embedded in the user's Markdown note vault.
You can read, search, write, and organize notes using the available tools.
Prefer reading a note before modifying it. Keep answers concise and
reference notes by their vault path.`

var wikiLinkRe = regexp.MustCompile(`\[\[([^\[\]|]+)(?:\|[^\[\]]*)?\]\]`)

// ContextBuilder assembles the model request context: system
// instruction, attached-note content, and the recent transcript.
type ContextBuilder struct {
	store         vault.Store
	systemPrompt  string
	historyWindow int
	contextBudget int
}

// NewContextBuilder creates a context builder over the given store.
// An empty systemPrompt selects the built-in one.
func NewContextBuilder(store vault.Store, systemPrompt string) *ContextBuilder {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &ContextBuilder{
		store:         store,
		systemPrompt:  systemPrompt,
		historyWindow: DefaultHistoryWindow,
		contextBudget: DefaultContextBudget,
	}
}

// BuildMessages converts a session into the ordered message list for a
// model request. The newest user message is expected to already be in
// the session transcript.
func (b *ContextBuilder) BuildMessages(sess *session.Session) []provider.Message {
	cfg := sess.GetConfig()

	system := b.systemPrompt
	if attached := b.attachedContext(cfg); attached != "" {
		system += "\n\n# Attached notes\n" + attached
	}

	history := sess.History(b.historyWindow)
	messages := make([]provider.Message, 0, len(history)+1)
	messages = append(messages, provider.Message{Role: session.RoleSystem, Content: system})
	for _, msg := range history {
		messages = append(messages, provider.Message{Role: msg.Role, Content: msg.Content})
	}
	return messages
}

// attachedContext renders attached notes plus wiki-linked notes up to
// the session's traversal depth, within the character budget.
// Traversal is breadth-first so directly attached notes always win
// over transitively linked ones.
func (b *ContextBuilder) attachedContext(cfg session.Config) string {
	if b.store == nil || len(cfg.AttachedNotes) == 0 {
		return ""
	}

	var sb strings.Builder
	seen := map[string]bool{}
	frontier := append([]string{}, cfg.AttachedNotes...)

	for depth := 0; depth <= cfg.TraversalDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, path := range frontier {
			path = resolveNotePath(b.store, path)
			if path == "" || seen[path] {
				continue
			}
			seen[path] = true

			content, err := b.store.Read(path)
			if err != nil {
				continue
			}

			block := fmt.Sprintf("## %s\n%s\n", path, strings.TrimSpace(content))
			if sb.Len()+len(block) > b.contextBudget {
				remaining := b.contextBudget - sb.Len()
				if remaining > 0 {
					sb.WriteString(block[:remaining])
				}
				return sb.String()
			}
			sb.WriteString(block)

			for _, link := range wikiLinks(content) {
				next = append(next, link)
			}
		}
		frontier = next
	}
	return sb.String()
}

// wikiLinks extracts [[target]] link targets from note content.
func wikiLinks(content string) []string {
	matches := wikiLinkRe.FindAllStringSubmatch(content, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		if target := strings.TrimSpace(m[1]); target != "" {
			links = append(links, target)
		}
	}
	return links
}

// resolveNotePath maps a wiki-link target or attached reference to a
// vault path, adding the .md extension when needed. Returns "" when
// nothing exists.
func resolveNotePath(store vault.Store, name string) string {
	if store.Exists(name) {
		return name
	}
	if !strings.HasSuffix(name, ".md") {
		if withExt := name + ".md"; store.Exists(withExt) {
			return withExt
		}
	}
	return ""
}
