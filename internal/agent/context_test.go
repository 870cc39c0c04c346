package agent

import (
	"strings"
	"testing"

	"github.com/inkwellai/inkwell/internal/session"
	"github.com/inkwellai/inkwell/internal/vault"
)

func newTestBuilder(t *testing.T) (*ContextBuilder, *vault.DirStore) {
	t.Helper()
	store, err := vault.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore failed: %v", err)
	}
	return NewContextBuilder(store, ""), store
}

func TestBuildMessagesSystemFirst(t *testing.T) {
	builder, _ := newTestBuilder(t)
	sess := session.NewSession("test")
	sess.AddMessage(session.RoleUser, "hello")

	msgs := builder.BuildMessages(sess)
	if len(msgs) != 2 {
		t.Fatalf("expected system + user, got %d", len(msgs))
	}
	if msgs[0].Role != session.RoleSystem || msgs[0].Content == "" {
		t.Errorf("system message missing: %+v", msgs[0])
	}
	if msgs[1].Role != session.RoleUser || msgs[1].Content != "hello" {
		t.Errorf("user message missing: %+v", msgs[1])
	}
}

func TestAttachedNotesInjected(t *testing.T) {
	builder, store := newTestBuilder(t)
	store.Write("project.md", "Project plan for Q3.")

	sess := session.NewSession("test")
	cfg := sess.GetConfig()
	cfg.AttachedNotes = []string{"project.md"}
	sess.SetConfig(cfg)
	sess.AddMessage(session.RoleUser, "status?")

	msgs := builder.BuildMessages(sess)
	if !strings.Contains(msgs[0].Content, "Project plan for Q3.") {
		t.Error("attached note content not injected into the system message")
	}
	if !strings.Contains(msgs[0].Content, "project.md") {
		t.Error("attached note path not referenced")
	}
}

func TestWikiLinkTraversalDepth(t *testing.T) {
	builder, store := newTestBuilder(t)
	store.Write("root.md", "See [[linked]] for details.")
	store.Write("linked.md", "Linked content. Also [[deeper]].")
	store.Write("deeper.md", "Deep content.")

	sess := session.NewSession("test")
	cfg := sess.GetConfig()
	cfg.AttachedNotes = []string{"root.md"}
	cfg.TraversalDepth = 1
	sess.SetConfig(cfg)
	sess.AddMessage(session.RoleUser, "go")

	system := builder.BuildMessages(sess)[0].Content
	if !strings.Contains(system, "Linked content.") {
		t.Error("depth-1 link should be included")
	}
	if strings.Contains(system, "Deep content.") {
		t.Error("depth-2 link must not be included at TraversalDepth 1")
	}

	// Depth 0 includes only the attached note itself.
	cfg.TraversalDepth = 0
	sess.SetConfig(cfg)
	system = builder.BuildMessages(sess)[0].Content
	if strings.Contains(system, "Linked content.") {
		t.Error("depth 0 must not traverse links")
	}
}

func TestContextBudgetEnforced(t *testing.T) {
	builder, store := newTestBuilder(t)
	builder.contextBudget = 100
	store.Write("big.md", strings.Repeat("x", 500))

	sess := session.NewSession("test")
	cfg := sess.GetConfig()
	cfg.AttachedNotes = []string{"big.md"}
	sess.SetConfig(cfg)
	sess.AddMessage(session.RoleUser, "go")

	system := builder.BuildMessages(sess)[0].Content
	attached := system[strings.Index(system, "# Attached notes"):]
	if len(attached) > 200 {
		t.Errorf("budget not enforced, attached section is %d chars", len(attached))
	}
}

func TestWikiLinksParsing(t *testing.T) {
	links := wikiLinks("a [[one]] b [[two|alias]] c [[ spaced ]] [[]]")
	if len(links) != 3 || links[0] != "one" || links[1] != "two" || links[2] != "spaced" {
		t.Errorf("unexpected links: %v", links)
	}
}
