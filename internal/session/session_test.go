package session

import (
	"testing"

	"github.com/inkwellai/inkwell/internal/tools"
)

func TestHistoryWindow(t *testing.T) {
	sess := NewSession("test")
	for i := 0; i < 10; i++ {
		sess.AddMessage(RoleUser, "msg")
	}

	if got := len(sess.History(3)); got != 3 {
		t.Errorf("expected 3 messages, got %d", got)
	}
	if got := len(sess.History(50)); got != 10 {
		t.Errorf("expected all 10 messages, got %d", got)
	}
	if sess.Len() != 10 {
		t.Errorf("expected Len 10, got %d", sess.Len())
	}
}

func TestResetClearsMessages(t *testing.T) {
	sess := NewSession("test")
	sess.AddMessage(RoleUser, "hello")
	sess.Reset()
	if sess.Len() != 0 {
		t.Errorf("expected empty session after reset, got %d", sess.Len())
	}
}

func TestConfigToolPolicy(t *testing.T) {
	cfg := Config{
		EnabledCategories: []string{"read-only", "vault"},
		TrustedTools:      []string{"write_note"},
		ConfirmRequired:   []string{"read_note"},
	}
	p := cfg.ToolPolicy()

	if !p.EnabledCategories[tools.CategoryReadOnly] || !p.EnabledCategories[tools.CategoryVault] {
		t.Error("enabled categories not mapped")
	}
	if p.EnabledCategories[tools.CategoryDestructive] {
		t.Error("destructive should not be enabled")
	}
	if !p.TrustedTools["write_note"] || !p.ConfirmRequired["read_note"] {
		t.Error("tool overrides not mapped")
	}
}

func TestManagerSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	sess := m.GetOrCreate("cli:alpha")
	sess.AddMessage(RoleUser, "hello")
	sess.AddMessage(RoleAssistant, "hi there")
	cfg := sess.GetConfig()
	cfg.AttachedNotes = []string{"todo.md"}
	sess.SetConfig(cfg)
	if err := m.Save(sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Fresh manager forces a disk load.
	m2 := NewManager(dir)
	loaded := m2.GetOrCreate("cli:alpha")
	if loaded.ID != sess.ID {
		t.Errorf("session ID lost: %s vs %s", loaded.ID, sess.ID)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", loaded.Len())
	}
	msgs := loaded.History(10)
	if msgs[0].Content != "hello" || msgs[1].Role != RoleAssistant {
		t.Errorf("transcript mismatch: %v", msgs)
	}
	if got := loaded.GetConfig().AttachedNotes; len(got) != 1 || got[0] != "todo.md" {
		t.Errorf("config not restored: %v", got)
	}
}

func TestManagerDeleteAndList(t *testing.T) {
	m := NewManager(t.TempDir())
	sess := m.GetOrCreate("cli:gone")
	m.Save(sess)

	infos := m.List()
	if len(infos) != 1 {
		t.Fatalf("expected 1 stored session, got %d", len(infos))
	}

	if !m.Delete("cli:gone") {
		t.Error("delete should succeed")
	}
	if m.Delete("cli:gone") {
		t.Error("second delete should report missing")
	}
	if len(m.List()) != 0 {
		t.Error("session still listed after delete")
	}
}

func TestManagerKeySanitized(t *testing.T) {
	m := NewManager(t.TempDir())
	sess := m.GetOrCreate("../escape/../../etc:passwd")
	if err := m.Save(sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	infos := m.List()
	if len(infos) != 1 {
		t.Fatalf("expected 1 session file inside the dir, got %d", len(infos))
	}
}
