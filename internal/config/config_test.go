package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Model.MaxRounds != 10 {
		t.Errorf("expected default max rounds 10, got %d", cfg.Model.MaxRounds)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.InitialBackoffMS != 1000 {
		t.Errorf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if !cfg.HaltOnToolError() {
		t.Error("halt on tool error should default to true")
	}
	if cfg.ConfirmTimeout() != 60*time.Second {
		t.Errorf("expected 60s confirm timeout, got %v", cfg.ConfirmTimeout())
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(`{
		"paths": {"vault": "/tmp/testvault"},
		"model": {"name": "file-model", "max_rounds": 5}
	}`), 0600)

	t.Setenv("INKWELL_CONFIG", path)
	t.Setenv("INKWELL_HOME", dir)
	t.Setenv("INKWELL_MODEL", "env-model")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Paths.Vault != "/tmp/testvault" {
		t.Errorf("file value lost: %s", cfg.Paths.Vault)
	}
	if cfg.Model.MaxRounds != 5 {
		t.Errorf("file value lost: %d", cfg.Model.MaxRounds)
	}
	// Environment wins over the file.
	if cfg.Model.Name != "env-model" {
		t.Errorf("env override not applied: %s", cfg.Model.Name)
	}
	if cfg.SessionsDir() != filepath.Join(dir, "sessions") {
		t.Errorf("unexpected sessions dir: %s", cfg.SessionsDir())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("INKWELL_CONFIG", filepath.Join(dir, "absent.json"))
	t.Setenv("INKWELL_HOME", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Model.Name != "gpt-4o-mini" {
		t.Errorf("expected default model, got %s", cfg.Model.Name)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte("{not json"), 0600)
	t.Setenv("INKWELL_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Error("malformed config should fail to load")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Model.Name = "saved-model"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	t.Setenv("INKWELL_CONFIG", path)
	t.Setenv("INKWELL_HOME", dir)
	loaded, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Model.Name != "saved-model" {
		t.Errorf("round trip lost model name: %s", loaded.Model.Name)
	}
}
