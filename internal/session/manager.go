package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Manager manages session persistence as one JSONL transcript per
// session: a metadata line followed by one line per message.
type Manager struct {
	sessionsDir string
	cache       map[string]*Session
	mu          sync.RWMutex
}

// NewManager creates a session manager storing transcripts under dir.
func NewManager(dir string) *Manager {
	os.MkdirAll(dir, 0755)
	return &Manager{
		sessionsDir: dir,
		cache:       make(map[string]*Session),
	}
}

// GetOrCreate returns an existing session or creates a new one.
func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.cache[key]; ok {
		return sess
	}
	sess := m.load(key)
	if sess == nil {
		sess = NewSession(key)
	}
	m.cache[key] = sess
	return sess
}

// Save persists a session to disk.
func (m *Manager) Save(sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.sessionPath(sess.Key)

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer file.Close()

	meta := map[string]any{
		"_type":      "metadata",
		"id":         sess.ID,
		"created_at": sess.CreatedAt.Format(time.RFC3339),
		"updated_at": sess.UpdatedAt.Format(time.RFC3339),
		"config":     sess.Config,
	}
	metaLine, _ := json.Marshal(meta)
	file.WriteString(string(metaLine) + "\n")

	for _, msg := range sess.Messages {
		msgLine, _ := json.Marshal(msg)
		file.WriteString(string(msgLine) + "\n")
	}

	m.cache[sess.Key] = sess
	return nil
}

// Delete removes a session from cache and disk.
func (m *Manager) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cache, key)
	if err := os.Remove(m.sessionPath(key)); err != nil {
		return false
	}
	return true
}

// Info contains summary metadata about a stored session.
type Info struct {
	Key       string
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Path      string
}

// List returns information about all stored sessions.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var infos []Info
	entries, err := os.ReadDir(m.sessionsDir)
	if err != nil {
		return infos
	}

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(m.sessionsDir, entry.Name())
		key := strings.TrimSuffix(entry.Name(), ".jsonl")

		info := Info{Key: key, Path: path}
		if file, err := os.Open(path); err == nil {
			dec := json.NewDecoder(file)
			var meta map[string]any
			if dec.Decode(&meta) == nil && meta["_type"] == "metadata" {
				if id, ok := meta["id"].(string); ok {
					info.ID = id
				}
				if created, ok := meta["created_at"].(string); ok {
					info.CreatedAt, _ = time.Parse(time.RFC3339, created)
				}
				if updated, ok := meta["updated_at"].(string); ok {
					info.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
				}
			}
			file.Close()
		}
		infos = append(infos, info)
	}
	return infos
}

func (m *Manager) sessionPath(key string) string {
	safeKey := strings.ReplaceAll(key, ":", "_")
	// Strip path separators and traversal components to prevent path injection.
	safeKey = strings.ReplaceAll(safeKey, "/", "_")
	safeKey = strings.ReplaceAll(safeKey, "\\", "_")
	safeKey = strings.ReplaceAll(safeKey, "..", "_")
	return filepath.Join(m.sessionsDir, filepath.Base(safeKey)+".jsonl")
}

func (m *Manager) load(key string) *Session {
	file, err := os.Open(m.sessionPath(key))
	if err != nil {
		return nil
	}
	defer file.Close()

	sess := NewSession(key)
	decoder := json.NewDecoder(file)

	for decoder.More() {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			break
		}

		var check map[string]any
		if json.Unmarshal(raw, &check) == nil && check["_type"] == "metadata" {
			if id, ok := check["id"].(string); ok && id != "" {
				sess.ID = id
			}
			if created, ok := check["created_at"].(string); ok {
				sess.CreatedAt, _ = time.Parse(time.RFC3339, created)
			}
			if updated, ok := check["updated_at"].(string); ok {
				sess.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
			}
			if rawCfg, ok := check["config"]; ok {
				if cfgBytes, err := json.Marshal(rawCfg); err == nil {
					var cfg Config
					if json.Unmarshal(cfgBytes, &cfg) == nil {
						sess.Config = cfg
					}
				}
			}
			continue
		}

		var msg Message
		if json.Unmarshal(raw, &msg) == nil {
			sess.Messages = append(sess.Messages, msg)
		}
	}
	return sess
}
