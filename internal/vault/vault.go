// Package vault provides the document store the assistant operates
// on: a directory tree of Markdown notes addressed by relative path.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry describes one item under a vault folder.
type Entry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// Store is the document store boundary tools and the context builder
// depend on. Paths are vault-relative.
type Store interface {
	Read(path string) (string, error)
	Write(path, content string) error
	Append(path, content string) error
	List(path string) ([]Entry, error)
	Exists(path string) bool
	Delete(path string) error
}

// DirStore is a Store rooted at a directory on the local filesystem.
// Every path is resolved inside the root; escapes are rejected.
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at dir. A leading ~ is expanded.
func NewDirStore(dir string) (*DirStore, error) {
	root, err := filepath.Abs(expandPath(dir))
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create vault root: %w", err)
	}
	return &DirStore{root: root}, nil
}

// Root returns the absolute vault root directory.
func (s *DirStore) Root() string { return s.root }

// resolve maps a vault-relative path to an absolute one, refusing
// anything that escapes the root.
func (s *DirStore) resolve(path string) (string, error) {
	abs := filepath.Join(s.root, filepath.Clean("/"+path))
	if !isWithin(s.root, abs) {
		return "", fmt.Errorf("path escapes vault: %s", path)
	}
	return abs, nil
}

// Read returns the contents of a note.
func (s *DirStore) Read(path string) (string, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write replaces a note's contents, creating parent folders as needed.
func (s *DirStore) Write(path, content string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return err
	}
	return os.WriteFile(abs, []byte(content), 0644)
}

// Append adds content to the end of a note, creating it if absent.
func (s *DirStore) Append(path, content string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

// List returns the entries directly under a folder, directories first,
// each group sorted by name.
func (s *DirStore) List(path string) ([]Entry, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		e := Entry{Path: de.Name(), IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// Exists reports whether a path exists in the vault.
func (s *DirStore) Exists(path string) bool {
	abs, err := s.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Delete removes a note. Folders are refused.
func (s *DirStore) Delete(path string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("refusing to delete folder: %s", path)
	}
	return os.Remove(abs)
}

// Walk visits every Markdown note in the vault, passing its
// vault-relative path to fn. Hidden directories are skipped.
func (s *DirStore) Walk(fn func(path string) error) error {
	return filepath.WalkDir(s.root, func(abs string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && abs != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(s.root, abs)
		if err != nil {
			return nil
		}
		return fn(filepath.ToSlash(rel))
	})
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
