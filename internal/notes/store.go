// Package notes implements the directory-bound markdown file store.
package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Kind identifies which directory context a Store is bound to.
type Kind int

const (
	// Main is the user's notes directory.
	Main Kind = iota
	// Generated is the derived notes directory under the main directory.
	Generated
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case Main:
		return "main"
	case Generated:
		return "generated"
	default:
		return "unknown"
	}
}

// ErrGeneratedReadOnly is returned when a user-facing write operation is
// attempted on a Generated store.
var ErrGeneratedReadOnly = fmt.Errorf("generated notes are read-only")

// FileInfo describes one markdown file in a store.
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mtime"`
}

// Store is a markdown file store bound to a single directory context.
// User-facing mutations (SaveFile, CreateFile, DeleteFile) are rejected on
// Generated stores; the sync engines maintain derived artifacts through the
// unguarded Write and Remove primitives.
type Store struct {
	dir  string
	kind Kind
}

// NewMain creates a store for the user's notes directory.
func NewMain(dir string) *Store {
	return &Store{dir: dir, kind: Main}
}

// NewGenerated creates a store for the derived notes directory nested under
// the given main directory.
func NewGenerated(mainDir, generatedName string) *Store {
	return &Store{dir: filepath.Join(mainDir, generatedName), kind: Generated}
}

// Dir returns the directory the store is bound to.
func (s *Store) Dir() string { return s.dir }

// Kind returns the store's directory context.
func (s *Store) Kind() Kind { return s.kind }

// validName rejects names that are empty, escape the store directory, or are
// not markdown files.
func (s *Store) validName(name string) error {
	if name == "" {
		return fmt.Errorf("empty filename")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid filename %q: must not contain path separators", name)
	}
	if !strings.HasSuffix(name, ".md") {
		return fmt.Errorf("invalid filename %q: not a markdown file", name)
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// GetFiles lists the store's markdown files, sorted newest-first by
// modification time. A missing directory yields an empty list, not an error.
func (s *Store) GetFiles() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // deleted between listing and stat
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(s.dir, entry.Name()),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// Names returns the set of markdown filenames in the store.
func (s *Store) Names() (map[string]struct{}, error) {
	files, err := s.GetFiles()
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(files))
	for _, f := range files {
		names[f.Name] = struct{}{}
	}
	return names, nil
}

// Exists reports whether the named file exists in the store.
func (s *Store) Exists(name string) bool {
	if err := s.validName(name); err != nil {
		return false
	}
	info, err := os.Stat(s.path(name))
	return err == nil && !info.IsDir()
}

// ReadFile returns the content of the named file.
func (s *Store) ReadFile(name string) (string, error) {
	if err := s.validName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// SaveFile overwrites the named file with content. Rejected on Generated stores.
func (s *Store) SaveFile(name, content string) error {
	if s.kind == Generated {
		return ErrGeneratedReadOnly
	}
	if err := s.validName(name); err != nil {
		return err
	}
	if err := os.WriteFile(s.path(name), []byte(content), 0644); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// CreateFile creates a new note seeded with a top-level heading derived from
// its basename. It rejects existing files and Generated stores, and returns
// the path of the created file.
func (s *Store) CreateFile(name string) (string, error) {
	if s.kind == Generated {
		return "", ErrGeneratedReadOnly
	}
	if err := s.validName(name); err != nil {
		return "", err
	}
	path := s.path(name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("file %s already exists", name)
	}
	seed := fmt.Sprintf("# %s\n", strings.TrimSuffix(name, ".md"))
	if err := os.WriteFile(path, []byte(seed), 0644); err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	return path, nil
}

// DeleteFile removes the named file. Rejected on Generated stores.
func (s *Store) DeleteFile(name string) error {
	if s.kind == Generated {
		return ErrGeneratedReadOnly
	}
	if err := s.validName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Write is the engine-level primitive used by the sync engines to maintain
// derived artifacts. It creates the store directory if needed and carries no
// Kind guard.
func (s *Store) Write(name, content string) error {
	if err := s.validName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	if err := os.WriteFile(s.path(name), []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Remove is the engine-level deletion primitive. Removing a missing file is
// a no-op.
func (s *Store) Remove(name string) error {
	if err := s.validName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
