// Package agi maintains the derived note collection: mirroring, chunking,
// and autonomous note creation.
package agi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SyncState tracks per-file chunking state. A file is unsynced from the
// moment chunking begins until the whole per-file pipeline completes, so any
// interruption leaves it queued for the next batch pass.
type SyncState struct {
	// Files maps a main-directory filename to whether its last chunking
	// pass completed.
	Files map[string]bool `json:"files"`
}

// LoadSyncState reads sync state from the given file path.
// Returns an empty state (no error) if the file does not exist or is
// malformed; corruption self-heals on the next save.
func LoadSyncState(path string) *SyncState {
	state := &SyncState{Files: make(map[string]bool)}
	data, err := os.ReadFile(path)
	if err != nil {
		return state
	}
	if err := json.Unmarshal(data, state); err != nil {
		return &SyncState{Files: make(map[string]bool)}
	}
	if state.Files == nil {
		state.Files = make(map[string]bool)
	}
	return state
}

// Unsynced reports whether the file has a sync record marking it incomplete.
// Files without a record are not part of the resume set.
func (s *SyncState) Unsynced(name string) bool {
	synced, ok := s.Files[name]
	return ok && !synced
}

// MarkUnsynced records that chunking for the file has begun (or failed).
func (s *SyncState) MarkUnsynced(name string) {
	s.Files[name] = false
}

// MarkSynced records that the file's pipeline completed.
func (s *SyncState) MarkSynced(name string) {
	s.Files[name] = true
}

// Remove drops the file's sync record entirely.
func (s *SyncState) Remove(name string) {
	delete(s.Files, name)
}

// Save writes the sync state to the given file path.
func (s *SyncState) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sync state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write sync state: %w", err)
	}
	return nil
}
