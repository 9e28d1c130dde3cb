package agi

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSyncStateMissingFile(t *testing.T) {
	state := LoadSyncState(filepath.Join(t.TempDir(), "sync.state"))
	if state.Files == nil {
		t.Fatal("Files map is nil, want empty map")
	}
	if len(state.Files) != 0 {
		t.Errorf("Files = %v, want empty", state.Files)
	}
}

func TestLoadSyncStateMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.state")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	state := LoadSyncState(path)
	if len(state.Files) != 0 {
		t.Errorf("Files from malformed file = %v, want empty", state.Files)
	}
}

func TestSyncStateSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.state")

	state := LoadSyncState(path)
	state.MarkSynced("a.md")
	state.MarkUnsynced("b.md")
	if err := state.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := LoadSyncState(path)
	if loaded.Unsynced("a.md") {
		t.Error("a.md reported unsynced, want synced")
	}
	if !loaded.Unsynced("b.md") {
		t.Error("b.md reported synced, want unsynced")
	}
	// Files without a record are not part of the resume set.
	if loaded.Unsynced("c.md") {
		t.Error("c.md has no record but reported unsynced")
	}
}

func TestSyncStateRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.state")

	state := LoadSyncState(path)
	state.MarkUnsynced("a.md")
	state.Remove("a.md")
	if err := state.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded := LoadSyncState(path)
	if _, ok := loaded.Files["a.md"]; ok {
		t.Error("a.md record survived Remove")
	}
}
