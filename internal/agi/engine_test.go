package agi

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lemmanotes/lemma/internal/graph"
	"github.com/lemmanotes/lemma/internal/notes"
	"github.com/lemmanotes/lemma/internal/vecindex"
)

type testEnv struct {
	engine    *Engine
	main      *notes.Store
	gen       *notes.Store
	genGraph  *graph.Store
	index     *vecindex.Index
	statePath string
	llm       *fakeLLM
}

// newTestEnv wires an engine over temp directories with a fake LLM chunker.
// Pass a nil response to disable chunking entirely.
func newTestEnv(t *testing.T, chunkResponse string) *testEnv {
	t.Helper()

	mainDir := t.TempDir()
	main := notes.NewMain(mainDir)
	gen := notes.NewGenerated(mainDir, "LEMMA_generated")
	genGraph := graph.NewStore(gen.Dir())

	index, err := vecindex.Open(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { index.Close() })

	client := &fakeLLM{response: chunkResponse}
	var chunker *Chunker
	if chunkResponse != "" {
		chunker = NewChunker(client, nil)
	}

	statePath := filepath.Join(t.TempDir(), "sync.state")
	engine := NewEngine(Options{
		Main:      main,
		Generated: gen,
		Graph:     genGraph,
		Vectors:   index,
		Chunker:   chunker,
		StatePath: statePath,
		Logger:    func(string, ...any) {},
	})

	return &testEnv{
		engine:    engine,
		main:      main,
		gen:       gen,
		genGraph:  genGraph,
		index:     index,
		statePath: statePath,
		llm:       client,
	}
}

func (env *testEnv) writeMain(t *testing.T, name, content string) {
	t.Helper()
	if err := env.main.SaveFile(name, content); err != nil {
		t.Fatal(err)
	}
}

const chunkJSON = `[{"title": "Section", "content": "content from the section"}]`

func TestSyncAllEndToEnd(t *testing.T) {
	env := newTestEnv(t, chunkJSON)
	env.writeMain(t, "note1.md", "# Note1\n\n## Section\ncontent\n\n[[note2]]")
	env.writeMain(t, "note2.md", "# Note2\nsome content")

	ctx := context.Background()
	if err := env.engine.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	// Mirrored copies plus at least one chunk file.
	names, err := env.gen.Names()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := names["note1.md"]; !ok {
		t.Error("generated dir missing note1.md")
	}
	if _, ok := names["note2.md"]; !ok {
		t.Error("generated dir missing note2.md")
	}
	foundChunk := false
	for name := range names {
		if strings.HasPrefix(name, "generated_note1_") && strings.HasSuffix(name, "_chunk1.md") {
			foundChunk = true
		}
	}
	if !foundChunk {
		t.Errorf("no chunk file for note1 in %v", names)
	}

	// Generated graph links note1 to note2.
	n1 := env.genGraph.GetNode("note1.md")
	n2 := env.genGraph.GetNode("note2.md")
	if n1 == nil || n2 == nil {
		t.Fatalf("graph nodes missing: note1=%v note2=%v", n1, n2)
	}
	linked := false
	for _, l := range env.genGraph.GetLinks() {
		if l.Source == n1.ID && l.Target == n2.ID {
			linked = true
		}
	}
	if !linked {
		t.Error("no link from note1.md to note2.md in generated graph")
	}

	// Full-text query finds both source notes.
	records, err := env.index.QueryNotes(ctx, env.gen.Dir(), "content", vecindex.FullText)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]bool)
	for _, rec := range records {
		got[rec.FilePath] = true
	}
	if !got["note1.md"] || !got["note2.md"] {
		t.Errorf("query results = %v, want both source notes", got)
	}

	// Everything completed, so both files are marked synced.
	state := LoadSyncState(env.statePath)
	for _, name := range []string{"note1.md", "note2.md"} {
		if state.Unsynced(name) {
			t.Errorf("%s left unsynced after successful pass", name)
		}
	}

	// Parent's mirrored copy gained a chunk listing.
	mirrored, err := env.gen.ReadFile("note1.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(mirrored, "## Chunks") {
		t.Error("mirrored note1.md has no chunk listing")
	}
}

func TestSyncAllResumesUnsynced(t *testing.T) {
	env := newTestEnv(t, chunkJSON)
	env.writeMain(t, "A.md", "# A\n\nplenty of content in this note to work with")

	// Simulate a crash: the generated copy exists but the sync record says
	// the pipeline never finished.
	content, _ := env.main.ReadFile("A.md")
	if err := env.gen.Write("A.md", content); err != nil {
		t.Fatal(err)
	}
	state := LoadSyncState(env.statePath)
	state.MarkUnsynced("A.md")
	if err := state.Save(env.statePath); err != nil {
		t.Fatal(err)
	}

	if err := env.engine.SyncAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	if env.llm.calls == 0 {
		t.Error("unsynced A.md was not re-chunked despite existing copy")
	}
	if LoadSyncState(env.statePath).Unsynced("A.md") {
		t.Error("A.md still unsynced after resume")
	}
}

func TestSyncAllSkipsSyncedFiles(t *testing.T) {
	env := newTestEnv(t, chunkJSON)
	env.writeMain(t, "A.md", "# A\n\nlong enough content for chunking to apply here")

	ctx := context.Background()
	if err := env.engine.SyncAll(ctx); err != nil {
		t.Fatal(err)
	}
	calls := env.llm.calls

	// Second pass with nothing changed touches nothing.
	if err := env.engine.SyncAll(ctx); err != nil {
		t.Fatal(err)
	}
	if env.llm.calls != calls {
		t.Errorf("LLM calls went %d -> %d on a no-op pass", calls, env.llm.calls)
	}
}

func TestSyncAllChunkFailureKeepsUnsynced(t *testing.T) {
	env := newTestEnv(t, "not json at all")
	env.writeMain(t, "A.md", "# A\ncontent")

	if err := env.engine.SyncAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !LoadSyncState(env.statePath).Unsynced("A.md") {
		t.Error("A.md marked synced despite chunking failure")
	}
	// The mirror itself still happened.
	if !env.gen.Exists("A.md") {
		t.Error("A.md not mirrored")
	}
}

func TestSyncAllOrphanCleanup(t *testing.T) {
	env := newTestEnv(t, chunkJSON)
	env.writeMain(t, "keep.md", "# Keep\ncontent that stays around for a while")

	ctx := context.Background()
	if err := env.engine.SyncAll(ctx); err != nil {
		t.Fatal(err)
	}

	// Delete the source and add a stray mirrored file with no source.
	if err := env.main.DeleteFile("keep.md"); err != nil {
		t.Fatal(err)
	}
	if err := env.engine.SyncAll(ctx); err != nil {
		t.Fatal(err)
	}

	if env.gen.Exists("keep.md") {
		t.Error("orphaned mirror keep.md survived")
	}
	if env.genGraph.GetNode("keep.md") != nil {
		t.Error("orphaned graph node keep.md survived")
	}
	names, _ := env.gen.Names()
	for name := range names {
		if strings.HasPrefix(name, "generated_keep_") {
			t.Errorf("orphaned chunk %s survived", name)
		}
	}
	records, err := env.index.QueryNotes(ctx, env.gen.Dir(), "", vecindex.FullText)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if rec.FilePath == "keep.md" {
			t.Error("orphaned vector record keep.md survived")
		}
	}
}

func TestUpdateFileReplacesChunks(t *testing.T) {
	env := newTestEnv(t, chunkJSON)
	env.writeMain(t, "A.md", "# A\n\noriginal content with enough words to chunk")

	ctx := context.Background()
	if err := env.engine.SyncAll(ctx); err != nil {
		t.Fatal(err)
	}

	env.writeMain(t, "A.md", "# A\n\nrewritten content, chunks must be rebuilt")
	if err := env.engine.UpdateFile(ctx, "A.md"); err != nil {
		t.Fatal(err)
	}

	names, _ := env.gen.Names()
	chunkCount := 0
	for name := range names {
		if strings.HasPrefix(name, "generated_A_") {
			chunkCount++
		}
	}
	if chunkCount != 1 {
		t.Errorf("chunk count after re-sync = %d, want 1", chunkCount)
	}

	mirrored, err := env.gen.ReadFile("A.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(mirrored, "rewritten content") {
		t.Error("mirror not refreshed on update")
	}
}

func TestUpdateFileDeletionRemovesDerived(t *testing.T) {
	env := newTestEnv(t, chunkJSON)
	env.writeMain(t, "A.md", "# A\n\ncontent long enough for the chunker to run")

	ctx := context.Background()
	if err := env.engine.SyncAll(ctx); err != nil {
		t.Fatal(err)
	}

	if err := env.main.DeleteFile("A.md"); err != nil {
		t.Fatal(err)
	}
	if err := env.engine.UpdateFile(ctx, "A.md"); err != nil {
		t.Fatal(err)
	}

	if env.gen.Exists("A.md") {
		t.Error("mirror A.md survived source deletion")
	}
	if env.genGraph.GetNode("A.md") != nil {
		t.Error("graph node A.md survived source deletion")
	}
	if _, ok := LoadSyncState(env.statePath).Files["A.md"]; ok {
		t.Error("sync record A.md survived source deletion")
	}
	names, _ := env.gen.Names()
	if len(names) != 0 {
		t.Errorf("derived files survived: %v", names)
	}
}

func TestCreateGeneratedNote(t *testing.T) {
	env := newTestEnv(t, "")
	env.writeMain(t, "src.md", "# Src\ncontent")
	if err := env.engine.SyncAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	name := "fully_generated_Idea_20250101120000.md"
	content := "# Idea\n\nconnects things\n\n## Linked Notes\n\n- [[src]]\n"
	if err := env.engine.CreateGeneratedNote(context.Background(), name, content); err != nil {
		t.Fatalf("CreateGeneratedNote: %v", err)
	}

	if !env.gen.Exists(name) {
		t.Fatal("synthesis file not written")
	}
	node := env.genGraph.GetNode(name)
	if node == nil {
		t.Fatal("synthesis node missing")
	}
	if node.Type != graph.TypeGenerated {
		t.Errorf("node type = %v, want generated", node.Type)
	}

	src := env.genGraph.GetNode("src.md")
	linked := false
	for _, l := range env.genGraph.GetLinks() {
		if l.Source == node.ID && l.Target == src.ID {
			linked = true
		}
	}
	if !linked {
		t.Error("synthesis note not linked to its source")
	}
}

func TestStripChunksSection(t *testing.T) {
	content := "# A\n\nbody\n\n## Chunks\n\n1. [[generated_A_x_chunk1]]\n"
	got := stripChunksSection(content)
	if strings.Contains(got, "## Chunks") {
		t.Errorf("chunk section not stripped: %q", got)
	}
	if !strings.Contains(got, "body") {
		t.Errorf("body lost: %q", got)
	}

	// Content without a section is returned intact (modulo trailing newlines).
	if got := stripChunksSection("# A\nbody\n"); got != "# A\nbody\n" {
		t.Errorf("stripChunksSection no-op = %q", got)
	}
}
