package agi

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/lemmanotes/lemma/internal/graph"
	"github.com/lemmanotes/lemma/internal/notes"
	"github.com/lemmanotes/lemma/internal/vecindex"
	"github.com/lemmanotes/lemma/internal/wikilink"
)

var chunksSectionRe = regexp.MustCompile(`(?ms)^## Chunks\s*$.*\z`)

// Engine mirrors user notes into the generated directory, maintains the
// generated graph and vector records, and runs the chunking pipeline.
type Engine struct {
	main      *notes.Store
	gen       *notes.Store
	genGraph  *graph.Store
	vec       *vecindex.Index
	chunker   *Chunker
	statePath string
	log       func(format string, args ...any)
}

// Options configures an Engine. Chunker may be nil to disable chunking;
// mirroring and graph maintenance still run.
type Options struct {
	Main      *notes.Store
	Generated *notes.Store
	Graph     *graph.Store
	Vectors   *vecindex.Index
	Chunker   *Chunker
	StatePath string
	Logger    func(format string, args ...any)
}

// NewEngine creates an AGI sync engine over the given stores.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Engine{
		main:      opts.Main,
		gen:       opts.Generated,
		genGraph:  opts.Graph,
		vec:       opts.Vectors,
		chunker:   opts.Chunker,
		statePath: opts.StatePath,
		log:       logger,
	}
}

// SyncAll reconciles the generated directory with the main directory: removes
// derived artifacts whose source note is gone, then runs the per-file
// pipeline for every note that is new or whose last pass did not complete.
// Per-file failures are logged and skipped so one bad note cannot stall the
// batch; failed notes stay queued for the next pass.
func (e *Engine) SyncAll(ctx context.Context) error {
	mainFiles, err := e.main.GetFiles()
	if err != nil {
		return fmt.Errorf("list main notes: %w", err)
	}
	genNames, err := e.gen.Names()
	if err != nil {
		return fmt.Errorf("list generated notes: %w", err)
	}

	mainSet := make(map[string]struct{}, len(mainFiles))
	for _, f := range mainFiles {
		mainSet[f.Name] = struct{}{}
	}

	state := LoadSyncState(e.statePath)

	// Orphan cleanup. Chunk and synthesis files are derived, not mirrored,
	// so they are never orphans themselves; they go when their parent goes.
	for name := range genNames {
		if graph.IsDerivedName(name) {
			continue
		}
		if _, ok := mainSet[name]; !ok {
			e.removeDerived(ctx, name, state)
		}
	}

	// Worklist: notes not yet mirrored, plus notes whose last pass was
	// interrupted, in main listing order.
	seen := make(map[string]struct{})
	var worklist []string
	for _, f := range mainFiles {
		_, mirrored := genNames[f.Name]
		if !mirrored || state.Unsynced(f.Name) {
			if _, dup := seen[f.Name]; !dup {
				seen[f.Name] = struct{}{}
				worklist = append(worklist, f.Name)
			}
		}
	}

	for _, name := range worklist {
		select {
		case <-ctx.Done():
			return state.Save(e.statePath)
		default:
		}
		if err := e.syncFile(ctx, name, state); err != nil {
			e.log("sync %s: %v", name, err)
		}
	}
	return state.Save(e.statePath)
}

// UpdateFile reconciles a single note after a create, edit, or delete in the
// main directory.
func (e *Engine) UpdateFile(ctx context.Context, name string) error {
	state := LoadSyncState(e.statePath)

	if !e.main.Exists(name) {
		e.removeDerived(ctx, name, state)
		return state.Save(e.statePath)
	}

	// An edit invalidates prior chunks.
	e.removeChunks(ctx, name)

	if err := e.syncFile(ctx, name, state); err != nil {
		e.log("sync %s: %v", name, err)
	}
	return state.Save(e.statePath)
}

// syncFile runs the per-file pipeline: mark unsynced, mirror, index, graph,
// chunk, mark synced. The unsynced mark is persisted before any work so a
// crash mid-pipeline leaves the note queued.
func (e *Engine) syncFile(ctx context.Context, name string, state *SyncState) error {
	state.MarkUnsynced(name)
	if err := state.Save(e.statePath); err != nil {
		return err
	}

	content, err := e.main.ReadFile(name)
	if err != nil {
		return err
	}
	if err := e.gen.Write(name, content); err != nil {
		return err
	}
	if err := e.vec.UpsertNote(ctx, e.gen.Dir(), name, content, graph.TypeUser); err != nil {
		e.log("index %s: %v", name, err)
	}

	mainNames, err := e.main.Names()
	if err != nil {
		return err
	}
	links := wikilink.Parse(content, mainNames)
	if err := e.reconcileNode(name, links, graph.ClassifyName(name)); err != nil {
		return err
	}

	ok := true
	if e.chunker != nil {
		ok = e.chunkFile(ctx, name, content)
	}
	if ok {
		state.MarkSynced(name)
	}
	return state.Save(e.statePath)
}

// chunkFile asks the LLM for chunk proposals and materializes them: a file,
// vector record, and graph node per chunk, then a rebuilt "## Chunks" section
// in the mirrored parent. Returns whether the pass completed.
func (e *Engine) chunkFile(ctx context.Context, parent, content string) bool {
	cleaned := stripChunksSection(content)
	chunks, ok := e.chunker.Propose(ctx, parent, cleaned)
	if !ok {
		return false
	}
	if len(chunks) == 0 {
		// Canceled: nothing produced, but not a failure to retry.
		return true
	}

	parentRef := strings.TrimSuffix(parent, ".md")
	var written []string
	for i, ch := range chunks {
		name := chunkFilename(parent, ch.Title, i+1)
		body := fmt.Sprintf("%s\n\nPart of [[%s]]\n", strings.TrimRight(ch.Content, "\n"), parentRef)
		if err := e.gen.Write(name, body); err != nil {
			e.log("write chunk %s: %v", name, err)
			return false
		}
		if err := e.vec.UpsertNote(ctx, e.gen.Dir(), name, body, graph.TypeAssisted); err != nil {
			e.log("index chunk %s: %v", name, err)
		}

		avail := make(map[string]struct{}, len(written)+1)
		for _, w := range written {
			avail[w] = struct{}{}
		}
		avail[parent] = struct{}{}
		links := wikilink.Parse(body, avail)
		if _, err := e.genGraph.CreateNode(name, links, graph.TypeAssisted); err != nil {
			e.log("graph chunk %s: %v", name, err)
			return false
		}
		written = append(written, name)
	}

	// Rebuild the parent's chunk listing.
	var b strings.Builder
	b.WriteString(strings.TrimRight(cleaned, "\n"))
	b.WriteString("\n\n## Chunks\n\n")
	for _, name := range written {
		b.WriteString(fmt.Sprintf("%d. [[%s]]\n", chunkNumber(name), strings.TrimSuffix(name, ".md")))
	}
	rebuilt := b.String()

	if err := e.gen.Write(parent, rebuilt); err != nil {
		e.log("write parent %s: %v", parent, err)
		return false
	}
	if err := e.vec.UpsertNote(ctx, e.gen.Dir(), parent, rebuilt, graph.TypeUser); err != nil {
		e.log("index parent %s: %v", parent, err)
	}

	mainNames, err := e.main.Names()
	if err != nil {
		e.log("list main notes: %v", err)
		return false
	}
	avail := make(map[string]struct{}, len(mainNames)+len(written))
	for n := range mainNames {
		avail[n] = struct{}{}
	}
	for _, n := range written {
		avail[n] = struct{}{}
	}
	links := wikilink.Parse(rebuilt, avail)
	if err := e.reconcileNode(parent, links, graph.ClassifyName(parent)); err != nil {
		e.log("graph parent %s: %v", parent, err)
		return false
	}
	return true
}

// reconcileNode ensures the named node exists with exactly the given outbound
// links, pruning stale ones.
func (e *Engine) reconcileNode(name string, links []string, t graph.NoteType) error {
	if _, err := e.genGraph.CreateNode(name, links, t); err != nil {
		return err
	}

	want := make(map[string]struct{}, len(links))
	for _, l := range links {
		want[l] = struct{}{}
	}

	doc := e.genGraph.Document()
	var nodeID int
	found := false
	byID := make(map[int]string, len(doc.Nodes))
	for _, n := range doc.Nodes {
		byID[n.ID] = n.Name
		if n.Name == name {
			nodeID = n.ID
			found = true
		}
	}
	if !found {
		return nil
	}
	for _, l := range doc.Links {
		if l.Source != nodeID {
			continue
		}
		target := byID[l.Target]
		if _, keep := want[target]; !keep {
			if _, err := e.genGraph.DeleteLink(l.Source, l.Target); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeChunks deletes every chunk file derived from the parent along with
// its graph node and vector record.
func (e *Engine) removeChunks(ctx context.Context, parent string) {
	prefix := chunkPrefixFor(parent)
	files, err := e.gen.GetFiles()
	if err != nil {
		e.log("list generated notes: %v", err)
		return
	}
	for _, f := range files {
		if !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		if err := e.gen.Remove(f.Name); err != nil {
			e.log("remove chunk %s: %v", f.Name, err)
		}
		if _, err := e.genGraph.DeleteNodeByName(f.Name); err != nil {
			e.log("unlink chunk %s: %v", f.Name, err)
		}
		if err := e.vec.DeleteNotes(ctx, e.gen.Dir(), f.Name); err != nil {
			e.log("deindex chunk %s: %v", f.Name, err)
		}
	}
}

// removeDerived deletes everything derived from a note: its chunks, the
// mirrored copy, its graph node, its vector record, and its sync record.
func (e *Engine) removeDerived(ctx context.Context, name string, state *SyncState) {
	e.removeChunks(ctx, name)

	if err := e.gen.Remove(name); err != nil {
		e.log("remove %s: %v", name, err)
	}
	if _, err := e.genGraph.DeleteNodeByName(name); err != nil {
		e.log("unlink %s: %v", name, err)
	}
	if err := e.vec.DeleteNotes(ctx, e.gen.Dir(), name); err != nil {
		e.log("deindex %s: %v", name, err)
	}
	state.Remove(name)
}

// CreateGeneratedNote writes an autonomous synthesis note into the generated
// directory and registers it in the vector index and generated graph. Links
// resolve against everything currently in the generated directory.
func (e *Engine) CreateGeneratedNote(ctx context.Context, name, content string) error {
	if err := e.gen.Write(name, content); err != nil {
		return err
	}
	if err := e.vec.UpsertNote(ctx, e.gen.Dir(), name, content, graph.TypeGenerated); err != nil {
		e.log("index %s: %v", name, err)
	}
	avail, err := e.gen.Names()
	if err != nil {
		return err
	}
	links := wikilink.Parse(content, avail)
	if _, err := e.genGraph.CreateNode(name, links, graph.TypeGenerated); err != nil {
		return err
	}
	return nil
}

// stripChunksSection removes a trailing "## Chunks" section so the chunking
// prompt and rebuilt parent never see a prior listing.
func stripChunksSection(content string) string {
	return strings.TrimRight(chunksSectionRe.ReplaceAllString(content, ""), "\n") + "\n"
}
