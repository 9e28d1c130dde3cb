// Package graphsync reconciles a directory's graph document with its files.
package graphsync

import (
	"fmt"
	"os"

	"github.com/lemmanotes/lemma/internal/graph"
	"github.com/lemmanotes/lemma/internal/notes"
	"github.com/lemmanotes/lemma/internal/wikilink"
)

// Engine reconciles one directory context: a file store and its graph store,
// bound at construction.
type Engine struct {
	files   *notes.Store
	store   *graph.Store
	log     func(format string, args ...any)
	verbose bool
}

// New creates an Engine for the given stores. If logger is nil, logs go to
// stderr.
func New(files *notes.Store, store *graph.Store, logger func(format string, args ...any), verbose bool) *Engine {
	if logger == nil {
		logger = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Engine{files: files, store: store, log: logger, verbose: verbose}
}

// Store returns the underlying graph store.
func (e *Engine) Store() *graph.Store { return e.store }

// SyncGraphWithFiles performs a full reconciliation pass:
// nodes are created for files without one, nodes whose file is gone are
// deleted (cascading their links), and every remaining file's outbound links
// are diffed against its parsed wikilinks.
func (e *Engine) SyncGraphWithFiles() error {
	files, err := e.files.GetFiles()
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	available := make(map[string]struct{}, len(files))
	for _, f := range files {
		available[f.Name] = struct{}{}
	}

	// Add nodes for files the graph does not know yet.
	for _, f := range files {
		if e.store.GetNode(f.Name) == nil {
			if _, err := e.store.CreateNode(f.Name, nil, graph.ClassifyName(f.Name)); err != nil {
				return fmt.Errorf("create node %s: %w", f.Name, err)
			}
			if e.verbose {
				e.log("graph: added node %s", f.Name)
			}
		}
	}

	// Remove nodes whose backing file is gone.
	for _, n := range e.store.GetNodes() {
		if _, ok := available[n.Name]; ok {
			continue
		}
		if _, err := e.store.DeleteNode(n.ID); err != nil {
			return fmt.Errorf("delete node %s: %w", n.Name, err)
		}
		if e.verbose {
			e.log("graph: removed orphaned node %s", n.Name)
		}
	}

	// Reconcile each file's outbound links. One file's failure must not
	// abort the rest of the pass.
	for _, f := range files {
		if err := e.reconcileLinks(f.Name, available); err != nil {
			e.log("graph: reconcile %s: %v", f.Name, err)
		}
	}

	return nil
}

// UpdateFileInGraph is the single-file incremental path, invoked on every
// save. It is safe to call on a never-before-seen or already-synced file and
// yields the same result as a full sync restricted to that file.
func (e *Engine) UpdateFileInGraph(filename string) error {
	if !e.files.Exists(filename) {
		if _, err := e.store.DeleteNodeByName(filename); err != nil {
			return fmt.Errorf("delete node %s: %w", filename, err)
		}
		return nil
	}

	available, err := e.files.Names()
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	if _, err := e.store.CreateNode(filename, nil, graph.ClassifyName(filename)); err != nil {
		return fmt.Errorf("create node %s: %w", filename, err)
	}
	return e.reconcileLinks(filename, available)
}

// reconcileLinks diffs the node's outbound links against the wikilinks
// currently present in the file's content, creating missing links and
// pruning stale ones.
func (e *Engine) reconcileLinks(filename string, available map[string]struct{}) error {
	content, err := e.files.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	wanted := wikilink.Parse(content, available)
	wantedSet := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		wantedSet[w] = struct{}{}
	}

	node := e.store.GetNode(filename)
	if node == nil {
		return fmt.Errorf("node %s not found", filename)
	}

	// Resolve current outbound targets back to filenames.
	names := make(map[int]string)
	for _, n := range e.store.GetNodes() {
		names[n.ID] = n.Name
	}
	current := make(map[string]int)
	for _, l := range e.store.GetLinks() {
		if l.Source == node.ID {
			current[names[l.Target]] = l.Target
		}
	}

	linkType := graph.ClassifyName(filename)

	// Create missing links.
	for _, target := range wanted {
		if _, ok := current[target]; ok {
			continue
		}
		if err := e.store.CreateLink(filename, target, linkType); err != nil {
			return fmt.Errorf("link %s -> %s: %w", filename, target, err)
		}
	}

	// Prune stale links.
	for targetName, targetID := range current {
		if _, ok := wantedSet[targetName]; ok {
			continue
		}
		if _, err := e.store.DeleteLink(node.ID, targetID); err != nil {
			return fmt.Errorf("unlink %s -> %s: %w", filename, targetName, err)
		}
	}

	return nil
}
