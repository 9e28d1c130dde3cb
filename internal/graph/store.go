package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// GraphFileName is the graph document filename within a directory context.
const GraphFileName = "graph.json"

// Store owns the graph document for one directory context. Every operation
// is a full read-modify-write of the document; a mutex serializes mutation so
// interleaved callers cannot lose updates.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store for the graph document under dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, GraphFileName)}
}

// Path returns the graph document's file path.
func (s *Store) Path() string { return s.path }

// load reads the graph document. A missing or malformed file yields an empty
// document; corruption self-heals on the next write.
func (s *Store) load() *Document {
	doc := &Document{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return &Document{}
	}
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	if doc.Links == nil {
		doc.Links = []Link{}
	}
	return doc
}

// persist writes the document back to disk, creating the directory if needed.
func (s *Store) persist(doc *Document) error {
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	if doc.Links == nil {
		doc.Links = []Link{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create graph dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}

// CreateNode adds a node for name, then links it to each entry of linked.
// If a node with the name already exists it is returned unchanged. Unresolved
// link targets are auto-created as stub nodes of the same type.
func (s *Store) CreateNode(name string, linked []string, t NoteType) (Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	node, mutated := ensureNode(doc, name, t)

	for _, target := range linked {
		if linkByName(doc, name, target, t) {
			mutated = true
		}
	}

	if mutated {
		if err := s.persist(doc); err != nil {
			return Node{}, err
		}
	}
	return node, nil
}

// ensureNode returns the node for name, creating it when absent. The second
// return reports whether the document changed.
func ensureNode(doc *Document, name string, t NoteType) (Node, bool) {
	if i := doc.findNode(name); i >= 0 {
		return doc.Nodes[i], false
	}
	node := Node{ID: doc.nextID(), Name: name, Type: t}
	doc.Nodes = append(doc.Nodes, node)
	return node, true
}

// linkByName adds a (source, target) link, auto-creating stub nodes for
// unresolved names. Returns whether the document changed.
func linkByName(doc *Document, source, target string, t NoteType) bool {
	src, createdSrc := ensureNode(doc, source, t)
	dst, createdDst := ensureNode(doc, target, t)
	if doc.hasLink(src.ID, dst.ID) {
		return createdSrc || createdDst
	}
	doc.Links = append(doc.Links, Link{Source: src.ID, Target: dst.ID, Type: t})
	return true
}

// CreateLink adds a directed link between two named notes, auto-creating stub
// nodes for unresolved names. An existing (source, target) pair is a no-op.
func (s *Store) CreateLink(source, target string, t NoteType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if !linkByName(doc, source, target, t) {
		return nil
	}
	return s.persist(doc)
}

// CreateLinkByID adds a directed link between two existing node ids.
// Returns false if either endpoint does not exist.
func (s *Store) CreateLinkByID(source, target int, t NoteType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if doc.findNodeByID(source) < 0 || doc.findNodeByID(target) < 0 {
		return false, nil
	}
	if doc.hasLink(source, target) {
		return true, nil
	}
	doc.Links = append(doc.Links, Link{Source: source, Target: target, Type: t})
	return true, s.persist(doc)
}

// GetNode returns the node with the given name, or nil if absent.
func (s *Store) GetNode(name string) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if i := doc.findNode(name); i >= 0 {
		n := doc.Nodes[i]
		return &n
	}
	return nil
}

// GetNodes returns all nodes in the graph.
func (s *Store) GetNodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().Nodes
}

// GetLinks returns all links in the graph.
func (s *Store) GetLinks() []Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().Links
}

// Document returns a copy of the full graph document.
func (s *Store) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// DeleteNode removes the node with the given id and cascade-deletes every
// link where it appears as source or target. Returns false if no such node.
func (s *Store) DeleteNode(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	i := doc.findNodeByID(id)
	if i < 0 {
		return false, nil
	}
	return true, s.deleteNodeAt(doc, i)
}

// DeleteNodeByName removes the named node and its incident links.
func (s *Store) DeleteNodeByName(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	i := doc.findNode(name)
	if i < 0 {
		return false, nil
	}
	return true, s.deleteNodeAt(doc, i)
}

// deleteNodeAt removes the node at index i and all links touching it, then
// persists the document.
func (s *Store) deleteNodeAt(doc *Document, i int) error {
	id := doc.Nodes[i].ID
	doc.Nodes = append(doc.Nodes[:i], doc.Nodes[i+1:]...)

	kept := doc.Links[:0]
	for _, l := range doc.Links {
		if l.Source != id && l.Target != id {
			kept = append(kept, l)
		}
	}
	doc.Links = kept
	return s.persist(doc)
}

// DeleteLink removes the (source, target) link between two node ids.
// Returns false if either endpoint or the link itself is not found.
func (s *Store) DeleteLink(source, target int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if doc.findNodeByID(source) < 0 || doc.findNodeByID(target) < 0 {
		return false, nil
	}
	for i, l := range doc.Links {
		if l.Source == source && l.Target == target {
			doc.Links = append(doc.Links[:i], doc.Links[i+1:]...)
			return true, s.persist(doc)
		}
	}
	return false, nil
}

// DeleteLinkByName resolves both endpoints by name and removes their link.
func (s *Store) DeleteLinkByName(source, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	si := doc.findNode(source)
	ti := doc.findNode(target)
	if si < 0 || ti < 0 {
		return false, nil
	}
	sid, tid := doc.Nodes[si].ID, doc.Nodes[ti].ID
	for i, l := range doc.Links {
		if l.Source == sid && l.Target == tid {
			doc.Links = append(doc.Links[:i], doc.Links[i+1:]...)
			return true, s.persist(doc)
		}
	}
	return false, nil
}
