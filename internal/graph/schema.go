// Package graph implements the per-directory wikilink graph document.
package graph

import "strings"

// NoteType classifies how a note came to exist.
type NoteType string

const (
	// TypeUser marks a note authored by the user.
	TypeUser NoteType = "user"
	// TypeAssisted marks a note produced by the LLM from existing content.
	TypeAssisted NoteType = "assisted"
	// TypeGenerated marks a note synthesized autonomously.
	TypeGenerated NoteType = "generated"
)

// Derived-artifact filename prefixes.
const (
	// ChunkPrefix marks chunk files split out of a source note.
	ChunkPrefix = "generated_"
	// SynthesisPrefix marks autonomously synthesized notes.
	SynthesisPrefix = "fully_generated_"
)

// ClassifyName returns the NoteType implied by a filename's prefix.
func ClassifyName(name string) NoteType {
	switch {
	case strings.HasPrefix(name, SynthesisPrefix):
		return TypeGenerated
	case strings.HasPrefix(name, ChunkPrefix):
		return TypeAssisted
	default:
		return TypeUser
	}
}

// IsDerivedName reports whether a filename carries a derived-artifact prefix.
func IsDerivedName(name string) bool {
	return strings.HasPrefix(name, ChunkPrefix) || strings.HasPrefix(name, SynthesisPrefix)
}

// Node represents one markdown file in a directory's graph. IDs are dense
// integers scoped to a single graph document; the main and generated graphs
// have independent id spaces.
type Node struct {
	ID   int      `json:"id"`
	Name string   `json:"name"`
	Type NoteType `json:"type"`
}

// Link is a directed wikilink edge between two nodes of the same graph.
// Uniqueness is enforced on the (source, target) pair regardless of type.
type Link struct {
	Source int      `json:"source"`
	Target int      `json:"target"`
	Type   NoteType `json:"type"`
}

// Document is the persisted graph: one JSON file per directory context.
type Document struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// nextID returns the id for a new node: max existing id + 1, or 0 when empty.
func (d *Document) nextID() int {
	max := -1
	for _, n := range d.Nodes {
		if n.ID > max {
			max = n.ID
		}
	}
	return max + 1
}

// findNode returns the index of the node with the given name, or -1.
func (d *Document) findNode(name string) int {
	for i, n := range d.Nodes {
		if n.Name == name {
			return i
		}
	}
	return -1
}

// findNodeByID returns the index of the node with the given id, or -1.
func (d *Document) findNodeByID(id int) int {
	for i, n := range d.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// hasLink reports whether a (source, target) link already exists.
func (d *Document) hasLink(source, target int) bool {
	for _, l := range d.Links {
		if l.Source == source && l.Target == target {
			return true
		}
	}
	return false
}
