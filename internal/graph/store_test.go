package graph

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestCreateNodeIDsMonotonicFromZero(t *testing.T) {
	s := newTestStore(t)

	names := []string{"a.md", "b.md", "c.md", "d.md"}
	for i, name := range names {
		node, err := s.CreateNode(name, nil, TypeUser)
		if err != nil {
			t.Fatalf("CreateNode(%s): %v", name, err)
		}
		if node.ID != i {
			t.Errorf("node %s id = %d, want %d", name, node.ID, i)
		}
	}
}

func TestCreateNodeIdempotent(t *testing.T) {
	s := newTestStore(t)

	first, err := s.CreateNode("a.md", nil, TypeUser)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.CreateNode("a.md", nil, TypeAssisted)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID || second.Type != TypeUser {
		t.Errorf("second create = %+v, want %+v unchanged", second, first)
	}
	if n := len(s.GetNodes()); n != 1 {
		t.Errorf("node count = %d, want 1", n)
	}
}

func TestCreateNodeWithLinksAutoStubs(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateNode("a.md", []string{"b.md", "c.md"}, TypeUser); err != nil {
		t.Fatal(err)
	}

	nodes := s.GetNodes()
	if len(nodes) != 3 {
		t.Fatalf("node count = %d, want 3", len(nodes))
	}
	links := s.GetLinks()
	if len(links) != 2 {
		t.Fatalf("link count = %d, want 2", len(links))
	}
}

func TestCreateLinkDeduplicatesPair(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateLink("a.md", "b.md", TypeUser); err != nil {
		t.Fatal(err)
	}
	// Same pair, different type: still one link.
	if err := s.CreateLink("a.md", "b.md", TypeAssisted); err != nil {
		t.Fatal(err)
	}
	if n := len(s.GetLinks()); n != 1 {
		t.Errorf("link count = %d, want 1", n)
	}
}

func TestCreateLinkByIDMissingEndpoint(t *testing.T) {
	s := newTestStore(t)

	node, err := s.CreateNode("a.md", nil, TypeUser)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := s.CreateLinkByID(node.ID, 99, TypeUser)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("CreateLinkByID with missing target = true, want false")
	}
}

func TestDeleteNodeCascadesLinks(t *testing.T) {
	s := newTestStore(t)

	a, _ := s.CreateNode("a.md", []string{"b.md"}, TypeUser)
	b := s.GetNode("b.md")
	if b == nil {
		t.Fatal("stub b.md not created")
	}
	if err := s.CreateLink("c.md", "b.md", TypeUser); err != nil {
		t.Fatal(err)
	}

	ok, err := s.DeleteNode(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("DeleteNode = false, want true")
	}

	for _, l := range s.GetLinks() {
		if l.Source == b.ID || l.Target == b.ID {
			t.Errorf("link %+v still references deleted node %d", l, b.ID)
		}
	}
	if s.GetNode("a.md") == nil || s.GetNode("a.md").ID != a.ID {
		t.Error("unrelated node a.md disturbed by delete")
	}
}

func TestDeleteNodeMissing(t *testing.T) {
	s := newTestStore(t)
	ok, err := s.DeleteNode(7)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("DeleteNode(7) on empty graph = true, want false")
	}
}

func TestDeleteLinkByName(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateLink("a.md", "b.md", TypeUser); err != nil {
		t.Fatal(err)
	}

	ok, err := s.DeleteLinkByName("a.md", "b.md")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("DeleteLinkByName = false, want true")
	}
	if n := len(s.GetLinks()); n != 0 {
		t.Errorf("link count = %d, want 0", n)
	}
	if n := len(s.GetNodes()); n != 2 {
		t.Errorf("node count = %d, want 2 (delete link keeps nodes)", n)
	}

	ok, err = s.DeleteLinkByName("a.md", "missing.md")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("DeleteLinkByName with missing endpoint = true, want false")
	}
}

func TestMalformedGraphSelfHeals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, GraphFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(dir)
	if nodes := s.GetNodes(); len(nodes) != 0 {
		t.Errorf("nodes from malformed file = %v, want empty", nodes)
	}

	node, err := s.CreateNode("a.md", nil, TypeUser)
	if err != nil {
		t.Fatal(err)
	}
	if node.ID != 0 {
		t.Errorf("first id after self-heal = %d, want 0", node.ID)
	}

	reopened := NewStore(dir)
	if got := reopened.GetNodes(); len(got) != 1 || got[0].Name != "a.md" {
		t.Errorf("reopened nodes = %v, want [a.md]", got)
	}
}

func TestIDsNotReusedAfterDelete(t *testing.T) {
	s := newTestStore(t)

	s.CreateNode("a.md", nil, TypeUser)
	b, _ := s.CreateNode("b.md", nil, TypeUser)
	if _, err := s.DeleteNode(b.ID); err != nil {
		t.Fatal(err)
	}

	// Max id is now 0, so the next id is 1 again: max+1, not a free-list.
	c, _ := s.CreateNode("c.md", nil, TypeUser)
	if c.ID != 1 {
		t.Errorf("id after delete = %d, want 1", c.ID)
	}
}

func TestClassifyName(t *testing.T) {
	cases := []struct {
		name string
		want NoteType
	}{
		{"note.md", TypeUser},
		{"generated_note_Title_chunk1.md", TypeAssisted},
		{"fully_generated_Idea_20250101.md", TypeGenerated},
	}
	for _, tc := range cases {
		if got := ClassifyName(tc.name); got != tc.want {
			t.Errorf("ClassifyName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDocumentCopyIsStable(t *testing.T) {
	s := newTestStore(t)
	s.CreateNode("a.md", []string{"b.md"}, TypeUser)

	first := s.Document()
	second := s.Document()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Document not stable: %+v vs %+v", first, second)
	}
}
