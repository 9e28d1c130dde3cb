package graph

import (
	"encoding/json"
	"io"
)

// Export writes the store's document as indented JSON, for consumption by an
// external visualization renderer.
func (s *Store) Export(w io.Writer) error {
	doc := s.Document()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
