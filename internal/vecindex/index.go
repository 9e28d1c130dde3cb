// Package vecindex implements the directory-scoped note vector index.
//
// Records live in a BadgerDB keyspace keyed by a deterministic content
// address; embeddings live in an HNSW graph persisted next to the database.
// All operations are scoped by a directory tag so multiple notes roots can
// share one physical index without cross-contamination.
package vecindex

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coder/hnsw"
	"github.com/dgraph-io/badger/v4"

	"github.com/lemmanotes/lemma/internal/embedding"
	"github.com/lemmanotes/lemma/internal/graph"
)

const (
	prefixRecord = "r:"
	vectorFile   = "index.hnsw"

	// maxSimilarityResults bounds nearest-neighbor queries.
	maxSimilarityResults = 10
)

// QueryMode selects how QueryNotes matches records.
type QueryMode int

const (
	// FullText matches by case-insensitive substring containment.
	FullText QueryMode = iota
	// Similarity matches by embedding nearest-neighbor search.
	Similarity
	// Tag matches records containing "#<query>".
	Tag
)

// String returns the string representation of QueryMode.
func (m QueryMode) String() string {
	switch m {
	case FullText:
		return "full-text"
	case Similarity:
		return "similarity"
	case Tag:
		return "tag"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name to a QueryMode, defaulting to FullText.
func ParseMode(s string) QueryMode {
	switch s {
	case "similarity":
		return Similarity
	case "tag":
		return Tag
	default:
		return FullText
	}
}

// Record is one indexed note.
type Record struct {
	ID        string         `json:"id"`
	Directory string         `json:"directory"`
	FilePath  string         `json:"filePath"`
	Content   string         `json:"content"`
	Type      graph.NoteType `json:"type"`
}

// Index is the vector index over note content.
type Index struct {
	db       *badger.DB
	vectors  *hnsw.SavedGraph[string]
	embedder embedding.Embedder
	log      func(format string, args ...any)
}

// Open opens (or creates) the index under dir. The embedder may be nil, in
// which case records are indexed for text search only and similarity queries
// fail.
func Open(dir string, embedder embedding.Embedder, logger func(format string, args ...any)) (*Index, error) {
	opts := badger.DefaultOptions(filepath.Join(dir, "records"))
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	vectors, err := hnsw.LoadSavedGraph[string](filepath.Join(dir, vectorFile))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load vector graph: %w", err)
	}

	if logger == nil {
		logger = func(format string, args ...any) {}
	}

	return &Index{db: db, vectors: vectors, embedder: embedder, log: logger}, nil
}

// Close persists the vector graph and releases the record store.
func (ix *Index) Close() error {
	if err := ix.vectors.Save(); err != nil {
		ix.db.Close()
		return fmt.Errorf("save vector graph: %w", err)
	}
	return ix.db.Close()
}

// NoteID derives the deterministic record id for a (type, path) pair. The id
// is a pure function of its inputs so repeated upserts of the same file
// overwrite rather than duplicate.
func NoteID(t graph.NoteType, path string) string {
	normalized := filepath.ToSlash(filepath.Clean(path))
	h := sha256.Sum256([]byte(string(t) + ":" + normalized))
	return fmt.Sprintf("%s-%x", typePrefix(t), h[:12])
}

func typePrefix(t graph.NoteType) string {
	switch t {
	case graph.TypeAssisted:
		return "a"
	case graph.TypeGenerated:
		return "g"
	default:
		return "u"
	}
}

// recordKey returns the badger key for a record in the given directory scope.
func recordKey(directory, id string) []byte {
	return []byte(prefixRecord + directory + ":" + id)
}

// UpsertNotes indexes the given notes under the directory scope. The three
// slices are parallel; a length mismatch is an error. Content is lowercased
// before indexing so full-text and embedding search are case-insensitive.
func (ix *Index) UpsertNotes(ctx context.Context, directory string, paths, contents []string, types []graph.NoteType) error {
	if len(paths) != len(contents) || len(paths) != len(types) {
		return fmt.Errorf("mismatched argument lengths: %d paths, %d contents, %d types",
			len(paths), len(contents), len(types))
	}

	for i := range paths {
		rec := Record{
			ID:        NoteID(types[i], paths[i]),
			Directory: directory,
			FilePath:  paths[i],
			Content:   strings.ToLower(contents[i]),
			Type:      types[i],
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.FilePath, err)
		}
		err = ix.db.Update(func(txn *badger.Txn) error {
			return txn.Set(recordKey(directory, rec.ID), data)
		})
		if err != nil {
			return fmt.Errorf("store record %s: %w", rec.FilePath, err)
		}

		if ix.embedder == nil {
			continue
		}
		vec, err := ix.embedder.Embed(ctx, rec.Content)
		if err != nil {
			// Text search still works without a vector; leave the record in
			// place and retry the embedding on the next upsert.
			ix.log("embed %s: %v", rec.FilePath, err)
			continue
		}
		ix.vectors.Add(hnsw.MakeNode(rec.ID, vec))
	}

	if err := ix.vectors.Save(); err != nil {
		return fmt.Errorf("save vector graph: %w", err)
	}
	return nil
}

// UpsertNote indexes a single note.
func (ix *Index) UpsertNote(ctx context.Context, directory, path, content string, t graph.NoteType) error {
	return ix.UpsertNotes(ctx, directory, []string{path}, []string{content}, []graph.NoteType{t})
}

// DeleteNotes removes records scoped to directory. With no paths, every
// record in the scope is removed; otherwise only records whose FilePath
// matches one of the given paths.
func (ix *Index) DeleteNotes(_ context.Context, directory string, paths ...string) error {
	var pathSet map[string]struct{}
	if len(paths) > 0 {
		pathSet = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			pathSet[p] = struct{}{}
		}
	}

	victims, err := ix.scanScope(directory, func(rec *Record) bool {
		if pathSet == nil {
			return true
		}
		_, ok := pathSet[rec.FilePath]
		return ok
	})
	if err != nil {
		return err
	}

	for _, rec := range victims {
		err := ix.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(recordKey(directory, rec.ID))
		})
		if err != nil {
			return fmt.Errorf("delete record %s: %w", rec.FilePath, err)
		}
		ix.vectors.Delete(rec.ID)
	}

	if len(victims) > 0 {
		if err := ix.vectors.Save(); err != nil {
			return fmt.Errorf("save vector graph: %w", err)
		}
	}
	return nil
}

// QueryNotes searches records scoped to directory. An empty query returns
// every record in the scope regardless of mode.
func (ix *Index) QueryNotes(ctx context.Context, directory, query string, mode QueryMode) ([]Record, error) {
	if query == "" {
		return ix.scanScope(directory, func(*Record) bool { return true })
	}

	needle := strings.ToLower(query)
	switch mode {
	case Similarity:
		return ix.querySimilar(ctx, directory, needle)
	case Tag:
		return ix.scanScope(directory, func(rec *Record) bool {
			return strings.Contains(rec.Content, "#"+needle)
		})
	default:
		return ix.scanScope(directory, func(rec *Record) bool {
			return strings.Contains(rec.Content, needle)
		})
	}
}

// querySimilar embeds the query and returns the nearest records within the
// directory scope.
func (ix *Index) querySimilar(ctx context.Context, directory, query string) ([]Record, error) {
	if ix.embedder == nil {
		return nil, fmt.Errorf("similarity search requires an embedding provider")
	}
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	neighbors := ix.vectors.Search(vec, maxSimilarityResults)
	var results []Record
	for _, n := range neighbors {
		rec, err := ix.getRecord(directory, n.Key)
		if err != nil {
			continue // neighbor belongs to another scope or was deleted
		}
		results = append(results, *rec)
	}
	return results, nil
}

// getRecord fetches one record by id within a directory scope.
func (ix *Index) getRecord(directory, id string) (*Record, error) {
	var rec Record
	err := ix.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(directory, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	normalize(&rec)
	return &rec, nil
}

// scanScope iterates every record in the directory scope and returns those
// accepted by keep.
func (ix *Index) scanScope(directory string, keep func(*Record) bool) ([]Record, error) {
	var results []Record
	prefix := []byte(prefixRecord + directory + ":")

	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.Valid(); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				continue // skip undecodable entries
			}
			normalize(&rec)
			if keep(&rec) {
				results = append(results, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// normalize fills defaults for fields the backing store may return empty.
func normalize(rec *Record) {
	if rec.Type == "" {
		rec.Type = graph.TypeUser
	}
}

// Count returns the number of records in the directory scope.
func (ix *Index) Count(directory string) (int, error) {
	recs, err := ix.scanScope(directory, func(*Record) bool { return true })
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}
