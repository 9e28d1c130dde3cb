package live

import (
	"context"
	"sort"
	"strings"

	"github.com/lemmanotes/lemma/internal/notes"
	"github.com/lemmanotes/lemma/internal/vecindex"
)

// SourceNote is a note selected as synthesis input.
type SourceNote struct {
	Name    string
	Content string
}

// Selector implements the perception-mode note-selection strategies over the
// generated note collection and its vector index.
type Selector struct {
	gen  *notes.Store
	vec  *vecindex.Index
	rand func() float64
	log  func(format string, args ...any)
}

// NewSelector creates a selector. rand may be nil to use the default source.
func NewSelector(gen *notes.Store, vec *vecindex.Index, rand func() float64, logger func(format string, args ...any)) *Selector {
	if rand == nil {
		rand = defaultRand
	}
	if logger == nil {
		logger = func(format string, args ...any) {}
	}
	return &Selector{gen: gen, vec: vec, rand: rand, log: logger}
}

// Select returns up to limit notes chosen by the given perception mode.
// Unreadable files are skipped.
func (s *Selector) Select(ctx context.Context, mode PerceptionMode, limit int) []SourceNote {
	files, err := s.gen.GetFiles()
	if err != nil || len(files) == 0 || limit <= 0 {
		return nil
	}

	switch mode {
	case ModeSimilarityCluster:
		return s.selectSimilar(ctx, files, limit)
	case ModeRecencyFocus:
		// GetFiles already sorts newest-first.
		return s.read(files, limit)
	case ModeConceptBridge:
		return s.selectDiverse(files, limit)
	case ModeGapFill:
		return s.selectShortest(files, limit)
	default:
		return s.selectRandom(files, limit)
	}
}

// read loads the first limit files in order.
func (s *Selector) read(files []notes.FileInfo, limit int) []SourceNote {
	var out []SourceNote
	for _, f := range files {
		if len(out) >= limit {
			break
		}
		content, err := s.gen.ReadFile(f.Name)
		if err != nil {
			s.log("read %s: %v", f.Name, err)
			continue
		}
		out = append(out, SourceNote{Name: f.Name, Content: content})
	}
	return out
}

// selectRandom draws a uniform sample without replacement.
func (s *Selector) selectRandom(files []notes.FileInfo, limit int) []SourceNote {
	shuffled := make([]notes.FileInfo, len(files))
	copy(shuffled, files)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := int(s.rand() * float64(i+1))
		if j > i {
			j = i
		}
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return s.read(shuffled, limit)
}

// selectSimilar clusters around a random seed note via the vector index,
// falling back to a random sample when similarity search yields nothing.
func (s *Selector) selectSimilar(ctx context.Context, files []notes.FileInfo, limit int) []SourceNote {
	seed := files[int(s.rand()*float64(len(files)))%len(files)]
	seedContent, err := s.gen.ReadFile(seed.Name)
	if err != nil {
		s.log("read seed %s: %v", seed.Name, err)
		return s.selectRandom(files, limit)
	}

	records, err := s.vec.QueryNotes(ctx, s.gen.Dir(), seedContent, vecindex.Similarity)
	if err != nil || len(records) == 0 {
		if err != nil {
			s.log("similarity query: %v", err)
		}
		return s.selectRandom(files, limit)
	}

	out := []SourceNote{{Name: seed.Name, Content: seedContent}}
	for _, rec := range records {
		if len(out) >= limit {
			break
		}
		if rec.FilePath == seed.Name || !s.gen.Exists(rec.FilePath) {
			continue
		}
		content, err := s.gen.ReadFile(rec.FilePath)
		if err != nil {
			continue
		}
		out = append(out, SourceNote{Name: rec.FilePath, Content: content})
	}
	return out
}

// selectDiverse ranks notes by distinct-word count, a rough stand-in for
// concept density, and takes the richest.
func (s *Selector) selectDiverse(files []notes.FileInfo, limit int) []SourceNote {
	all := s.read(files, len(files))
	sort.SliceStable(all, func(i, j int) bool {
		return distinctWords(all[i].Content) > distinctWords(all[j].Content)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// selectShortest takes the thinnest notes, treating brevity as a knowledge gap.
func (s *Selector) selectShortest(files []notes.FileInfo, limit int) []SourceNote {
	all := s.read(files, len(files))
	sort.SliceStable(all, func(i, j int) bool {
		return len(all[i].Content) < len(all[j].Content)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func distinctWords(content string) int {
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(content)) {
		w = strings.Trim(w, ".,;:!?()[]#*`\"'")
		if len(w) > 2 {
			seen[w] = struct{}{}
		}
	}
	return len(seen)
}
