package agi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lemmanotes/lemma/pkg/llm"
)

// Chunk is one LLM-proposed subdivision of a note.
type Chunk struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

const chunkSystemPrompt = `You split markdown notes into self-contained chunks.

Given a note, propose between 1 and 6 chunks. Each chunk must stand on its
own: a short descriptive title and the portion of the note's content it
covers. Do not invent content that is not in the note.

Respond with ONLY a JSON array, no prose and no code fences:
[{"title": "...", "content": "..."}]`

// Chunker asks an LLM to subdivide a note into chunks.
type Chunker struct {
	client llm.Client
	log    func(format string, args ...any)
}

// NewChunker creates a chunker backed by the given LLM client.
func NewChunker(client llm.Client, logger func(format string, args ...any)) *Chunker {
	if logger == nil {
		logger = func(format string, args ...any) {}
	}
	return &Chunker{client: client, log: logger}
}

// Propose returns the chunks the LLM suggests for the note. The boolean
// reports whether the attempt should count as complete: cancellation is a
// soft success with zero chunks, while provider errors and unparseable
// responses are failures that leave the note queued for retry.
func (c *Chunker) Propose(ctx context.Context, filename, content string) ([]Chunk, bool) {
	prompt := fmt.Sprintf("Note filename: %s\n\nNote content:\n%s", filename, content)
	resp, err := c.client.Chat(ctx, chunkSystemPrompt, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			c.log("chunking canceled for %s", filename)
			return nil, true
		}
		c.log("chunk request failed for %s: %v", filename, err)
		return nil, false
	}

	chunks, err := parseChunks(resp.Content)
	if err != nil {
		c.log("chunk response unusable for %s: %v", filename, err)
		return nil, false
	}
	return chunks, true
}

// parseChunks extracts a JSON array of chunks from the model output,
// tolerating surrounding prose and code fences.
func parseChunks(raw string) ([]Chunk, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}
	var chunks []Chunk
	if err := json.Unmarshal([]byte(raw[start:end+1]), &chunks); err != nil {
		return nil, fmt.Errorf("parse chunk array: %w", err)
	}
	var out []Chunk
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Content) == "" {
			continue
		}
		out = append(out, ch)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable chunks in response")
	}
	return out, nil
}

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	chunkNumRe   = regexp.MustCompile(`_chunk(\d+)\.md$`)
)

// sanitizeName strips non-word characters and collapses whitespace runs to
// single underscores, truncating to max runes when max is positive.
func sanitizeName(s string, max int) string {
	s = nonWordRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), "_")
	if max > 0 {
		runes := []rune(s)
		if len(runes) > max {
			s = string(runes[:max])
		}
	}
	return s
}

// chunkFilename builds the derived filename for the n-th (1-based) chunk of
// the given parent note.
func chunkFilename(parent, title string, n int) string {
	base := sanitizeName(strings.TrimSuffix(parent, ".md"), 0)
	return fmt.Sprintf("generated_%s_%s_chunk%d.md", base, sanitizeName(title, 30), n)
}

// chunkPrefixFor returns the filename prefix shared by every chunk derived
// from the given parent note.
func chunkPrefixFor(parent string) string {
	return fmt.Sprintf("generated_%s_", sanitizeName(strings.TrimSuffix(parent, ".md"), 0))
}

// chunkNumber extracts the 1-based chunk index from a chunk filename, or 0
// if the name does not carry one.
func chunkNumber(name string) int {
	m := chunkNumRe.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n := 0
	fmt.Sscanf(m[1], "%d", &n)
	return n
}
