package agi

import (
	"context"
	"fmt"
	"testing"

	"github.com/lemmanotes/lemma/pkg/llm"
)

// fakeLLM returns canned responses (or errors) for Chat.
type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, systemPrompt string, messages []llm.Message) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &llm.Response{Content: f.response}, nil
}

func (f *fakeLLM) Model() string    { return "fake" }
func (f *fakeLLM) Provider() string { return "fake" }
func (f *fakeLLM) Close() error     { return nil }

func TestProposeParsesChunks(t *testing.T) {
	client := &fakeLLM{response: `Here you go:
[{"title": "First Part", "content": "intro text"}, {"title": "Second", "content": "more text"}]`}
	c := NewChunker(client, nil)

	chunks, ok := c.Propose(context.Background(), "note.md", "# Note\ncontent")
	if !ok {
		t.Fatal("Propose = not ok, want ok")
	}
	if len(chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(chunks))
	}
	if chunks[0].Title != "First Part" || chunks[0].Content != "intro text" {
		t.Errorf("first chunk = %+v", chunks[0])
	}
}

func TestProposeFailureLeavesRetry(t *testing.T) {
	client := &fakeLLM{err: fmt.Errorf("connection refused")}
	c := NewChunker(client, nil)

	chunks, ok := c.Propose(context.Background(), "note.md", "content")
	if ok {
		t.Error("Propose after provider error = ok, want failure")
	}
	if chunks != nil {
		t.Errorf("chunks = %v, want nil", chunks)
	}
}

func TestProposeUnparseableResponse(t *testing.T) {
	client := &fakeLLM{response: "I cannot split this note, sorry."}
	c := NewChunker(client, nil)

	if _, ok := c.Propose(context.Background(), "note.md", "content"); ok {
		t.Error("Propose with prose-only response = ok, want failure")
	}
}

func TestProposeCancellationIsSoftSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeLLM{response: "ignored"}
	c := NewChunker(client, nil)

	chunks, ok := c.Propose(ctx, "note.md", "content")
	if !ok {
		t.Error("Propose after cancellation = failure, want soft success")
	}
	if len(chunks) != 0 {
		t.Errorf("chunks after cancellation = %v, want none", chunks)
	}
}

func TestParseChunksDropsEmptyContent(t *testing.T) {
	chunks, err := parseChunks(`[{"title": "a", "content": "x"}, {"title": "b", "content": "  "}]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].Title != "a" {
		t.Errorf("chunks = %v, want only chunk a", chunks)
	}

	if _, err := parseChunks(`[{"title": "a", "content": ""}]`); err == nil {
		t.Error("parseChunks with no usable chunks succeeded, want error")
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"Hello, World!", 30, "Hello_World"},
		{"  spaced   out  ", 30, "spaced_out"},
		{"short", 3, "sho"},
		{"no-limit (zero)", 0, "nolimit_zero"},
	}
	for _, tc := range cases {
		if got := sanitizeName(tc.in, tc.max); got != tc.want {
			t.Errorf("sanitizeName(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestChunkFilename(t *testing.T) {
	got := chunkFilename("My Note.md", "An Extremely Long Title That Keeps Going On", 2)
	want := "generated_My_Note_An_Extremely_Long_Title_That_K_chunk2.md"
	if got != want {
		t.Errorf("chunkFilename = %q, want %q", got, want)
	}
}

func TestChunkNumber(t *testing.T) {
	if n := chunkNumber("generated_note_Title_chunk7.md"); n != 7 {
		t.Errorf("chunkNumber = %d, want 7", n)
	}
	if n := chunkNumber("note.md"); n != 0 {
		t.Errorf("chunkNumber on plain name = %d, want 0", n)
	}
}
