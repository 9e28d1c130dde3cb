package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lemmanotes/lemma/pkg/llm"
)

func newTestLocalClient(t *testing.T, handler http.HandlerFunc) llm.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := newLocalClient(llm.Config{BaseURL: server.URL, Model: "test-model"})
	if err != nil {
		t.Fatalf("newLocalClient: %v", err)
	}
	return client
}

func TestLocalChat(t *testing.T) {
	client := newTestLocalClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Chat sent stream=true")
		}
		if req.Model != "test-model" {
			t.Errorf("model = %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v, want system prompt first", req.Messages)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"role": "assistant", "content": "hello back"},
			"done":              true,
			"prompt_eval_count": 12,
			"eval_count":        4,
		})
	})

	resp, err := client.Chat(context.Background(), "be brief", []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "hello back" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 4 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestLocalChatHTTPError(t *testing.T) {
	client := newTestLocalClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := client.Chat(context.Background(), "", []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
	})
	if err == nil {
		t.Fatal("Chat succeeded against a 404, want error")
	}
}

func TestLocalChatStream(t *testing.T) {
	client := newTestLocalClient(t, func(w http.ResponseWriter, r *http.Request) {
		for _, tok := range []string{"one ", "two ", "three"} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", tok)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":5,"eval_count":3}`)
	})

	streamer, ok := client.(llm.Streamer)
	if !ok {
		t.Fatal("local client does not implement llm.Streamer")
	}

	var tokens []string
	resp, err := streamer.ChatStream(context.Background(), "", []llm.Message{
		{Role: llm.RoleUser, Content: "count"},
	}, func(token string) bool {
		tokens = append(tokens, token)
		return true
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if resp.Content != "one two three" {
		t.Errorf("content = %q", resp.Content)
	}
	if len(tokens) != 3 {
		t.Errorf("token count = %d, want 3", len(tokens))
	}
	if resp.Usage.InputTokens != 5 || resp.Usage.OutputTokens != 3 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestLocalChatStreamCooperativeStop(t *testing.T) {
	client := newTestLocalClient(t, func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 100; i++ {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":"tok%d "},"done":false}`+"\n", i)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	})

	streamer := client.(llm.Streamer)
	seen := 0
	resp, err := streamer.ChatStream(context.Background(), "", []llm.Message{
		{Role: llm.RoleUser, Content: "go"},
	}, func(token string) bool {
		seen++
		return seen < 3 // stop after the third token
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if seen != 3 {
		t.Errorf("tokens forwarded = %d, want 3", seen)
	}
	if resp.Content != "tok0 tok1 tok2 " {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestProvidersRegistered(t *testing.T) {
	for _, name := range []string{"local", "anthropic", "gemini"} {
		if !llm.IsProviderRegistered(name) {
			t.Errorf("provider %q not registered", name)
		}
	}
}
