package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lemmanotes/lemma/pkg/llm"
)

const (
	defaultLocalBaseURL = "http://localhost:11434"
	defaultLocalModel   = "llama3.1"
)

func init() {
	llm.RegisterProvider("local", newLocalClient)
}

// localClient implements llm.Client against an Ollama-compatible chat endpoint.
// It also implements llm.Streamer for token streaming with cooperative stop.
type localClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// newLocalClient creates a client for a locally hosted model.
func newLocalClient(cfg llm.Config) (llm.Client, error) {
	model := cfg.Model
	if model == "" {
		model = defaultLocalModel
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultLocalBaseURL
	}

	return &localClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}, nil
}

// localChatRequest is the request body for the Ollama chat API.
type localChatRequest struct {
	Model    string             `json:"model"`
	Messages []localChatMessage `json:"messages"`
	Stream   bool               `json:"stream"`
}

// localChatMessage is a message in the Ollama API format.
type localChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// localChatResponse is one response object from the Ollama chat API.
// For non-streaming requests it is the whole body; for streaming requests
// the body is a sequence of these, one JSON object per line.
type localChatResponse struct {
	Message         localChatMessage `json:"message"`
	Done            bool             `json:"done"`
	PromptEvalCount int              `json:"prompt_eval_count"`
	EvalCount       int              `json:"eval_count"`
}

func (c *localClient) buildMessages(systemPrompt string, messages []llm.Message) []localChatMessage {
	apiMessages := make([]localChatMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		apiMessages = append(apiMessages, localChatMessage{Role: "system", Content: systemPrompt})
	}
	for _, msg := range messages {
		apiMessages = append(apiMessages, localChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return apiMessages
}

func (c *localClient) post(ctx context.Context, reqBody localChatRequest) (*http.Response, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("local LLM error (HTTP %d): %s", resp.StatusCode, string(respBody))
	}
	return resp, nil
}

// Chat sends a system prompt and messages to the local endpoint and returns a response.
func (c *localClient) Chat(ctx context.Context, systemPrompt string, messages []llm.Message) (*llm.Response, error) {
	resp, err := c.post(ctx, localChatRequest{
		Model:    c.model,
		Messages: c.buildMessages(systemPrompt, messages),
		Stream:   false,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var apiResp localChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &llm.Response{
		Content: apiResp.Message.Content,
		Usage: llm.TokenUsage{
			InputTokens:  apiResp.PromptEvalCount,
			OutputTokens: apiResp.EvalCount,
		},
	}, nil
}

// ChatStream streams tokens to onToken as they arrive. When onToken returns
// false the client stops reading; the upstream request is closed but the
// server may still finish generating.
func (c *localClient) ChatStream(ctx context.Context, systemPrompt string, messages []llm.Message, onToken llm.TokenFunc) (*llm.Response, error) {
	resp, err := c.post(ctx, localChatRequest{
		Model:    c.model,
		Messages: c.buildMessages(systemPrompt, messages),
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var content strings.Builder
	usage := llm.TokenUsage{}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk localChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if chunk.Message.Content != "" {
			content.WriteString(chunk.Message.Content)
			if onToken != nil && !onToken(chunk.Message.Content) {
				break
			}
		}
		if chunk.Done {
			usage.InputTokens = chunk.PromptEvalCount
			usage.OutputTokens = chunk.EvalCount
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("stream read failed: %w", err)
	}

	return &llm.Response{Content: content.String(), Usage: usage}, nil
}

// Model returns the model name being used.
func (c *localClient) Model() string {
	return c.model
}

// Provider returns the provider name.
func (c *localClient) Provider() string {
	return "local"
}

// Close releases resources held by the client.
func (c *localClient) Close() error {
	return nil
}
