package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/lemmanotes/lemma/pkg/llm"
)

const defaultGeminiModel = "gemini-2.0-flash"

func init() {
	llm.RegisterProvider("gemini", newGeminiClient)
}

// geminiClient implements llm.Client using Google's GenAI SDK with the
// Gemini API backend.
type geminiClient struct {
	client *genai.Client
	model  string
}

// newGeminiClient creates a new Gemini client.
func newGeminiClient(cfg llm.Config) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Gemini provider")
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiClient{
		client: client,
		model:  model,
	}, nil
}

// Chat sends a system prompt and messages to the Gemini API and returns a response.
func (c *geminiClient) Chat(ctx context.Context, systemPrompt string, messages []llm.Message) (*llm.Response, error) {
	contents := convertMessages(messages)

	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				genai.NewPartFromText(systemPrompt),
			},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	return convertResponse(resp), nil
}

// Model returns the model name being used.
func (c *geminiClient) Model() string {
	return c.model
}

// Provider returns the provider name.
func (c *geminiClient) Provider() string {
	return "gemini"
}

// Close releases resources held by the client.
func (c *geminiClient) Close() error {
	return nil
}

// convertMessages converts llm.Message to genai.Content.
func convertMessages(messages []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		var role string
		switch msg.Role {
		case llm.RoleUser:
			role = "user"
		case llm.RoleAssistant:
			role = "model"
		default:
			role = "user"
		}

		contents = append(contents, &genai.Content{
			Role: role,
			Parts: []*genai.Part{
				genai.NewPartFromText(msg.Content),
			},
		})
	}
	return contents
}

// convertResponse converts a genai response to llm.Response.
func convertResponse(resp *genai.GenerateContentResponse) *llm.Response {
	response := &llm.Response{}

	if resp == nil || len(resp.Candidates) == 0 {
		return response
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				response.Content += part.Text
			}
		}
	}

	if resp.UsageMetadata != nil {
		response.Usage = llm.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	return response
}
