// Package embedding provides vector embedding generation for the note index.
package embedding

import (
	"context"
	"fmt"
)

// Embedder generates vector embeddings for text. Implementations are opaque
// services; the first call may trigger a model download on a local provider.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the dimensionality of embeddings.
	Dimensions() int

	// Name returns the engine name.
	Name() string
}

// Config holds embedding engine configuration.
type Config struct {
	// Provider selects the backend: "ollama" or "genai".
	Provider string
	// Endpoint is the Ollama server endpoint.
	Endpoint string
	// Model is the embedding model name.
	Model string
	// APIKey authenticates the genai backend.
	APIKey string
}

// NewEmbedder creates an embedding engine based on configuration.
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaEngine(cfg.Endpoint, cfg.Model)
	case "genai":
		return NewGenAIEngine(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
