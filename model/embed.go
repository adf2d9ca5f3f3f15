package model

import (
	"context"
	"os"
	"time"
)

// Embedder turns text into a fixed-dimensionality vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedderFromEnv builds the Ollama embedder from environment variables.
// OLLAMA_URL defaults to the local daemon, OLLAMA_EMBEDDING_MODEL to
// nomic-embed-text (768 dimensions, matching the chunks table).
func NewEmbedderFromEnv() *OllamaEmbedder {
	url := os.Getenv("OLLAMA_URL")
	if url == "" {
		url = "http://localhost:11434"
	}
	modelName := os.Getenv("OLLAMA_EMBEDDING_MODEL")
	if modelName == "" {
		modelName = "nomic-embed-text"
	}
	timeout := 30 * time.Second
	if v := os.Getenv("OLLAMA_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		}
	}
	return NewOllamaEmbedder(url, modelName, timeout)
}
