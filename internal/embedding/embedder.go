// Package embedding provides text embedders (ONNX, OpenAI-compatible, Ollama) and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. Dimensions is fixed for the lifetime of the
// embedder and is read once at start-up to size the vector collection.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
