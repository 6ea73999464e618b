package interfaces

import "context"

// EmbeddingService converts text into dense vectors sized for the index.
type EmbeddingService interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the output dimensionality the service is configured
	// to produce.
	Dimension() int
}
