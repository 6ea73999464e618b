// Package embeddings adapts the Gemini embedding backend to the narrow
// interface the query and ingestion paths consume.
package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/interfaces"
)

// Backend is the provider-side embedding generator.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedDimension() int
}

// Service implements interfaces.EmbeddingService.
type Service struct {
	backend Backend
	logger  arbor.ILogger
}

// NewService creates a new embedding service
func NewService(backend Backend, logger arbor.ILogger) interfaces.EmbeddingService {
	return &Service{
		backend: backend,
		logger:  logger,
	}
}

// Embed creates a vector embedding for text
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	start := time.Now()
	embedding, err := s.backend.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding backend returned empty vector")
	}

	s.logger.Debug().
		Int("embedding_dim", len(embedding)).
		Dur("duration", time.Since(start)).
		Msg("Generated embedding")

	return embedding, nil
}

// EmbedBatch generates embeddings for multiple texts in input order. The
// backend API is single-text, so the batch runs sequentially and fails fast
// on the first error.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d of %d: %w", i+1, len(texts), err)
		}
		embeddings = append(embeddings, embedding)
	}
	return embeddings, nil
}

// Dimension returns the embedding dimension
func (s *Service) Dimension() int {
	return s.backend.EmbedDimension()
}
