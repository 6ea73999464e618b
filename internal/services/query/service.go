// Package query answers one-shot retrieval-augmented questions: embed the
// question, search the index, enrich matches with landmark metadata, and ask
// the configured LLM for a grounded answer.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
)

const systemPrompt = `You are a research assistant answering questions about designated New York City landmarks.
Answer using only the provided context passages. Cite the landmark name when you use a passage.
If the context does not contain the answer, say so plainly.`

// Service implements interfaces.QueryService.
type Service struct {
	storage    interfaces.VectorStorage
	embeddings interfaces.EmbeddingService
	llm        interfaces.LLMService
	landmarks  interfaces.LandmarkService
	logger     arbor.ILogger
}

func NewService(
	storage interfaces.VectorStorage,
	embeddings interfaces.EmbeddingService,
	llm interfaces.LLMService,
	landmarks interfaces.LandmarkService,
	logger arbor.ILogger,
) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		storage:    storage,
		embeddings: embeddings,
		llm:        llm,
		landmarks:  landmarks,
		logger:     logger,
	}
}

// Query answers a question from the indexed corpus.
func (s *Service) Query(ctx context.Context, question string, topK int, filter map[string]interface{}) (*models.QueryResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}
	if topK <= 0 {
		topK = 5
	}

	start := time.Now()

	vector, err := s.embeddings.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	matches, err := s.storage.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	sources := s.enrich(ctx, matches)

	answer, err := s.llm.Chat(ctx, systemPrompt, buildPrompt(question, sources))
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	response := &models.QueryResponse{
		Answer:     answer,
		Sources:    sources,
		Model:      s.llm.ModelName(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	s.logger.Info().
		Int("sources", len(sources)).
		Int64("duration_ms", response.DurationMs).
		Msg("Query answered")

	return response, nil
}

// Retrieve runs the retrieval step alone, for callers that assemble their
// own prompt (the chat loop).
func (s *Service) Retrieve(ctx context.Context, question string, topK int, filter map[string]interface{}) ([]models.QueryResult, error) {
	vector, err := s.embeddings.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	matches, err := s.storage.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return s.enrich(ctx, matches), nil
}

// enrich converts raw matches into results carrying landmark names. A failed
// landmark lookup degrades to the bare match rather than failing the query.
func (s *Service) enrich(ctx context.Context, matches []*models.VectorRecord) []models.QueryResult {
	results := make([]models.QueryResult, 0, len(matches))
	for _, match := range matches {
		result := models.QueryResult{
			ID:         match.ID,
			Score:      match.Score,
			LandmarkID: match.LandmarkID(),
			SourceType: match.SourceType(),
		}
		if text, ok := match.Metadata[models.FieldText].(string); ok {
			result.Text = text
		}
		if title, ok := match.Metadata[models.FieldArticleTitle].(string); ok {
			result.Title = title
		}
		if url, ok := match.Metadata[models.FieldArticleURL].(string); ok {
			result.URL = url
		}

		if s.landmarks != nil && result.LandmarkID != "" && result.Title == "" {
			if landmark, err := s.landmarks.GetLandmark(ctx, result.LandmarkID); err == nil {
				result.Title = landmark.Name
			} else {
				s.logger.Debug().Str("lp_number", result.LandmarkID).Err(err).Msg("Landmark enrichment skipped")
			}
		}

		results = append(results, result)
	}
	return results
}

// buildPrompt assembles the context block handed to the LLM.
func buildPrompt(question string, sources []models.QueryResult) string {
	var b strings.Builder
	b.WriteString("Context passages:\n\n")
	if len(sources) == 0 {
		b.WriteString("(no passages retrieved)\n")
	}
	for i, source := range sources {
		fmt.Fprintf(&b, "[%d] ", i+1)
		if source.Title != "" {
			fmt.Fprintf(&b, "%s ", source.Title)
		}
		if source.LandmarkID != "" {
			fmt.Fprintf(&b, "(%s, %s)", source.LandmarkID, source.SourceType)
		}
		b.WriteString("\n")
		b.WriteString(source.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
