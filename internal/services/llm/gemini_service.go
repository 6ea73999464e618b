package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
)

// GeminiService implements chat and embedding generation over the Gemini API.
// It is the only provider that serves embeddings; Claude covers chat only.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
	retry   *GeminiRetryConfig
}

// NewGeminiService creates the Gemini client. apiKey is resolved by the
// caller before construction.
func NewGeminiService(ctx context.Context, config *common.GeminiConfig, apiKey string, logger arbor.ILogger) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
		retry:   NewDefaultRetryConfig(),
	}

	logger.Debug().
		Str("chat_model", config.Model).
		Str("embed_model", config.EmbeddingModel).
		Int("embed_dimension", config.EmbeddingDimension).
		Dur("timeout", timeout).
		Msg("Gemini LLM service initialized")

	return service, nil
}

// Chat sends one system/user prompt pair and returns the text response.
func (s *GeminiService) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.ChatWithHistory(ctx, systemPrompt, nil, userPrompt)
}

// ChatWithHistory sends prior turns along with the new prompt. Rate-limit
// responses are retried with the API-suggested delay.
func (s *GeminiService) ChatWithHistory(ctx context.Context, systemPrompt string, history []interfaces.ChatTurn, userPrompt string) (string, error) {
	if userPrompt == "" {
		return "", fmt.Errorf("user prompt cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.RoleUser
		if turn.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(turn.Content)},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText(userPrompt)},
	})

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	var response string
	err := s.retry.WithRateLimitRetry(ctx, func() error {
		resp, err := s.client.Models.GenerateContent(ctx, s.config.Model, contents, config)
		if err != nil {
			return fmt.Errorf("chat generation failed: %w", err)
		}

		var builder strings.Builder
		if resp != nil {
			for _, candidate := range resp.Candidates {
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part.Text != "" {
						builder.WriteString(part.Text)
					}
				}
				if builder.Len() > 0 {
					break
				}
			}
		}
		if builder.Len() == 0 {
			return fmt.Errorf("no response generated from chat model")
		}
		response = builder.String()
		return nil
	})
	if err != nil {
		return "", err
	}
	return response, nil
}

// ModelName returns the configured chat model identifier.
func (s *GeminiService) ModelName() string {
	return s.config.Model
}

// Embed generates an embedding with the configured output dimensionality.
func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outputDim := int32(s.config.EmbeddingDimension)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	var embedding []float32
	err := s.retry.WithRateLimitRetry(ctx, func() error {
		result, err := s.client.Models.EmbedContent(ctx, s.config.EmbeddingModel,
			[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, embeddingConfig)
		if err != nil {
			return fmt.Errorf("embedding generation failed: %w", err)
		}

		if result == nil || len(result.Embeddings) == 0 {
			return fmt.Errorf("no embedding returned from API")
		}
		embedding = result.Embeddings[0].Values

		if len(embedding) != s.config.EmbeddingDimension {
			return fmt.Errorf("embedding dimension mismatch: expected %d, got %d",
				s.config.EmbeddingDimension, len(embedding))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return embedding, nil
}

// EmbedDimension returns the configured output dimensionality.
func (s *GeminiService) EmbedDimension() int {
	return s.config.EmbeddingDimension
}
