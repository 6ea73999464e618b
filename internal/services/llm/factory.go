package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
)

// NewLLMService creates the chat service for the configured provider. API
// keys resolve through environment, the KV store, then config fallback.
func NewLLMService(ctx context.Context, cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.LLMService, error) {
	logger.Info().Str("provider", string(cfg.LLM.DefaultProvider)).Msg("Initializing LLM service")

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		apiKey, err := common.ResolveAPIKey(kvStorage, "claude_api_key", cfg.Claude.APIKey)
		if err != nil {
			return nil, fmt.Errorf("claude provider selected: %w", err)
		}
		return NewClaudeService(&cfg.Claude, apiKey, logger)

	case common.LLMProviderGemini:
		apiKey, err := common.ResolveAPIKey(kvStorage, "gemini_api_key", cfg.Gemini.APIKey)
		if err != nil {
			return nil, fmt.Errorf("gemini provider selected: %w", err)
		}
		return NewGeminiService(ctx, &cfg.Gemini, apiKey, logger)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.DefaultProvider)
	}
}

// NewEmbeddingBackend creates the Gemini client used for embeddings.
// Embeddings always go through Gemini regardless of the chat provider.
func NewEmbeddingBackend(ctx context.Context, cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*GeminiService, error) {
	apiKey, err := common.ResolveAPIKey(kvStorage, "gemini_api_key", cfg.Gemini.APIKey)
	if err != nil {
		return nil, fmt.Errorf("embedding backend: %w", err)
	}
	return NewGeminiService(ctx, &cfg.Gemini, apiKey, logger)
}
