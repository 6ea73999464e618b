package interfaces

import "context"

// LLMService generates chat completions. Implementations exist for Claude
// and Gemini; the factory selects one from configuration.
type LLMService interface {
	// Chat sends a system prompt and a user prompt and returns the model's
	// text response.
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ChatWithHistory sends prior turns along with the new prompt. Messages
	// alternate user/assistant roles.
	ChatWithHistory(ctx context.Context, systemPrompt string, history []ChatTurn, userPrompt string) (string, error)

	// ModelName returns the configured model identifier.
	ModelName() string
}

// ChatTurn is one prior message passed to ChatWithHistory.
type ChatTurn struct {
	Role    string
	Content string
}
