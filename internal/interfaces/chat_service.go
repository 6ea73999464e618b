package interfaces

import (
	"context"

	"github.com/ternarybob/vestigo/internal/models"
)

// ChatService handles multi-turn retrieval-augmented conversations.
type ChatService interface {
	// SendMessage appends a user message to the conversation, retrieves
	// supporting chunks, asks the LLM, and returns the assistant reply.
	SendMessage(ctx context.Context, conversationID, message string) (*models.QueryResponse, error)

	// GetConversation returns a stored conversation by ID.
	GetConversation(id string) (*models.Conversation, bool)

	// ClearConversation removes a conversation from the store.
	ClearConversation(id string)
}

// QueryService answers one-shot retrieval-augmented questions.
type QueryService interface {
	Query(ctx context.Context, question string, topK int, filter map[string]interface{}) (*models.QueryResponse, error)
}
