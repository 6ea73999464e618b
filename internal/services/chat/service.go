// Package chat runs multi-turn retrieval-augmented conversations on top of
// the one-shot query path, with in-memory session state.
package chat

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
)

const chatSystemPrompt = `You are a conversational guide to designated New York City landmarks.
Ground every answer in the provided context passages and cite landmark names.
Use the conversation history to resolve follow-up references.
If the context does not support an answer, say so rather than guessing.`

// Retriever is the retrieval step the chat loop depends on. The query
// service satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int, filter map[string]interface{}) ([]models.QueryResult, error)
}

// Service implements interfaces.ChatService.
type Service struct {
	retriever Retriever
	llm       interfaces.LLMService
	store     *ConversationStore
	topK      int
	markdown  goldmark.Markdown
	logger    arbor.ILogger
}

func NewService(retriever Retriever, llm interfaces.LLMService, store *ConversationStore, cfg common.ChatConfig, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		retriever: retriever,
		llm:       llm,
		store:     store,
		topK:      topK,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:    logger,
	}
}

// SendMessage appends a user turn, retrieves supporting chunks, asks the LLM
// with the conversation history, and records the assistant reply. An empty
// conversationID starts a new conversation; its ID is returned on the
// response via the stored conversation.
func (s *Service) SendMessage(ctx context.Context, conversationID, message string) (*models.QueryResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}

	conversation, err := s.resolveConversation(conversationID)
	if err != nil {
		return nil, err
	}

	history := toTurns(conversation.Messages)

	sources, err := s.retriever.Retrieve(ctx, message, s.topK, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	start := time.Now()
	answer, err := s.llm.ChatWithHistory(ctx, chatSystemPrompt, history, buildChatPrompt(message, sources))
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	now := time.Now()
	s.store.Append(conversation.ID, models.ChatMessage{Role: "user", Content: message, Timestamp: now})
	s.store.Append(conversation.ID, models.ChatMessage{Role: "assistant", Content: answer, Timestamp: now})

	s.logger.Info().
		Str("conversation_id", conversation.ID).
		Int("history", len(history)).
		Int("sources", len(sources)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("Chat turn completed")

	return &models.QueryResponse{
		ConversationID: conversation.ID,
		Answer:         answer,
		Sources:        sources,
		Model:          s.llm.ModelName(),
		DurationMs:     time.Since(start).Milliseconds(),
	}, nil
}

// RenderHTML converts a markdown answer to HTML for render=html clients.
func (s *Service) RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("markdown render failed: %w", err)
	}
	return buf.String(), nil
}

// GetConversation returns a stored conversation by ID.
func (s *Service) GetConversation(id string) (*models.Conversation, bool) {
	return s.store.Get(id)
}

// ClearConversation removes a conversation from the store.
func (s *Service) ClearConversation(id string) {
	s.store.Delete(id)
}

// resolveConversation returns an existing conversation or creates one when
// the ID is empty or expired.
func (s *Service) resolveConversation(id string) (*models.Conversation, error) {
	if id == "" {
		return s.store.Create(), nil
	}
	if conversation, ok := s.store.Get(id); ok {
		return conversation, nil
	}
	return nil, fmt.Errorf("conversation '%s' not found or expired", id)
}

func toTurns(messages []models.ChatMessage) []interfaces.ChatTurn {
	turns := make([]interfaces.ChatTurn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, interfaces.ChatTurn{Role: m.Role, Content: m.Content})
	}
	return turns
}

func buildChatPrompt(message string, sources []models.QueryResult) string {
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
			fmt.Fprintf(&b, "(%s)", source.LandmarkID)
		}
		b.WriteString("\n")
		b.WriteString(source.Text)
		b.WriteString("\n\n")
	}
	b.WriteString(message)
	return b.String()
}
