package models

import "time"

// ChatMessage is one turn in a conversation.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a stored chat session with bounded history.
type Conversation struct {
	ID        string        `json:"id"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// QueryResult is one retrieved chunk with its relevance score.
type QueryResult struct {
	ID         string  `json:"id"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
	LandmarkID string  `json:"landmark_id"`
	SourceType string  `json:"source_type"`
	Title      string  `json:"title,omitempty"`
	URL        string  `json:"url,omitempty"`
}

// QueryResponse is the full answer to a retrieval-augmented query. Chat
// responses additionally carry the conversation ID for follow-up turns.
type QueryResponse struct {
	ConversationID string        `json:"conversation_id,omitempty"`
	Answer         string        `json:"answer"`
	AnswerHTML     string        `json:"answer_html,omitempty"`
	Sources        []QueryResult `json:"sources"`
	Model          string        `json:"model,omitempty"`
	DurationMs     int64         `json:"duration_ms,omitempty"`
}
