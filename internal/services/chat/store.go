package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ternarybob/vestigo/internal/models"
)

// ConversationStore keeps chat sessions in memory with a TTL. Expired
// conversations are dropped lazily on access and by a periodic sweep.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*storedConversation
	ttl           time.Duration
	maxHistory    int
	done          chan struct{}
	closeOnce     sync.Once
}

type storedConversation struct {
	conversation *models.Conversation
	expiresAt    time.Time
}

// NewConversationStore creates a store that expires idle conversations after
// ttl and caps stored history at maxHistory messages per conversation.
func NewConversationStore(ttl time.Duration, maxHistory int) *ConversationStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxHistory <= 0 {
		maxHistory = 20
	}
	s := &ConversationStore{
		conversations: make(map[string]*storedConversation),
		ttl:           ttl,
		maxHistory:    maxHistory,
		done:          make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Create starts a new conversation and returns it.
func (s *ConversationStore) Create() *models.Conversation {
	now := time.Now()
	conversation := &models.Conversation{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversation.ID] = &storedConversation{
		conversation: conversation,
		expiresAt:    now.Add(s.ttl),
	}
	return conversation
}

// Get returns the conversation for the ID, refreshing its TTL.
func (s *ConversationStore) Get(id string) (*models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.conversations[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(stored.expiresAt) {
		delete(s.conversations, id)
		return nil, false
	}
	stored.expiresAt = time.Now().Add(s.ttl)
	return stored.conversation, true
}

// Append adds a message to the conversation, trimming the oldest messages
// once the history cap is exceeded.
func (s *ConversationStore) Append(id string, message models.ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.conversations[id]
	if !ok {
		return false
	}
	conversation := stored.conversation
	conversation.Messages = append(conversation.Messages, message)
	if len(conversation.Messages) > s.maxHistory {
		overflow := len(conversation.Messages) - s.maxHistory
		conversation.Messages = conversation.Messages[overflow:]
	}
	conversation.UpdatedAt = time.Now()
	stored.expiresAt = time.Now().Add(s.ttl)
	return true
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
}

// Len returns the number of live conversations.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Close stops the background sweep.
func (s *ConversationStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *ConversationStore) sweep() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, stored := range s.conversations {
				if now.After(stored.expiresAt) {
					delete(s.conversations, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
