package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
)

// MarkdownRenderer converts a markdown answer into HTML.
type MarkdownRenderer interface {
	RenderHTML(markdown string) (string, error)
}

// ChatHandler exposes the conversational endpoint.
type ChatHandler struct {
	chat     interfaces.ChatService
	renderer MarkdownRenderer
	logger   arbor.ILogger
}

func NewChatHandler(chat interfaces.ChatService, renderer MarkdownRenderer) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		renderer: renderer,
		logger:   common.GetLogger(),
	}
}

type chatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatHandler handles POST /api/chat. With render=html the markdown answer
// is additionally returned as HTML.
func (h *ChatHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req chatRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}

	response, err := h.chat.SendMessage(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		if strings.Contains(err.Error(), "not found or expired") {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Chat turn failed")
		WriteError(w, http.StatusBadGateway, "Chat failed: "+err.Error())
		return
	}

	if r.URL.Query().Get("render") == "html" && h.renderer != nil {
		html, err := h.renderer.RenderHTML(response.Answer)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Markdown render failed")
		} else {
			response.AnswerHTML = html
		}
	}

	WriteJSON(w, http.StatusOK, response)
}

// ConversationHandler handles GET and DELETE on /api/chat/{id}.
func (h *ChatHandler) ConversationHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/chat/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "Conversation ID is required")
		return
	}

	switch r.Method {
	case "GET":
		conversation, ok := h.chat.GetConversation(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		WriteJSON(w, http.StatusOK, conversation)
	case "DELETE":
		h.chat.ClearConversation(id)
		WriteSuccess(w, "Conversation cleared")
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
