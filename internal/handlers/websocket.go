package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool, all origins allowed
	},
}

// WebSocketHandler carries chat over a persistent connection. Frames use the
// same request and response shapes as POST /api/chat.
type WebSocketHandler struct {
	chat     interfaces.ChatService
	renderer MarkdownRenderer
	logger   arbor.ILogger
}

func NewWebSocketHandler(chat interfaces.ChatService, renderer MarkdownRenderer) *WebSocketHandler {
	return &WebSocketHandler{
		chat:     chat,
		renderer: renderer,
		logger:   common.GetLogger(),
	}
}

type wsChatFrame struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	Render         string `json:"render,omitempty"`
}

type wsErrorFrame struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// HandleChat handles GET /ws/chat. Each inbound frame is one chat turn; the
// connection stays open across turns so the conversation ID persists.
func (h *WebSocketHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("Chat WebSocket connected")

	for {
		var frame wsChatFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("Chat WebSocket closed unexpectedly")
			}
			return
		}

		if strings.TrimSpace(frame.Message) == "" {
			h.writeError(conn, "Message is required")
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		response, err := h.chat.SendMessage(ctx, frame.ConversationID, frame.Message)
		cancel()
		if err != nil {
			h.writeError(conn, err.Error())
			continue
		}

		if frame.Render == "html" && h.renderer != nil {
			if html, err := h.renderer.RenderHTML(response.Answer); err == nil {
				response.AnswerHTML = html
			}
		}

		if err := conn.WriteJSON(response); err != nil {
			h.logger.Warn().Err(err).Msg("Chat WebSocket write failed")
			return
		}
	}
}

func (h *WebSocketHandler) writeError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(wsErrorFrame{Status: "error", Error: message}); err != nil {
		h.logger.Warn().Err(err).Msg("Chat WebSocket error write failed")
	}
}
