package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/solkit/service/chatui"
	"github.com/brojonat/solkit/service/db"
	"github.com/brojonat/solkit/service/metrics"
)

// ChatRenderer renders chat pages through a memoizing message list.
type ChatRenderer struct {
	list   *chatui.MessageList
	logger *slog.Logger
}

// NewChatRenderer creates a chat renderer from the embedded chat templates.
func NewChatRenderer(m *metrics.Metrics, logger *slog.Logger) (*ChatRenderer, error) {
	renderer, err := chatui.NewRenderer()
	if err != nil {
		return nil, err
	}
	list, err := chatui.NewMessageList(renderer, chatui.DefaultCacheSize, m, logger)
	if err != nil {
		return nil, err
	}
	return &ChatRenderer{
		list:   list,
		logger: logger,
	}, nil
}

// handleChatPage serves the message list of a chat.
// GET /chats/{id}?status=idle|submitted|streaming&readonly=bool&artifact=bool
func handleChatPage(store Store, renderer *ChatRenderer, maxMessages int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := r.PathValue("id")
		query := r.URL.Query()

		status := chatui.StatusIdle
		if raw := query.Get("status"); raw != "" {
			status = chatui.Status(raw)
			if !status.Valid() {
				http.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
		}
		readonly, _ := strconv.ParseBool(query.Get("readonly"))
		artifact, _ := strconv.ParseBool(query.Get("artifact"))

		var messages []chatui.Message
		if store != nil {
			stored, err := store.ListMessages(r.Context(), chatID, maxMessages)
			if err != nil {
				renderer.logger.Error("failed to load chat messages", "chat_id", chatID, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			messages = make([]chatui.Message, len(stored))
			for i, m := range stored {
				messages[i] = chatui.Message{ID: m.ID, Role: m.Role, Content: m.Content}
			}
		}

		html, rendered, err := renderer.list.Render(chatui.Props{
			ChatID:            chatID,
			Status:            status,
			Messages:          messages,
			IsReadonly:        readonly,
			IsArtifactVisible: artifact,
		})
		if err != nil {
			renderer.logger.Error("failed to render template", "chat_id", chatID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if rendered {
			w.Header().Set("X-Render-Cache", "miss")
		} else {
			w.Header().Set("X-Render-Cache", "hit")
		}
		w.Write(html)
	}
}

type appendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// handleAppendMessage returns a handler that appends a message to a chat.
// POST /api/v1/chats/{id}/messages
func handleAppendMessage(store Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeError(w, "chat storage not configured", http.StatusServiceUnavailable)
			return
		}
		chatID := r.PathValue("id")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req appendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Role != chatui.RoleUser && req.Role != chatui.RoleAssistant {
			writeError(w, "role must be 'user' or 'assistant'", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeError(w, "content is required", http.StatusBadRequest)
			return
		}

		msg, err := store.AppendMessage(r.Context(), db.AppendMessageParams{
			ChatID:  chatID,
			Role:    req.Role,
			Content: req.Content,
		})
		if err != nil {
			logger.Error("failed to append message", "chat_id", chatID, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Debug("chat message appended", "chat_id", chatID, "message_id", msg.ID)
		writeJSON(w, messageResponse{
			ID:        msg.ID,
			ChatID:    msg.ChatID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		}, http.StatusCreated)
	})
}
