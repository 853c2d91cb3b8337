package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chat-relay/domain"
	"chat-relay/services"
)

// ChatHandler serves the persisted-message surface: directory listing,
// conversation pages and chat summaries. All routes require a bearer token.
type ChatHandler struct {
	history services.IHistoryService
	online  OnlineDirectory
}

// OnlineDirectory is the live-presence surface the Hub exposes to this layer.
type OnlineDirectory interface {
	OnlineUsers() []string
	IsUserOnline(userID string) bool
}

func NewChatHandler(history services.IHistoryService, online OnlineDirectory) *ChatHandler {
	return &ChatHandler{history: history, online: online}
}

func (h *ChatHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.history.Users(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []domain.PublicUser{}
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *ChatHandler) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.online.OnlineUsers())
}

// Messages returns one conversation page, newest first. Fetching a page
// marks the peer's unread messages read for the authenticated receiver.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	peerID := chi.URLParam(r, "peerID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	var cursor *string
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor = &raw
	}

	messages, next, err := h.history.Conversation(r.Context(), userID, peerID, limit, cursor)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"cursor":   next,
	})
}

func (h *ChatHandler) Chats(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	summaries, err := h.history.ChatSummaries(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build chat list")
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}
