package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chat-relay/contract"
	"chat-relay/observability"
)

// NewRouter wires the HTTP surface: public auth endpoints, the
// bearer-protected chat/history endpoints, health, and the websocket
// endpoint registered by the ws server.
func NewRouter(authHandler *AuthHandler, chatHandler *ChatHandler,
	verifier contract.ITokenVerifier, wsRoutes func(chi.Router)) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)

	// The websocket endpoint authenticates itself via the token query
	// parameter, so it sits outside the bearer middleware.
	wsRoutes(r)

	r.Group(func(protected chi.Router) {
		protected.Use(BearerAuth(verifier))
		protected.Get("/users", chatHandler.Users)
		protected.Get("/users/online", chatHandler.OnlineUsers)
		protected.Get("/messages/{peerID}", chatHandler.Messages)
		protected.Get("/chats", chatHandler.Chats)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if stats, err := observability.Collect(); err == nil {
		payload["process"] = stats
	}
	respondJSON(w, http.StatusOK, payload)
}
