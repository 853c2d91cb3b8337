package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"chat-relay/runtime"
)

// Server terminates websocket connections and drives the session lifecycle
// against the Hub: authenticate, register, pump frames, tear down.
type Server struct {
	hub      *runtime.Hub
	log      *slog.Logger
	upgrader websocket.Upgrader

	sendBuffer   int
	writeTimeout time.Duration
}

func NewServer(hub *runtime.Hub, log *slog.Logger, sendBuffer int, writeTimeout time.Duration) *Server {
	return &Server{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/ws", s.handleConnection)
}

// handleConnection walks the connection through its states: upgrade, token
// authentication (query parameter, checked before any frame exchange),
// activation via the Hub, then the blocking read loop. All exit paths funnel
// into the same teardown call.
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Upgrade failed", "err", err)
		return
	}

	userID, err := s.hub.Authenticate(token)
	if err != nil {
		// Policy-violation close, terminal. No frame exchange happened.
		deadline := time.Now().Add(s.writeTimeout)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		_ = socket.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = socket.Close()
		return
	}

	conn := NewConn(socket, s.log, s.sendBuffer, s.writeTimeout)
	go conn.WritePump()

	session := s.hub.Connect(r.Context(), userID, conn)
	socket.SetPongHandler(func(string) error {
		session.Confirm()
		return nil
	})

	for {
		_, raw, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("Read loop ended", "user_id", userID, "err", err)
			}
			break
		}
		s.hub.HandleFrame(r.Context(), session, raw)
	}

	// The request context may already be canceled at this point; teardown
	// (offline flag, presence broadcast) must still complete.
	s.hub.Disconnect(context.Background(), session)
	_ = conn.Close("connection closed")
}
