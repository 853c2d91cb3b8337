// Package runtime is the connection/session core of the relay: it tracks
// which authenticated identity owns which live connection, fans events out to
// the right connections, throttles senders and reaps dead sessions. It holds
// no transport or storage code of its own; both are injected behind the
// contract interfaces.
package runtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/errors"
)

// Hub orchestrates the per-connection lifecycle: authentication, session
// registration, presence announcements, history replay, steady-state frame
// dispatch and exactly-once teardown.
type Hub struct {
	log      *slog.Logger
	verifier contract.ITokenVerifier
	store    contract.IMessageStore
	registry *Registry
	typing   *TypingTracker
	presence *PresenceBroadcaster
	router   *MessageRouter

	historyLimit int
}

func NewHub(log *slog.Logger, verifier contract.ITokenVerifier, store contract.IMessageStore,
	registry *Registry, typing *TypingTracker, presence *PresenceBroadcaster,
	router *MessageRouter, historyLimit int) *Hub {
	return &Hub{
		log:          log,
		verifier:     verifier,
		store:        store,
		registry:     registry,
		typing:       typing,
		presence:     presence,
		router:       router,
		historyLimit: historyLimit,
	}
}

// Authenticate resolves the connection credential. An empty token and an
// unverifiable one are distinct, both fatal to the connection.
func (h *Hub) Authenticate(token string) (string, error) {
	if token == "" {
		return "", errors.ErrAuthRequired
	}
	userID, err := h.verifier.VerifyToken(token)
	if err != nil || userID == "" {
		return "", errors.ErrInvalidToken
	}
	return userID, nil
}

// Connect registers an authenticated connection and runs the activation
// sequence: displace any previous session for the same user, announce the
// online transition, replay recent history to this connection only.
//
// Duplicate logins are last-writer-wins with cleanup: the displaced
// connection is closed explicitly rather than silently overwritten, and its
// teardown cannot deregister the new session or emit an offline broadcast,
// because Deregister is compare-and-delete.
func (h *Hub) Connect(ctx context.Context, userID string, conn contract.Conn) *Session {
	session := NewSession(userID, conn)

	if displaced := h.registry.Register(session); displaced != nil {
		h.log.Info("Displacing previous session", "user_id", userID)
		_ = displaced.Close("session replaced by a newer connection")
	}

	h.presence.Announce(ctx, userID, true)
	h.replayHistory(ctx, session)

	h.log.Info("Session active", "user_id", userID)
	return session
}

// Disconnect runs teardown: deregistration, offline announcement, typing
// cleanup. It is safe to call from racing triggers (peer close, I/O error,
// liveness eviction); only the call that wins the compare-and-delete runs
// the side effects.
func (h *Hub) Disconnect(ctx context.Context, session *Session) {
	if !h.registry.Deregister(session) {
		return
	}

	h.presence.Announce(ctx, session.UserID, false)
	h.typing.ClearUser(session.UserID)
	h.log.Info("Session closed", "user_id", session.UserID)
}

// HandleFrame dispatches one inbound frame by its declared type. Malformed
// and unknown frames produce an error event for the sender; the connection
// stays open.
func (h *Hub) HandleFrame(ctx context.Context, session *Session, raw []byte) {
	var frame event.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.deliverError(ctx, session, errors.ErrInvalidMessageFormat)
		return
	}

	switch frame.Type {
	case event.TypeMessageSend:
		var payload event.SendPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			h.deliverError(ctx, session, errors.ErrInvalidMessageData)
			return
		}
		if _, err := h.router.Send(ctx, session, payload.To, payload.Text); err != nil {
			h.deliverError(ctx, session, err)
		}

	case event.TypeTyping:
		var payload event.TypingPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.To == "" {
			h.deliverError(ctx, session, errors.ErrInvalidMessageData)
			return
		}
		h.handleTyping(ctx, session, payload)

	default:
		h.deliverError(ctx, session, errors.ErrUnknownFrameType)
	}
}

// handleTyping updates the typing set and relays the indicator to the
// recipient only, and only while they are registered. Nothing is queued for
// offline recipients.
func (h *Hub) handleTyping(ctx context.Context, session *Session, payload event.TypingPayload) {
	h.typing.Set(session.UserID, payload.To, payload.IsTyping)

	recipient, ok := h.registry.Lookup(payload.To)
	if !ok {
		return
	}
	evt := event.Typing{From: session.UserID, To: payload.To, IsTyping: payload.IsTyping}
	if err := recipient.Deliver(ctx, evt); err != nil {
		h.log.Debug("Typing delivery failed", "recipient", payload.To, "err", err)
	}
}

// replayHistory pushes the user's most recent messages to the fresh
// connection, newest first, as ordinary message events. A store failure is
// logged and swallowed: the connection proceeds without history.
func (h *Hub) replayHistory(ctx context.Context, session *Session) {
	messages, err := h.store.RecentMessages(ctx, session.UserID, h.historyLimit)
	if err != nil {
		h.log.Error("History replay failed", "user_id", session.UserID, "err", err)
		return
	}
	for _, msg := range messages {
		if err := session.Deliver(ctx, event.NewMessage{Message: msg}); err != nil {
			h.log.Debug("History delivery failed", "user_id", session.UserID, "err", err)
			return
		}
	}
}

func (h *Hub) deliverError(ctx context.Context, session *Session, cause error) {
	if err := session.Deliver(ctx, event.Error{Reason: cause.Error()}); err != nil {
		h.log.Debug("Error delivery failed", "user_id", session.UserID, "err", err)
	}
}

// OnlineUsers and IsUserOnline are the presence surface exposed to the HTTP
// layer.
func (h *Hub) OnlineUsers() []string { return h.registry.OnlineUsers() }

func (h *Hub) IsUserOnline(userID string) bool { return h.registry.IsOnline(userID) }
