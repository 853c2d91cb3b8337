package runtime

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
)

// MessageRouter validates, rate-limits, persists and delivers outbound
// messages. Delivery is echo-first: the sender always receives the persisted
// record back so its UI can reconcile optimistic state against the
// server-assigned id and timestamp; the receiver gets the identical payload
// only while registered. Offline receivers are served by history, not by a
// push queue.
type MessageRouter struct {
	store    contract.IMessageStore
	users    contract.IUserDirectory
	registry *Registry
	log      *slog.Logger

	// minInterval is the per-sender send floor (200ms = max 5 msg/s).
	minInterval time.Duration
	maxTextLen  int
}

func NewMessageRouter(store contract.IMessageStore, users contract.IUserDirectory,
	registry *Registry, log *slog.Logger, minInterval time.Duration, maxTextLen int) *MessageRouter {
	return &MessageRouter{
		store:       store,
		users:       users,
		registry:    registry,
		log:         log,
		minInterval: minInterval,
		maxTextLen:  maxTextLen,
	}
}

// Send processes one message:send intent from the session's read loop.
// Validation and the rate limiter run in frame-arrival order, which is what
// preserves per-sender ordering. Every returned error is typed and addressed
// to the sender only.
func (r *MessageRouter) Send(ctx context.Context, sender *Session, to, text string) (domain.Message, error) {
	// Empty and whitespace-only texts are rejected; so are oversized ones.
	if to == "" || strings.TrimSpace(text) == "" {
		return domain.Message{}, errors.ErrInvalidMessageData
	}
	if utf8.RuneCountInString(text) > r.maxTextLen {
		return domain.Message{}, errors.ErrInvalidMessageData
	}

	known, err := r.users.Exists(ctx, to)
	if err != nil {
		r.log.Error("Receiver lookup failed", "sender", sender.UserID, "receiver", to, "err", err)
		return domain.Message{}, errors.ErrDeliveryFailed
	}
	if !known {
		return domain.Message{}, errors.ErrUnknownReceiver
	}

	if !sender.AllowSend(time.Now(), r.minInterval) {
		return domain.Message{}, errors.ErrRateLimited
	}

	msg, err := r.store.AddMessage(ctx, sender.UserID, to, text)
	if err != nil {
		r.log.Error("Message persistence failed", "sender", sender.UserID, "receiver", to, "err", err)
		return domain.Message{}, errors.ErrDeliveryFailed
	}

	evt := event.NewMessage{Message: msg}
	if err := sender.Deliver(ctx, evt); err != nil {
		r.log.Debug("Echo delivery failed", "sender", sender.UserID, "err", err)
	}
	if receiver, ok := r.registry.Lookup(to); ok {
		if err := receiver.Deliver(ctx, evt); err != nil {
			r.log.Debug("Receiver delivery failed", "receiver", to, "err", err)
		}
	}
	return msg, nil
}
