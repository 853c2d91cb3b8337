// Package event defines the union of events delivered to live connections.
// Dispatch is driven by an explicit type tag rather than a handler registry,
// so adding an event variant is a compile-visible change.
package event

import "chat-relay/domain"

// Type tags the wire envelope of every frame.
type Type string

const (
	// Inbound frame types.
	TypeMessageSend Type = "message:send"
	TypeTyping      Type = "typing"

	// Outbound frame types. TypeTyping appears in both directions.
	TypeMessageNew Type = "message:new"
	TypePresence   Type = "presence"
	TypeError      Type = "error"
)

// DomainEvent is an outbound event addressed to one live connection.
type DomainEvent interface {
	EventType() Type
}

// NewMessage carries a freshly persisted (or replayed) message.
type NewMessage struct {
	Message domain.Message
}

func (NewMessage) EventType() Type { return TypeMessageNew }

// Presence announces an online/offline transition. Transient, never persisted
// as an event.
type Presence struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

func (Presence) EventType() Type { return TypePresence }

// Typing relays a transient typing indicator to its recipient.
type Typing struct {
	From     string `json:"from"`
	To       string `json:"to"`
	IsTyping bool   `json:"isTyping"`
}

func (Typing) EventType() Type { return TypeTyping }

// Error reports a recoverable protocol failure back to the sender only.
type Error struct {
	Reason string `json:"error"`
}

func (Error) EventType() Type { return TypeError }
