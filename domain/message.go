// Package domain contains core concepts of the relay.
// Messages are immutable once created; only ReadAt transitions, once,
// from nil to a timestamp, and only when the receiver reads the message.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between exactly two users. It is visible to
// its sender and its receiver and to nobody else.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	Text       string     `json:"text"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}
