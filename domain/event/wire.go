package event

import (
	"encoding/json"

	"chat-relay/domain"
)

// Frame is the JSON envelope exchanged over a connection: {"type":..., "data":...}.
// Data stays raw until the type tag has been inspected.
type Frame struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SendPayload is the data of an inbound message:send frame.
type SendPayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// TypingPayload is the data of an inbound typing frame.
type TypingPayload struct {
	To       string `json:"to"`
	IsTyping bool   `json:"isTyping"`
}

// Encode wraps a domain event in its wire envelope.
func Encode(e DomainEvent) ([]byte, error) {
	var data any
	switch evt := e.(type) {
	case NewMessage:
		data = evt.Message
	default:
		data = e
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: e.EventType(), Data: raw})
}

// DecodeMessage is the inverse of Encode for message:new frames, used by
// clients and tests.
func DecodeMessage(frame Frame) (domain.Message, error) {
	var msg domain.Message
	err := json.Unmarshal(frame.Data, &msg)
	return msg, err
}
